package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
	"github.com/i474232898/site-aqi-monitor/internal/common"
)

type writeCapture struct {
	mu       sync.Mutex
	bodies   []string
	org      string
	bucket   string
	response int
}

func (w *writeCapture) handler(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v2/write" {
		rw.WriteHeader(http.StatusNotFound)
		return
	}
	body, _ := io.ReadAll(r.Body)

	w.mu.Lock()
	w.bodies = append(w.bodies, string(body))
	w.org = r.URL.Query().Get("org")
	w.bucket = r.URL.Query().Get("bucket")
	status := w.response
	w.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	rw.WriteHeader(status)
}

func newTestSink(t *testing.T, capture *writeCapture) *InfluxSink {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(capture.handler))
	t.Cleanup(srv.Close)

	sink, err := NewInfluxSink(InfluxConfig{
		URL:     srv.URL,
		Token:   "test-token",
		Org:     "site",
		Bucket:  "aqi",
		Station: "A123",
	})
	require.NoError(t, err)
	t.Cleanup(sink.Close)
	return sink
}

func TestInfluxSinkWritesPoint(t *testing.T) {
	capture := &writeCapture{}
	sink := newTestSink(t, capture)

	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := aqi.NewReading(ts, common.Float(75), nil, common.Float(8))
	require.NoError(t, sink.WriteReading(context.Background(), r))

	require.Len(t, capture.bodies, 1)
	line := capture.bodies[0]
	assert.Contains(t, line, "air_quality,station=A123 ")
	assert.Contains(t, line, "pm25=75")
	assert.Contains(t, line, "secondary_index=8")
	assert.NotContains(t, line, "pm10=")
	assert.Contains(t, line, "1735689600000000000")
	assert.Equal(t, "site", capture.org)
	assert.Equal(t, "aqi", capture.bucket)
}

func TestInfluxSinkSkipsEmptyReading(t *testing.T) {
	capture := &writeCapture{}
	sink := newTestSink(t, capture)

	require.NoError(t, sink.WriteReading(context.Background(), aqi.NewReading(time.Now(), nil, nil, nil)))
	assert.Empty(t, capture.bodies)
}

func TestInfluxSinkReportsServerError(t *testing.T) {
	capture := &writeCapture{response: http.StatusUnauthorized}
	sink := newTestSink(t, capture)

	err := sink.WriteReading(context.Background(), aqi.NewReading(time.Now(), nil, common.Float(120), nil))
	assert.Error(t, err)
}

func TestNewInfluxSinkRequiresConfig(t *testing.T) {
	_, err := NewInfluxSink(InfluxConfig{URL: "http://localhost:8086"})
	assert.ErrorIs(t, err, ErrDisabled)
}
