package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
	"github.com/i474232898/site-aqi-monitor/internal/common"
)

type stubMonitor struct {
	snap    aqi.Snapshot
	alerts  []aqi.Alert
	updates []aqi.Snapshot
}

func (s *stubMonitor) Snapshot() aqi.Snapshot { return s.snap }

func (s *stubMonitor) Alerts() []aqi.Alert { return s.alerts }

// Subscribe delivers the queued updates and then reports the monitor closed.
func (s *stubMonitor) Subscribe() (<-chan aqi.Snapshot, func()) {
	ch := make(chan aqi.Snapshot, len(s.updates))
	for _, u := range s.updates {
		ch <- u
	}
	close(ch)
	return ch, func() {}
}

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testHistory() []aqi.Reading {
	return []aqi.Reading{
		aqi.NewReading(base, common.Float(40), common.Float(80), nil),
		aqi.NewReading(base.Add(5*time.Minute), common.Float(50), nil, common.Float(7)),
		aqi.NewReading(base.Add(10*time.Minute), nil, common.Float(90), nil),
		aqi.NewReading(base.Add(15*time.Minute), common.Float(70), common.Float(110), nil),
	}
}

func newTestApp(mon Monitor) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, mon)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestCurrentReportsStatusAndMovement(t *testing.T) {
	last := base.Add(15 * time.Minute)
	app := newTestApp(&stubMonitor{snap: aqi.Snapshot{
		CurrentPM25:   common.Float(70),
		CurrentPM10:   common.Float(60),
		PreviousPM25:  common.Float(50),
		PreviousPM10:  common.Float(60),
		LastAlertTime: &last,
		UpdatedAt:     last,
		TickCount:     4,
	}})

	status, raw := doRequest(t, app, http.MethodGet, "/api/v1/aqi/current", "")
	require.Equal(t, http.StatusOK, status)

	var got currentView
	require.NoError(t, json.Unmarshal(raw, &got))
	require.NotNil(t, got.PM25.Status)
	assert.Equal(t, aqi.StatusCritical, *got.PM25.Status)
	assert.Equal(t, aqi.TrendUp, *got.PM25.Movement)
	assert.Equal(t, 60.0, got.PM25.SafeLimit)
	assert.Equal(t, aqi.StatusModerate, *got.PM10.Status)
	assert.Equal(t, aqi.TrendStable, *got.PM10.Movement)
	assert.Nil(t, got.SecondaryIndex)
	require.Len(t, got.Advisories, 2)
	assert.Equal(t, "CRITICAL: PM2.5 Above Safe Limit", got.Advisories[0].Title)
	assert.True(t, last.Equal(*got.LastAlertTime))
	assert.Equal(t, 4, got.TickCount)
}

func TestCurrentBeforeFirstTick(t *testing.T) {
	app := newTestApp(&stubMonitor{})

	status, raw := doRequest(t, app, http.MethodGet, "/api/v1/aqi/current", "")
	require.Equal(t, http.StatusOK, status)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	pm25 := got["pm25"].(map[string]any)
	assert.Nil(t, pm25["current"])
	assert.Nil(t, pm25["status"])
	assert.Nil(t, pm25["movement"])
	assert.Nil(t, got["updatedAt"])
	assert.Empty(t, got["advisories"])
}

// TestHistoryValidation verifies that the history endpoint enforces the
// 1-500 range for `limit` and a well-ordered time window.
func TestHistoryValidation(t *testing.T) {
	app := newTestApp(&stubMonitor{snap: aqi.Snapshot{History: testHistory()}})

	for _, target := range []string{
		"/api/v1/aqi/history?limit=0",
		"/api/v1/aqi/history?limit=501",
		"/api/v1/aqi/history?limit=abc",
		"/api/v1/aqi/history?from=yesterday",
		"/api/v1/aqi/history?from=2025-01-01T00:10:00Z&to=2025-01-01T00:05:00Z",
	} {
		status, raw := doRequest(t, app, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, status, target)
		assert.Contains(t, string(raw), `"error":true`, target)
	}
}

func TestHistoryFiltersAndLimits(t *testing.T) {
	history := testHistory()
	app := newTestApp(&stubMonitor{snap: aqi.Snapshot{History: history}})

	decode := func(raw []byte) []aqi.Reading {
		var body struct {
			Count    int           `json:"count"`
			Readings []aqi.Reading `json:"readings"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, body.Count, len(body.Readings))
		return body.Readings
	}

	status, raw := doRequest(t, app, http.MethodGet, "/api/v1/aqi/history", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, history, decode(raw))

	status, raw = doRequest(t, app, http.MethodGet, "/api/v1/aqi/history?limit=2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, history[2:], decode(raw))

	from := base.Add(5 * time.Minute).Unix()
	status, raw = doRequest(t, app, http.MethodGet,
		"/api/v1/aqi/history?from="+fmtInt(from)+"&to=2025-01-01T00:10:00Z", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, history[1:3], decode(raw))
}

func fmtInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestForecastEndpoint(t *testing.T) {
	app := newTestApp(&stubMonitor{snap: aqi.Snapshot{
		CurrentPM25: common.Float(70),
		CurrentPM10: common.Float(110),
		History:     testHistory(),
	}})

	status, raw := doRequest(t, app, http.MethodGet, "/api/v1/aqi/forecast", "")
	require.Equal(t, http.StatusOK, status)

	var got aqi.Forecast
	require.NoError(t, json.Unmarshal(raw, &got))
	require.NotNil(t, got.PM25.Predicted)
	assert.Equal(t, 53.3, *got.PM25.Predicted)
	assert.Equal(t, aqi.TrendDown, *got.PM25.Trend)
	require.NotNil(t, got.PM10.Predicted)
	assert.Equal(t, 93.3, *got.PM10.Predicted)
	assert.Equal(t, aqi.TrendDown, *got.PM10.Trend)
	assert.Equal(t, 3, got.PM10.Samples)
}

func TestAlertsEndpoint(t *testing.T) {
	alert := aqi.NewAlert(base, common.Float(75), nil)
	app := newTestApp(&stubMonitor{alerts: []aqi.Alert{alert}})

	status, raw := doRequest(t, app, http.MethodGet, "/api/v1/aqi/alerts", "")
	require.Equal(t, http.StatusOK, status)

	var body struct {
		Alerts []aqi.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, alert.ID, body.Alerts[0].ID)
	assert.Equal(t, "High AQI detected (PM2.5: 75, PM10: N/A)", body.Alerts[0].Message)
}

func TestStreamEmitsSnapshots(t *testing.T) {
	app := newTestApp(&stubMonitor{
		snap:    aqi.Snapshot{CurrentPM25: common.Float(10)},
		updates: []aqi.Snapshot{{CurrentPM25: common.Float(65), TickCount: 1}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/aqi/stream", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	events := strings.Split(strings.TrimSpace(string(raw)), "\n\n")
	require.Len(t, events, 2)
	for _, e := range events {
		assert.True(t, strings.HasPrefix(e, "event: snapshot\ndata: "), e)
	}
	assert.Contains(t, events[0], `"current":10`)
	assert.Contains(t, events[1], `"current":65`)
	assert.Contains(t, events[1], `"status":"critical"`)
}

func TestComplianceContent(t *testing.T) {
	app := newTestApp(&stubMonitor{})

	status, raw := doRequest(t, app, http.MethodGet, "/api/v1/compliance/checklist", "")
	require.Equal(t, http.StatusOK, status)
	var checklist struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(raw, &checklist))
	assert.Len(t, checklist.Items, 8)

	status, raw = doRequest(t, app, http.MethodGet, "/api/v1/compliance/guidelines", "")
	require.Equal(t, http.StatusOK, status)
	var guidelines struct {
		Guidelines []map[string]any `json:"guidelines"`
	}
	require.NoError(t, json.Unmarshal(raw, &guidelines))
	assert.Len(t, guidelines.Guidelines, 6)
}

func TestComplianceEvaluate(t *testing.T) {
	app := newTestApp(&stubMonitor{})

	status, raw := doRequest(t, app, http.MethodPost, "/api/v1/compliance/evaluate", `{"checked":["wheel","water"]}`)
	require.Equal(t, http.StatusOK, status)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, 2.0, ev["checked"])
	assert.Equal(t, 8.0, ev["total"])
	assert.Equal(t, 25.0, ev["rate"])
	assert.Equal(t, false, ev["fullyCompliant"])

	for _, body := range []string{
		`{"checked":["wheel","helipad"]}`,
		`{"checked":[""]}`,
		`{}`,
		`{"checked":`,
	} {
		status, _ := doRequest(t, app, http.MethodPost, "/api/v1/compliance/evaluate", body)
		assert.Equal(t, http.StatusBadRequest, status, body)
	}
}
