package aqi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
	"github.com/i474232898/site-aqi-monitor/internal/aqi/sources"
	"github.com/i474232898/site-aqi-monitor/internal/store"
)

func TestTickRecordsNullsWhenFeedFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	kv := store.NewMemoryKV()
	history := store.NewHistoryStore(kv, store.HistoryKey)

	m := aqi.NewMonitor(
		context.Background(),
		history,
		sources.NewWAQISource(srv.Client(), srv.URL, "A1", "token"),
		sources.NewIndexSource(srv.Client(), srv.URL, ""),
		nil,
	)

	r, ok := m.Tick(context.Background())
	require.True(t, ok)
	assert.Nil(t, r.PM25)
	assert.Nil(t, r.PM10)
	assert.Nil(t, r.SecondaryIndex)

	persisted := history.Load(context.Background())
	require.Len(t, persisted, 1)
	assert.Equal(t, r, persisted[0])
}
