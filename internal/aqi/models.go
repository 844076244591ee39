package aqi

import (
	"time"

	"github.com/relvacode/iso8601"
)

const (
	// HistoryLimit caps the rolling history, in memory and in durable storage.
	HistoryLimit = 500

	// PollInterval is the fixed acquisition cadence.
	PollInterval = 5 * time.Minute

	// AlertWindow is the minimum time between two threshold alerts.
	AlertWindow = 10 * time.Minute

	// Safe limits in µg/m³.
	PM25SafeLimit = 60.0
	PM10SafeLimit = 100.0
)

// timeLayout matches the millisecond UTC form used by browsers' toISOString.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Reading is one timestamped observation. Nil fields were not observed.
type Reading struct {
	Time           string   `json:"time"`
	PM25           *float64 `json:"pm25"`
	PM10           *float64 `json:"pm10"`
	SecondaryIndex *float64 `json:"secondaryIndex"`
}

// NewReading stamps raw fetch results with t in UTC.
func NewReading(t time.Time, pm25, pm10, index *float64) Reading {
	return Reading{
		Time:           FormatTime(t),
		PM25:           pm25,
		PM10:           pm10,
		SecondaryIndex: index,
	}
}

// FormatTime renders t the way readings store it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Timestamp parses the reading's ISO-8601 time.
func (r Reading) Timestamp() (time.Time, error) {
	return iso8601.ParseString(r.Time)
}

// Particulates is the result of one particulate feed fetch.
type Particulates struct {
	PM25 *float64 `json:"pm25"`
	PM10 *float64 `json:"pm10"`
}

// Alert is a threshold notification emitted by the acquisition loop.
type Alert struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	PM25    *float64  `json:"pm25"`
	PM10    *float64  `json:"pm10"`
	Message string    `json:"message"`
}

// Snapshot is a read-only copy of the monitor state handed to consumers.
type Snapshot struct {
	CurrentPM25           *float64   `json:"currentPM25"`
	CurrentPM10           *float64   `json:"currentPM10"`
	CurrentSecondaryIndex *float64   `json:"currentSecondaryIndex"`
	PreviousPM25          *float64   `json:"previousPM25"`
	PreviousPM10          *float64   `json:"previousPM10"`
	LastAlertTime         *time.Time `json:"lastAlertTime"`
	UpdatedAt             time.Time  `json:"updatedAt"`
	TickCount             int        `json:"tickCount"`
	History               []Reading  `json:"history"`
}

// appendCapped appends r and evicts from the front until len <= limit.
// The result never shares a backing array with h.
func appendCapped(h []Reading, r Reading, limit int) []Reading {
	start := 0
	if over := len(h) + 1 - limit; over > 0 {
		start = over
	}
	if start > len(h) {
		start = len(h)
	}
	out := make([]Reading, 0, len(h)-start+1)
	out = append(out, h[start:]...)
	return append(out, r)
}

// Tail returns a copy of the last n readings of h.
func Tail(h []Reading, n int) []Reading {
	if n < 0 {
		n = 0
	}
	if len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]Reading, len(h))
	copy(out, h)
	return out
}
