package aqi

import (
	"context"
)

// ParticulateSource fetches PM2.5 and PM10 from the particulate feed.
// Implementations never fail: unavailable values come back nil.
type ParticulateSource interface {
	Name() string
	FetchParticulates(ctx context.Context) Particulates
}

// IndexSource fetches the optional secondary quality index, nil when unavailable.
type IndexSource interface {
	Name() string
	FetchIndex(ctx context.Context) *float64
}

// HistoryStore is the durable mirror of the rolling history.
// Load and Save absorb their own failures.
type HistoryStore interface {
	Load(ctx context.Context) []Reading
	Save(ctx context.Context, history []Reading)
}

// Notifier delivers threshold alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Sink receives every committed reading, e.g. for a time-series database.
type Sink interface {
	WriteReading(ctx context.Context, r Reading) error
}
