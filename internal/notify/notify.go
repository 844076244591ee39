// Package notify delivers exceedance alerts to operators.
package notify

import (
	"context"
	"errors"
	"log"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
)

// Log writes the alert message to the process log.
type Log struct{}

// NewLog creates a Log notifier.
func NewLog() *Log {
	return &Log{}
}

func (*Log) Notify(_ context.Context, a aqi.Alert) error {
	log.Printf("WARN: alert %s: %s", a.ID, a.Message)
	return nil
}

// Multi fans an alert out to every wrapped notifier.
type Multi []aqi.Notifier

// NewMulti drops nil notifiers from ns.
func NewMulti(ns ...aqi.Notifier) Multi {
	out := make(Multi, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Notify delivers to all notifiers even if some fail; the failures are joined.
func (m Multi) Notify(ctx context.Context, a aqi.Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
