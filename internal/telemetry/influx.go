// Package telemetry mirrors committed readings to a time-series database.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
)

const measurement = "air_quality"

// ErrDisabled is returned when the sink is not configured.
var ErrDisabled = errors.New("influxdb: not configured")

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL     string
	Token   string
	Org     string
	Bucket  string
	Station string
}

// InfluxSink writes one point per committed reading.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	station  string
}

// NewInfluxSink creates the sink. The server is not contacted until the
// first write.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, ErrDisabled
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		station:  cfg.Station,
	}, nil
}

// WriteReading implements aqi.Sink. Readings without any value are skipped.
func (s *InfluxSink) WriteReading(ctx context.Context, r aqi.Reading) error {
	fields := make(map[string]interface{}, 3)
	if r.PM25 != nil {
		fields["pm25"] = *r.PM25
	}
	if r.PM10 != nil {
		fields["pm10"] = *r.PM10
	}
	if r.SecondaryIndex != nil {
		fields["secondary_index"] = *r.SecondaryIndex
	}
	if len(fields) == 0 {
		return nil
	}

	ts, err := r.Timestamp()
	if err != nil {
		return fmt.Errorf("influxdb: reading time: %w", err)
	}

	point := write.NewPoint(measurement, map[string]string{"station": s.station}, fields, ts)
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("influxdb: write: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
