package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
	"github.com/i474232898/site-aqi-monitor/internal/common"
)

// HistoryKey is the namespaced key the rolling history lives under.
const HistoryKey = "build_clean_air_aqi_history_v1"

// storedReading is the tolerant decoding shape of one persisted reading.
// Numeric fields stay raw so a bad value nulls that field only.
type storedReading struct {
	Time           string          `json:"time"`
	PM25           json.RawMessage `json:"pm25"`
	PM10           json.RawMessage `json:"pm10"`
	SecondaryIndex json.RawMessage `json:"secondaryIndex"`
	// WQI is the field name used by older history payloads.
	WQI json.RawMessage `json:"wqi"`
}

// HistoryStore persists the rolling history as one JSON array under a key.
// It implements aqi.HistoryStore.
type HistoryStore struct {
	kv    KV
	key   string
	limit int
}

// NewHistoryStore creates a HistoryStore over kv.
func NewHistoryStore(kv KV, key string) *HistoryStore {
	if key == "" {
		key = HistoryKey
	}
	return &HistoryStore{
		kv:    kv,
		key:   key,
		limit: aqi.HistoryLimit,
	}
}

// Load returns the persisted history, or an empty one when nothing usable is
// stored. It never fails.
func (s *HistoryStore) Load(ctx context.Context) []aqi.Reading {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return []aqi.Reading{}
	}
	if err != nil {
		log.Printf("WARN: history: failed to read %s: %v", s.key, err)
		return []aqi.Reading{}
	}

	history, err := decodeHistory(raw)
	if err != nil {
		log.Printf("WARN: history: discarding unreadable %s: %v", s.key, err)
		return []aqi.Reading{}
	}
	return aqi.Tail(history, s.limit)
}

// Save writes the last HistoryLimit readings. Failures are logged and
// swallowed; the in-memory history stays authoritative.
func (s *HistoryStore) Save(ctx context.Context, history []aqi.Reading) {
	payload, err := json.Marshal(aqi.Tail(history, s.limit))
	if err != nil {
		log.Printf("ERROR: history: failed to encode history: %v", err)
		return
	}
	if err := s.kv.Set(ctx, s.key, payload); err != nil {
		log.Printf("ERROR: history: failed to write %s: %v", s.key, err)
	}
}

func decodeHistory(raw []byte) ([]aqi.Reading, error) {
	var stored []storedReading
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}

	history := make([]aqi.Reading, 0, len(stored))
	for _, r := range stored {
		index := coerce(r.SecondaryIndex)
		if index == nil {
			index = coerce(r.WQI)
		}
		history = append(history, aqi.Reading{
			Time:           r.Time,
			PM25:           coerce(r.PM25),
			PM10:           coerce(r.PM10),
			SecondaryIndex: index,
		})
	}
	return history, nil
}

// coerce turns a raw JSON field into a finite float or nil.
func coerce(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return common.SafeNumber(v)
}
