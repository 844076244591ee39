package sources

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/site-aqi-monitor/internal/common"
)

// indexStrategy locates the index value in one known response shape.
type indexStrategy struct {
	name    string
	extract func(payload any) (any, bool)
}

func fieldStrategy(path ...string) indexStrategy {
	return indexStrategy{
		name: strings.Join(path, "."),
		extract: func(payload any) (any, bool) {
			return common.Lookup(payload, path...)
		},
	}
}

// indexStrategies are tried in order; the first finite number wins.
var indexStrategies = []indexStrategy{
	{name: "number", extract: func(payload any) (any, bool) {
		n, ok := payload.(json.Number)
		return n, ok
	}},
	fieldStrategy("wqi"),
	fieldStrategy("value"),
	fieldStrategy("data", "wqi"),
}

// ExtractIndex pulls a numeric index out of an arbitrarily shaped payload.
func ExtractIndex(payload any) *float64 {
	for _, s := range indexStrategies {
		raw, ok := s.extract(payload)
		if !ok {
			continue
		}
		if v := common.SafeNumber(raw); v != nil {
			return v
		}
	}
	return nil
}

// IndexSource implements aqi.IndexSource for an optional, externally
// configured secondary index endpoint.
type IndexSource struct {
	name    string
	url     string
	token   string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewIndexSource creates a source for endpoint; an empty endpoint disables it.
func NewIndexSource(client *http.Client, endpoint, token string) *IndexSource {
	return &IndexSource{
		name:    "secondary-index",
		url:     endpoint,
		token:   token,
		client:  client,
		circuit: newBreaker("secondary-index", breakerTimeout),
	}
}

func (s *IndexSource) Name() string {
	return s.name
}

// Configured reports whether an endpoint URL is set.
func (s *IndexSource) Configured() bool {
	return s.url != ""
}

// FetchIndex returns nil without a request when no endpoint is configured.
func (s *IndexSource) FetchIndex(ctx context.Context) *float64 {
	if !s.Configured() {
		return nil
	}

	payload, err := getJSON(ctx, s.client, s.circuit, s.requestURL())
	if err != nil {
		log.Printf("WARN: %s: fetch failed: %v", s.name, err)
		return nil
	}
	return ExtractIndex(payload)
}

func (s *IndexSource) requestURL() string {
	if s.token == "" {
		return s.url
	}
	sep := "?"
	if strings.Contains(s.url, "?") {
		sep = "&"
	}
	return s.url + sep + "token=" + url.QueryEscape(s.token)
}
