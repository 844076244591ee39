package sources

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
	"github.com/i474232898/site-aqi-monitor/internal/common"
)

// DefaultWAQIBaseURL is the public World Air Quality Index API.
const DefaultWAQIBaseURL = "https://api.waqi.info"

// WAQISource implements aqi.ParticulateSource for a single WAQI station feed.
type WAQISource struct {
	name      string
	baseURL   string
	stationID string
	token     string
	client    *http.Client
	circuit   *gobreaker.CircuitBreaker
}

// NewWAQISource creates a source for one station; an empty baseURL uses DefaultWAQIBaseURL.
func NewWAQISource(client *http.Client, baseURL, stationID, token string) *WAQISource {
	if baseURL == "" {
		baseURL = DefaultWAQIBaseURL
	}
	return &WAQISource{
		name:      "waqi",
		baseURL:   strings.TrimRight(baseURL, "/"),
		stationID: stationID,
		token:     token,
		client:    client,
		circuit:   newBreaker("waqi", breakerTimeout),
	}
}

func (s *WAQISource) Name() string {
	return s.name
}

// FetchParticulates requests the station feed. Every failure degrades to a
// reading with both values nil.
func (s *WAQISource) FetchParticulates(ctx context.Context) aqi.Particulates {
	if s.token == "" || s.stationID == "" {
		log.Printf("WARN: waqi: token or station not configured (WAQI_TOKEN / WAQI_STATION_ID)")
		return aqi.Particulates{}
	}

	payload, err := getJSON(ctx, s.client, s.circuit, s.feedURL())
	if err != nil {
		log.Printf("ERROR: waqi: fetch failed for station %s: %v", s.stationID, err)
		return aqi.Particulates{}
	}

	status, _ := common.Lookup(payload, "status")
	iaqi, ok := common.Lookup(payload, "data", "iaqi")
	if status != "ok" || !ok {
		log.Printf("WARN: waqi: no data for station %s (status=%v)", s.stationID, status)
		return aqi.Particulates{}
	}
	if _, isObject := iaqi.(map[string]any); !isObject {
		log.Printf("WARN: waqi: malformed iaqi block for station %s", s.stationID)
		return aqi.Particulates{}
	}

	pm25, _ := common.Lookup(iaqi, "pm25", "v")
	pm10, _ := common.Lookup(iaqi, "pm10", "v")
	return aqi.Particulates{
		PM25: common.SafeNumber(pm25),
		PM10: common.SafeNumber(pm10),
	}
}

func (s *WAQISource) feedURL() string {
	values := url.Values{}
	values.Set("token", s.token)
	return fmt.Sprintf("%s/feed/@%s/?%s", s.baseURL, url.PathEscape(s.stationID), values.Encode())
}
