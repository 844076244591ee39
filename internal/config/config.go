package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/site-aqi-monitor/internal/aqi/sources"
	"github.com/i474232898/site-aqi-monitor/internal/store"
)

var validate = validator.New()

type AppConfig struct {
	// Particulate feed.
	WAQIToken     string
	WAQIStationID string
	WAQIBaseURL   string `validate:"required,url"`

	// Secondary index endpoint; empty disables it.
	WQIURL   string `validate:"omitempty,url"`
	WQIToken string

	// HTTPTimeout bounds every outbound fetch.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// History persistence.
	HistoryBackend string `validate:"oneof=memory sqlite redis"`
	SQLitePath     string `validate:"required_if=HistoryBackend sqlite"`
	RedisAddr      string `validate:"required_if=HistoryBackend redis"`
	RedisPassword  string
	RedisDB        int `validate:"gte=0"`
	RedisPrefix    string

	// Alert publishing; empty broker disables it.
	MQTTBroker   string `validate:"omitempty,url"`
	MQTTTopic    string `validate:"required_with=MQTTBroker"`
	MQTTClientID string `validate:"required_with=MQTTBroker"`

	// Telemetry sink; empty URL disables it.
	InfluxURL    string `validate:"omitempty,url"`
	InfluxToken  string
	InfluxOrg    string `validate:"required_with=InfluxURL"`
	InfluxBucket string `validate:"required_with=InfluxURL"`

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.WAQIToken = os.Getenv("WAQI_TOKEN")
	cfg.WAQIStationID = os.Getenv("WAQI_STATION_ID")
	cfg.WAQIBaseURL = getenvDefault("WAQI_BASE_URL", sources.DefaultWAQIBaseURL)

	cfg.WQIURL = os.Getenv("WQI_URL")
	cfg.WQIToken = os.Getenv("WQI_TOKEN")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.HistoryBackend = getenvDefault("HISTORY_BACKEND", store.BackendSQLite)
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/aqi.db")
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)
	cfg.RedisPrefix = getenvDefault("REDIS_PREFIX", "site-aqi")

	cfg.MQTTBroker = os.Getenv("MQTT_BROKER")
	cfg.MQTTTopic = getenvDefault("MQTT_TOPIC", "site-aqi/alerts")
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "site-aqi-monitor")

	cfg.InfluxURL = os.Getenv("INFLUX_URL")
	cfg.InfluxToken = os.Getenv("INFLUX_TOKEN")
	cfg.InfluxOrg = os.Getenv("INFLUX_ORG")
	cfg.InfluxBucket = os.Getenv("INFLUX_BUCKET")

	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.WAQIToken == "" || cfg.WAQIStationID == "" {
		log.Println("WARN: WAQI_TOKEN or WAQI_STATION_ID not set; particulate readings will be empty")
	}

	return cfg, nil
}

// Store returns the history backend settings.
func (c *AppConfig) Store() store.Config {
	return store.Config{
		Backend:    c.HistoryBackend,
		SQLitePath: c.SQLitePath,
		Redis: store.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
		},
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
