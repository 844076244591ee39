package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/site-aqi-monitor/internal/api/http"
	"github.com/i474232898/site-aqi-monitor/internal/aqi"
	"github.com/i474232898/site-aqi-monitor/internal/aqi/sources"
	"github.com/i474232898/site-aqi-monitor/internal/config"
	"github.com/i474232898/site-aqi-monitor/internal/notify"
	"github.com/i474232898/site-aqi-monitor/internal/scheduler"
	"github.com/i474232898/site-aqi-monitor/internal/store"
	"github.com/i474232898/site-aqi-monitor/internal/telemetry"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound feed calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Durable history backend.
	kv, err := store.Open(cfg.Store())
	if err != nil {
		log.Fatalf("failed to open %s history store: %v", cfg.HistoryBackend, err)
	}
	defer kv.Close()
	history := store.NewHistoryStore(kv, store.HistoryKey)

	// Feeds with circuit breakers.
	particulate := sources.NewWAQISource(httpClient, cfg.WAQIBaseURL, cfg.WAQIStationID, cfg.WAQIToken)
	var index aqi.IndexSource
	if idx := sources.NewIndexSource(httpClient, cfg.WQIURL, cfg.WQIToken); idx.Configured() {
		index = idx
	}

	// Alert delivery: always logged, optionally published.
	notifiers := []aqi.Notifier{notify.NewLog()}
	if cfg.MQTTBroker != "" {
		mq, err := notify.ConnectMQTT(notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
		})
		if err != nil {
			log.Printf("WARN: MQTT alerts disabled: %v", err)
		} else {
			defer mq.Close()
			notifiers = append(notifiers, mq)
		}
	}

	var opts []aqi.Option
	if cfg.InfluxURL != "" {
		sink, err := telemetry.NewInfluxSink(telemetry.InfluxConfig{
			URL:     cfg.InfluxURL,
			Token:   cfg.InfluxToken,
			Org:     cfg.InfluxOrg,
			Bucket:  cfg.InfluxBucket,
			Station: cfg.WAQIStationID,
		})
		if err != nil {
			log.Printf("WARN: telemetry disabled: %v", err)
		} else {
			defer sink.Close()
			opts = append(opts, aqi.WithSink(sink))
		}
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	monitor := aqi.NewMonitor(loadCtx, history, particulate, index, notify.NewMulti(notifiers...), opts...)
	cancelLoad()

	// Scheduler that periodically runs an acquisition tick.
	sched := scheduler.New(aqi.PollInterval, monitor)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "site-aqi-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		snap := monitor.Snapshot()
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "site-aqi-monitor",
			"tickCount": snap.TickCount,
			"history":   len(snap.History),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, monitor)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	// Mark the monitor closed first so a tick cancelled by Stop is discarded.
	monitor.Close()
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
