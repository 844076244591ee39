package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
)

const tickTimeout = 30 * time.Second

// Ticker runs one acquisition cycle. *aqi.Monitor satisfies it.
type Ticker interface {
	Tick(ctx context.Context) (aqi.Reading, bool)
}

// Scheduler drives periodic acquisition ticks.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ticker    Ticker
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(interval time.Duration, ticker Ticker) *Scheduler {
	if interval <= 0 {
		interval = aqi.PollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		ticker:    ticker,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the tick job, runs it once immediately and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).
		SingletonMode().
		StartImmediately().
		Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("INFO: scheduler: polling every %s", s.interval)
	return nil
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, tickTimeout)
	defer cancel()

	start := time.Now()
	reading, ok := s.ticker.Tick(ctx)
	if !ok {
		log.Println("DEBUG: scheduler: tick skipped")
		return
	}
	log.Printf("DEBUG: scheduler: tick committed reading at %s in %s", reading.Time, time.Since(start))
}

// Stop stops the scheduler and cancels any in-flight tick.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
