package aqi

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// maxRecentAlerts bounds the alert log kept for consumers.
const maxRecentAlerts = 50

// Monitor is the acquisition loop. It exclusively owns the current/previous
// values, the rolling history and the alert throttle; consumers only ever see
// Snapshot copies.
type Monitor struct {
	particulate ParticulateSource
	index       IndexSource
	history     HistoryStore
	notifier    Notifier
	sink        Sink
	now         func() time.Time

	// tickMu is held for the whole of a tick; a concurrent tick is skipped.
	tickMu sync.Mutex
	closed atomic.Bool

	mu     sync.RWMutex
	state  monitorState
	alerts []Alert

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

type monitorState struct {
	currentPM25   *float64
	currentPM10   *float64
	currentIndex  *float64
	previousPM25  *float64
	previousPM10  *float64
	readings      []Reading
	lastAlertTime *time.Time
	updatedAt     time.Time
	ticks         int
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithClock overrides the wall clock used for readings and alert throttling.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithSink mirrors every committed reading to s.
func WithSink(s Sink) Option {
	return func(m *Monitor) {
		m.sink = s
	}
}

// NewMonitor creates a Monitor and hydrates its history from the durable store.
func NewMonitor(
	ctx context.Context,
	history HistoryStore,
	particulate ParticulateSource,
	index IndexSource,
	notifier Notifier,
	opts ...Option,
) *Monitor {
	m := &Monitor{
		particulate: particulate,
		index:       index,
		history:     history,
		notifier:    notifier,
		now:         time.Now,
		subs:        make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.state.readings = Tail(history.Load(ctx), HistoryLimit)
	log.Printf("INFO: monitor: restored %d readings from history store", len(m.state.readings))

	return m
}

// Tick runs one acquisition cycle. It returns the recorded reading and true
// when the tick was committed, or false when it was skipped because another
// tick was in flight or the monitor was closed.
func (m *Monitor) Tick(ctx context.Context) (Reading, bool) {
	if !m.tickMu.TryLock() {
		log.Printf("WARN: monitor: previous tick still in progress; skipping")
		return Reading{}, false
	}
	defer m.tickMu.Unlock()

	if m.closed.Load() {
		return Reading{}, false
	}

	var (
		wg          sync.WaitGroup
		particulate Particulates
		index       *float64
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if m.particulate != nil {
			particulate = m.particulate.FetchParticulates(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		if m.index != nil {
			index = m.index.FetchIndex(ctx)
		}
	}()
	wg.Wait()

	// Torn down or cancelled while fetching: drop the results without
	// touching state.
	if m.closed.Load() || ctx.Err() != nil {
		return Reading{}, false
	}

	now := m.now()

	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		return Reading{}, false
	}
	st := &m.state
	st.previousPM25 = st.currentPM25
	st.previousPM10 = st.currentPM10
	if particulate.PM25 != nil {
		st.currentPM25 = particulate.PM25
	}
	if particulate.PM10 != nil {
		st.currentPM10 = particulate.PM10
	}
	if index != nil {
		st.currentIndex = index
	}

	reading := NewReading(now, particulate.PM25, particulate.PM10, index)
	st.readings = appendCapped(st.readings, reading, HistoryLimit)
	st.updatedAt = now
	st.ticks++
	persisted := Tail(st.readings, HistoryLimit)
	m.mu.Unlock()

	m.history.Save(ctx, persisted)

	m.checkAlert(ctx, now, particulate)

	if m.sink != nil {
		if err := m.sink.WriteReading(ctx, reading); err != nil {
			log.Printf("WARN: monitor: telemetry write failed: %v", err)
		}
	}

	m.publish(m.Snapshot())
	return reading, true
}

// checkAlert emits at most one alert per AlertWindow for readings over threshold.
func (m *Monitor) checkAlert(ctx context.Context, now time.Time, p Particulates) {
	m.mu.Lock()
	if !alertDue(m.state.lastAlertTime, now) || !Exceeds(p.PM25, p.PM10) {
		m.mu.Unlock()
		return
	}
	alert := NewAlert(now, p.PM25, p.PM10)
	at := now
	m.state.lastAlertTime = &at
	m.alerts = append(m.alerts, alert)
	if len(m.alerts) > maxRecentAlerts {
		m.alerts = m.alerts[len(m.alerts)-maxRecentAlerts:]
	}
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, alert); err != nil {
		log.Printf("ERROR: monitor: alert notification failed: %v", err)
	}
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := m.state
	snap := Snapshot{
		CurrentPM25:           st.currentPM25,
		CurrentPM10:           st.currentPM10,
		CurrentSecondaryIndex: st.currentIndex,
		PreviousPM25:          st.previousPM25,
		PreviousPM10:          st.previousPM10,
		UpdatedAt:             st.updatedAt,
		TickCount:             st.ticks,
		History:               Tail(st.readings, len(st.readings)),
	}
	if st.lastAlertTime != nil {
		t := *st.lastAlertTime
		snap.LastAlertTime = &t
	}
	return snap
}

// Alerts returns the most recent alerts, oldest first.
func (m *Monitor) Alerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Subscribe registers for a Snapshot after every committed tick. Slow
// subscribers only ever see the newest snapshot. The returned func
// unsubscribes; the channel is closed on unsubscribe or Close.
func (m *Monitor) Subscribe() (<-chan Snapshot, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	ch := make(chan Snapshot, 1)
	if m.closed.Load() {
		close(ch)
		return ch, func() {}
	}

	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch

	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

func (m *Monitor) publish(s Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Close marks the monitor inactive. Ticks still in flight discard their
// results, later ticks are no-ops and all subscriptions are closed.
func (m *Monitor) Close() {
	// Taking mu orders the flag against a tick that is about to commit.
	m.mu.Lock()
	already := m.closed.Swap(true)
	m.mu.Unlock()
	if already {
		return
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}
