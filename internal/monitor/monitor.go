// Package monitor runs the sampling loop: it reads counters on every tick,
// evaluates the indicator and publishes the result to sinks.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wellsgz/nettraffic/internal/counters"
	"github.com/wellsgz/nettraffic/internal/sampler"
	"github.com/wellsgz/nettraffic/internal/traffic"
	"github.com/wellsgz/nettraffic/internal/types"
)

const (
	readTimeout  = time.Second
	warnInterval = 30 * time.Second
)

// Config holds the collaborators of a Monitor.
type Config struct {
	Source       counters.Source
	Connectivity counters.Connectivity // nil means always connected
	Clock        clock.Clock           // nil means the wall clock
	Interval     time.Duration
	Logger       zerolog.Logger
	Sinks        []Sink
}

// Monitor owns the tick loop. It samples only while the settings say it is
// enabled and Run is active.
type Monitor struct {
	source  counters.Source
	conn    counters.Connectivity
	sampler *sampler.Sampler
	sinks   Fanout
	log     zerolog.Logger
	warn    rate.Sometimes

	settingsMu sync.RWMutex
	settings   types.Settings

	// lifeMu guards the loop lifecycle. The tick goroutine never takes it.
	lifeMu  sync.Mutex
	base    context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	prev *types.CounterSample // owned by the tick goroutine
	last atomic.Pointer[types.Indicator]
}

// New creates a monitor with the initial settings. Nothing is sampled until
// Run is called.
func New(cfg Config, settings types.Settings) *Monitor {
	conn := cfg.Connectivity
	if conn == nil {
		conn = counters.Always(true)
	}
	return &Monitor{
		source:   cfg.Source,
		conn:     conn,
		sampler:  sampler.New(cfg.Clock, cfg.Interval),
		sinks:    Fanout(cfg.Sinks),
		log:      cfg.Logger.With().Str("component", "monitor").Logger(),
		warn:     rate.Sometimes{Interval: warnInterval},
		settings: settings,
	}
}

// Interval returns the sampling period.
func (m *Monitor) Interval() time.Duration {
	return m.sampler.Interval()
}

// Settings returns the current settings snapshot.
func (m *Monitor) Settings() types.Settings {
	m.settingsMu.RLock()
	defer m.settingsMu.RUnlock()
	return m.settings
}

// Apply replaces the settings. Enabling starts the loop, disabling stops it
// and waits for the last tick to finish. Any other change refreshes right away.
func (m *Monitor) Apply(s types.Settings) {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	m.applyLocked(s)
}

// Update applies fn to a copy of the current settings and returns the result.
func (m *Monitor) Update(fn func(s *types.Settings)) types.Settings {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	s := m.Settings()
	fn(&s)
	m.applyLocked(s)
	return s
}

func (m *Monitor) applyLocked(s types.Settings) {
	m.settingsMu.Lock()
	old := m.settings
	m.settings = s
	m.settingsMu.Unlock()

	switch {
	case !m.running:
	case s.Enabled && !old.Enabled:
		m.log.Info().Msg("indicator enabled")
		m.startLocked()
	case !s.Enabled && old.Enabled:
		m.log.Info().Msg("indicator disabled")
		m.stopLocked()
	case s != old:
		m.log.Debug().Str("mode", s.Mode.String()).Uint("threshold_kb", s.AutoHideThresholdKB).Msg("settings changed")
		m.sampler.RequestRefresh()
	}
}

// RequestRefresh asks for an immediate tick, e.g. after a reconnect.
func (m *Monitor) RequestRefresh() {
	m.sampler.RequestRefresh()
}

// Last returns the most recent indicator. ok is false while disabled or
// before the first tick.
func (m *Monitor) Last() (ind types.Indicator, ok bool) {
	p := m.last.Load()
	if p == nil {
		return types.Indicator{}, false
	}
	return *p, true
}

// Run samples while enabled and blocks until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.lifeMu.Lock()
	m.base = ctx
	m.running = true
	if m.Settings().Enabled {
		m.startLocked()
	}
	m.lifeMu.Unlock()

	m.log.Info().Dur("interval", m.Interval()).Bool("enabled", m.Settings().Enabled).Msg("monitor started")
	<-ctx.Done()

	m.lifeMu.Lock()
	m.running = false
	m.stopLocked()
	m.lifeMu.Unlock()

	m.log.Info().Msg("monitor stopped")
	return nil
}

func (m *Monitor) startLocked() {
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(m.base)
	done := make(chan struct{})
	m.cancel, m.done = cancel, done
	m.prev = nil

	go func() {
		defer close(done)
		m.sampler.Run(ctx, func(now time.Time) { m.tick(ctx, now) })
	}()
}

func (m *Monitor) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel, m.done = nil, nil
	m.prev = nil
	m.last.Store(nil)
}

func (m *Monitor) tick(ctx context.Context, now time.Time) {
	s := m.Settings()
	connected := m.conn.Connected()

	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	rx, tx, err := m.source.Counters(rctx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	var ind types.Indicator
	if err != nil {
		m.warn.Do(func() {
			m.log.Warn().Err(err).Msg("reading counters failed; hiding indicator")
		})
		// The previous sample stays, so the next good read spans the gap.
		curr := types.CounterSample{Timestamp: now}
		ind = traffic.Evaluate(curr, curr, false, s)
	} else {
		curr := types.CounterSample{RxTotal: rx, TxTotal: tx, Timestamp: now}
		prev := curr
		if m.prev != nil {
			prev = *m.prev
		}
		ind = traffic.Evaluate(prev, curr, connected, s)
		m.prev = &curr
	}

	m.last.Store(&ind)
	m.log.Trace().
		Str("text", ind.Text).
		Bool("visible", ind.Visible).
		Str("icon", ind.Icon.String()).
		Msg("tick")
	m.sinks.Publish(ind)
}
