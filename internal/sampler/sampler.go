// Package sampler drives the periodic sampling tick.
package sampler

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultInterval is the refresh period of the indicator.
const DefaultInterval = 1500 * time.Millisecond

// refreshFloor is the fraction of the interval that must have passed since
// the last tick before another tick is taken.
const refreshFloor = 0.95

// TickFunc handles one tick. It runs on the sampler goroutine, so ticks
// never overlap.
type TickFunc func(now time.Time)

// Sampler fires a tick every interval and on request. Each tick reschedules
// the next periodic tick one full interval after itself.
type Sampler struct {
	clock    clock.Clock
	interval time.Duration
	refresh  chan struct{}
}

// New creates a sampler. A nil clock means the wall clock.
func New(clk clock.Clock, interval time.Duration) *Sampler {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		clock:    clk,
		interval: interval,
		refresh:  make(chan struct{}, 1),
	}
}

// Interval returns the tick period.
func (s *Sampler) Interval() time.Duration {
	return s.interval
}

// RequestRefresh asks for an immediate tick. Requests made while one is
// already pending collapse into it. The request is dropped by the loop when
// the previous tick is too recent.
func (s *Sampler) RequestRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Run fires fn immediately, then on every tick until ctx is done.
func (s *Sampler) Run(ctx context.Context, fn TickFunc) {
	// Stale requests from a previous run must not fire.
	select {
	case <-s.refresh:
	default:
	}

	timer := s.clock.Timer(s.interval)
	defer timer.Stop()

	last := s.clock.Now()
	fn(last)

	for {
		fromTimer := false
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			fromTimer = true
		case <-s.refresh:
		}
		if ctx.Err() != nil {
			return
		}

		now := s.clock.Now()
		if gap := now.Sub(last); gap < s.minGap() {
			if fromTimer {
				timer.Reset(s.interval - gap)
			}
			continue
		}
		last = now

		// A periodic tick that raced with a refresh is dropped; the period
		// restarts from this tick.
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.interval)

		fn(now)
	}
}

func (s *Sampler) minGap() time.Duration {
	return time.Duration(float64(s.interval) * refreshFloor)
}
