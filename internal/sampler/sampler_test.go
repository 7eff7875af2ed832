package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wait = 200 * time.Millisecond

type harness struct {
	mock  *clock.Mock
	s     *Sampler
	ticks chan time.Time
	stop  context.CancelFunc
	done  chan struct{}
}

func start(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		mock:  clock.NewMock(),
		ticks: make(chan time.Time, 16),
		done:  make(chan struct{}),
	}
	h.s = New(h.mock, DefaultInterval)

	ctx, cancel := context.WithCancel(context.Background())
	h.stop = cancel
	go func() {
		defer close(h.done)
		h.s.Run(ctx, func(now time.Time) { h.ticks <- now })
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) expectTick(t *testing.T, at time.Time) {
	t.Helper()
	select {
	case got := <-h.ticks:
		assert.Equal(t, at, got)
	case <-time.After(wait):
		t.Fatalf("no tick, want one at %v", at)
	}
}

func (h *harness) expectNoTick(t *testing.T) {
	t.Helper()
	select {
	case got := <-h.ticks:
		t.Fatalf("unexpected tick at %v", got)
	case <-time.After(wait / 4):
	}
}

func TestSamplerPrimesImmediately(t *testing.T) {
	h := start(t)
	h.expectTick(t, h.mock.Now())
}

func TestSamplerPeriodic(t *testing.T) {
	h := start(t)
	t0 := h.mock.Now()
	h.expectTick(t, t0)

	for i := 1; i <= 3; i++ {
		h.mock.Add(DefaultInterval)
		h.expectTick(t, t0.Add(time.Duration(i)*DefaultInterval))
	}

	h.mock.Add(DefaultInterval / 2)
	h.expectNoTick(t)
}

func TestSamplerRefreshTooSoonIsIgnored(t *testing.T) {
	h := start(t)
	t0 := h.mock.Now()
	h.expectTick(t, t0)

	h.mock.Add(time.Second)
	h.s.RequestRefresh()
	h.expectNoTick(t)

	// The ignored request does not disturb the schedule.
	h.mock.Add(500 * time.Millisecond)
	h.expectTick(t, t0.Add(DefaultInterval))
}

func TestSamplerRefreshReschedules(t *testing.T) {
	h := start(t)
	t0 := h.mock.Now()
	h.expectTick(t, t0)

	// 1450ms is past 95% of the interval, so the refresh is honored.
	h.mock.Add(1450 * time.Millisecond)
	h.s.RequestRefresh()
	h.expectTick(t, t0.Add(1450*time.Millisecond))

	// The old deadline at 1500ms must not fire.
	h.mock.Add(50 * time.Millisecond)
	h.expectNoTick(t)

	h.mock.Add(1450 * time.Millisecond)
	h.expectTick(t, t0.Add(2950*time.Millisecond))
}

func TestSamplerRefreshRequestsCollapse(t *testing.T) {
	h := start(t)
	t0 := h.mock.Now()
	h.expectTick(t, t0)

	h.mock.Add(DefaultInterval - time.Millisecond)
	for i := 0; i < 5; i++ {
		h.s.RequestRefresh()
	}
	h.expectTick(t, t0.Add(DefaultInterval-time.Millisecond))
	h.expectNoTick(t)
}

func TestSamplerStops(t *testing.T) {
	h := start(t)
	h.expectTick(t, h.mock.Now())

	h.stop()
	select {
	case <-h.done:
	case <-time.After(wait):
		t.Fatal("Run did not return after cancel")
	}

	h.mock.Add(10 * DefaultInterval)
	h.expectNoTick(t)
}

func TestNewDefaults(t *testing.T) {
	s := New(nil, 0)
	require.NotNil(t, s.clock)
	assert.Equal(t, DefaultInterval, s.Interval())
	assert.Equal(t, 1425*time.Millisecond, s.minGap())
}
