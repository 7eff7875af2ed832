package counters

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// DefaultPollInterval is how often interface state is re-read.
const DefaultPollInterval = 2 * time.Second

type interfacesFunc func(ctx context.Context) (psnet.InterfaceStatList, error)

// Watcher polls the host interfaces and reports connectivity. A host is
// connected when at least one interface is up, is not loopback and carries
// an address.
type Watcher struct {
	clock      clock.Clock
	interval   time.Duration
	interfaces interfacesFunc
	log        zerolog.Logger

	connected  atomic.Bool
	forceCheck chan struct{}

	mu       sync.Mutex
	onChange []func(connected bool)
}

// NewWatcher creates a connectivity watcher. The initial state is read
// synchronously so Connected is meaningful before Run starts.
func NewWatcher(clk clock.Clock, interval time.Duration, log zerolog.Logger) *Watcher {
	return newWatcher(clk, interval, log, psnet.InterfacesWithContext)
}

func newWatcher(clk clock.Clock, interval time.Duration, log zerolog.Logger, ifaces interfacesFunc) *Watcher {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	w := &Watcher{
		clock:      clk,
		interval:   interval,
		interfaces: ifaces,
		log:        log,
		forceCheck: make(chan struct{}, 1),
	}
	w.connected.Store(w.probe(context.Background()))
	return w
}

// Connected implements Connectivity.
func (w *Watcher) Connected() bool {
	return w.connected.Load()
}

// OnChange registers fn to be called whenever connectivity flips.
func (w *Watcher) OnChange(fn func(connected bool)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

// ForceCheck schedules an immediate re-read of interface state.
func (w *Watcher) ForceCheck() {
	select {
	case w.forceCheck <- struct{}{}:
	default:
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	w.log.Debug().Dur("interval", w.interval).Msg("connectivity watcher started")

	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("connectivity watcher stopped")
			return
		case <-w.forceCheck:
			w.check(ctx)
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check re-reads the state and notifies listeners on a change.
func (w *Watcher) check(ctx context.Context) {
	now := w.probe(ctx)
	if w.connected.Swap(now) == now {
		return
	}

	w.log.Info().Bool("connected", now).Msg("connectivity changed")

	w.mu.Lock()
	listeners := append([]func(bool){}, w.onChange...)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(now)
	}
}

// probe reads interface state. Failures count as disconnected.
func (w *Watcher) probe(ctx context.Context) bool {
	ifaces, err := w.interfaces(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to read interfaces")
		return false
	}
	for _, iface := range ifaces {
		if hasFlag(iface.Flags, "up") && !hasFlag(iface.Flags, "loopback") && len(iface.Addrs) > 0 {
			return true
		}
	}
	return false
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
