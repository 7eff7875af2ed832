package counters

import (
	"context"
	"fmt"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// ioCountersFunc is swapped in tests.
type ioCountersFunc func(ctx context.Context, pernic bool) ([]psnet.IOCountersStat, error)

// System reads host-wide interface counters.
type System struct {
	excludeLoopback bool
	loopback        map[string]bool
	ioCounters      ioCountersFunc
	interfaces      interfacesFunc
}

// NewSystem creates a host counter source. With excludeLoopback set, traffic
// on loopback interfaces is left out of the totals.
func NewSystem(excludeLoopback bool) *System {
	return &System{
		excludeLoopback: excludeLoopback,
		ioCounters:      psnet.IOCountersWithContext,
		interfaces:      psnet.InterfacesWithContext,
	}
}

// Counters implements Source.
func (s *System) Counters(ctx context.Context) (uint64, uint64, error) {
	stats, err := s.ioCounters(ctx, true)
	if err != nil {
		return 0, 0, fmt.Errorf("reading interface counters: %w", err)
	}

	if s.excludeLoopback && s.loopback == nil {
		// Left unset on failure so the next read retries.
		if names, err := s.loopbackNames(ctx); err == nil {
			s.loopback = names
		}
	}

	var rx, tx uint64
	for _, st := range stats {
		if s.excludeLoopback && (s.loopback[st.Name] || st.Name == "lo") {
			continue
		}
		rx += st.BytesRecv
		tx += st.BytesSent
	}
	return rx, tx, nil
}

// loopbackNames returns the names of interfaces flagged as loopback.
func (s *System) loopbackNames(ctx context.Context) (map[string]bool, error) {
	ifaces, err := s.interfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}
	names := map[string]bool{}
	for _, iface := range ifaces {
		if hasFlag(iface.Flags, "loopback") {
			names[iface.Name] = true
		}
	}
	return names, nil
}
