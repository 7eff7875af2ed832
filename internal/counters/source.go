// Package counters provides the cumulative byte counters and the
// connectivity signal the monitor samples on every tick.
package counters

import (
	"context"
	"fmt"
	"strings"
)

// Source reports cumulative received/transmitted byte totals.
type Source interface {
	Counters(ctx context.Context) (rx, tx uint64, err error)
}

// Connectivity reports whether a usable network is currently available.
type Connectivity interface {
	Connected() bool
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (rx, tx uint64, err error)

// Counters implements Source.
func (f SourceFunc) Counters(ctx context.Context) (uint64, uint64, error) {
	return f(ctx)
}

// Always is a Connectivity with a fixed answer.
type Always bool

// Connected implements Connectivity.
func (a Always) Connected() bool { return bool(a) }

// Kind names a counter source implementation.
type Kind string

const (
	KindSystem Kind = "system"
	KindDocker Kind = "docker"
)

// ParseKind validates a source kind name. Empty means system.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindSystem:
		return KindSystem, nil
	case KindDocker:
		return KindDocker, nil
	default:
		return "", fmt.Errorf("unknown counter source %q", s)
	}
}
