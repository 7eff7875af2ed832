package monitor

import "github.com/wellsgz/nettraffic/internal/types"

// Sink receives the result of every tick while the monitor is enabled.
// Publish runs on the tick goroutine and must not block for long.
type Sink interface {
	Publish(ind types.Indicator)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ind types.Indicator)

// Publish implements Sink.
func (f SinkFunc) Publish(ind types.Indicator) { f(ind) }

// Callbacks splits an indicator into the render and icon callbacks a host UI
// usually exposes. OnIconSelect is only called when icons are shown.
type Callbacks struct {
	OnRender     func(text string, visible bool)
	OnIconSelect func(icon types.Icon)
}

// Publish implements Sink.
func (c Callbacks) Publish(ind types.Indicator) {
	if c.OnRender != nil {
		c.OnRender(ind.Text, ind.Visible)
	}
	if c.OnIconSelect != nil && ind.Icon != types.IconNone {
		c.OnIconSelect(ind.Icon)
	}
}

// Fanout publishes to every sink in order.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(ind types.Indicator) {
	for _, s := range f {
		if s != nil {
			s.Publish(ind)
		}
	}
}
