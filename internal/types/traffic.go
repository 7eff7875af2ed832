// Package types defines shared data types used across the nettraffic application.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CounterSample is one reading of the cumulative byte counters.
type CounterSample struct {
	RxTotal   uint64    `json:"rx_total"`
	TxTotal   uint64    `json:"tx_total"`
	Timestamp time.Time `json:"timestamp"`
}

// RateSample holds directional byte rates derived from two samples.
type RateSample struct {
	RxRate float64 `json:"rx_rate"` // bytes/sec
	TxRate float64 `json:"tx_rate"`
}

// DisplayMode selects which rate(s) the indicator shows.
type DisplayMode int

const (
	ModeUp DisplayMode = iota
	ModeDown
	ModeBoth
	ModeCombined
	ModeDynamic
)

var modeNames = [...]string{
	ModeUp:       "up",
	ModeDown:     "down",
	ModeBoth:     "both",
	ModeCombined: "combined",
	ModeDynamic:  "dynamic",
}

// legacyModes maps the integer values stored by older settings to modes.
var legacyModes = map[int]DisplayMode{
	0: ModeBoth,
	1: ModeUp,
	2: ModeDown,
	3: ModeCombined,
	4: ModeDynamic,
}

// AllModes lists the display modes in cycling order.
var AllModes = []DisplayMode{ModeUp, ModeDown, ModeBoth, ModeCombined, ModeDynamic}

func (m DisplayMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Valid reports whether m is a known mode.
func (m DisplayMode) Valid() bool {
	return m >= ModeUp && m <= ModeDynamic
}

// Next returns the mode following m in AllModes.
func (m DisplayMode) Next() DisplayMode {
	for i, mode := range AllModes {
		if mode == m {
			return AllModes[(i+1)%len(AllModes)]
		}
	}
	return ModeUp
}

// ParseDisplayMode accepts a mode name or a legacy integer value (0-4).
func ParseDisplayMode(s string) (DisplayMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if s == name {
			return DisplayMode(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		if m, ok := legacyModes[n]; ok {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown display mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m DisplayMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid display mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DisplayMode) UnmarshalText(b []byte) error {
	mode, err := ParseDisplayMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ThresholdConfig holds the auto-hide threshold.
type ThresholdConfig struct {
	AutoHideThresholdKB uint `json:"autohide_threshold_kb"`
}

// DirectionFlags marks which directions are below threshold for this tick.
type DirectionFlags struct {
	RxSuppressed bool `json:"rx_suppressed"`
	TxSuppressed bool `json:"tx_suppressed"`
}

// Icon is the direction indicator shown next to the text.
type Icon int

const (
	IconNone Icon = iota
	IconUp
	IconDown
	IconBoth
	IconNeutral
)

var iconNames = [...]string{
	IconNone:    "none",
	IconUp:      "up",
	IconDown:    "down",
	IconBoth:    "both",
	IconNeutral: "neutral",
}

func (i Icon) String() string {
	if i < 0 || int(i) >= len(iconNames) {
		return fmt.Sprintf("icon(%d)", int(i))
	}
	return iconNames[i]
}

// MarshalText implements encoding.TextMarshaler.
func (i Icon) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Icon) UnmarshalText(b []byte) error {
	s := string(b)
	for n, name := range iconNames {
		if s == name {
			*i = Icon(n)
			return nil
		}
	}
	return fmt.Errorf("unknown icon %q", s)
}

// Location is where the host UI places the indicator.
type Location string

const (
	LocationStatusBar Location = "statusbar"
	LocationHeader    Location = "header"
)

// Settings is the indicator configuration snapshot used for one tick.
type Settings struct {
	Enabled             bool        `json:"enabled" yaml:"enabled"`
	Mode                DisplayMode `json:"mode" yaml:"mode"`
	AutoHideThresholdKB uint        `json:"autohide_threshold_kb" yaml:"autohide_threshold_kb"`
	ShowIcon            bool        `json:"show_icon" yaml:"show_icon"`
	FontSize            int         `json:"font_size" yaml:"font_size"`
	Location            Location    `json:"location" yaml:"location"`
}

// Threshold returns the threshold part of s.
func (s Settings) Threshold() ThresholdConfig {
	return ThresholdConfig{AutoHideThresholdKB: s.AutoHideThresholdKB}
}

// DefaultSettings returns the daemon's out-of-the-box settings: the indicator
// is on, in dynamic mode, hiding below 1 KB/s. A stock desktop install ships
// it disabled in both mode; set enabled/mode in the config file to match that.
func DefaultSettings() Settings {
	return Settings{
		Enabled:             true,
		Mode:                ModeDynamic,
		AutoHideThresholdKB: 1,
		ShowIcon:            true,
		FontSize:            10,
		Location:            LocationStatusBar,
	}
}

// Indicator is the result of one tick, handed to the rendering layer.
type Indicator struct {
	Text      string         `json:"text"`
	Visible   bool           `json:"visible"`
	Icon      Icon           `json:"icon"`
	Rates     RateSample     `json:"rates"`
	Flags     DirectionFlags `json:"flags"`
	Mode      DisplayMode    `json:"mode"`
	Connected bool           `json:"connected"`
	MaxLines  int            `json:"max_lines"`
	FontSize  int            `json:"font_size"`
	Location  Location       `json:"location"`
	SampledAt time.Time      `json:"sampled_at"`
}
