// Package tui provides the terminal user interface for nettraffic.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wellsgz/nettraffic/api"
	"github.com/wellsgz/nettraffic/internal/client"
	"github.com/wellsgz/nettraffic/internal/types"
)

const pollInterval = 500 * time.Millisecond

// View represents the current view state
type View int

const (
	ViewIndicator View = iota
	ViewModePicker
	ViewHelp
)

// KeyMap defines the key bindings
type KeyMap struct {
	Quit          key.Binding
	Mode          key.Binding
	NextMode      key.Binding
	ThresholdUp   key.Binding
	ThresholdDown key.Binding
	Icon          key.Binding
	Enable        key.Binding
	Refresh       key.Binding
	Help          key.Binding
	Up            key.Binding
	Down          key.Binding
	Enter         key.Binding
	Escape        key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Mode:          key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
	NextMode:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next mode")),
	ThresholdUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "threshold up")),
	ThresholdDown: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "threshold down")),
	Icon:          key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "icon")),
	Enable:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "enable/disable")),
	Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Enter:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Escape:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
}

// Messages
type tickMsg time.Time
type indicatorMsg struct {
	indicator *api.IndicatorResult
	status    *api.StatusResult
	err       error
}
type settingsMsg struct {
	settings types.Settings
	err      error
}

// Model is the main TUI model
type Model struct {
	// Connection
	client    *client.Client
	connected bool
	lastError string

	// State
	currentView   View
	width, height int
	modeCursor    int

	// Data
	indicator    *api.IndicatorResult
	daemonStatus *api.StatusResult

	// UI state
	keys KeyMap
}

// New creates a new TUI model
func New(socketPath string) Model {
	return Model{
		client:      client.New(socketPath),
		currentView: ViewIndicator,
		keys:        DefaultKeyMap,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetch(),
		m.tick(),
	)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetch() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		if err := c.Connect(); err != nil {
			return indicatorMsg{err: err}
		}

		status, err := c.GetStatus()
		if err != nil {
			return indicatorMsg{err: err}
		}
		ind, err := c.GetIndicator()
		if err != nil {
			return indicatorMsg{err: err}
		}
		return indicatorMsg{indicator: ind, status: status}
	}
}

func (m Model) change(fn func(c *client.Client) (types.Settings, error)) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		if err := c.Connect(); err != nil {
			return settingsMsg{err: err}
		}
		s, err := fn(c)
		return settingsMsg{settings: s, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		if err := c.Refresh(); err != nil {
			return indicatorMsg{err: err}
		}
		return nil
	}
}

// settings returns the daemon settings last seen, if any.
func (m Model) settings() (types.Settings, bool) {
	if m.daemonStatus == nil {
		return types.Settings{}, false
	}
	return m.daemonStatus.Settings, true
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case indicatorMsg:
		if msg.err != nil {
			m.connected = false
			m.lastError = msg.err.Error()
		} else {
			m.connected = true
			m.lastError = ""
			m.indicator = msg.indicator
			m.daemonStatus = msg.status
		}
		return m, nil

	case settingsMsg:
		if msg.err != nil {
			m.lastError = msg.err.Error()
			return m, nil
		}
		m.lastError = ""
		if m.daemonStatus != nil {
			m.daemonStatus.Settings = msg.settings
		}
		return m, m.fetch()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.currentView {
	case ViewIndicator:
		return m.handleIndicatorKey(msg)
	case ViewModePicker:
		return m.handleModePickerKey(msg)
	case ViewHelp:
		return m.handleHelpKey(msg)
	}
	return m, nil
}

func (m Model) handleIndicatorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.client.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Sequence(m.refresh(), m.fetch())
	}

	s, ok := m.settings()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Mode):
		m.modeCursor = modeIndex(s.Mode)
		m.currentView = ViewModePicker
		return m, nil

	case key.Matches(msg, m.keys.NextMode):
		return m, m.setMode(s.Mode.Next())

	case key.Matches(msg, m.keys.ThresholdUp):
		kb := s.AutoHideThresholdKB + 1
		return m, m.change(func(c *client.Client) (types.Settings, error) { return c.SetThreshold(kb) })

	case key.Matches(msg, m.keys.ThresholdDown):
		if s.AutoHideThresholdKB == 0 {
			return m, nil
		}
		kb := s.AutoHideThresholdKB - 1
		return m, m.change(func(c *client.Client) (types.Settings, error) { return c.SetThreshold(kb) })

	case key.Matches(msg, m.keys.Icon):
		on := !s.ShowIcon
		return m, m.change(func(c *client.Client) (types.Settings, error) { return c.SetShowIcon(on) })

	case key.Matches(msg, m.keys.Enable):
		on := !s.Enabled
		return m, m.change(func(c *client.Client) (types.Settings, error) { return c.SetEnabled(on) })
	}
	return m, nil
}

func (m Model) setMode(mode types.DisplayMode) tea.Cmd {
	return m.change(func(c *client.Client) (types.Settings, error) { return c.SetMode(mode.String()) })
}

func (m Model) handleModePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewIndicator
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.modeCursor > 0 {
			m.modeCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.modeCursor < len(types.AllModes)-1 {
			m.modeCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		m.currentView = ViewIndicator
		return m, m.setMode(types.AllModes[m.modeCursor])
	}
	return m, nil
}

func (m Model) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Quit):
		m.currentView = ViewIndicator
		return m, nil
	}
	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.currentView {
	case ViewModePicker:
		return m.viewModePicker()
	case ViewHelp:
		return m.viewHelp()
	default:
		return m.viewIndicator()
	}
}

func modeIndex(mode types.DisplayMode) int {
	for i, m := range types.AllModes {
		if m == mode {
			return i
		}
	}
	return 0
}
