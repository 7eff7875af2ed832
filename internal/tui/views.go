package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wellsgz/nettraffic/internal/traffic"
	"github.com/wellsgz/nettraffic/internal/types"
)

// IconGlyph returns the terminal glyph for an icon variant.
func IconGlyph(icon types.Icon) string {
	switch icon {
	case types.IconUp:
		return SymbolTx
	case types.IconDown:
		return SymbolRx
	case types.IconBoth:
		return SymbolBoth
	case types.IconNeutral:
		return SymbolNeutral
	default:
		return ""
	}
}

// RenderIndicator draws the indicator the way a status bar would show it:
// icon first, then the text lines stacked. Hidden indicators render empty.
func RenderIndicator(ind types.Indicator) string {
	if !ind.Visible {
		return ""
	}
	lines := strings.SplitN(ind.Text, "\n", max(ind.MaxLines, 1))
	text := IndicatorStyle.Render(strings.Join(lines, "\n"))

	glyph := IconGlyph(ind.Icon)
	if glyph == "" {
		return text
	}
	style := IndicatorStyle
	if ind.Icon == types.IconNeutral {
		style = IdleIconStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, style.Render(glyph+" "), text)
}

// viewIndicator renders the main screen
func (m Model) viewIndicator() string {
	var b strings.Builder

	bar := m.renderBar()
	location := types.LocationStatusBar
	if m.indicator != nil && m.indicator.Indicator.Location != "" {
		location = m.indicator.Indicator.Location
	}

	if location == types.LocationHeader {
		b.WriteString(bar)
		b.WriteString("\n")
	}

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.connected && m.indicator != nil {
		details := m.renderDetails()
		settings := m.renderSettings()

		leftWidth := m.width/2 - 2
		rightWidth := m.width - leftWidth - 4

		detailsPanel := PanelStyle.Width(leftWidth).Render(details)
		settingsPanel := PanelStyle.Width(rightWidth).Render(settings)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, detailsPanel, " ", settingsPanel))
	} else {
		errMsg := ErrorStyle.Render("⚠ Not connected to daemon")
		if m.lastError != "" {
			errMsg += "\n" + LabelStyle.Render(m.lastError)
		}
		b.WriteString(PanelStyle.Width(m.width - 2).Render(errMsg))
	}
	b.WriteString("\n")

	if m.connected && m.lastError != "" {
		b.WriteString("  " + ErrorStyle.Render(m.lastError) + "\n")
	}

	if location != types.LocationHeader {
		b.WriteString(bar)
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelpBar())
	return b.String()
}

// renderBar renders the simulated status bar, right-aligned like a clock area.
func (m Model) renderBar() string {
	content := ""
	if m.indicator != nil && m.indicator.Enabled {
		content = RenderIndicator(m.indicator.Indicator)
	}
	width := m.width - 2
	if width < 1 {
		width = 1
	}
	return BarStyle.Width(width).Align(lipgloss.Right).Render(content)
}

// renderHeader renders the top header bar
func (m Model) renderHeader() string {
	var parts []string

	parts = append(parts, TitleStyle.Render("nettraffic"))

	if m.connected {
		parts = append(parts, ConnectedStyle.Render(SymbolConn+" Daemon"))
	} else {
		parts = append(parts, DisconnectedStyle.Render(SymbolDisconn+" Daemon"))
	}

	if m.daemonStatus != nil {
		if m.daemonStatus.Connected {
			parts = append(parts, ConnectedStyle.Render(SymbolConn+" Network"))
		} else {
			parts = append(parts, DisconnectedStyle.Render(SymbolDisconn+" Network"))
		}
		parts = append(parts, LabelStyle.Render("Source: ")+ValueStyle.Render(m.daemonStatus.Source))
		if m.daemonStatus.Uptime != "" {
			parts = append(parts, LabelStyle.Render("Uptime: ")+ValueStyle.Render(m.daemonStatus.Uptime))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, "  "+strings.Join(parts, "  │  "))
}

// renderDetails renders the last tick's rates and flags
func (m Model) renderDetails() string {
	var b strings.Builder

	b.WriteString(PanelTitleStyle.Render("Last tick"))
	b.WriteString("\n\n")

	if !m.indicator.Enabled {
		b.WriteString(LabelStyle.Render("Indicator disabled. Press e to enable."))
		return b.String()
	}

	ind := m.indicator.Indicator
	rates := ind.Rates
	b.WriteString(fmt.Sprintf("  %s Down:  %s\n",
		RxStyle.Render(SymbolRx), RxStyle.Render(traffic.Format(rates.RxRate))))
	b.WriteString(fmt.Sprintf("  %s Up:    %s\n",
		TxStyle.Render(SymbolTx), TxStyle.Render(traffic.Format(rates.TxRate))))
	b.WriteString(fmt.Sprintf("  %s Total: %s\n",
		TotalStyle.Render(SymbolBoth), TotalStyle.Render(traffic.Format(rates.RxRate+rates.TxRate))))
	b.WriteString("\n")

	visible := ConnectedStyle.Render("shown")
	if !ind.Visible {
		visible = LabelStyle.Render("hidden")
	}
	b.WriteString(fmt.Sprintf("  Display: %s\n", visible))
	b.WriteString(fmt.Sprintf("  Idle:    %s\n", LabelStyle.Render(idleLabel(ind.Flags))))
	if !ind.SampledAt.IsZero() {
		b.WriteString(fmt.Sprintf("  Sampled: %s\n", LabelStyle.Render(ind.SampledAt.Format("15:04:05.000"))))
	}

	return b.String()
}

func idleLabel(f types.DirectionFlags) string {
	switch {
	case f.RxSuppressed && f.TxSuppressed:
		return "down, up"
	case f.RxSuppressed:
		return "down"
	case f.TxSuppressed:
		return "up"
	default:
		return "none"
	}
}

// renderSettings renders the daemon's indicator settings
func (m Model) renderSettings() string {
	var b strings.Builder

	b.WriteString(PanelTitleStyle.Render("Settings"))
	b.WriteString("\n\n")

	s, ok := m.settings()
	if !ok {
		b.WriteString(LabelStyle.Render("No data"))
		return b.String()
	}

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render(fmt.Sprintf("%-11s", label)), ValueStyle.Render(value)))
	}
	row("Enabled:", onOff(s.Enabled))
	row("Mode:", s.Mode.String())
	row("Auto-hide:", fmt.Sprintf("< %d KB/s", s.AutoHideThresholdKB))
	row("Icon:", onOff(s.ShowIcon))
	row("Font size:", fmt.Sprintf("%d", s.FontSize))
	row("Location:", string(s.Location))
	if m.daemonStatus != nil {
		row("Interval:", m.daemonStatus.Interval)
	}

	return b.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// renderHelpBar renders the bottom help bar
func (m Model) renderHelpBar() string {
	keys := []string{
		HelpKeyStyle.Render("q") + HelpStyle.Render(" quit"),
		HelpKeyStyle.Render("m") + HelpStyle.Render(" mode"),
		HelpKeyStyle.Render("+/-") + HelpStyle.Render(" threshold"),
		HelpKeyStyle.Render("i") + HelpStyle.Render(" icon"),
		HelpKeyStyle.Render("e") + HelpStyle.Render(" enable"),
		HelpKeyStyle.Render("r") + HelpStyle.Render(" refresh"),
		HelpKeyStyle.Render("?") + HelpStyle.Render(" help"),
	}
	return "  " + strings.Join(keys, "  ")
}
