package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wellsgz/nettraffic/internal/types"
)

var modeLabels = map[types.DisplayMode]string{
	types.ModeUp:       "Upload only",
	types.ModeDown:     "Download only",
	types.ModeBoth:     "Upload and download, stacked",
	types.ModeCombined: "Combined total",
	types.ModeDynamic:  "Dominant direction",
}

// viewModePicker renders the display mode picker modal
func (m Model) viewModePicker() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Select Display Mode"))
	b.WriteString("\n\n")

	current, _ := m.settings()
	for i, mode := range types.AllModes {
		cursor := "  "
		style := UnselectedStyle
		if i == m.modeCursor {
			cursor = "▶ "
			style = SelectedStyle
		}

		line := fmt.Sprintf("%s%s", cursor, style.Render(modeLabels[mode]))
		if mode == current.Mode {
			line += LabelStyle.Render(" (current)")
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("↑/↓ navigate  Enter select  Esc cancel"))

	return m.centered(ModalStyle.Render(b.String()))
}

// viewHelp renders the help modal
func (m Model) viewHelp() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	helpItems := []struct{ key, desc string }{
		{"q", "Quit"},
		{"m", "Choose display mode"},
		{"tab", "Next display mode"},
		{"+/-", "Raise/lower auto-hide threshold"},
		{"i", "Toggle direction icon"},
		{"e", "Enable/disable indicator"},
		{"r", "Refresh now"},
		{"?", "Toggle help"},
		{"Esc", "Close modal"},
	}

	for _, item := range helpItems {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			HelpKeyStyle.Render(fmt.Sprintf("%-6s", item.key)),
			HelpStyle.Render(item.desc)))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("Press ? or Esc to close"))

	return m.centered(ModalStyle.Render(b.String()))
}

// centered pads a modal to the middle of the screen.
func (m Model) centered(modal string) string {
	padLeft := max((m.width-lipgloss.Width(modal))/2, 0)
	padTop := max((m.height-lipgloss.Height(modal))/2, 0)

	var out strings.Builder
	out.WriteString(strings.Repeat("\n", padTop))
	for _, line := range strings.Split(modal, "\n") {
		out.WriteString(strings.Repeat(" ", padLeft))
		out.WriteString(line)
		out.WriteString("\n")
	}
	return out.String()
}
