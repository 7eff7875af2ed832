// nettraffic is the CLI/TUI client for the network throughput indicator.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wellsgz/nettraffic/internal/client"
	"github.com/wellsgz/nettraffic/internal/counters"
	"github.com/wellsgz/nettraffic/internal/logging"
	"github.com/wellsgz/nettraffic/internal/monitor"
	"github.com/wellsgz/nettraffic/internal/sampler"
	"github.com/wellsgz/nettraffic/internal/traffic"
	"github.com/wellsgz/nettraffic/internal/tui"
	"github.com/wellsgz/nettraffic/internal/types"
)

var (
	socketPath string
	outputJSON bool

	watchMode      string
	watchThreshold uint
	watchInterval  time.Duration
	watchNoIcon    bool
	watchLoopback  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "nettraffic",
		Short:        "Network throughput indicator client",
		Long:         `nettraffic shows and controls the indicator served by the nettrafficd daemon.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "Unix socket path (default: ~/.nettraffic/nettraffic.sock)")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch interactive terminal UI",
		RunE:  runTUI,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE:  runStatus,
	}
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current indicator",
		RunE:  runShow,
	}
	showCmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	modeCmd := &cobra.Command{
		Use:   "mode MODE",
		Short: "Set display mode (up, down, both, combined, dynamic)",
		Args:  cobra.ExactArgs(1),
		RunE:  runMode,
	}

	thresholdCmd := &cobra.Command{
		Use:   "threshold KB",
		Short: "Set the auto-hide threshold in KB/s (0 hides only when idle)",
		Args:  cobra.ExactArgs(1),
		RunE:  runThreshold,
	}

	enableCmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable the indicator",
		RunE:  func(cmd *cobra.Command, args []string) error { return runEnabled(true) },
	}

	disableCmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable the indicator",
		RunE:  func(cmd *cobra.Command, args []string) error { return runEnabled(false) },
	}

	iconCmd := &cobra.Command{
		Use:       "icon on|off",
		Short:     "Show or hide the direction icon",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE:      runIcon,
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Ask the daemon for an immediate sample",
		RunE:  runRefresh,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Sample this host directly and print the indicator (no daemon needed)",
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&watchMode, "mode", types.ModeDynamic.String(), "Display mode")
	watchCmd.Flags().UintVar(&watchThreshold, "threshold", 1, "Auto-hide threshold in KB/s")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", sampler.DefaultInterval, "Sampling interval")
	watchCmd.Flags().BoolVar(&watchNoIcon, "no-icon", false, "Hide the direction icon")
	watchCmd.Flags().BoolVar(&watchLoopback, "include-loopback", false, "Count loopback traffic")

	rootCmd.AddCommand(tuiCmd, statusCmd, showCmd, modeCmd, thresholdCmd,
		enableCmd, disableCmd, iconCmd, refreshCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	model := tui.New(socketPath)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func getClient() (*client.Client, error) {
	c := client.New(socketPath)
	if err := c.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w\nIs nettrafficd running?", err)
	}
	return c, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	defer c.Close()

	status, err := c.GetStatus()
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(status)
	}

	s := status.Settings
	fmt.Printf("Daemon Status\n")
	fmt.Printf("════════════════════════════════════════\n")
	fmt.Printf("  Running:    %v\n", status.Running)
	fmt.Printf("  Uptime:     %s\n", status.Uptime)
	fmt.Printf("  Start Time: %s\n", status.StartTime)
	fmt.Printf("  Version:    %s\n", status.Version)
	fmt.Printf("  Source:     %s\n", status.Source)
	fmt.Printf("  Network:    %s\n", connectedLabel(status.Connected))
	fmt.Printf("  Interval:   %s\n", status.Interval)
	fmt.Printf("  Socket:     %s\n", status.SocketPath)
	if status.ConfigPath != "" {
		fmt.Printf("  Config:     %s\n", status.ConfigPath)
	}
	fmt.Printf("\nIndicator\n")
	fmt.Printf("════════════════════════════════════════\n")
	fmt.Printf("  Enabled:    %v\n", s.Enabled)
	fmt.Printf("  Mode:       %s\n", s.Mode)
	fmt.Printf("  Auto-hide:  < %d KB/s\n", s.AutoHideThresholdKB)
	fmt.Printf("  Icon:       %v\n", s.ShowIcon)
	fmt.Printf("  Font size:  %d\n", s.FontSize)
	fmt.Printf("  Location:   %s\n", s.Location)

	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.GetIndicator()
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(res)
	}

	if !res.Enabled {
		fmt.Println("indicator disabled")
		return nil
	}
	fmt.Println(formatLine(res.Indicator))
	return nil
}

func runMode(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	defer c.Close()

	s, err := c.SetMode(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Display mode set to %s\n", s.Mode)
	return nil
}

func runThreshold(cmd *cobra.Command, args []string) error {
	kb, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid threshold: %s", args[0])
	}

	c, err := getClient()
	if err != nil {
		return err
	}
	defer c.Close()

	s, err := c.SetThreshold(uint(kb))
	if err != nil {
		return err
	}
	fmt.Printf("Auto-hide threshold set to %d KB/s\n", s.AutoHideThresholdKB)
	return nil
}

func runEnabled(on bool) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.SetEnabled(on); err != nil {
		return err
	}
	if on {
		fmt.Println("Indicator enabled")
	} else {
		fmt.Println("Indicator disabled")
	}
	return nil
}

func runIcon(cmd *cobra.Command, args []string) error {
	var on bool
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("invalid value %q: use on or off", args[0])
	}

	c, err := getClient()
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.SetShowIcon(on); err != nil {
		return err
	}
	fmt.Printf("Direction icon %s\n", args[0])
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	defer c.Close()

	return c.Refresh()
}

// runWatch runs a monitor in-process against the host counters and prints a
// line per tick.
func runWatch(cmd *cobra.Command, args []string) error {
	mode, err := types.ParseDisplayMode(watchMode)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logging.New(os.Stderr, "warn", "console")
	conn := counters.NewWatcher(nil, counters.DefaultPollInterval, log)

	s := types.DefaultSettings()
	s.Mode = mode
	s.AutoHideThresholdKB = watchThreshold
	s.ShowIcon = !watchNoIcon

	mon := monitor.New(monitor.Config{
		Source:       counters.NewSystem(!watchLoopback),
		Connectivity: conn,
		Interval:     watchInterval,
		Logger:       log,
		Sinks:        []monitor.Sink{monitor.SinkFunc(printLine)},
	}, s)
	conn.OnChange(func(bool) { mon.RequestRefresh() })

	go conn.Run(ctx)
	return mon.Run(ctx)
}

func printLine(ind types.Indicator) {
	fmt.Printf("%s  %s\n", ind.SampledAt.Format("15:04:05"), formatLine(ind))
}

// formatLine renders an indicator on one line for terminals.
func formatLine(ind types.Indicator) string {
	if !ind.Connected {
		return "(offline)"
	}
	if !ind.Visible {
		return fmt.Sprintf("(hidden)  rx %s  tx %s", traffic.Format(ind.Rates.RxRate), traffic.Format(ind.Rates.TxRate))
	}
	text := strings.ReplaceAll(ind.Text, "\n", " / ")
	if glyph := tui.IconGlyph(ind.Icon); glyph != "" {
		return glyph + " " + text
	}
	return text
}

func connectedLabel(ok bool) string {
	if ok {
		return "connected"
	}
	return "offline"
}
