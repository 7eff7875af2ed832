// nettrafficd is the network throughput indicator daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/wellsgz/nettraffic/internal/config"
	"github.com/wellsgz/nettraffic/internal/daemon"
	"github.com/wellsgz/nettraffic/internal/logging"
)

var (
	configPath  string
	socketPath  string
	logLevel    string
	logFormat   string
	metricsAddr string
	sourceKind  string
	container   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nettrafficd",
		Short: "Network throughput indicator daemon",
		Long: `nettrafficd samples the host's (or a container's) cumulative network
byte counters, turns them into an upload/download rate indicator and exposes
it to clients over a unix socket.`,
		SilenceUsage: true,
		RunE:         runDaemon,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Config file (missing file means defaults)")
	rootCmd.Flags().StringVar(&socketPath, "socket", "", "Unix socket path (default: ~/.nettraffic/nettraffic.sock)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.Flags().StringVar(&sourceKind, "source", "", "Counter source (system, docker)")
	rootCmd.Flags().StringVar(&container, "container", "", "Container name or id for the docker source")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, watchPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logging.New(os.Stderr, "trace", cfg.LogFormat)
	logging.SetLevel(cfg.LogLevel)

	if watchPath == "" {
		log.Info().Str("path", configPath).Msg("config file not found; using defaults")
	}

	return daemon.New(cfg, watchPath, log).Run(context.Background())
}

// loadConfig reads the config file and applies flag overrides. The returned
// path is empty when no file exists to watch.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := config.Load(configPath)
	watchPath := configPath
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Defaults(), nil
		watchPath = ""
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("socket") {
		cfg.Socket = socketPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("source") {
		cfg.Source.Kind = sourceKind
	}
	if flags.Changed("container") {
		cfg.Source.Container = container
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, watchPath, nil
}
