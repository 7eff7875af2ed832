// Package daemon implements the nettrafficd daemon logic.
package daemon

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/wellsgz/nettraffic/internal/config"
	"github.com/wellsgz/nettraffic/internal/counters"
	"github.com/wellsgz/nettraffic/internal/logging"
	"github.com/wellsgz/nettraffic/internal/metrics"
	"github.com/wellsgz/nettraffic/internal/monitor"
)

// Daemon orchestrates all daemon components.
type Daemon struct {
	config     *config.Config
	configPath string
	log        zerolog.Logger
}

// New creates a new daemon instance. configPath may be empty, in which case
// the config is not watched for changes.
func New(cfg *config.Config, configPath string, log zerolog.Logger) *Daemon {
	return &Daemon{
		config:     cfg,
		configPath: configPath,
		log:        log,
	}
}

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run(ctx context.Context) (err error) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := d.config
	socketPath := cfg.SocketPath()
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("creating socket dir: %w", err)
	}

	d.log.Info().
		Str("socket", socketPath).
		Str("source", cfg.Source.Kind).
		Dur("interval", cfg.SampleInterval()).
		Str("mode", cfg.Indicator.Mode.String()).
		Msg("starting nettraffic daemon")

	source, closer, err := openSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { err = multierr.Append(err, closer.Close()) }()
	}

	conn := counters.NewWatcher(nil, cfg.PollInterval(), d.log)

	var sinks []monitor.Sink
	var exporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		exporter = metrics.New()
		sinks = append(sinks, exporter)
	}

	mon := monitor.New(monitor.Config{
		Source:       source,
		Connectivity: conn,
		Interval:     cfg.SampleInterval(),
		Logger:       d.log,
		Sinks:        sinks,
	}, cfg.Indicator)

	conn.OnChange(refreshOnChange(mon))

	server := NewServer(ServerInfo{
		SocketPath: socketPath,
		ConfigPath: d.configPath,
		Source:     cfg.Source.Kind,
	}, mon, conn, d.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(gctx) })
	g.Go(func() error {
		conn.Run(gctx)
		return nil
	})
	g.Go(func() error { return server.Serve(gctx) })
	if exporter != nil {
		g.Go(func() error { return exporter.Serve(gctx, cfg.MetricsAddr, d.log) })
	}
	if d.configPath != "" {
		watcher := config.NewWatcher(d.configPath, cfg, d.log)
		updates := watcher.Subscribe()
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				// The daemon keeps running on the config it has.
				d.log.Warn().Err(err).Str("path", d.configPath).Msg("config watch unavailable")
			}
			return nil
		})
		g.Go(func() error {
			d.applyUpdates(gctx, updates, mon)
			return nil
		})
	}

	notify(d.log, sddaemon.SdNotifyReady)
	d.log.Info().Msg("daemon started successfully")

	<-gctx.Done()
	d.log.Info().Msg("shutting down daemon...")
	notify(d.log, sddaemon.SdNotifyStopping)

	err = g.Wait()
	err = multierr.Append(err, server.Close())
	return err
}

// applyUpdates hands reloaded indicator settings and log level to the
// running components. Other fields need a restart.
func (d *Daemon) applyUpdates(ctx context.Context, updates <-chan *config.Config, mon *monitor.Monitor) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			logging.SetLevel(cfg.LogLevel)
			mon.Apply(cfg.Indicator)
			if cfg.SampleInterval() != d.config.SampleInterval() ||
				cfg.SocketPath() != d.config.SocketPath() ||
				cfg.Source != d.config.Source ||
				cfg.MetricsAddr != d.config.MetricsAddr {
				d.log.Warn().Msg("config changes outside indicator and log_level need a restart")
			}
		}
	}
}

// openSource builds the configured counter source. The returned closer is
// nil when the source holds no resources.
func openSource(ctx context.Context, sc config.SourceConfig) (counters.Source, io.Closer, error) {
	kind, err := counters.ParseKind(sc.Kind)
	if err != nil {
		return nil, nil, err
	}
	switch kind {
	case counters.KindDocker:
		src, err := counters.NewDocker(ctx, counters.DockerConfig{
			Host:      sc.DockerHost,
			Container: sc.Container,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening docker source: %w", err)
		}
		return src, src, nil
	default:
		return counters.NewSystem(sc.ExcludeLoopback), nil, nil
	}
}

func notify(log zerolog.Logger, state string) {
	sent, err := sddaemon.SdNotify(false, state)
	if err != nil {
		log.Debug().Err(err).Str("state", state).Msg("sd_notify failed")
		return
	}
	if sent {
		log.Debug().Str("state", state).Msg("sd_notify sent")
	}
}

// refreshOnChange requests an immediate tick on every connectivity flip. The
// watcher logs the transition itself.
func refreshOnChange(ctl interface{ RequestRefresh() }) func(bool) {
	return func(bool) { ctl.RequestRefresh() }
}
