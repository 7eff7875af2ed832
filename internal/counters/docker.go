package counters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
)

// DockerConfig selects the daemon and container to sample.
type DockerConfig struct {
	Host      string
	Container string
	Timeout   time.Duration
}

// statsAPI is the subset of the Docker client used here.
type statsAPI interface {
	ContainerStats(ctx context.Context, container string, stream bool) (types.ContainerStats, error)
	Close() error
}

// Docker reads the summed network counters of one container.
type Docker struct {
	cli       statsAPI
	container string
	timeout   time.Duration
}

// NewDocker connects to the Docker daemon and checks it responds.
func NewDocker(ctx context.Context, cfg DockerConfig) (*Docker, error) {
	if cfg.Container == "" {
		return nil, errors.New("docker source needs a container name or id")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	} else {
		opts = append(opts, client.FromEnv)
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("pinging docker daemon: %w", err)
	}

	return &Docker{cli: cli, container: cfg.Container, timeout: cfg.Timeout}, nil
}

// Counters implements Source.
func (d *Docker) Counters(ctx context.Context) (uint64, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.cli.ContainerStats(ctx, d.container, false)
	if err != nil {
		return 0, 0, fmt.Errorf("container stats %s: %w", d.container, err)
	}
	defer resp.Body.Close()

	var stats types.StatsJSON
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, fmt.Errorf("container stats %s: empty response", d.container)
		}
		return 0, 0, fmt.Errorf("decoding container stats: %w", err)
	}

	var rx, tx uint64
	for _, nw := range stats.Networks {
		rx += nw.RxBytes
		tx += nw.TxBytes
	}
	return rx, tx, nil
}

// Close releases the Docker client.
func (d *Docker) Close() error {
	return d.cli.Close()
}
