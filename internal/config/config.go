// Package config handles configuration loading from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wellsgz/nettraffic/internal/counters"
	"github.com/wellsgz/nettraffic/internal/sampler"
	"github.com/wellsgz/nettraffic/internal/types"
)

// DefaultConfigPath is the default location for the config file.
const DefaultConfigPath = "/etc/nettraffic/nettraffic.yaml"

// Config holds daemon configuration.
type Config struct {
	LogLevel         string         `yaml:"log_level"`
	LogFormat        string         `yaml:"log_format"`
	Interval         string         `yaml:"interval"`
	Socket           string         `yaml:"socket"`
	MetricsAddr      string         `yaml:"metrics_addr"`
	ConnectivityPoll string         `yaml:"connectivity_poll"`
	Source           SourceConfig   `yaml:"source"`
	Indicator        types.Settings `yaml:"indicator"`
}

// SourceConfig selects where byte counters come from.
type SourceConfig struct {
	Kind            string `yaml:"kind"`
	ExcludeLoopback bool   `yaml:"exclude_loopback"`
	DockerHost      string `yaml:"docker_host"`
	Container       string `yaml:"container"`
}

// Defaults returns a config with default values.
func Defaults() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "console",
		Interval:         sampler.DefaultInterval.String(),
		ConnectivityPoll: counters.DefaultPollInterval.String(),
		Source: SourceConfig{
			Kind:            string(counters.KindSystem),
			ExcludeLoopback: true,
		},
		Indicator: types.DefaultSettings(),
	}
}

// Load reads configuration from a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseDurationOrDefault("interval", c.Interval, sampler.DefaultInterval); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationOrDefault("connectivity_poll", c.ConnectivityPoll, counters.DefaultPollInterval); err != nil {
		errs = append(errs, err)
	}
	kind, err := counters.ParseKind(c.Source.Kind)
	if err != nil {
		errs = append(errs, fmt.Errorf("source.kind: %w", err))
	}
	if kind == counters.KindDocker && strings.TrimSpace(c.Source.Container) == "" {
		errs = append(errs, errors.New("source.container: required for the docker source"))
	}
	if !c.Indicator.Mode.Valid() {
		errs = append(errs, fmt.Errorf("indicator.mode: invalid value %d", int(c.Indicator.Mode)))
	}
	switch c.Indicator.Location {
	case "", types.LocationStatusBar, types.LocationHeader:
	default:
		errs = append(errs, fmt.Errorf("indicator.location: unknown value %q", c.Indicator.Location))
	}
	if c.Indicator.FontSize < 0 {
		errs = append(errs, errors.New("indicator.font_size: must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SampleInterval returns the parsed tick interval.
func (c *Config) SampleInterval() time.Duration {
	d, _ := ParseDurationOrDefault("interval", c.Interval, sampler.DefaultInterval)
	return d
}

// PollInterval returns the parsed connectivity poll interval.
func (c *Config) PollInterval() time.Duration {
	d, _ := ParseDurationOrDefault("connectivity_poll", c.ConnectivityPoll, counters.DefaultPollInterval)
	return d
}

// DefaultSocketPath is used when no socket is configured.
func DefaultSocketPath() string {
	return ExpandHome("~/.nettraffic/nettraffic.sock")
}

// SocketPath returns the configured IPC socket path.
func (c *Config) SocketPath() string {
	if strings.TrimSpace(c.Socket) == "" {
		return DefaultSocketPath()
	}
	return ExpandHome(c.Socket)
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

// ParseDurationOrDefault parses a duration field; empty or zero means def.
func ParseDurationOrDefault(field, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", field)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
