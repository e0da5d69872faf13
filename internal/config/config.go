// Package config loads harvester settings from file and environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kidzout/harvester/internal/harvester"
)

// Config is the full runtime configuration.
type Config struct {
	Development bool `mapstructure:"development"`
	Workers     int  `mapstructure:"workers"`

	SourcesPath      string `mapstructure:"sources_path"`
	OutputPath       string `mapstructure:"output_path"`
	StatsPath        string `mapstructure:"stats_path"`
	GeocodeCachePath string `mapstructure:"geocode_cache_path"`
	ManualEventsPath string `mapstructure:"manual_events_path"`

	Fetch    FetchConfig    `mapstructure:"fetch"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// FetchConfig controls the HTTP fetch layer.
type FetchConfig struct {
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
	MaxRetries     int  `mapstructure:"max_retries"`
	RespectRobots  bool `mapstructure:"respect_robots"`
}

// ThrottleConfig controls per-domain request pacing.
type ThrottleConfig struct {
	BaseIntervalSeconds float64 `mapstructure:"base_interval_seconds"`
	MaxIntervalSeconds  float64 `mapstructure:"max_interval_seconds"`
}

// HeadlessConfig controls the browser fetcher.
type HeadlessConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxParallel int  `mapstructure:"max_parallel"`
}

// GeocodeConfig controls the Nominatim client.
type GeocodeConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	BaseURL           string  `mapstructure:"base_url"`
	UserAgent         string  `mapstructure:"user_agent"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use the HARVESTER_ prefix with
// underscores, e.g. HARVESTER_FETCH_MAX_RETRIES.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("development", false)
	v.SetDefault("workers", 5)
	v.SetDefault("sources_path", "sources.json")
	v.SetDefault("output_path", "data.json")
	v.SetDefault("stats_path", "crawler_stats.json")
	v.SetDefault("geocode_cache_path", "geocode_cache.json")
	v.SetDefault("manual_events_path", "manual_events.json")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("throttle.base_interval_seconds", 2.0)
	v.SetDefault("throttle.max_interval_seconds", 10.0)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.user_agent", "")
	v.SetDefault("geocode.requests_per_second", 1.0)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must be >= 0, got %d", c.Fetch.MaxRetries)
	}
	if c.Throttle.BaseIntervalSeconds < 0 || c.Throttle.MaxIntervalSeconds < c.Throttle.BaseIntervalSeconds {
		return fmt.Errorf("throttle intervals invalid: base=%v max=%v",
			c.Throttle.BaseIntervalSeconds, c.Throttle.MaxIntervalSeconds)
	}
	if c.OutputPath == "" {
		return errors.New("output_path must not be empty")
	}
	return nil
}

// FetchTimeout returns the fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// BaseInterval returns the throttle base interval as a duration.
func (c Config) BaseInterval() time.Duration {
	return time.Duration(c.Throttle.BaseIntervalSeconds * float64(time.Second))
}

// MaxInterval returns the throttle ceiling as a duration.
func (c Config) MaxInterval() time.Duration {
	return time.Duration(c.Throttle.MaxIntervalSeconds * float64(time.Second))
}

// LoadSources reads the source list. A missing file is an empty source set,
// not an error, so a fresh checkout runs cleanly.
func LoadSources(path string) ([]harvester.Source, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}

	var sources []harvester.Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("decode sources %s: %w", path, err)
	}
	return sources, nil
}
