package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values applied when a key is absent or invalid.
const (
	DefaultPollIntervalMin = 10
	DefaultInitialDelaySec = 5
	DefaultFetchTimeoutSec = 30
	DefaultPageSize        = 30
	DefaultConcurrency     = 4
	DefaultGitHubBaseURL   = "https://api.github.com"
	DefaultStoreDriver     = "sqlite"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	envPrefix              = "REPOWATCH"
	maxPageSize            = 100
)

// PollConfig controls the recurring poll cycle.
type PollConfig struct {
	// IntervalMin is the cadence of the recurring trigger, in minutes.
	IntervalMin int `mapstructure:"interval_min" yaml:"interval_min"`

	// InitialDelaySec delays the first cycle after startup.
	InitialDelaySec int `mapstructure:"initial_delay_sec" yaml:"initial_delay_sec"`

	// FetchTimeoutSec bounds the whole fetch phase of one cycle.
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`

	// PageSize is the number of items requested for the first page of
	// every category.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// Concurrency caps the number of fetches in flight.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// SeedOnFirstSight makes a never-observed category record its first page
	// as the baseline without markers. By default every item of that page is
	// new.
	SeedOnFirstSight bool `mapstructure:"seed_on_first_sight" yaml:"seed_on_first_sight"`
}

// Interval returns the cadence as a duration.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMin) * time.Minute
}

// InitialDelay returns the startup delay as a duration.
func (p PollConfig) InitialDelay() time.Duration {
	return time.Duration(p.InitialDelaySec) * time.Second
}

// FetchTimeout returns the fetch phase bound as a duration.
func (p PollConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSec) * time.Second
}

// GitHubConfig holds the upstream API settings.
type GitHubConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Login pins the user identity; when empty it is resolved from the
	// token at startup.
	Login string `mapstructure:"login" yaml:"login"`
}

// StoreConfig selects the key-value persistence backend.
type StoreConfig struct {
	// Driver is "sqlite" or "redis".
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Path     string `mapstructure:"path" yaml:"path"`
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address for the /metrics endpoint; empty disables it.
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	GitHub  GitHubConfig  `mapstructure:"github" yaml:"github"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultConfigDir returns ~/.config/repowatch.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "repowatch")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/repowatch/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Poll: PollConfig{
			IntervalMin:     DefaultPollIntervalMin,
			InitialDelaySec: DefaultInitialDelaySec,
			FetchTimeoutSec: DefaultFetchTimeoutSec,
			PageSize:        DefaultPageSize,
			Concurrency:     DefaultConcurrency,
		},
		GitHub: GitHubConfig{
			BaseURL: DefaultGitHubBaseURL,
		},
		Store: StoreConfig{
			Driver: DefaultStoreDriver,
			Path:   filepath.Join(DefaultConfigDir(), "state.db"),
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with REPOWATCH_ override file values
// (REPOWATCH_POLL_INTERVAL_MIN, REPOWATCH_STORE_DRIVER, ...). If the file
// does not exist, defaults plus environment are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv knows which keys exist.
	def := defaultAppConfig()
	v.SetDefault("poll.interval_min", def.Poll.IntervalMin)
	v.SetDefault("poll.initial_delay_sec", def.Poll.InitialDelaySec)
	v.SetDefault("poll.fetch_timeout_sec", def.Poll.FetchTimeoutSec)
	v.SetDefault("poll.page_size", def.Poll.PageSize)
	v.SetDefault("poll.concurrency", def.Poll.Concurrency)
	v.SetDefault("poll.seed_on_first_sight", false)
	v.SetDefault("github.base_url", def.GitHub.BaseURL)
	v.SetDefault("github.login", "")
	v.SetDefault("store.driver", def.Store.Driver)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.redis_url", "")
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("metrics.listen", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with their defaults.
func (c *AppConfig) normalize() {
	if c.Poll.IntervalMin < 1 {
		c.Poll.IntervalMin = DefaultPollIntervalMin
	}
	if c.Poll.InitialDelaySec < 0 {
		c.Poll.InitialDelaySec = DefaultInitialDelaySec
	}
	if c.Poll.FetchTimeoutSec < 1 {
		c.Poll.FetchTimeoutSec = DefaultFetchTimeoutSec
	}
	if c.Poll.PageSize < 1 || c.Poll.PageSize > maxPageSize {
		c.Poll.PageSize = DefaultPageSize
	}
	if c.Poll.Concurrency < 1 {
		c.Poll.Concurrency = DefaultConcurrency
	}
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = DefaultGitHubBaseURL
	}
	c.GitHub.BaseURL = strings.TrimRight(c.GitHub.BaseURL, "/")
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("poll", cfg.Poll)
	v.Set("github", cfg.GitHub)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
