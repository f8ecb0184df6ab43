// Package config loads and validates imgsearch configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/imgsearch/internal/search"
)

// EnvPrefix namespaces environment overrides, e.g. IMGSEARCH_DOWNLOAD_TIMEOUT=5s.
const EnvPrefix = "IMGSEARCH"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Search    SearchConfig    `mapstructure:"search"`
	Download  DownloadConfig  `mapstructure:"download"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Filters   search.Filters  `mapstructure:"filters"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// SearchConfig controls the results-page request.
type SearchConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
}

// DownloadConfig controls image downloads.
type DownloadConfig struct {
	Directory    string        `mapstructure:"directory"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Thumbnails   bool          `mapstructure:"thumbnails"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
	// BlockedHosts lists hosts ("example.org") or domains ("*.example.org")
	// never downloaded from.
	BlockedHosts []string `mapstructure:"blocked_hosts"`
}

// RateLimitConfig throttles image requests per host. Zero PerHostRPS disables it.
type RateLimitConfig struct {
	PerHostRPS float64 `mapstructure:"per_host_rps"`
	Burst      int     `mapstructure:"burst"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig points at an optional textfile-collector output.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load builds a Config from defaults, an optional file, and the environment.
// Values already bound on v (for example command-line flags) take precedence.
// A nil v starts from an empty Viper instance. With an empty path, an
// "imgsearch" config file is looked up in the working directory and
// $HOME/.imgsearch; not finding one is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
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

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("imgsearch")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.imgsearch")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.base_url", search.DefaultBaseURL)
	v.SetDefault("search.user_agent", search.DefaultUserAgent)
	v.SetDefault("search.timeout", 20*time.Second)
	v.SetDefault("search.max_retries", 2)
	v.SetDefault("search.backoff_initial", 250*time.Millisecond)
	v.SetDefault("search.backoff_max", 5*time.Second)
	v.SetDefault("download.directory", "")
	v.SetDefault("download.timeout", 20*time.Second)
	v.SetDefault("download.thumbnails", false)
	v.SetDefault("download.max_body_bytes", 0)
	v.SetDefault("download.blocked_hosts", []string{})
	v.SetDefault("ratelimit.per_host_rps", 0)
	v.SetDefault("ratelimit.burst", 1)
	v.SetDefault("filters.color", "")
	v.SetDefault("filters.color_type", "")
	v.SetDefault("filters.license", "")
	v.SetDefault("filters.image_type", "")
	v.SetDefault("filters.time", "")
	v.SetDefault("filters.ratio", "")
	v.SetDefault("filters.format", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("metrics.textfile", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Search.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("search.base_url must be an absolute URL, got %q", c.Search.BaseURL)
	}
	if c.Search.UserAgent == "" {
		return fmt.Errorf("search.user_agent must be set")
	}
	if c.Search.Timeout < 0 {
		return fmt.Errorf("search.timeout must be >= 0")
	}
	if c.Search.MaxRetries < 0 {
		return fmt.Errorf("search.max_retries must be >= 0")
	}
	if c.Search.BackoffInitial < 0 || c.Search.BackoffMax < 0 {
		return fmt.Errorf("search.backoff_initial and search.backoff_max must be >= 0")
	}
	if c.Download.Timeout < 0 {
		return fmt.Errorf("download.timeout must be >= 0")
	}
	if c.Download.MaxBodyBytes < 0 {
		return fmt.Errorf("download.max_body_bytes must be >= 0")
	}
	if c.RateLimit.PerHostRPS < 0 {
		return fmt.Errorf("ratelimit.per_host_rps must be >= 0")
	}
	if c.RateLimit.PerHostRPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.burst must be > 0 when ratelimit.per_host_rps is set")
	}
	if err := c.Filters.Validate(); err != nil {
		return err
	}
	return nil
}

// Arguments turns the configured defaults into search arguments for query.
func (c Config) Arguments(query string, limit int) search.Arguments {
	return search.Arguments{
		Query:      query,
		Limit:      limit,
		Thumbnails: c.Download.Thumbnails,
		Timeout:    c.Download.Timeout,
		Directory:  c.Download.Directory,
		Filters:    c.Filters,
	}
}
