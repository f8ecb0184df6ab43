package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/imgsearch/internal/search"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Search.BaseURL != search.DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", cfg.Search.BaseURL)
	}
	if cfg.Search.UserAgent != search.DefaultUserAgent {
		t.Fatalf("expected default user agent, got %q", cfg.Search.UserAgent)
	}
	if cfg.Search.Timeout != 20*time.Second || cfg.Download.Timeout != 20*time.Second {
		t.Fatalf("expected 20s timeouts, got %v and %v", cfg.Search.Timeout, cfg.Download.Timeout)
	}
	if cfg.Search.MaxRetries != 2 {
		t.Fatalf("expected 2 retries, got %d", cfg.Search.MaxRetries)
	}
	if cfg.RateLimit.PerHostRPS != 0 || cfg.RateLimit.Burst != 1 {
		t.Fatalf("expected rate limiting off with burst 1, got %+v", cfg.RateLimit)
	}
	if cfg.Filters != (search.Filters{}) {
		t.Fatalf("expected no filters, got %+v", cfg.Filters)
	}
	if !cfg.Logging.Development {
		t.Fatalf("expected development logging by default")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "imgsearch.yaml")
	configYAML := `
search:
  base_url: https://images.example.com/search
  user_agent: test-agent
  timeout: 5s
  max_retries: 4
  backoff_initial: 100ms
  backoff_max: 1s
download:
  directory: /tmp/out
  timeout: 3s
  thumbnails: true
  max_body_bytes: 1048576
  blocked_hosts: ["*.pinterest.com", "example.org"]
ratelimit:
  per_host_rps: 2.5
  burst: 3
filters:
  color: blue
  license: creative_commons
  format: png
logging:
  development: false
  level: warn
metrics:
  textfile: /tmp/imgsearch.prom
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Search.BaseURL != "https://images.example.com/search" || cfg.Search.UserAgent != "test-agent" {
		t.Fatalf("expected search overrides to apply: %+v", cfg.Search)
	}
	if cfg.Search.Timeout != 5*time.Second || cfg.Search.BackoffInitial != 100*time.Millisecond {
		t.Fatalf("expected durations to decode: %+v", cfg.Search)
	}
	if cfg.Download.Directory != "/tmp/out" || !cfg.Download.Thumbnails || cfg.Download.MaxBodyBytes != 1<<20 {
		t.Fatalf("expected download overrides to apply: %+v", cfg.Download)
	}
	if len(cfg.Download.BlockedHosts) != 2 || cfg.Download.BlockedHosts[0] != "*.pinterest.com" {
		t.Fatalf("expected blocked hosts to load: %v", cfg.Download.BlockedHosts)
	}
	if cfg.RateLimit.PerHostRPS != 2.5 || cfg.RateLimit.Burst != 3 {
		t.Fatalf("expected rate limit overrides to apply: %+v", cfg.RateLimit)
	}
	want := search.Filters{Color: search.ColorBlue, License: search.LicenseCreativeCommons, Format: search.FormatPng}
	if cfg.Filters != want {
		t.Fatalf("expected filters %+v, got %+v", want, cfg.Filters)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected logging overrides to apply: %+v", cfg.Logging)
	}
	if cfg.Metrics.Textfile != "/tmp/imgsearch.prom" {
		t.Fatalf("expected metrics textfile, got %q", cfg.Metrics.Textfile)
	}

	args := cfg.Arguments("cats", 4)
	if args.Query != "cats" || args.Limit != 4 || !args.Thumbnails || args.Timeout != 3*time.Second {
		t.Fatalf("unexpected arguments: %+v", args)
	}
	if args.Directory != "/tmp/out" || args.Filters != want {
		t.Fatalf("unexpected arguments: %+v", args)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("IMGSEARCH_DOWNLOAD_TIMEOUT", "7s")
	t.Setenv("IMGSEARCH_FILTERS_RATIO", "wide")

	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Download.Timeout != 7*time.Second {
		t.Fatalf("expected env timeout 7s, got %v", cfg.Download.Timeout)
	}
	if cfg.Filters.Ratio != search.RatioWide {
		t.Fatalf("expected env ratio, got %q", cfg.Filters.Ratio)
	}
}

func TestLoadBoundValuesWin(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("download.directory", "flag-dir")
	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Download.Directory != "flag-dir" {
		t.Fatalf("expected bound directory, got %q", cfg.Download.Directory)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	if _, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("filters:\n  color: plaid\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	_, err := Load(nil, path)
	if err == nil || !strings.Contains(err.Error(), "filters.color") {
		t.Fatalf("expected filters.color error, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Search: SearchConfig{
			BaseURL:   search.DefaultBaseURL,
			UserAgent: search.DefaultUserAgent,
			Timeout:   time.Second,
		},
		RateLimit: RateLimitConfig{Burst: 1},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to validate, got %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "relative base url",
			cfg: func() Config {
				c := base
				c.Search.BaseURL = "/search"
				return c
			}(),
			want: "search.base_url",
		},
		{
			name: "missing user agent",
			cfg: func() Config {
				c := base
				c.Search.UserAgent = ""
				return c
			}(),
			want: "search.user_agent",
		},
		{
			name: "negative search timeout",
			cfg: func() Config {
				c := base
				c.Search.Timeout = -time.Second
				return c
			}(),
			want: "search.timeout",
		},
		{
			name: "negative retries",
			cfg: func() Config {
				c := base
				c.Search.MaxRetries = -1
				return c
			}(),
			want: "search.max_retries",
		},
		{
			name: "negative download timeout",
			cfg: func() Config {
				c := base
				c.Download.Timeout = -time.Second
				return c
			}(),
			want: "download.timeout",
		},
		{
			name: "negative body cap",
			cfg: func() Config {
				c := base
				c.Download.MaxBodyBytes = -1
				return c
			}(),
			want: "download.max_body_bytes",
		},
		{
			name: "rate without burst",
			cfg: func() Config {
				c := base
				c.RateLimit = RateLimitConfig{PerHostRPS: 1}
				return c
			}(),
			want: "ratelimit.burst",
		},
		{
			name: "unknown format",
			cfg: func() Config {
				c := base
				c.Filters.Format = "tiff"
				return c
			}(),
			want: "filters.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
