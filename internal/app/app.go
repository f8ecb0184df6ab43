// Package app initializes and holds the long-lived services of one imgsearch
// run, acting as a dependency injection container for the CLI commands.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/imgsearch/internal/config"
	"github.com/JakeFAU/imgsearch/internal/download"
	collyfetcher "github.com/JakeFAU/imgsearch/internal/fetcher/colly"
	"github.com/JakeFAU/imgsearch/internal/hash/sha256"
	"github.com/JakeFAU/imgsearch/internal/id/uuid"
	"github.com/JakeFAU/imgsearch/internal/logging"
	"github.com/JakeFAU/imgsearch/internal/metrics"
	"github.com/JakeFAU/imgsearch/internal/policy/blocklist"
	"github.com/JakeFAU/imgsearch/internal/policy/ratelimit"
	"github.com/JakeFAU/imgsearch/internal/retry"
	"github.com/JakeFAU/imgsearch/internal/search"
)

// App holds the shared services for one invocation.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	runID  string
	client *search.Client
}

// New builds the logger from cfg and then the rest of the services.
func New(cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithLogger(cfg, logger)
}

// NewWithLogger builds the services around an existing logger. Every log
// line it emits carries the run ID.
func NewWithLogger(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID, err := uuid.New().NewID()
	if err != nil {
		return nil, fmt.Errorf("init run id: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))
	metrics.Init()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.Search.UserAgent,
		MaxBodySize: cfg.Download.MaxBodyBytes,
	})

	downloadOpts := []download.Option{download.WithHasher(sha256.New())}
	if cfg.RateLimit.PerHostRPS > 0 {
		downloadOpts = append(downloadOpts, download.WithLimiter(ratelimit.New(ratelimit.Config{
			PerHostRPS: cfg.RateLimit.PerHostRPS,
			Burst:      cfg.RateLimit.Burst,
		})))
	}

	client := search.NewClient(
		fetcher,
		search.Config{
			BaseURL:   cfg.Search.BaseURL,
			UserAgent: cfg.Search.UserAgent,
			Timeout:   cfg.Search.Timeout,
		},
		search.WithRetryPolicy(retry.NewExponentialPolicy(
			cfg.Search.MaxRetries,
			cfg.Search.BackoffInitial,
			cfg.Search.BackoffMax,
		)),
		search.WithURLFilter(blocklist.New(cfg.Download.BlockedHosts)),
		search.WithDownloadOptions(downloadOpts...),
		search.WithLogger(logger),
	)

	logger.Debug("application services initialized",
		zap.String("base_url", cfg.Search.BaseURL),
		zap.Float64("per_host_rps", cfg.RateLimit.PerHostRPS),
	)

	return &App{
		cfg:    cfg,
		logger: logger,
		runID:  runID,
		client: client,
	}, nil
}

// GetLogger returns the run-scoped logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetClient returns the search client.
func (a *App) GetClient() *search.Client {
	return a.client
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// RunID identifies this invocation in logs.
func (a *App) RunID() string {
	return a.runID
}

// Close writes the metrics textfile when configured and flushes the logger.
func (a *App) Close() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			a.logger.Warn("Error writing metrics textfile", zap.String("path", path), zap.Error(err))
		} else {
			a.logger.Debug("metrics written", zap.String("path", path))
		}
	}
	// Sync on a terminal stderr can return ENOTTY; nothing useful to do then.
	_ = a.logger.Sync()
}
