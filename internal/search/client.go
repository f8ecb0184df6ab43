package search

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/imgsearch/internal/download"
	"github.com/JakeFAU/imgsearch/internal/fetch"
	"github.com/JakeFAU/imgsearch/internal/metrics"
	"github.com/JakeFAU/imgsearch/internal/retry"
	"github.com/JakeFAU/imgsearch/internal/storage/local"
)

// Defaults for the results endpoint.
const (
	DefaultBaseURL   = "https://www.google.com/search"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/88.0.4324.104 Safari/537.36"
	defaultDirName = "images"
)

// Config controls how the results page is requested.
type Config struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds each results-page request. Zero disables it.
	Timeout time.Duration
}

// URLFilter decides whether a candidate URL may be downloaded.
type URLFilter interface {
	Allows(rawURL string) bool
}

// Client searches for images and downloads them.
type Client struct {
	fetcher      fetch.Fetcher
	cfg          Config
	retry        retry.Policy
	filter       URLFilter
	downloadOpts []download.Option
	logger       *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryPolicy retries failed results-page requests according to p.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// WithURLFilter drops download candidates that f rejects.
func WithURLFilter(f URLFilter) Option {
	return func(c *Client) { c.filter = f }
}

// WithDownloadOptions passes extra options to every Downloader the client builds.
func WithDownloadOptions(opts ...download.Option) Option {
	return func(c *Client) { c.downloadOpts = append(c.downloadOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a Client issuing every request through fetcher.
func NewClient(fetcher fetch.Fetcher, cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	c := &Client{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search fetches the results page for args and extracts its image records,
// keeping at most args.Limit of them when Limit is positive.
func (c *Client) Search(ctx context.Context, args Arguments) ([]Image, error) {
	pageURL := BuildURL(c.cfg.BaseURL, args)
	body, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		metrics.ObserveSearch("network_error")
		c.logger.Error("results page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	images, skipped, err := unpack(body)
	if err != nil {
		metrics.ObserveSearch("parse_error")
		c.logger.Error("results page parse failed", zap.String("url", pageURL), zap.Error(err))
		return nil, err
	}
	metrics.ObserveSearch("ok")
	metrics.ObserveExtraction(len(images), skipped)
	c.logger.Debug("results extracted",
		zap.String("query", args.Query),
		zap.Int("records", len(images)),
		zap.Int("skipped", skipped),
	)

	if args.Limit > 0 && len(images) > args.Limit {
		images = images[:args.Limit]
	}
	return images, nil
}

// URLs is Search reduced to one URL per record: the thumbnail when
// args.Thumbnails is set, the full-resolution image otherwise.
func (c *Client) URLs(ctx context.Context, args Arguments) ([]string, error) {
	images, err := c.Search(ctx, args)
	if err != nil {
		return nil, err
	}
	return SelectURLs(images, args.Thumbnails), nil
}

// Download searches without a record cap, then fills args.Limit files named
// after the query in args.Directory (default "<cwd>/images"). It returns the
// written paths; fewer than Limit is a normal outcome. A negative Limit is
// rejected before any request is made.
func (c *Client) Download(ctx context.Context, args Arguments) ([]string, error) {
	if args.Limit < 0 {
		return nil, fmt.Errorf("download limit must be >= 0, got %d", args.Limit)
	}
	uncapped := args
	uncapped.Limit = 0
	found, err := c.URLs(ctx, uncapped)
	if err != nil {
		return nil, err
	}
	candidates := c.candidates(found)

	dir, err := resolveDir(args.Directory)
	if err != nil {
		return nil, err
	}
	store, err := local.New(local.Config{BaseDir: dir})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDir, err)
	}
	stems, err := store.Reserve(args.Query, args.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDir, err)
	}

	opts := make([]download.Option, 0, len(c.downloadOpts)+3)
	opts = append(opts, c.downloadOpts...)
	opts = append(opts,
		download.WithTimeout(args.Timeout),
		download.WithHeaders(http.Header{"User-Agent": {c.cfg.UserAgent}}),
		download.WithLogger(c.logger),
	)
	d := download.New(c.fetcher, store, opts...)

	c.logger.Info("download started",
		zap.String("query", args.Query),
		zap.String("dir", store.BaseDir()),
		zap.Int("slots", len(stems)),
		zap.Int("candidates", len(candidates)),
	)
	return d.Download(ctx, download.NewPool(candidates), stems), nil
}

// SelectURLs picks the candidate URL of each record.
func SelectURLs(images []Image, thumbnails bool) []string {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		if thumbnails {
			urls = append(urls, img.Thumbnail)
		} else {
			urls = append(urls, img.URL)
		}
	}
	return urls
}

// candidates removes repeated URLs, keeping the first occurrence, and URLs
// the filter rejects.
func (c *Client) candidates(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		if c.filter != nil && !c.filter.Allows(u) {
			continue
		}
		kept = append(kept, u)
	}
	if dropped := len(urls) - len(kept); dropped > 0 {
		c.logger.Debug("candidates dropped", zap.Int("dropped", dropped), zap.Int("kept", len(kept)))
	}
	return kept
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (string, error) {
	var body []byte
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		reqCtx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
		resp, err := c.fetcher.Fetch(reqCtx, fetch.Request{
			URL:     pageURL,
			Headers: http.Header{"User-Agent": {c.cfg.UserAgent}},
		})
		if err != nil {
			c.logger.Warn("results page attempt failed", zap.String("url", pageURL), zap.Error(err))
			return err
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDir, err)
	}
	return filepath.Join(cwd, defaultDirName), nil
}
