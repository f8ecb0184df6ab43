// Package download fills a fixed set of reserved output slots from a shared
// pool of candidate image URLs, falling back to the next candidate whenever
// an attempt fails.
package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/imgsearch/internal/classify"
	"github.com/JakeFAU/imgsearch/internal/fetch"
	"github.com/JakeFAU/imgsearch/internal/metrics"
)

// Slot and attempt failure kinds. None of them reach Download's caller; they
// only decide whether a slot produces a file.
var (
	// ErrOverflow ends a slot whose pool ran out of candidates.
	ErrOverflow = errors.New("download: ran out of candidate images")
	// ErrNetwork marks an attempt whose fetch failed or timed out.
	ErrNetwork = errors.New("download: unable to fetch image")
	// ErrFs marks an attempt whose file could not be written.
	ErrFs = errors.New("download: unable to write file")
)

// Writer persists a finished file.
type Writer interface {
	Write(path string, data []byte) error
}

// Limiter throttles requests per destination.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Hasher computes content digests for logging.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Downloader runs one fetch task per output slot against a shared Pool.
type Downloader struct {
	fetcher fetch.Fetcher
	writer  Writer
	limiter Limiter
	hasher  Hasher
	timeout time.Duration
	headers http.Header
	logger  *zap.Logger
}

// Option customizes a Downloader.
type Option func(*Downloader)

// WithTimeout bounds each attempt. Zero (the default) disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) { d.timeout = timeout }
}

// WithLimiter waits on l before every fetch.
func WithLimiter(l Limiter) Option {
	return func(d *Downloader) { d.limiter = l }
}

// WithHasher logs a digest of every saved file.
func WithHasher(h Hasher) Option {
	return func(d *Downloader) { d.hasher = h }
}

// WithHeaders sends extra headers with every image request.
func WithHeaders(h http.Header) Option {
	return func(d *Downloader) { d.headers = h.Clone() }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New constructs a Downloader.
func New(fetcher fetch.Fetcher, writer Writer, opts ...Option) *Downloader {
	d := &Downloader{
		fetcher: fetcher,
		writer:  writer,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download launches exactly len(stems) concurrent tasks, one per stem, all
// drawing from pool. It returns the paths that were written, in completion
// order; slots that ran out of candidates contribute nothing.
func (d *Downloader) Download(ctx context.Context, pool *Pool, stems []string) []string {
	var (
		mu    sync.Mutex
		paths = make([]string, 0, len(stems))
		g     errgroup.Group
	)

	for i, stem := range stems {
		g.Go(func() error {
			path, err := d.fill(ctx, pool, stem)
			switch {
			case errors.Is(err, ErrOverflow):
				metrics.ObserveSlot(metrics.SlotOverflow)
				d.logger.Debug("slot left empty",
					zap.Int("slot", i),
					zap.String("stem", stem),
					zap.Error(err),
				)
				return nil
			case err != nil:
				metrics.ObserveSlot(metrics.SlotCanceled)
				d.logger.Debug("slot canceled",
					zap.Int("slot", i),
					zap.String("stem", stem),
					zap.Error(err),
				)
				return nil
			}
			metrics.ObserveSlot(metrics.SlotFilled)
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info("download finished",
		zap.Int("requested", len(stems)),
		zap.Int("saved", len(paths)),
		zap.Int("unused_candidates", pool.Len()),
	)
	return paths
}

// fill keeps drawing candidates for one slot until an attempt succeeds.
func (d *Downloader) fill(ctx context.Context, pool *Pool, stem string) (string, error) {
	return untilExhausted(ctx, pool.Pop, func(ctx context.Context, url string) (string, error) {
		path, err := d.attempt(ctx, stem, url)
		if err != nil {
			d.logger.Debug("download attempt failed",
				zap.String("url", url),
				zap.String("stem", stem),
				zap.Error(err),
			)
		}
		return path, err
	})
}

// untilExhausted runs attempt on successive candidates from pop until one
// succeeds. Exhaustion is terminal and reported as ErrOverflow; a failed
// candidate is dropped, never returned to the pool.
func untilExhausted(
	ctx context.Context,
	pop func() (string, bool),
	attempt func(ctx context.Context, url string) (string, error),
) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("download canceled: %w", err)
		}
		url, ok := pop()
		if !ok {
			return "", ErrOverflow
		}
		path, err := attempt(ctx, url)
		if err == nil {
			return path, nil
		}
	}
}

// attempt fetches url, classifies it and writes it next to stem.
func (d *Downloader) attempt(ctx context.Context, stem, url string) (string, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, url); err != nil {
			metrics.ObserveAttempt(url, metrics.OutcomeNetwork, 0)
			return "", fmt.Errorf("%w: %w", ErrNetwork, err)
		}
	}

	attemptCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.fetcher.Fetch(attemptCtx, fetch.Request{URL: url, Headers: d.headers})
	if err != nil {
		metrics.ObserveAttempt(url, metrics.OutcomeNetwork, 0)
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	ext, err := classify.Extension(resp.Body)
	if err != nil {
		metrics.ObserveAttempt(url, metrics.OutcomeExtension, 0)
		return "", err
	}

	path := stem + "." + ext
	if err := d.writer.Write(path, resp.Body); err != nil {
		metrics.ObserveAttempt(url, metrics.OutcomeFs, 0)
		return "", fmt.Errorf("%w: %w", ErrFs, err)
	}
	metrics.ObserveAttempt(url, metrics.OutcomeSaved, len(resp.Body))

	fields := []zap.Field{
		zap.String("url", url),
		zap.String("path", path),
		zap.Int("bytes", len(resp.Body)),
	}
	if d.hasher != nil {
		if sum, err := d.hasher.Hash(resp.Body); err == nil {
			fields = append(fields, zap.String("sha256", sum))
		}
	}
	d.logger.Debug("image saved", fields...)
	return path, nil
}
