// Package metrics exposes Prometheus collectors for search and download runs.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Download attempt outcomes.
const (
	OutcomeSaved     = "saved"
	OutcomeNetwork   = "network_error"
	OutcomeExtension = "not_image"
	OutcomeFs        = "fs_error"
)

// Slot outcomes.
const (
	SlotFilled   = "filled"
	SlotOverflow = "overflow"
	SlotCanceled = "canceled"
)

var (
	searchRequestsTotal    *prometheus.CounterVec
	recordsExtractedTotal  prometheus.Counter
	recordsSkippedTotal    prometheus.Counter
	downloadAttemptsTotal  *prometheus.CounterVec
	downloadBytesTotal     *prometheus.CounterVec
	slotsTotal             *prometheus.CounterVec
	rateLimitDelaysSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		searchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgsearch_search_requests_total",
				Help: "Total number of search page requests, labeled by status.",
			},
			[]string{"status"},
		)

		recordsExtractedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "imgsearch_records_extracted_total",
				Help: "Total number of image records extracted from search pages.",
			},
		)

		recordsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "imgsearch_records_skipped_total",
				Help: "Total number of result entries skipped for not matching the expected layout.",
			},
		)

		downloadAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgsearch_download_attempts_total",
				Help: "Total number of image download attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		downloadBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgsearch_download_bytes_total",
				Help: "Total number of image bytes written, labeled by site.",
			},
			[]string{"site"},
		)

		slotsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgsearch_slots_total",
				Help: "Total number of output slots processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imgsearch_rate_limit_delays_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveSearch counts one search page request.
func ObserveSearch(status string) {
	Init()
	searchRequestsTotal.WithLabelValues(status).Inc()
}

// ObserveExtraction records how many entries were kept and skipped.
func ObserveExtraction(extracted, skipped int) {
	Init()
	recordsExtractedTotal.Add(float64(extracted))
	recordsSkippedTotal.Add(float64(skipped))
}

// ObserveAttempt counts one download attempt for the URL's host.
func ObserveAttempt(rawURL, outcome string, bytesWritten int) {
	Init()
	site := SanitizeSite(rawURL)
	downloadAttemptsTotal.WithLabelValues(site, outcome).Inc()
	if bytesWritten > 0 {
		downloadBytesTotal.WithLabelValues(site).Add(float64(bytesWritten))
	}
}

// ObserveSlot counts one finished output slot.
func ObserveSlot(outcome string) {
	Init()
	slotsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// WriteTextfile dumps the default registry in text exposition format, for
// pickup by a node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
