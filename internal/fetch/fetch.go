// Package fetch defines the transport-neutral request and response types
// shared by the search client and the download orchestrator.
package fetch

import (
	"context"
	"net/http"
	"time"
)

// Request captures everything needed to GET a URL.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is the result returned by a Fetcher implementation.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher fetches a URL and returns the full body plus metadata. Non-2xx
// responses are reported as errors.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}
