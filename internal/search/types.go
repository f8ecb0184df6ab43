package search

import (
	"errors"
	"time"
)

// Caller-visible failure kinds. Returned errors wrap one of these so callers
// can branch with errors.Is.
var (
	// ErrParse means the document did not contain a usable image payload.
	ErrParse = errors.New("unable to parse images from document")
	// ErrDir means the download directory could not be found or created.
	ErrDir = errors.New("unable to find or create directory")
	// ErrNetwork means the search page could not be fetched.
	ErrNetwork = errors.New("unable to fetch search page")
)

// Image is one extracted search result.
type Image struct {
	URL       string `json:"url"`
	Width     int64  `json:"width"`
	Height    int64  `json:"height"`
	Thumbnail string `json:"thumbnail"`
	Source    string `json:"source"`
}

// Arguments describes a single search (and optionally download) request.
type Arguments struct {
	Query string
	// Limit caps returned records for Search/URLs and is the slot count for
	// Download. Zero means no cap for Search/URLs.
	Limit int
	// Thumbnails swaps full-resolution URLs for thumbnail URLs.
	Thumbnails bool
	// Timeout bounds each image download attempt. Zero disables it.
	Timeout time.Duration
	// Directory receives downloads; empty means "<cwd>/images".
	Directory string
	Filters   Filters
}

// NewArguments returns Arguments with the default per-attempt timeout.
func NewArguments(query string, limit int) Arguments {
	return Arguments{
		Query:   query,
		Limit:   limit,
		Timeout: 20 * time.Second,
	}
}
