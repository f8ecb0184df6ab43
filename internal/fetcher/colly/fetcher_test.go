package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/imgsearch/internal/fetch"
)

func TestFetcherBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", RespectRobots: false, Timeout: time.Second, MaxBodySize: 42})
	ctx := context.Background()

	collector := f.buildCollector(ctx, fetch.Request{URL: "https://example.com"}, time.Unix(0, 0), &fetch.Response{}, new(error))
	if collector.UserAgent != "coverage-agent" {
		t.Fatalf("expected user agent override, got %q", collector.UserAgent)
	}
	if !collector.IgnoreRobotsTxt {
		t.Fatal("expected robots txt to be ignored")
	}
	if collector.MaxBodySize != 42 {
		t.Fatalf("expected max body size to carry over, got %d", collector.MaxBodySize)
	}
	if !collector.AllowURLRevisit {
		t.Fatal("expected url revisits to be allowed")
	}
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	req := fetch.Request{
		URL:     "https://example.com",
		Headers: http.Header{"X-Trace": {"yes"}},
	}
	start := time.Unix(0, 0)
	var result fetch.Response
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, start, &result, &fetchErr)
	if hooks.onRequest == nil || hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	if collyReq.Headers.Get("X-Trace") != "yes" {
		t.Fatalf("expected header propagation, got %+v", collyReq.Headers)
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request: &colly.Request{
			URL: mustParseURL(t, "https://example.com"),
		},
	})
	if result.StatusCode != http.StatusOK || string(result.Body) != "body" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Headers.Get("X-Resp") != "ok" {
		t.Fatalf("expected headers copied, got %+v", result.Headers)
	}

	hooks.onError(nil, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" {
		t.Fatalf("expected fetchErr set, got %v", fetchErr)
	}
}

func TestCopyHeadersHandlesNil(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	collyReq := &colly.Request{Headers: &http.Header{}}
	f.copyHeaders(fetch.Request{}, collyReq)
	if len(*collyReq.Headers) != 0 {
		t.Fatalf("expected no headers to be copied, got %+v", *collyReq.Headers)
	}
}

func TestFetchAgainstServer(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4E, 0x47})
	}))
	t.Cleanup(srv.Close)

	f := New(Config{UserAgent: "browser-agent"})
	resp, err := f.Fetch(context.Background(), fetch.Request{URL: srv.URL + "/img"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, resp.Body)
	assert.Equal(t, "browser-agent", <-agents)

	// Same URL again must not be rejected as already visited.
	_, err = f.Fetch(context.Background(), fetch.Request{URL: srv.URL + "/img"})
	require.NoError(t, err)
}

func TestFetchReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	f := New(Config{})
	_, err := f.Fetch(context.Background(), fetch.Request{URL: srv.URL})
	require.Error(t, err)
}

func TestFetchRejectsBodiesOverCap(t *testing.T) {
	t.Parallel()

	image := make([]byte, 4096)
	copy(image, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/small" {
			_, _ = w.Write(image[:50])
			return
		}
		_, _ = w.Write(image)
	}))
	t.Cleanup(srv.Close)

	f := New(Config{MaxBodySize: 100})
	resp, err := f.Fetch(context.Background(), fetch.Request{URL: srv.URL + "/large"})
	require.ErrorIs(t, err, ErrTruncated)
	assert.Empty(t, resp.Body)

	resp, err = f.Fetch(context.Background(), fetch.Request{URL: srv.URL + "/small"})
	require.NoError(t, err)
	assert.Len(t, resp.Body, 50)
}

func TestCheckComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		maxBody int
		body    int
		length  string
		wantErr bool
	}{
		{name: "uncapped", body: 10},
		{name: "under cap", maxBody: 100, body: 99},
		{name: "at cap", maxBody: 100, body: 100, wantErr: true},
		{name: "declared length met", body: 10, length: "10"},
		{name: "short of declared length", body: 10, length: "20", wantErr: true},
		{name: "unparseable length", body: 10, length: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := New(Config{MaxBodySize: tt.maxBody})
			headers := http.Header{}
			if tt.length != "" {
				headers.Set("Content-Length", tt.length)
			}
			err := f.checkComplete(&colly.Response{Body: make([]byte, tt.body), Headers: &headers})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTruncated)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFetchHonorsContextDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	f := New(Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Fetch(ctx, fetch.Request{URL: srv.URL})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
