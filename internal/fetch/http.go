package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds a single HTTP fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps the response body size.
	DefaultMaxBytes int64 = 50 * 1024 * 1024 // 50 MB

	userAgent = "thumbnailer/1.0"
)

// HTTPFetcher retrieves images over HTTP and HTTPS with a single GET.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher returns an HTTPFetcher. A nil client gets a default client
// with DefaultTimeout and a transport that transparently decodes gzip
// responses. maxBytes <= 0 means DefaultMaxBytes.
func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

// Fetch GETs rawURL and returns the response body. Non-2xx statuses and
// bodies larger than the configured limit are failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrFetch, rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: GET %s: body exceeds %d bytes", ErrFetch, rawURL, f.maxBytes)
	}

	log.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("Fetched remote image")

	return data, nil
}
