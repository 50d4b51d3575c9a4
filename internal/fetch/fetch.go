// Package fetch retrieves remote images for thumbnailing.
//
// Fetchers return the whole response body as a byte slice. No retries or
// backoff are attempted; every failure wraps ErrFetch so callers can tell a
// network problem apart from a bad image.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrFetch is wrapped by every fetch failure.
var ErrFetch = errors.New("failed to fetch image")

// Fetcher retrieves the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, rawURL string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}

// Router dispatches to a Fetcher by URL scheme.
type Router struct {
	schemes map[string]Fetcher
}

// NewRouter returns an empty Router. Register fetchers with Handle.
func NewRouter() *Router {
	return &Router{schemes: make(map[string]Fetcher)}
}

// Handle registers f for scheme (for example "https" or "s3").
func (r *Router) Handle(scheme string, f Fetcher) *Router {
	r.schemes[strings.ToLower(scheme)] = f
	return r
}

// Fetch delegates to the fetcher registered for rawURL's scheme.
func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	scheme, ok := Scheme(rawURL)
	if !ok {
		return nil, fmt.Errorf("%w: invalid url %q", ErrFetch, rawURL)
	}
	f, ok := r.schemes[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrFetch, scheme)
	}
	return f.Fetch(ctx, rawURL)
}

// Scheme returns the lower-cased scheme of a "scheme://..." URL without
// parsing the rest, so s3 keys that are not valid URL paths still route.
func Scheme(rawURL string) (string, bool) {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok || scheme == "" {
		return "", false
	}
	for i, c := range scheme {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", false
		}
	}
	return strings.ToLower(scheme), true
}

// Schemes lists the registered schemes in sorted order.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.schemes))
	for s := range r.schemes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
