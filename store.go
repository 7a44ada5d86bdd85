// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"context"
	"io"
	"net/http"
)

// Store is the contract CacheInterceptor depends on, modeled on OkHttp's
// InternalCache (SPEC_FULL.md §6.1). Get is a best-effort read: I/O errors are
// treated as a miss by the interceptor, never surfaced as a failure to the
// caller. Put may decline (returning a nil CacheRequest), in which case the
// original response body must pass through unmodified.
type Store interface {
	Get(ctx context.Context, req *http.Request) (*http.Response, error)
	Put(ctx context.Context, resp *http.Response) (CacheRequest, error)
	Update(ctx context.Context, old, new *http.Response) error
	Remove(ctx context.Context, req *http.Request) error
	TrackResponse(s Strategy)
	TrackConditionalCacheHit()
}

// CacheRequest is the sink handle returned by Store.Put while a new entry is
// being written. Body returns nil if the store declined to accept bytes for
// this entry (the caller should then pass the response body through as-is).
type CacheRequest interface {
	Body() io.WriteCloser
	Abort() error
}
