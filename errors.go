// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import "errors"

// ErrNoDateHeader indicates that the HTTP headers contained no Date header.
var ErrNoDateHeader = errors.New("no Date header")

// ErrNilPool indicates a store backend was constructed with a nil connection pool.
var ErrNilPool = errors.New("httpcache: nil connection pool")

// ErrNilConn indicates a store backend was constructed with a nil connection.
var ErrNilConn = errors.New("httpcache: nil connection")

// ErrStoreDeclined is returned internally when a Store declines a write;
// callers should treat it the same as a nil CacheRequest, never surface it.
var ErrStoreDeclined = errors.New("httpcache: store declined write")
