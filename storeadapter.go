// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"sync"

	"github.com/kordcache/httpcache/backend"
	"github.com/kordcache/httpcache/metrics"
)

// Collector is an alias of metrics.Collector so callers can configure store
// telemetry without importing the metrics subpackage directly.
type Collector = metrics.Collector

// NoOpCollector is an alias of metrics.NoOpCollector, the zero-overhead
// default when no Collector is configured.
type NoOpCollector = metrics.NoOpCollector

// BackendStore realizes the Store contract (§6.1) on top of any backend.Backend
// (§6.2), serializing responses with httputil.DumpResponse/http.ReadResponse —
// the same dump/restore convention the donor module already uses for a single
// cached entry, generalized here into a full adapter.
type BackendStore struct {
	be           backend.Backend
	keyHeaders   []string
	metrics      Collector
	backendLabel string
}

// NewBackendStore wraps be as a Store. keyHeaders, if non-empty, are folded
// into the cache key (SPEC_FULL.md §11 cache-key-header discipline).
// backendLabel is used only for metrics.
func NewBackendStore(be backend.Backend, backendLabel string, keyHeaders []string) *BackendStore {
	return &BackendStore{be: be, keyHeaders: keyHeaders, metrics: &NoOpCollector{}, backendLabel: backendLabel}
}

// SetMetricsCollector wires a metrics.Collector-shaped sink for cache
// operation counts/durations and strategy telemetry.
func (s *BackendStore) SetMetricsCollector(c Collector) {
	if c != nil {
		s.metrics = c
	}
}

// SetCacheKeyHeaders replaces the request headers folded into the store key.
func (s *BackendStore) SetCacheKeyHeaders(headers []string) {
	s.keyHeaders = headers
}

func (s *BackendStore) key(req *http.Request) string {
	return cacheKeyWithHeaders(req, s.keyHeaders)
}

// Get implements Store.Get: a best-effort lookup. Errors and misses are both
// communicated the usual Go way; the interceptor treats an error as a miss.
func (s *BackendStore) Get(ctx context.Context, req *http.Request) (*http.Response, error) {
	raw, ok, err := s.be.Get(ctx, s.key(req))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), req)
	if err != nil {
		return nil, fmt.Errorf("httpcache: decode stored response: %w", err)
	}
	return resp, nil
}

// Put implements Store.Put. The returned CacheRequest buffers body bytes as
// they are teed through it and only calls be.Set once the write commits
// (CacheRequest.Body().Close()); an aborted write never touches the backend.
func (s *BackendStore) Put(ctx context.Context, resp *http.Response) (CacheRequest, error) {
	if resp.Request == nil {
		return nil, nil
	}
	headerOnly := strip(resp)

	req := &storeCacheRequest{
		ctx:    ctx,
		be:     s.be,
		key:    s.key(resp.Request),
		header: headerOnly,
	}
	return req, nil
}

// Update implements Store.Update: replaces the stored entry's headers after a
// 304, keeping the previously-stored body untouched.
func (s *BackendStore) Update(ctx context.Context, old, new *http.Response) error {
	if old.Request == nil {
		return nil
	}
	raw, ok, err := s.be.Get(ctx, s.key(old.Request))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	stored, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), old.Request)
	if err != nil {
		return fmt.Errorf("httpcache: decode stored response: %w", err)
	}
	body, err := io.ReadAll(stored.Body)
	stored.Body.Close()
	if err != nil {
		return err
	}

	merged := *new
	merged.Body = io.NopCloser(bytes.NewReader(body))
	buf, err := httputil.DumpResponse(&merged, true)
	if err != nil {
		return fmt.Errorf("httpcache: dump merged response: %w", err)
	}
	return s.be.Set(ctx, s.key(old.Request), buf)
}

// Remove implements Store.Remove.
func (s *BackendStore) Remove(ctx context.Context, req *http.Request) error {
	return s.be.Delete(ctx, s.key(req))
}

// TrackResponse implements Store.TrackResponse as a metrics hook only; it
// never raises.
func (s *BackendStore) TrackResponse(strategy Strategy) {
	result := "network"
	switch {
	case strategy.IsFail():
		result = "fail"
	case strategy.NetworkRequest() == nil:
		result = "cache"
	case strategy.CacheResponse() != nil:
		result = "conditional"
	}
	s.metrics.RecordCacheOperation("lookup", s.backendLabel, result, 0)
}

// TrackConditionalCacheHit implements Store.TrackConditionalCacheHit.
func (s *BackendStore) TrackConditionalCacheHit() {
	s.metrics.RecordCacheOperation("conditional_hit", s.backendLabel, "hit", 0)
}

// storeCacheRequest buffers teed body bytes and only commits them to the
// backend on a clean close, per SPEC_FULL.md §4.2.1.
type storeCacheRequest struct {
	ctx    context.Context
	be     backend.Backend
	key    string
	header *http.Response

	mu      sync.Mutex
	buf     bytes.Buffer
	aborted bool
}

func (r *storeCacheRequest) Body() io.WriteCloser {
	return (*storeSink)(r)
}

func (r *storeCacheRequest) Abort() error {
	r.mu.Lock()
	r.aborted = true
	r.mu.Unlock()
	return nil
}

type storeSink storeCacheRequest

func (s *storeSink) Write(p []byte) (int, error) {
	r := (*storeCacheRequest)(s)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aborted {
		return 0, fmt.Errorf("httpcache: write after abort")
	}
	return r.buf.Write(p)
}

func (s *storeSink) Close() error {
	r := (*storeCacheRequest)(s)
	r.mu.Lock()
	aborted := r.aborted
	body := append([]byte(nil), r.buf.Bytes()...)
	r.mu.Unlock()

	if aborted {
		return nil
	}

	final := *r.header
	final.Body = io.NopCloser(bytes.NewReader(body))
	final.ContentLength = int64(len(body))

	dumped, err := httputil.DumpResponse(&final, true)
	if err != nil {
		return fmt.Errorf("httpcache: dump response for store: %w", err)
	}
	return r.be.Set(r.ctx, r.key, dumped)
}
