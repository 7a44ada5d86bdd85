// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
//
// It operates as a 'private' cache (suitable for web browsers or API clients);
// shared/proxy-cache semantics (s-maxage, Authorization-gated shared storage)
// are out of scope.
//
// RFC 9111 (HTTP Caching) obsoletes RFC 7234 and is the current HTTP caching standard.
package httpcache

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// XFromCache is the header added to responses that are returned from the cache.
	XFromCache = "X-From-Cache"
	// XRevalidated is the header added to responses that got revalidated.
	XRevalidated = "X-Revalidated"
	// XRequestTime stores when the HTTP request was initiated (for Age calculation).
	XRequestTime = "X-Request-Time"
	// XResponseTime stores when the HTTP response was received (for Age calculation).
	XResponseTime = "X-Response-Time"

	methodGET    = "GET"
	methodHEAD   = "HEAD"
	methodPOST   = "POST"
	methodPUT    = "PUT"
	methodPATCH  = "PATCH"
	methodDELETE = "DELETE"

	headerLastModified    = "last-modified"
	headerETag            = "etag"
	headerAge             = "Age"
	headerWarning         = "Warning"
	headerLocation        = "Location"
	headerContentLocation = "Content-Location"

	cacheControlOnlyIfCached   = "only-if-cached"
	cacheControlNoCache        = "no-cache"
	cacheControlMaxAge         = "max-age"
	cacheControlNoStore        = "no-store"
	cacheControlPrivate        = "private"
	cacheControlPublic         = "public"
	cacheControlMustRevalidate = "must-revalidate"
	cacheControlSMaxAge        = "s-maxage"
	cacheControlImmutable      = "immutable"
	cacheControlMinFresh       = "min-fresh"
	cacheControlMaxStale       = "max-stale"

	logConflictingDirectives = "conflicting Cache-Control directives detected"

	// RFC 7234 Section 5.5 Warning header codes, bit-exact per SPEC_FULL.md §6.5.
	warningResponseIsStale    = `110 HttpURLConnection "Response is stale"`
	warningHeuristicExpiration = `113 HttpURLConnection "Heuristic expiration"`

	// unsatisfiableRequestReason is the bit-exact reason phrase of the
	// synthetic 504 returned when only-if-cached cannot be satisfied.
	unsatisfiableRequestReason = "Unsatisfiable Request (only-if-cached)"
)

// CacheInterceptor wraps an underlying http.RoundTripper and drives the
// strategy-and-storage control flow of SPEC_FULL.md §4.2. It is itself an
// http.RoundTripper, matching the donor module's Transport shape.
type CacheInterceptor struct {
	// Transport is the underlying RoundTripper used for network calls. If
	// nil, http.DefaultTransport is used.
	Transport http.RoundTripper

	store Store

	// MarkCachedResponses adds X-From-Cache to responses served from cache.
	MarkCachedResponses bool

	// CacheKeyHeaders folds the named request header values into the store key.
	CacheKeyHeaders []string

	// DisableWarningHeader suppresses Warning header injection entirely.
	DisableWarningHeader bool

	resilience *ResilienceConfig
	metrics    Collector

	nowMillis func() int64
}

// NewCacheInterceptor builds a CacheInterceptor backed by store, applying opts
// in order. MarkCachedResponses defaults to true.
func NewCacheInterceptor(store Store, opts ...Option) (*CacheInterceptor, error) {
	c := &CacheInterceptor{
		store:               store,
		MarkCachedResponses: true,
		metrics:             &NoOpCollector{},
		nowMillis:           func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *CacheInterceptor) transport() http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	return http.DefaultTransport
}

// RoundTrip implements the 13-step algorithm of SPEC_FULL.md §4.2.
func (c *CacheInterceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := GetLogger()

	// 1. Lookup.
	candidate, err := c.store.Get(ctx, req)
	if err != nil {
		log.Debug("store lookup failed, treating as miss", "error", err)
		candidate = nil
	}

	// 2. now.
	now := c.nowMillis()

	// 3. strategy.
	strategy := NewStrategyFactory(now, req, candidate, c.DisableWarningHeader).Compute()

	// 4. telemetry hook.
	c.store.TrackResponse(strategy)

	// 5. discard mismatched candidate.
	if candidate != nil && strategy.CacheResponse() == nil {
		candidate.Body.Close()
	}

	// 6. only-if-cached failure.
	if strategy.IsFail() {
		return newGatewayTimeoutResponse(req, now), nil
	}

	// 7. pure cache hit.
	if strategy.NetworkRequest() == nil {
		resp := strategy.CacheResponse()
		if c.MarkCachedResponses {
			resp.Header.Set(XFromCache, "1")
		}
		resp.Request = req
		return resp, nil
	}

	// 8. network path.
	sentRequestMillis := c.nowMillis()
	networkResponse, err := c.roundTripNetwork(strategy.NetworkRequest())
	if err != nil {
		if candidate != nil && strategy.CacheResponse() == candidate {
			candidate.Body.Close()
		}
		return nil, err
	}
	receivedResponseMillis := c.nowMillis()
	stampTimestamps(networkResponse, sentRequestMillis, receivedResponseMillis)

	cacheResponse := strategy.CacheResponse()

	// 9. conditional merge.
	if cacheResponse != nil {
		if networkResponse.StatusCode == http.StatusNotModified {
			merged := *cacheResponse
			merged.Header = combineHeaders(cacheResponse.Header, networkResponse.Header)
			merged.Request = req
			if c.MarkCachedResponses {
				merged.Header.Set(XRevalidated, "1")
			}
			networkResponse.Body.Close()

			c.store.TrackConditionalCacheHit()
			if err := c.store.Update(ctx, strip(cacheResponse), strip(&merged)); err != nil {
				log.Warn("store update after 304 failed", "error", err)
			}
			return &merged, nil
		}
		cacheResponse.Body.Close()
	}

	// 10. fresh response handling.
	response := networkResponse
	response.Request = req

	// 11 / 12. store or invalidate.
	if isCacheable(response, strategy.NetworkRequest()) && hasCacheableBody(response) {
		cacheReq, putErr := c.store.Put(ctx, response)
		if putErr != nil {
			log.Warn("store put failed, serving uncached", "error", putErr)
		} else if cacheReq != nil {
			response.Body = newCacheWritingBody(response.Body, cacheReq)
		}
	} else if isUnsafeMethod(strategy.NetworkRequest().Method) {
		if err := c.store.Remove(ctx, strategy.NetworkRequest()); err != nil {
			log.Warn("store remove failed", "error", err)
		}
		c.invalidateCache(strategy.NetworkRequest(), response)
	}

	// 13. return.
	return response, nil
}

// roundTripNetwork performs the network call, optionally wrapped with retry
// and circuit-breaking (ResilienceConfig, SPEC_FULL.md §11).
func (c *CacheInterceptor) roundTripNetwork(req *http.Request) (*http.Response, error) {
	if c.resilience != nil {
		return executeWithResilience(c.resilience, func() (*http.Response, error) {
			return c.transport().RoundTrip(req)
		})
	}
	return c.transport().RoundTrip(req)
}

func stampTimestamps(resp *http.Response, sentMillis, receivedMillis int64) {
	sent := time.UnixMilli(sentMillis).UTC().Format(time.RFC3339Nano)
	received := time.UnixMilli(receivedMillis).UTC().Format(time.RFC3339Nano)
	resp.Header.Set(XRequestTime, sent)
	resp.Header.Set(XResponseTime, received)
}

// hasCacheableBody reports whether resp is eligible to have a body stored at
// all; HEAD responses and 204/304 never carry a cacheable body.
func hasCacheableBody(resp *http.Response) bool {
	if resp.Request != nil && resp.Request.Method == methodHEAD {
		return false
	}
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotModified:
		return false
	}
	return true
}

// newGatewayTimeoutResponse synthesizes the bit-exact 504 response of
// SPEC_FULL.md §6.6.
func newGatewayTimeoutResponse(req *http.Request, nowMillis int64) *http.Response {
	resp := &http.Response{
		Status:        fmt.Sprintf("%d %s", http.StatusGatewayTimeout, unsatisfiableRequestReason),
		StatusCode:    http.StatusGatewayTimeout,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		Body:          http.NoBody,
		ContentLength: 0,
		Request:       req,
	}
	resp.Header.Set(XRequestTime, time.UnixMilli(-1).UTC().Format(time.RFC3339Nano))
	resp.Header.Set(XResponseTime, time.UnixMilli(nowMillis).UTC().Format(time.RFC3339Nano))
	return resp
}

// Client returns an *http.Client using this CacheInterceptor as its Transport.
func (c *CacheInterceptor) Client() *http.Client {
	return &http.Client{Transport: c}
}
