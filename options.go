// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"fmt"
	"net/http"
)

// Option is a function that configures a CacheInterceptor.
// Use the With* functions to create Options.
type Option func(*CacheInterceptor) error

// WithMarkCachedResponses configures whether responses returned from cache
// should include the X-From-Cache header.
// Default: true.
func WithMarkCachedResponses(mark bool) Option {
	return func(c *CacheInterceptor) error {
		c.MarkCachedResponses = mark
		return nil
	}
}

// WithCacheKeyHeaders specifies additional request headers to fold into the
// store key. This allows creating separate cache entries based on request
// header values; the store does not otherwise take Vary into account when
// building keys.
// Common use cases include "Authorization" for user-specific caches or
// "Accept-Language" for locale-specific responses.
// Header names are case-insensitive and will be canonicalized.
func WithCacheKeyHeaders(headers []string) Option {
	return func(c *CacheInterceptor) error {
		c.CacheKeyHeaders = headers
		if s, ok := c.store.(interface{ SetCacheKeyHeaders([]string) }); ok {
			s.SetCacheKeyHeaders(headers)
		}
		return nil
	}
}

// WithDisableWarningHeader disables the deprecated Warning header (RFC 7234)
// in responses. RFC 9111 obsoletes the Warning header field.
// Default: false (Warning headers are emitted for backward compatibility).
func WithDisableWarningHeader(disable bool) Option {
	return func(c *CacheInterceptor) error {
		c.DisableWarningHeader = disable
		return nil
	}
}

// WithTransport sets the underlying http.RoundTripper used to make network
// requests. If nil, http.DefaultTransport is used.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *CacheInterceptor) error {
		c.Transport = rt
		return nil
	}
}

// WithResilience enables retry and/or circuit breaker policies (failsafe-go
// backed) around the network round trip. A nil cfg is rejected; construct
// one with RetryPolicyBuilder/CircuitBreakerBuilder.
func WithResilience(cfg *ResilienceConfig) Option {
	return func(c *CacheInterceptor) error {
		if cfg == nil {
			return fmt.Errorf("httpcache: resilience config must not be nil")
		}
		c.resilience = cfg
		return nil
	}
}

// WithMetricsCollector wires a Collector for cache operation and strategy
// telemetry. If the interceptor's store supports SetMetricsCollector (as
// *BackendStore does), the same collector is also wired into the store so
// lookup/hit telemetry and round-trip telemetry share one sink.
func WithMetricsCollector(collector Collector) Option {
	return func(c *CacheInterceptor) error {
		if collector == nil {
			return fmt.Errorf("httpcache: metrics collector must not be nil")
		}
		c.metrics = collector
		if s, ok := c.store.(interface{ SetMetricsCollector(Collector) }); ok {
			s.SetMetricsCollector(collector)
		}
		return nil
	}
}
