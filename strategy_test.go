package httpcache

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStoredResponse builds a synthetic stored response. Unless the caller
// supplies its own X-Request-Time/X-Response-Time, both default to the
// response's Date header (or time0 if absent), so age arithmetic reduces to
// "time elapsed since Date" the way a real round trip with near-zero network
// latency would.
func newStoredResponse(t *testing.T, headers map[string]string) *http.Response {
	t.Helper()
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}

	if h.Get(XRequestTime) == "" || h.Get(XResponseTime) == "" {
		received := time0
		if v := h.Get("Date"); v != "" {
			if parsed, err := http.ParseTime(v); err == nil {
				received = parsed
			}
		}
		stamp := received.UTC().Format(time.RFC3339Nano)
		if h.Get(XRequestTime) == "" {
			h.Set(XRequestTime, stamp)
		}
		if h.Get(XResponseTime) == "" {
			h.Set(XResponseTime, stamp)
		}
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/resource", nil)
	require.NoError(t, err)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     h,
		Body:       http.NoBody,
		Request:    req,
	}
}

func newGETRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://example.com/resource", nil)
	require.NoError(t, err)
	return req
}

// Scenario 1: fresh hit — stored response within max-age, no warnings, no
// network request.
func TestStrategyFreshHit(t *testing.T) {
	now := time0.UnixMilli()
	stored := newStoredResponse(t, map[string]string{
		"Cache-Control": "max-age=600",
		"Date":          time0.Add(-60 * time.Second).Format(http.TimeFormat),
	})
	req := newGETRequest(t)

	strategy := NewStrategyFactory(now, req, stored, false).Compute()

	assert.Nil(t, strategy.NetworkRequest())
	require.NotNil(t, strategy.CacheResponse())
	assert.Empty(t, strategy.CacheResponse().Header.Values("Warning"))
}

// Scenario 4: heuristic freshness well past a day old serves stale with both
// warnings once the request raises max-stale enough to tolerate it.
func TestStrategyHeuristicFreshnessStaleWarnings(t *testing.T) {
	now := time0.UnixMilli()
	stored := newStoredResponse(t, map[string]string{
		"Last-Modified": time0.Add(-20 * 24 * time.Hour).Format(http.TimeFormat),
		"Date":          time0.Add(-5 * 24 * time.Hour).Format(http.TimeFormat),
	})
	req := newGETRequest(t)
	req.Header.Set("Cache-Control", "max-stale=86400000")

	strategy := NewStrategyFactory(now, req, stored, false).Compute()

	require.Nil(t, strategy.NetworkRequest())
	require.NotNil(t, strategy.CacheResponse())
	warnings := strategy.CacheResponse().Header.Values("Warning")
	assert.Contains(t, warnings, warningResponseIsStale)
	assert.Contains(t, warnings, warningHeuristicExpiration)
}

func TestStrategyHeuristicFreshnessWarningsSuppressedWhenDisabled(t *testing.T) {
	now := time0.UnixMilli()
	stored := newStoredResponse(t, map[string]string{
		"Last-Modified": time0.Add(-20 * 24 * time.Hour).Format(http.TimeFormat),
		"Date":          time0.Add(-5 * 24 * time.Hour).Format(http.TimeFormat),
	})
	req := newGETRequest(t)
	req.Header.Set("Cache-Control", "max-stale=86400000")

	strategy := NewStrategyFactory(now, req, stored, true).Compute()

	require.NotNil(t, strategy.CacheResponse())
	assert.Empty(t, strategy.CacheResponse().Header.Values("Warning"))
}

// Scenario 5: only-if-cached with no usable cache entry fails rather than
// going to the network.
func TestStrategyOnlyIfCachedMiss(t *testing.T) {
	req := newGETRequest(t)
	req.Header.Set("Cache-Control", "only-if-cached")

	strategy := NewStrategyFactory(time0.UnixMilli(), req, nil, false).Compute()

	assert.True(t, strategy.IsFail())
	assert.Nil(t, strategy.NetworkRequest())
	assert.Nil(t, strategy.CacheResponse())
}

// Scenario 7: an HTTPS request can never reuse an entry stored without a TLS
// handshake record; the interceptor is left to close the stale candidate.
func TestStrategyHTTPSWithoutHandshakeForcesNetwork(t *testing.T) {
	stored := newStoredResponse(t, map[string]string{
		"Cache-Control": "max-age=600",
		"Date":          time0.Format(http.TimeFormat),
	})
	req, err := http.NewRequest(http.MethodGet, "https://example.com/resource", nil)
	require.NoError(t, err)

	strategy := NewStrategyFactory(time0.UnixMilli(), req, stored, false).Compute()

	assert.NotNil(t, strategy.NetworkRequest())
	assert.Nil(t, strategy.CacheResponse())
}

func TestStrategyNoStoredResponseGoesToNetwork(t *testing.T) {
	req := newGETRequest(t)
	strategy := NewStrategyFactory(time0.UnixMilli(), req, nil, false).Compute()

	assert.Same(t, req, strategy.NetworkRequest())
	assert.Nil(t, strategy.CacheResponse())
}

func TestStrategyImmutableSkipsFreshnessMath(t *testing.T) {
	stored := newStoredResponse(t, map[string]string{
		"Cache-Control": "immutable",
		"Date":          time0.Add(-365 * 24 * time.Hour).Format(http.TimeFormat),
	})
	req := newGETRequest(t)

	strategy := NewStrategyFactory(time0.UnixMilli(), req, stored, false).Compute()

	assert.Nil(t, strategy.NetworkRequest())
	assert.Same(t, stored, strategy.CacheResponse())
}

func TestStrategyStaleWithValidatorSynthesizesConditional(t *testing.T) {
	stored := newStoredResponse(t, map[string]string{
		"Cache-Control": "max-age=60",
		"Date":          time0.Add(-3600 * time.Second).Format(http.TimeFormat),
		"Etag":          `"abc"`,
	})
	req := newGETRequest(t)

	strategy := NewStrategyFactory(time0.UnixMilli(), req, stored, false).Compute()

	require.NotNil(t, strategy.NetworkRequest())
	assert.Equal(t, `"abc"`, strategy.NetworkRequest().Header.Get("If-None-Match"))
	assert.Same(t, stored, strategy.CacheResponse())
}

func TestStrategyCallerConditionalBypassesCache(t *testing.T) {
	stored := newStoredResponse(t, map[string]string{
		"Cache-Control": "max-age=600",
		"Date":          time0.Format(http.TimeFormat),
	})
	req := newGETRequest(t)
	req.Header.Set("If-None-Match", `"preset"`)

	strategy := NewStrategyFactory(time0.UnixMilli(), req, stored, false).Compute()

	assert.Same(t, req, strategy.NetworkRequest())
	assert.Nil(t, strategy.CacheResponse())
}

func TestIsCacheableStatusCodes(t *testing.T) {
	req := newGETRequest(t)

	cases := []struct {
		status int
		extra  map[string]string
		want   bool
	}{
		{200, nil, true},
		{404, nil, true},
		{500, nil, false},
		{302, nil, false},
		{302, map[string]string{"Expires": time0.Format(http.TimeFormat)}, true},
		{307, map[string]string{"Cache-Control": "public"}, true},
	}

	for _, tc := range cases {
		resp := newStoredResponse(t, tc.extra)
		resp.StatusCode = tc.status
		assert.Equal(t, tc.want, isCacheableStatusCode(resp))
	}

	// isCacheable is independent of ordering and idempotent (§8 invariant).
	resp := newStoredResponse(t, nil)
	first := isCacheable(resp, req)
	second := isCacheable(resp, req)
	assert.Equal(t, first, second)
}

func TestIsCacheableRejectsNoStoreEitherSide(t *testing.T) {
	resp := newStoredResponse(t, map[string]string{"Cache-Control": "max-age=600"})
	reqNoStore := newGETRequest(t)
	reqNoStore.Header.Set("Cache-Control", "no-store")
	assert.False(t, isCacheable(resp, reqNoStore))

	respNoStore := newStoredResponse(t, map[string]string{"Cache-Control": "no-store"})
	req := newGETRequest(t)
	assert.False(t, isCacheable(respNoStore, req))
}
