// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"log/slog"
	"net/http"
)

type strategyKind int

const (
	strategyNetwork strategyKind = iota
	strategyCache
	strategyConditional
	strategyFail
)

// Strategy is the outcome of StrategyFactory.Compute: a tagged union over the
// four legal (networkRequest?, cacheResponse?) combinations named in
// SPEC_FULL.md §3, rather than a raw nullable pair (§9 design note).
type Strategy struct {
	kind           strategyKind
	networkRequest *http.Request
	cacheResponse  *http.Response
}

func networkStrategy(req *http.Request) Strategy {
	return Strategy{kind: strategyNetwork, networkRequest: req}
}

func cacheStrategy(resp *http.Response) Strategy {
	return Strategy{kind: strategyCache, cacheResponse: resp}
}

func conditionalStrategy(req *http.Request, resp *http.Response) Strategy {
	return Strategy{kind: strategyConditional, networkRequest: req, cacheResponse: resp}
}

func failStrategy() Strategy {
	return Strategy{kind: strategyFail}
}

// NetworkRequest returns the request that should be sent to the network, or
// nil if the strategy can be satisfied from the cache alone.
func (s Strategy) NetworkRequest() *http.Request { return s.networkRequest }

// CacheResponse returns the stored response the strategy will serve or
// revalidate, or nil if there is no usable cache entry.
func (s Strategy) CacheResponse() *http.Response { return s.cacheResponse }

// IsFail reports whether the strategy is the only-if-cached failure case
// (SPEC_FULL.md §4.2 step 6): no network request, no cache response.
func (s Strategy) IsFail() bool { return s.kind == strategyFail }

// StrategyFactory computes a Strategy from (now, request, storedResponse).
// Pure, reentrant, no I/O — SPEC_FULL.md §4.1.
type StrategyFactory struct {
	nowMillis       int64
	request         *http.Request
	stored          *http.Response
	meta            storedResponseMetadata
	log             *slog.Logger
	disableWarnings bool
}

// NewStrategyFactory constructs a factory, parsing storedResponse's headers
// (if present) exactly once. storedResponse may be nil. disableWarnings
// suppresses the stale/heuristic-expiration Warning tagging the cascade would
// otherwise add to a served stale response (SPEC_FULL.md §10's
// WithDisableWarningHeader option).
func NewStrategyFactory(nowMillis int64, request *http.Request, storedResponse *http.Response, disableWarnings bool) *StrategyFactory {
	f := &StrategyFactory{
		nowMillis:       nowMillis,
		request:         request,
		stored:          storedResponse,
		log:             GetLogger(),
		disableWarnings: disableWarnings,
	}
	if storedResponse != nil {
		f.meta = newStoredResponseMetadata(storedResponse, f.log)
	}
	return f
}

// Compute runs the decision cascade of SPEC_FULL.md §4.1, first match wins.
func (f *StrategyFactory) Compute() Strategy {
	candidate := f.computeCandidate()

	reqCC := parseCacheControl(f.request.Header, f.log)
	if candidate.networkRequest != nil && reqCC.OnlyIfCached {
		return failStrategy()
	}
	return candidate
}

func (f *StrategyFactory) computeCandidate() Strategy {
	// (a) no stored response
	if f.stored == nil {
		return networkStrategy(f.request)
	}

	// (b) HTTPS request but stored response has no TLS handshake record
	if f.request.URL.Scheme == "https" && f.stored.TLS == nil {
		return networkStrategy(f.request)
	}

	// (c) stored response fails isCacheable
	if !isCacheable(f.stored, f.request) {
		return networkStrategy(f.request)
	}

	reqCC := parseCacheControl(f.request.Header, f.log)

	// (d) caller-supplied conditionals or request no-cache bypass the
	// built-in validator, to avoid double validation.
	if reqCC.NoCache || f.request.Header.Get("If-Modified-Since") != "" || f.request.Header.Get("If-None-Match") != "" {
		return networkStrategy(f.request)
	}

	respCC := parseCacheControl(f.stored.Header, f.log)

	// (e) immutable stored response skips all freshness math
	if respCC.Immutable {
		return cacheStrategy(f.stored)
	}

	// (f) freshness evaluation
	ageMillis := cacheResponseAge(f.meta, f.nowMillis)
	freshMillis := f.computeFreshnessLifetime(respCC)
	if reqCC.MaxAgeSeconds >= 0 {
		reqMax := saturatingMulMillis(int64(reqCC.MaxAgeSeconds))
		if reqMax < freshMillis {
			freshMillis = reqMax
		}
	}

	var minFreshMillis int64
	if reqCC.MinFreshSeconds > 0 {
		minFreshMillis = saturatingMulMillis(int64(reqCC.MinFreshSeconds))
	}

	var maxStaleMillis int64
	if reqCC.MaxStaleSet && !respCC.MustRevalidate {
		if reqCC.MaxStaleSeconds >= 0 {
			maxStaleMillis = saturatingMulMillis(int64(reqCC.MaxStaleSeconds))
		} else {
			// bare "max-stale" with no value: unbounded staleness tolerance
			maxStaleMillis = 1<<62 - 1
		}
	}

	if !respCC.NoCache && ageMillis+minFreshMillis < freshMillis+maxStaleMillis {
		served := f.stored
		if !f.disableWarnings {
			if ageMillis+minFreshMillis >= freshMillis {
				served = cloneResponseForWarning(served)
				addStaleWarning(served)
			}
			heuristic := respCC.MaxAgeSeconds < 0 && !f.meta.expiresOK
			if ageMillis > 86400000 && heuristic {
				if served == f.stored {
					served = cloneResponseForWarning(served)
				}
				addHeuristicExpirationWarning(served)
			}
		}
		return cacheStrategy(served)
	}

	// (g) synthesize a conditional request
	conditional := f.request.Clone(f.request.Context())
	switch {
	case f.meta.etagOK:
		conditional.Header.Set("If-None-Match", f.meta.etag)
	case f.meta.lastModifiedOK:
		conditional.Header.Set("If-Modified-Since", f.meta.lastModifiedString)
	case f.meta.servedDateOK:
		conditional.Header.Set("If-Modified-Since", f.meta.servedDateString)
	default:
		return networkStrategy(f.request)
	}
	return conditionalStrategy(conditional, f.stored)
}

// computeFreshnessLifetime implements SPEC_FULL.md §4.1.2, in milliseconds.
func (f *StrategyFactory) computeFreshnessLifetime(respCC CacheControl) int64 {
	if respCC.MaxAgeSeconds >= 0 {
		return saturatingMulMillis(int64(respCC.MaxAgeSeconds))
	}

	if f.meta.expiresOK {
		servedMillis := f.meta.receivedResponseMillis
		if f.meta.servedDateOK {
			servedMillis = f.meta.servedDate.UnixMilli()
		}
		lifetime := f.meta.expires.UnixMilli() - servedMillis
		if lifetime < 0 {
			lifetime = 0
		}
		return lifetime
	}

	storedURL := f.request.URL
	if f.stored != nil && f.stored.Request != nil && f.stored.Request.URL != nil {
		storedURL = f.stored.Request.URL
	}
	if f.meta.lastModifiedOK && storedURL.RawQuery == "" {
		servedMillis := f.meta.sentRequestMillis
		if f.meta.servedDateOK {
			servedMillis = f.meta.servedDate.UnixMilli()
		}
		delta := servedMillis - f.meta.lastModified.UnixMilli()
		if delta < 0 {
			delta = 0
		}
		return delta / 10
	}

	return 0
}

// isCacheable implements SPEC_FULL.md §4.1's cacheability predicate.
// Independent of ordering and idempotent: it is a pure function of resp/req.
func isCacheable(resp *http.Response, req *http.Request) bool {
	if !isCacheableStatusCode(resp) {
		return false
	}

	log := GetLogger()
	reqCC := parseCacheControl(req.Header, log)
	respCC := parseCacheControl(resp.Header, log)
	if reqCC.NoStore || respCC.NoStore {
		return false
	}
	return true
}

func isCacheableStatusCode(resp *http.Response) bool {
	switch resp.StatusCode {
	case 200, 203, 204, 300, 301, 404, 405, 410, 414, 501, 308:
		return true
	case 302, 307:
		if resp.Header.Get("Expires") != "" {
			return true
		}
		cc := resp.Header.Get("Cache-Control")
		return headerListHas(cc, cacheControlMaxAge) || headerListHas(cc, cacheControlPublic) || headerListHas(cc, cacheControlPrivate)
	default:
		return false
	}
}

// headerListHas reports whether a comma-separated Cache-Control value
// contains directive as a bare token or a "directive=" prefix.
func headerListHas(cacheControlValue, directive string) bool {
	for _, part := range splitAndTrim(cacheControlValue) {
		if part == directive {
			return true
		}
		if len(part) > len(directive) && part[:len(directive)] == directive && part[len(directive)] == '=' {
			return true
		}
	}
	return false
}

func splitAndTrim(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			part := trimSpaceASCII(s[start:i])
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpaceASCII(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}

// cloneResponseForWarning returns a shallow copy of resp with its own header
// map, so that adding a Warning header never mutates a response the store (or
// another in-flight reader) still holds.
func cloneResponseForWarning(resp *http.Response) *http.Response {
	clone := *resp
	clone.Header = resp.Header.Clone()
	return &clone
}
