// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// CacheControl is the parsed form of a Cache-Control header. Integer
// directives absent from the header are represented by -1 so "absent" and
// "zero" stay distinguishable.
type CacheControl struct {
	NoCache         bool
	NoStore         bool
	MaxAgeSeconds   int
	SMaxAgeSeconds  int
	IsPrivate       bool
	IsPublic        bool
	MustRevalidate  bool
	Immutable       bool
	OnlyIfCached    bool
	MaxStaleSeconds int
	MaxStaleSet     bool
	MinFreshSeconds int
	NoCacheFields   map[string]bool
}

// parseCacheControl parses the Cache-Control header per RFC 9111 Section 4.2.1:
// duplicate directives use the first occurrence (logged), conflicting
// directives are logged (the public+private pair additionally resolves
// private-wins, since IsPublic/IsPrivate must stay mutually meaningful), and
// malformed integer values are dropped rather than poisoning the decision.
func parseCacheControl(headers http.Header, log *slog.Logger) CacheControl {
	raw := map[string]string{}
	seen := map[string]bool{}

	for _, part := range strings.Split(headers.Get("Cache-Control"), ",") {
		part = strings.Trim(part, " ")
		if part == "" {
			continue
		}

		var directive, value string
		if strings.ContainsRune(part, '=') {
			keyval := strings.SplitN(part, "=", 2)
			directive = strings.Trim(keyval[0], " ")
			value = strings.Trim(strings.Trim(keyval[1], " "), `"`)
		} else {
			directive = part
		}
		directive = strings.ToLower(directive)

		if seen[directive] {
			log.Warn("duplicate Cache-Control directive detected, using first value",
				"directive", directive, "ignored_value", value)
			continue
		}
		seen[directive] = true
		raw[directive] = value
	}

	cc := CacheControl{
		NoCache:        hasDirective(raw, cacheControlNoCache),
		NoStore:        hasDirective(raw, cacheControlNoStore),
		IsPrivate:      hasDirective(raw, cacheControlPrivate),
		IsPublic:       hasDirective(raw, cacheControlPublic),
		MustRevalidate: hasDirective(raw, cacheControlMustRevalidate),
		Immutable:      hasDirective(raw, cacheControlImmutable),
		OnlyIfCached:   hasDirective(raw, cacheControlOnlyIfCached),
	}

	cc.MaxAgeSeconds = parseSecondsDirective(raw, cacheControlMaxAge, log)
	cc.SMaxAgeSeconds = parseSecondsDirective(raw, cacheControlSMaxAge, log)
	cc.MinFreshSeconds = parseSecondsDirective(raw, cacheControlMinFresh, log)

	if v, ok := raw[cacheControlMaxStale]; ok {
		cc.MaxStaleSet = true
		if v == "" {
			cc.MaxStaleSeconds = -1
		} else {
			cc.MaxStaleSeconds = parseSecondsDirective(raw, cacheControlMaxStale, log)
		}
	} else {
		cc.MaxStaleSeconds = -1
	}

	if v, ok := raw[cacheControlNoCache]; ok && v != "" {
		cc.NoCacheFields = map[string]bool{}
		for _, f := range strings.Split(v, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			if f != "" {
				cc.NoCacheFields[f] = true
			}
		}
	}

	detectConflictingDirectives(cc, log)

	return cc
}

func hasDirective(raw map[string]string, name string) bool {
	_, ok := raw[name]
	return ok
}

// parseSecondsDirective returns -1 when the directive is absent, a float, or
// non-numeric; negative integers are clamped to 0 per RFC 9111 Section 4.2.1.
func parseSecondsDirective(raw map[string]string, name string, log *slog.Logger) int {
	value, ok := raw[name]
	if !ok || value == "" {
		return -1
	}
	if strings.Contains(value, ".") {
		log.Warn("invalid Cache-Control value (float not allowed)", "directive", name, "value", value)
		return -1
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Warn("invalid Cache-Control value (non-numeric)", "directive", name, "value", value)
		return -1
	}
	if seconds < 0 {
		log.Warn("invalid Cache-Control value (negative)", "directive", name, "value", value)
		return 0
	}
	const maxInt = int64(^uint(0) >> 1)
	if seconds > maxInt {
		seconds = maxInt
	}
	return int(seconds)
}

// detectConflictingDirectives logs conflicting directive pairs. Only the
// public+private conflict mutates state (private wins); the rest are left for
// the decision cascade to resolve on its own terms.
func detectConflictingDirectives(cc CacheControl, log *slog.Logger) {
	if cc.NoCache && cc.MaxAgeSeconds >= 0 {
		log.Warn(logConflictingDirectives, "conflict", "no-cache + max-age",
			"resolution", "no-cache takes precedence (requires revalidation)")
	}
	if cc.IsPrivate && cc.IsPublic {
		log.Warn(logConflictingDirectives, "conflict", "public + private",
			"resolution", "private takes precedence (more restrictive)")
	}
	if cc.NoStore && cc.MaxAgeSeconds >= 0 {
		log.Warn(logConflictingDirectives, "conflict", "no-store + max-age",
			"resolution", "no-store takes precedence (prevents caching)")
	}
	if cc.NoStore && cc.MustRevalidate {
		log.Warn(logConflictingDirectives, "conflict", "no-store + must-revalidate",
			"resolution", "no-store takes precedence (prevents caching)")
	}
}

