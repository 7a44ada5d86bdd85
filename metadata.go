// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"log/slog"
	"net/http"
	"time"
)

// storedResponseMetadata is derived once, at StrategyFactory construction,
// from a stored response's headers. Unparseable or absent fields are simply
// not-ok rather than errors.
type storedResponseMetadata struct {
	servedDate       time.Time
	servedDateOK     bool
	servedDateString string

	lastModified       time.Time
	lastModifiedOK     bool
	lastModifiedString string

	expires   time.Time
	expiresOK bool

	etag   string
	etagOK bool

	ageSeconds   int64
	ageSecondsOK bool

	sentRequestMillis      int64
	receivedResponseMillis int64
}

// newStoredResponseMetadata extracts every date/validator field the strategy
// cascade needs from resp's headers, in one pass, case-insensitively (free
// via http.Header).
func newStoredResponseMetadata(resp *http.Response, log *slog.Logger) storedResponseMetadata {
	meta := storedResponseMetadata{}

	if v := resp.Header.Get("Date"); v != "" {
		meta.servedDateString = v
		if t, ok := dateHeader(resp.Header); ok {
			meta.servedDate = t
			meta.servedDateOK = true
		}
	}

	if v := resp.Header.Get(headerLastModified); v != "" {
		meta.lastModifiedString = v
		if t, err := http.ParseTime(v); err == nil {
			meta.lastModified = t
			meta.lastModifiedOK = true
		}
	}

	if v := resp.Header.Get("Expires"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			meta.expires = t
			meta.expiresOK = true
		}
	}

	if v := resp.Header.Get(headerETag); v != "" {
		meta.etag = v
		meta.etagOK = true
	}

	if seconds, ok := ageSecondsHeader(resp.Header, log); ok {
		meta.ageSeconds = seconds
		meta.ageSecondsOK = true
	}

	meta.sentRequestMillis = parseMillisHeader(resp.Header, XRequestTime)
	meta.receivedResponseMillis = parseMillisHeader(resp.Header, XResponseTime)

	return meta
}

// parseMillisHeader reads an RFC3339Nano timestamp stored in an extension
// header (X-Request-Time / X-Response-Time) and converts it to epoch millis;
// returns 0 if absent or unparseable. cacheResponseAge does not special-case
// 0: a missing X-Response-Time makes the resident duration run from the Unix
// epoch, so such an entry reads as very old.
func parseMillisHeader(headers http.Header, name string) int64 {
	v := headers.Get(name)
	if v == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
