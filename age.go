// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// dateHeader parses the Date header of resp, returning ok=false if it is
// absent or unparseable (never an error — per RFC 9111 unparseable dates are
// simply treated as unknown).
func dateHeader(headers http.Header) (t time.Time, ok bool) {
	v := headers.Get("Date")
	if v == "" {
		return time.Time{}, false
	}
	parsed, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// ageSecondsHeader parses the Age header per RFC 9111 Section 5.1: the first
// value wins when duplicated, and a negative or non-numeric value is ignored
// entirely (ok=false) rather than poisoning the age calculation.
func ageSecondsHeader(headers http.Header, log *slog.Logger) (seconds int64, ok bool) {
	values := headers.Values(headerAge)
	if len(values) == 0 {
		return 0, false
	}

	first := strings.TrimSpace(values[0])
	if len(values) > 1 {
		log.Warn("multiple Age headers detected, using first value", "count", len(values), "first", first)
	}

	parsed, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		log.Warn("invalid Age header value, ignoring", "value", first, "error", err)
		return 0, false
	}
	if parsed < 0 {
		log.Warn("negative Age header value, ignoring", "value", parsed)
		return 0, false
	}
	return parsed, true
}

// saturatingMulMillis multiplies seconds by 1000 clamping to math.MaxInt64 on
// overflow instead of wrapping, per the Age-overflow design decision.
func saturatingMulMillis(seconds int64) int64 {
	if seconds <= 0 {
		return 0
	}
	if seconds > math.MaxInt64/1000 {
		return math.MaxInt64
	}
	return seconds * 1000
}

// cacheResponseAge implements RFC 9111 Section 4.2.3 / Section 4.2.3 of the
// distilled spec, entirely in injected milliseconds — no wall clock is read
// here, all timestamps come from storedResponseMetadata and the factory's
// nowMillis.
func cacheResponseAge(meta storedResponseMetadata, nowMillis int64) int64 {
	var apparentReceivedAge int64
	if meta.servedDateOK {
		apparentReceivedAge = meta.receivedResponseMillis - meta.servedDate.UnixMilli()
		if apparentReceivedAge < 0 {
			apparentReceivedAge = 0
		}
	}

	receivedAge := apparentReceivedAge
	if meta.ageSecondsOK {
		ageMillis := saturatingMulMillis(meta.ageSeconds)
		if ageMillis > receivedAge {
			receivedAge = ageMillis
		}
	}

	responseDuration := meta.receivedResponseMillis - meta.sentRequestMillis
	residentDuration := nowMillis - meta.receivedResponseMillis

	return receivedAge + responseDuration + residentDuration
}
