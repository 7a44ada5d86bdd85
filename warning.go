// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"net/http"
)

// addWarningHeader adds a Warning header to the response per RFC 7234 Section 5.5.
// Warning headers can be stacked, so we use Add instead of Set.
func addWarningHeader(resp *http.Response, warningValue string) {
	resp.Header.Add(headerWarning, warningValue)
}

// addStaleWarning adds the bit-exact 110 "Response is stale" warning.
func addStaleWarning(resp *http.Response) {
	addWarningHeader(resp, warningResponseIsStale)
}

// addHeuristicExpirationWarning adds the bit-exact 113 "Heuristic expiration"
// warning, used when a heuristically-fresh response older than a day is served.
func addHeuristicExpirationWarning(resp *http.Response) {
	addWarningHeader(resp, warningHeuristicExpiration)
}
