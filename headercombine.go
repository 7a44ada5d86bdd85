// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"net/http"
	"strings"
)

// hopByHopHeaders is the RFC 9111 / RFC 9110 Section 7.6.1 set of headers
// that are never forwarded to the ultimate recipient unchanged.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// contentSpecificHeaders are kept from the cached copy regardless of what the
// network response says, since they describe the cached body, not the 304.
var contentSpecificHeaders = map[string]bool{
	"Content-Length":   true,
	"Content-Encoding": true,
	"Content-Type":     true,
}

func isHopByHop(name string) bool {
	return hopByHopHeaders[http.CanonicalHeaderKey(name)]
}

func isContentSpecific(name string) bool {
	return contentSpecificHeaders[http.CanonicalHeaderKey(name)]
}

func isEndToEnd(name string) bool {
	return !isHopByHop(name)
}

// combineHeaders implements RFC 7234 Section 4.3.4 / SPEC_FULL.md §4.2.2: the
// header set of a 304-merged response. Cached headers are kept first (in
// their original order) when they are content-specific, hop-by-hop, or simply
// undefined on the network response; Warning follows the same network-wins
// gate after its cached 1xx values are dropped. Network headers are appended
// afterward when end-to-end and not content-specific.
func combineHeaders(cached, network http.Header) http.Header {
	combined := make(http.Header, len(cached)+len(network))

	for name, values := range cached {
		if strings.EqualFold(name, headerWarning) {
			if len(network.Values(name)) == 0 {
				combined[name] = filterCached1xxWarnings(values)
				if len(combined[name]) == 0 {
					delete(combined, name)
				}
			}
			continue
		}

		if isContentSpecific(name) || isHopByHop(name) || len(network.Values(name)) == 0 {
			combined[name] = append([]string(nil), values...)
		}
	}

	for name, values := range network {
		if isContentSpecific(name) {
			continue
		}
		if !isEndToEnd(name) {
			continue
		}
		combined[name] = append(combined[name], values...)
	}

	return combined
}

// filterCached1xxWarnings drops any Warning value whose numeric code starts
// with "1" (the only ones the spec designates as freshness warnings); a
// network 1xx Warning on the same 304 survives untouched elsewhere, per the
// explicitly-preserved source ambiguity in SPEC_FULL.md §9.
func filterCached1xxWarnings(values []string) []string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "1") {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

// strip returns a shallow copy of resp with its body replaced by http.NoBody,
// for attaching as a lightweight descriptor (SPEC_FULL.md §4.2.3).
func strip(resp *http.Response) *http.Response {
	if resp == nil {
		return nil
	}
	clone := *resp
	clone.Body = http.NoBody
	return &clone
}
