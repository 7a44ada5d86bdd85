// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"context"
	"net/http"
	"net/url"
)

const methodMove = "MOVE"

// isUnsafeMethod reports whether method is one of the invalidating methods
// named in SPEC_FULL.md §6.4: POST, PUT, DELETE, PATCH, MOVE. MOVE is added
// relative to the donor module's narrower set.
func isUnsafeMethod(method string) bool {
	switch method {
	case methodPOST, methodPUT, methodDELETE, methodPATCH, methodMove:
		return true
	default:
		return false
	}
}

// invalidateCache invalidates cache entries per RFC 9111 Section 4.4, beyond
// the minimum SPEC_FULL.md §4.2 step 12 requires (which only removes the
// request-URI entry): on a non-error response to an unsafe method it also
// invalidates same-origin URIs named by Location/Content-Location.
func (c *CacheInterceptor) invalidateCache(req *http.Request, resp *http.Response) {
	ctx := req.Context()
	log := GetLogger()

	if resp.StatusCode >= 400 {
		log.Debug("skipping cache invalidation for error response", "status", resp.StatusCode, "url", req.URL.String())
		return
	}

	c.invalidateURI(ctx, req.URL, "request-uri")

	if location := resp.Header.Get(headerLocation); location != "" {
		if err := c.invalidateHeaderURI(ctx, req.URL, location, "Location"); err != nil {
			log.Debug("failed to invalidate Location URI", "location", location, "error", err.Error())
		}
	}

	if contentLocation := resp.Header.Get(headerContentLocation); contentLocation != "" {
		if err := c.invalidateHeaderURI(ctx, req.URL, contentLocation, "Content-Location"); err != nil {
			log.Debug("failed to invalidate Content-Location URI", "content-location", contentLocation, "error", err.Error())
		}
	}
}

func (c *CacheInterceptor) invalidateHeaderURI(ctx context.Context, requestURL *url.URL, headerValue, headerName string) error {
	targetURL, err := requestURL.Parse(headerValue)
	if err != nil {
		return err
	}

	if !isSameOrigin(requestURL, targetURL) {
		GetLogger().Debug("skipping cross-origin invalidation",
			"header", headerName, "request-origin", getOrigin(requestURL), "target-origin", getOrigin(targetURL))
		return nil
	}

	c.invalidateURI(ctx, targetURL, headerName)
	return nil
}

// invalidateURI removes both the GET and HEAD entries for targetURL; I/O
// failures are swallowed per SPEC_FULL.md §7.
func (c *CacheInterceptor) invalidateURI(ctx context.Context, targetURL *url.URL, source string) {
	log := GetLogger()

	getReq := &http.Request{Method: methodGET, URL: targetURL}
	if err := c.store.Remove(ctx, getReq); err != nil {
		log.Warn("failed to invalidate cache entry", "url", targetURL.String(), "error", err)
	} else {
		log.Debug("invalidated cache entry", "url", targetURL.String(), "source", source)
	}

	headReq := &http.Request{Method: methodHEAD, URL: targetURL}
	if err := c.store.Remove(ctx, headReq); err != nil {
		log.Warn("failed to invalidate HEAD cache entry", "url", targetURL.String(), "error", err)
	} else {
		log.Debug("invalidated HEAD cache entry", "url", targetURL.String(), "source", source)
	}
}

// isSameOrigin reports whether two URLs share scheme+host, per RFC 9111's
// same-origin invalidation restriction.
func isSameOrigin(url1, url2 *url.URL) bool {
	return url1.Scheme == url2.Scheme && url1.Host == url2.Host
}

func getOrigin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
