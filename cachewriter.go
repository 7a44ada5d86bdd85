// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// discardOnCloseTimeout bounds how long Close will wait for an early-closed
// cache-writing body to drain its upstream before giving up and aborting the
// store write (SPEC_FULL.md §4.2.1).
const discardOnCloseTimeout = 100 * time.Millisecond

type writeState int

const (
	writeStateWriting writeState = iota
	writeStateCommitted
	writeStateAborted
)

// cacheWritingBody tees bytes read from upstream into both the caller and a
// CacheRequest sink, per SPEC_FULL.md §4.2.1. It is modeled as a small state
// machine — {Writing, Committed, Aborted} — with a one-shot guard so the
// three independent closing paths (EOF, read error, early close) can never
// leave the store half-open.
type cacheWritingBody struct {
	upstream io.ReadCloser
	cacheReq CacheRequest

	mu      sync.Mutex
	state   writeState
	sinkErr error
}

// newCacheWritingBody wraps upstream so its bytes are simultaneously written
// to cacheReq's sink. If cacheReq is nil (the store declined the write), the
// caller should skip wrapping entirely and pass upstream through unchanged.
func newCacheWritingBody(upstream io.ReadCloser, cacheReq CacheRequest) *cacheWritingBody {
	return &cacheWritingBody{upstream: upstream, cacheReq: cacheReq}
}

func (b *cacheWritingBody) Read(p []byte) (int, error) {
	n, err := b.upstream.Read(p)
	if n > 0 {
		sink := b.cacheReq.Body()
		if sink != nil {
			if _, werr := sink.Write(p[:n]); werr != nil {
				b.abort()
				return n, werr
			}
		}
	}

	if err == io.EOF {
		b.commit()
	} else if err != nil {
		b.abort()
	}

	return n, err
}

func (b *cacheWritingBody) Close() error {
	b.mu.Lock()
	alreadyTerminal := b.state != writeStateWriting
	b.mu.Unlock()

	if alreadyTerminal {
		return b.upstream.Close()
	}

	// Early close before EOF: attempt a bounded discard of the remainder so a
	// well-behaved producer still gets a complete cache entry, but never block
	// the caller's Close beyond the timeout.
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, b)
		done <- err
	}()

	select {
	case <-done:
		// commit/abort already applied by Read's EOF/error handling above.
	case <-time.After(discardOnCloseTimeout):
		b.abort()
	}

	upstreamErr := b.upstream.Close()

	b.mu.Lock()
	sinkErr := b.sinkErr
	b.mu.Unlock()

	if upstreamErr != nil || sinkErr != nil {
		var merr *multierror.Error
		merr = multierror.Append(merr, upstreamErr, sinkErr)
		return merr.ErrorOrNil()
	}
	return nil
}

func (b *cacheWritingBody) commit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != writeStateWriting {
		return
	}
	b.state = writeStateCommitted
	if sink := b.cacheReq.Body(); sink != nil {
		b.sinkErr = sink.Close()
	}
}

func (b *cacheWritingBody) abort() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != writeStateWriting {
		return
	}
	b.state = writeStateAborted
	b.sinkErr = b.cacheReq.Abort()
}
