// Package backend defines the low-level, byte-oriented storage contract that
// every concrete cache engine in this module implements. It is the
// relocated, renamed form of the donor module's root Cache interface: plain
// get/set/delete by string key, with no knowledge of HTTP semantics at all.
// The richer, RFC 9111-shaped httpcache.Store contract is built on top of a
// Backend by the root package's store adapter.
package backend

import "context"

// Backend stores and retrieves opaque byte slices by key. Implementations
// must be safe for concurrent use.
type Backend interface {
	// Get returns the bytes stored under key. Returns (nil, false, nil) if
	// the key does not exist, and (nil, false, err) on a backend failure.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any prior value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
