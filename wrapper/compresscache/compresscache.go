// Package compresscache provides a cache wrapper that automatically compresses
// cached data to reduce storage requirements and network bandwidth usage.
// Supports multiple compression algorithms: gzip, brotli, and snappy.
package compresscache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kordcache/httpcache"
	"github.com/kordcache/httpcache/backend"
)

// Algorithm represents the compression algorithm to use
type Algorithm int

const (
	// Gzip uses gzip compression (good balance of compression and speed)
	Gzip Algorithm = iota
	// Brotli uses brotli compression (best compression ratio, slower)
	Brotli
	// Snappy uses snappy compression (fastest, lower compression ratio)
	Snappy
)

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds compression statistics
type Stats struct {
	CompressedBytes   int64   // Total bytes after compression
	UncompressedBytes int64   // Total bytes before compression
	CompressedCount   int64   // Number of compressed entries
	UncompressedCount int64   // Number of entries stored uncompressed (compression failed)
	CompressionRatio  float64 // Compression ratio (0.0-1.0, lower is better)
	SavingsPercent    float64 // Space savings percentage
}

// CompressCache is a type alias for GzipCache for backward compatibility
// Deprecated: Use GzipCache, BrotliCache, or SnappyCache directly
type CompressCache = GzipCache

// compressFunc is a function type for compression operations
type compressFunc func([]byte) ([]byte, error)

// decompressFunc is a function type for decompression operations
type decompressFunc func([]byte) ([]byte, error)

const staleMarkerSuffix = ":stale"

// baseCompressCache provides common functionality for all compression implementations
type baseCompressCache struct {
	cache     backend.Backend
	algorithm Algorithm

	// Statistics
	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

// newBaseCompressCache creates a new base compression cache
func newBaseCompressCache(cache backend.Backend, algorithm Algorithm) *baseCompressCache {
	return &baseCompressCache{
		cache:     cache,
		algorithm: algorithm,
	}
}

// get retrieves and decompresses a value from the cache
func (c *baseCompressCache) get(ctx context.Context, key string, decompressFn decompressFunc) ([]byte, bool, error) {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	decoded, ok := c.decode(key, data, decompressFn)
	return decoded, ok, nil
}

// decode strips the compression marker and decompresses data if needed.
func (c *baseCompressCache) decode(key string, data []byte, decompressFn decompressFunc) ([]byte, bool) {
	if len(data) < 1 {
		return data, true
	}

	marker := data[0]
	if marker == 0 {
		return data[1:], true
	}

	storedAlgo := Algorithm(marker - 1)
	decompressed, err := c.decompressWithAlgorithm(data[1:], storedAlgo, decompressFn)
	if err != nil {
		httpcache.GetLogger().Warn("decompression failed",
			"key", key,
			"algorithm", storedAlgo.String(),
			"error", err)
		return nil, false
	}

	return decompressed, true
}

// decompressWithAlgorithm decompresses data, delegating to the appropriate decompressor
func (c *baseCompressCache) decompressWithAlgorithm(data []byte, algorithm Algorithm, decompressFn decompressFunc) ([]byte, error) {
	if algorithm == c.algorithm {
		return decompressFn(data)
	}
	return c.decompressAny(data, algorithm)
}

// decompressAny decompresses data using any supported algorithm, allowing a
// cache written by one algorithm to be read back by a cache configured with
// another (useful when rolling an algorithm change across a shared cache).
func (c *baseCompressCache) decompressAny(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case Gzip:
		tempCache := &GzipCache{baseCompressCache: c}
		return tempCache.decompress(data)
	case Brotli:
		tempCache := &BrotliCache{baseCompressCache: c}
		return tempCache.decompress(data)
	case Snappy:
		tempCache := &SnappyCache{baseCompressCache: c}
		return tempCache.decompress(data)
	default:
		return nil, fmt.Errorf("unsupported decompression algorithm: %v", algorithm)
	}
}

// set compresses and stores a value in the cache
func (c *baseCompressCache) set(ctx context.Context, key string, value []byte, compressFn compressFunc) error {
	compressed, err := compressFn(value)
	if err != nil {
		httpcache.GetLogger().Warn("compression failed, storing uncompressed",
			"key", key,
			"algorithm", c.algorithm.String(),
			"error", err)
		data := make([]byte, len(value)+1)
		data[0] = 0
		copy(data[1:], value)
		if setErr := c.cache.Set(ctx, key, data); setErr != nil {
			return setErr
		}
		c.uncompressedCount.Add(1)
		c.uncompressedBytes.Add(int64(len(value)))
		return nil
	}

	data := make([]byte, len(compressed)+1)
	data[0] = byte(c.algorithm + 1)
	copy(data[1:], compressed)

	if err := c.cache.Set(ctx, key, data); err != nil {
		return err
	}
	c.compressedCount.Add(1)
	c.compressedBytes.Add(int64(len(compressed)))
	c.uncompressedBytes.Add(int64(len(value)))
	return nil
}

// delete removes a value from the cache
func (c *baseCompressCache) delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// markStale marks a cached entry as stale by writing a sentinel under a
// derived key, without disturbing the compressed payload itself.
func (c *baseCompressCache) markStale(ctx context.Context, key string) error {
	return c.cache.Set(ctx, key+staleMarkerSuffix, []byte{1})
}

// isStale reports whether key has been marked stale.
func (c *baseCompressCache) isStale(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.cache.Get(ctx, key+staleMarkerSuffix)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// getStale retrieves and decompresses key regardless of its stale marker.
func (c *baseCompressCache) getStale(ctx context.Context, key string, decompressFn decompressFunc) ([]byte, bool, error) {
	return c.get(ctx, key, decompressFn)
}

// stats returns compression statistics
func (c *baseCompressCache) stats() Stats {
	compressed := c.compressedBytes.Load()
	uncompressed := c.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}
