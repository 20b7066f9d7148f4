package cache

// BlockKey identifies a fixed-size block of a named blob.
type BlockKey struct {
	Name  string
	Block int64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(key BlockKey) (b []byte, ok bool)
	// Set caches a block. The cache retains b; the caller must not modify it.
	Set(key BlockKey, b []byte)
	// Invalidate removes every block of the named blob.
	Invalidate(name string)
	// Stats returns hit and miss counters.
	Stats() (hits, misses int64)
}
