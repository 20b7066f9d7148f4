package hash

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// Key64 hashes a 64-bit key with murmur3 (x64, 128-bit variant, low half).
// The key is encoded little-endian so the result is stable across platforms.
func Key64(key int64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	h1, _ := murmur3.Sum128(b[:])
	return h1
}
