// Package hash provides the hashing utilities used by geostore.
//
// # Key hashing
//
// Key64 spreads 64-bit map keys over the slots of an open-addressing table.
// OSM identifiers are dense and increasing, so the identity hash would cluster
// every insertion into one collision run; murmur3 breaks that up.
//
//	slot := hash.Key64(key) & (capacity - 1)
//
// # CRC32-Castagnoli (CRC32C)
//
// Archive blocks are checksummed with CRC32C, which uses hardware acceleration
// on x86 (SSE4.2) and ARM (CRC extension).
//
//	checksum := hash.CRC32C(block)
package hash
