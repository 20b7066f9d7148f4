// Package archive exports memory regions and serialized R-trees to streams and
// blob stores, and imports them back.
//
// # Region archives
//
// An archive starts with a 24-byte file header followed by one block for the
// region header and one block per segment:
//
//	file header  "GSAR" | version u16 | codec u8 | 0 | segment size u32 |
//	             header size u32 | segments u32 | crc32c(previous 20 bytes) u32
//	block        uncompressed u32 | compressed u32 (0 = raw) | crc32c u32 | data
//
// All integers are little-endian. Blocks are compressed in parallel, bounded by
// the resource controller's background slots, and written in order. Reads and
// writes are charged against the controller's IO limit.
//
// # Trees
//
// Trees are stored uncompressed so SearchBlob can walk them with forward-only
// ranged reads.
package archive
