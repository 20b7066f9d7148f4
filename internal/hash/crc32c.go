package hash

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the Castagnoli checksum of data. Archive blocks and S3
// uploads both use it.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}
