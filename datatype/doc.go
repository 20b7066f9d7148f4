// Package datatype defines binary codecs that write typed values into byte
// buffers and read them back.
//
// A codec is stateless. It reports the encoded size of a value, the encoded
// size of the value stored at an offset (without decoding it), and writes or
// reads a value at an offset. Collections in package collection use codecs to
// place values inside memory segments.
//
// # Byte order
//
// Every codec is little-endian. Mapped files outlive the process that wrote
// them, so the order is part of the persisted format and never changes.
//
// # Layouts
//
// Fixed-size codecs occupy FixedSize() bytes regardless of the value:
//
//	Bool, Byte           1 byte
//	Int16                2 bytes
//	Int32, Float32       4 bytes
//	Int64, Uint64,
//	Float64, LonLat      8 bytes
//	Coordinate          16 bytes (lon, lat float64)
//	Envelope            32 bytes (minX, minY, maxX, maxY float64)
//	FixedPair           left then right
//	Nullable            1 presence byte then a zeroed or encoded payload
//
// Variable-size codecs carry their own length so a reader can skip them:
//
//	String, Bytes, Slice  [int32 byte length][payload]
//	List                  [int32 count][element]...
//	Map                   [int32 byte length][key value]...
//	Pair                  left then right, no prefix
//	Optional              1 presence byte, then the value when present
//
// Empty strings, slices, lists and maps encode as a single zero int32.
//
// # Errors
//
// Reads and writes outside the buffer return *geostore.BoundsError. Negative
// lengths or counts found in a buffer return geostore.ErrCorrupted.
package datatype
