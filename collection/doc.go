// Package collection implements lists, append-only logs and long-keyed maps
// on top of memory regions.
//
// # Lists
//
//   - FixedSizeDataList: O(1) index access to fixed-size values
//   - AppendOnlyLog: variable-size values addressed by the position returned
//     from Add, iterated in write order
//   - IndexedDataList: variable-size values with index access
//
// Values never straddle a segment boundary. Fixed-size lists place
// SegmentSize/FixedSize values in each segment; the log moves to the next
// segment when an entry does not fit in the current one.
//
// # Maps
//
// DataMap associates int64 keys (OpenStreetMap identifiers) with values. The
// variant is chosen by the caller from the expected key distribution:
//
//	MapIndexed    dense array indexed by key, values in a log (any value size)
//	MapMonotonic  keys arrive in non-decreasing order, chunked binary search
//	MapSparse     blocks of keys are materialized on first write
//	MapHash       open addressing with linear probing, any key order
//
// Get reports absence with a boolean, so a stored zero is never confused with
// a missing key. Put overwrites; the last write wins.
//
// # Persistence
//
// Collections keep their counters in the header of their memory region and
// write them on Sync and Close. A collection opened over a mapped region that
// was closed cleanly resumes where it left off.
//
// # Concurrency
//
// Collections are single-writer. Concurrent reads are safe while no goroutine
// writes to the same instance.
package collection
