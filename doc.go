// Package geostore provides the storage core of a geospatial ingestion platform:
// segment-addressed memory regions that can live on the heap, off the heap or in
// memory-mapped files, binary codecs that write typed values into those regions,
// collections and long-keyed maps built on top of them, and a packed Hilbert R-tree
// for bounding-box search.
//
// # Packages
//
//   - memory: heap, off-heap, mapped-file and mapped-directory regions
//   - datatype: fixed and variable-size codecs (little-endian)
//   - collection: fixed-size lists, append-only logs and long-keyed maps
//   - rtree: static packed Hilbert R-tree with in-memory and streaming search
//   - archive: compressed export and import of regions and indexes
//   - blobstore: local, in-memory, S3 and MinIO blob storage
//
// # Concurrency
//
// Every structure is single-writer. Reads are safe from multiple goroutines as long
// as no goroutine writes to the same instance. A built R-tree is immutable and may be
// shared freely.
//
// # Errors
//
// The root package defines the error taxonomy shared by all packages. Use errors.Is
// with ErrOutOfBounds, ErrInvalidArgument, ErrClosed, ErrCapacityExceeded,
// ErrNotMonotonic and ErrCorrupted. I/O failures are wrapped and keep their cause.
package geostore
