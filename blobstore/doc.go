// Package blobstore stores exported regions and serialized R-trees as named,
// immutable blobs.
//
// BlobStore is the interface for reading and writing blobs. Implementations
// must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local file system, mmap reads, atomic renames on write
//   - MemoryStore: in-process map, for tests and short-lived exports
//   - CachingStore: LRU block cache in front of another store
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Range reads
//
// Blob.ReadRange streams a byte range. Stream search over a serialized R-tree
// only reads forward, so a single ranged request covers a whole query:
//
//	blob, _ := store.Open(ctx, "ways.rtree")
//	hits, err := archive.SearchBlob(ctx, blob, numItems, nodeSize, query)
package blobstore
