// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("planet/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	err = archive.Upload(ctx, store, "nodes.gsar", mem)
//
// # Features
//
//   - Range reads for R-tree stream search and partial fetches
//   - Multipart uploads for large regions
//   - CRC32C integrity checks on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
