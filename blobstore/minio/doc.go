// Package minio stores blobs in MinIO or any other S3-compatible server
// reachable through the MinIO client (Ceph, Garage, SeaweedFS).
//
// Keys are the blob names below an optional root prefix. Create streams the
// written bytes through a pipe into PutObject, so exports of any size never
// have to be buffered in full. Reads use ranged GetObject requests, which is
// what lets a stream search over a stored R-tree fetch only the nodes it
// visits.
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "tiles",
//	    Prefix:    "planet/",
//	})
//	if err != nil {
//	    return err
//	}
//	err = archive.Upload(ctx, store, "ways.gsar", mem)
//
// NewStore wraps a client configured elsewhere.
package minio
