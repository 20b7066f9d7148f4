package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const contentType = "application/octet-stream"

// Config describes a MinIO or S3-compatible endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
	Bucket    string
	Prefix    string
}

// New connects to the endpoint in cfg with static credentials.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return NewStore(client, cfg.Bucket, cfg.Prefix), nil
}

// Store keeps blobs as objects under an optional key prefix.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore wraps an existing client. Object keys are prefix + "/" + name; an
// empty prefix stores names as-is.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *Store) objectKey(name string) string { return s.prefix + name }

// wrap maps a missing object to blobstore.ErrNotFound.
func wrap(op, name string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %q: %w", op, name, blobstore.ErrNotFound)
	}
	return fmt.Errorf("%s %q: %w", op, name, err)
}

// Open stats the object and returns a blob serving ranged GETs.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.objectKey(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, wrap("open blob", name, err)
	}
	return &object{store: s, key: key, size: info.Size}, nil
}

// Put uploads data in a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put blob %q: %w", name, err)
	}
	return nil
}

// Create starts a streaming upload of unknown length. The object becomes
// visible when Close returns nil; Abort leaves nothing behind.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	u := &upload{pw: pw, cancel: cancel, result: make(chan error, 1)}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(name), pr, -1,
			minio.PutObjectOptions{ContentType: contentType})
		pr.CloseWithError(err)
		u.result <- err
	}()
	return u, nil
}

// Delete removes the object. Deleting a missing blob succeeds.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(name), minio.RemoveObjectOptions{}); err != nil {
		if err = wrap("delete blob", name, err); !errors.Is(err, blobstore.ErrNotFound) {
			return err
		}
	}
	return nil
}

// List returns the sorted names under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.objectKey(prefix),
		Recursive: true,
	})
	var names []string
	for info := range objects {
		if info.Err != nil {
			return nil, fmt.Errorf("list blobs %q: %w", prefix, info.Err)
		}
		if name := strings.TrimPrefix(info.Key, s.prefix); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

type object struct {
	store *Store
	key   string
	size  int64
}

func (o *object) Size() int64  { return o.size }
func (o *object) Close() error { return nil }

// fetch issues a GET for [off, end).
func (o *object) fetch(ctx context.Context, off, end int64) (*minio.Object, error) {
	var opts minio.GetObjectOptions
	if err := opts.SetRange(off, end-1); err != nil {
		return nil, err
	}
	return o.store.client.GetObject(ctx, o.store.bucket, o.key, opts)
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	switch {
	case len(p) == 0:
		return 0, nil
	case off < 0:
		return 0, geostore.NewBoundsError("read blob", off, int64(len(p)), o.size)
	case off >= o.size:
		return 0, io.EOF
	}
	want := min(int64(len(p)), o.size-off)
	body, err := o.fetch(ctx, off, off+want)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	n, err := io.ReadFull(body, p[:want])
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read %s: range returned %d of %d bytes: %w", o.key, n, want, geostore.ErrCorrupted)
	}
	if err != nil {
		return n, err
	}
	if int64(len(p)) > want {
		return n, io.EOF
	}
	return n, nil
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	switch {
	case off < 0 || length < 0:
		return nil, geostore.NewBoundsError("read range", off, length, o.size)
	case length == 0:
		return io.NopCloser(bytes.NewReader(nil)), nil
	case off >= o.size:
		return nil, io.EOF
	}
	return o.fetch(ctx, off, off+min(length, o.size-off))
}

// upload feeds a background PutObject through a pipe.
type upload struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	result chan error

	once sync.Once
	err  error
}

func (u *upload) Write(p []byte) (int, error) {
	n, err := u.pw.Write(p)
	if errors.Is(err, io.ErrClosedPipe) {
		return n, geostore.ErrClosed
	}
	return n, err
}

// Sync is a no-op; bytes reach the server as they are written.
func (u *upload) Sync() error { return nil }

func (u *upload) Close() error {
	u.once.Do(func() {
		u.pw.Close()
		u.err = <-u.result
		u.cancel()
	})
	return u.err
}

// Abort cancels the request so the object is never committed.
func (u *upload) Abort() error {
	u.once.Do(func() {
		u.cancel()
		u.pw.CloseWithError(context.Canceled)
		<-u.result
	})
	return nil
}
