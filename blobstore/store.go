package blobstore

import (
	"context"
	"io"

	"github.com/hupe1980/geostore"
)

// ErrNotFound is returned when a blob does not exist.
//
// Every implementation returns an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = geostore.ErrNotFound

// BlobStore stores immutable named blobs such as exported regions and serialized
// R-trees.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create returns a writer. The blob becomes visible when the writer is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names starting with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at off. It returns io.EOF when fewer bytes are available.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange streams length bytes starting at off. The range is truncated at the
	// end of the blob.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a blob under construction.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered bytes to the backing store where the backend supports it.
	Sync() error
}

// Aborter is implemented by writable blobs that can discard a partial write
// without publishing it.
type Aborter interface {
	Abort() error
}

// Abort discards w. Writers that cannot abort are closed, which may publish
// the bytes written so far.
func Abort(w WritableBlob) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}
	return w.Close()
}

// Mappable is implemented by blobs that expose their bytes without copying.
type Mappable interface {
	// Bytes returns the underlying byte slice. The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// ReadAll reads an entire blob.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// sectionReader adapts a context-aware ReaderAt to io.Reader over [off, limit).
type sectionReader struct {
	ctx context.Context
	r   interface {
		ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	}
	off   int64
	limit int64
}

func (s *sectionReader) Read(p []byte) (int, error) {
	if s.off >= s.limit {
		return 0, io.EOF
	}
	if remaining := s.limit - s.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := s.r.ReadAt(s.ctx, p, s.off)
	s.off += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// clampRange bounds [off, off+length) to a blob of the given size. A non-empty
// range that starts at or past the end returns io.EOF.
func clampRange(off, length, size int64) (int64, int64, error) {
	if off < 0 || length < 0 {
		return 0, 0, geostore.NewBoundsError("read range", off, length, size)
	}
	if length > 0 && off >= size {
		return 0, 0, io.EOF
	}
	off = min(off, size)
	return off, off + min(length, size-off), nil
}
