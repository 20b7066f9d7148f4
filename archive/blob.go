package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/blobstore"
	"github.com/hupe1980/geostore/memory"
	"github.com/hupe1980/geostore/rtree"
)

const bufferSize = 1 << 20

// Upload exports m into the named blob. The blob is published only if the
// export succeeds.
func Upload(ctx context.Context, store blobstore.BlobStore, name string, m memory.Memory, optFns ...Option) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(w, bufferSize)
	_, err = Export(ctx, m, bw, append(optFns, withName(name))...)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		return errors.Join(err, blobstore.Abort(w))
	}
	return w.Close()
}

// Download imports the named blob into m.
func Download(ctx context.Context, store blobstore.BlobStore, name string, m memory.Memory, optFns ...Option) error {
	b, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer b.Close()

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return err
	}
	defer rc.Close()
	return Import(ctx, bufio.NewReaderSize(rc, bufferSize), m, append(optFns, withName(name))...)
}

// UploadTree stores the serialized tree in the named blob.
func UploadTree(ctx context.Context, store blobstore.BlobStore, name string, t *rtree.PackedRTree) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := t.WriteTo(w); err != nil {
		return errors.Join(fmt.Errorf("write tree %q: %w", name, err), blobstore.Abort(w))
	}
	return w.Close()
}

// SearchBlob runs a stream search over a tree stored at the start of b. Only
// the byte ranges holding visited nodes are fetched. Hit.Index is the leaf
// position in Hilbert order.
func SearchBlob(ctx context.Context, b blobstore.Blob, numItems int64, nodeSize int, q rtree.Box, optFns ...Option) ([]rtree.Hit, error) {
	o := resolveOptions(optFns)
	size, err := rtree.Size(numItems, nodeSize)
	if err != nil {
		return nil, err
	}
	if b.Size() < size {
		return nil, fmt.Errorf("%w: blob holds %d bytes, tree needs %d", geostore.ErrCorrupted, b.Size(), size)
	}
	r := &blobReader{ctx: ctx, blob: b, limit: size, buf: make([]byte, 0, o.readAhead)}
	hits, _, err := rtree.SearchStream(r, numItems, nodeSize, q)
	return hits, err
}

// blobReader reads [0, limit) of a blob with read-ahead. Seeking forward past
// the buffered window costs nothing until the next read.
type blobReader struct {
	ctx      context.Context
	blob     blobstore.Blob
	pos      int64
	limit    int64
	buf      []byte
	bufStart int64
}

func (r *blobReader) Read(p []byte) (int, error) {
	if r.pos >= r.limit {
		return 0, io.EOF
	}
	if r.pos < r.bufStart || r.pos >= r.bufStart+int64(len(r.buf)) {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.buf[r.pos-r.bufStart:])
	r.pos += int64(n)
	return n, nil
}

func (r *blobReader) fill() error {
	want := min(int64(cap(r.buf)), r.limit-r.pos)
	buf := r.buf[:want]
	n, err := r.blob.ReadAt(r.ctx, buf, r.pos)
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return err
	}
	if n == 0 {
		return io.ErrUnexpectedEOF
	}
	r.buf, r.bufStart = buf[:n], r.pos
	return nil
}

func (r *blobReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.limit + offset
	default:
		return 0, geostore.NewArgumentError("whence", whence, "unknown")
	}
	if abs < 0 {
		return 0, geostore.NewBoundsError("seek", abs, 0, r.limit)
	}
	r.pos = abs
	return abs, nil
}
