package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/cache"
)

// DefaultBlockSize is the caching granularity. It holds 102 R-tree nodes.
const DefaultBlockSize = 4096

// CachingStore wraps a BlobStore and caches reads in fixed-size blocks.
// Writes and deletes pass through and invalidate the cached blocks of the blob.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a new CachingStore. blockSize defaults to
// DefaultBlockSize if <= 0.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingWriter{WritableBlob: w, cache: s.cache, name: name}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type invalidatingWriter struct {
	WritableBlob
	cache cache.BlockCache
	name  string
}

func (w *invalidatingWriter) Close() error {
	err := w.WritableBlob.Close()
	w.cache.Invalidate(w.name)
	return err
}

func (w *invalidatingWriter) Abort() error {
	err := Abort(w.WritableBlob)
	w.cache.Invalidate(w.name)
	return err
}

// CachingBlob serves reads from the block cache and fetches missing runs of
// blocks from the wrapped blob.
type CachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off < 0 {
		return 0, geostore.NewBoundsError("read blob", off, int64(len(p)), size)
	}
	if off >= size {
		return 0, io.EOF
	}
	want := p
	if rest := size - off; int64(len(want)) > rest {
		want = want[:rest]
	}

	first := off / b.blockSize
	last := (off + int64(len(want)) - 1) / b.blockSize
	blocks, err := b.fetch(ctx, first, last)
	if err != nil {
		return 0, err
	}

	total := 0
	for i, data := range blocks {
		start := (first + int64(i)) * b.blockSize
		lo := max(start, off)
		hi := min(start+int64(len(data)), off+int64(len(want)))
		if hi <= lo {
			break
		}
		total += copy(want[lo-off:hi-off], data[lo-start:])
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fetch returns blocks [first, last], loading contiguous runs of missing blocks
// with one backend request each.
func (b *CachingBlob) fetch(ctx context.Context, first, last int64) ([][]byte, error) {
	blocks := make([][]byte, last-first+1)

	type run struct{ start, count int64 }
	var missing []run
	for blk := first; blk <= last; blk++ {
		if data, ok := b.cache.Get(cache.BlockKey{Name: b.name, Block: blk}); ok {
			blocks[blk-first] = data
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
			continue
		}
		missing = append(missing, run{start: blk, count: 1})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for _, r := range missing {
		g.Go(func() error {
			byteStart := r.start * b.blockSize
			byteLen := min(r.count*b.blockSize, b.Size()-byteStart)
			buf := make([]byte, byteLen)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]
			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+b.blockSize, int64(len(buf)))
				// Copy so a cached block does not pin the whole run.
				block := make([]byte, hi-lo)
				copy(block, buf[lo:hi])
				b.cache.Set(cache.BlockKey{Name: b.name, Block: r.start + i}, block)
				blocks[r.start+i-first] = block
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	start, end, err := clampRange(off, length, b.Size())
	if err != nil {
		return nil, err
	}
	return io.NopCloser(&sectionReader{ctx: ctx, r: b, off: start, limit: end}), nil
}
