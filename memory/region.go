package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/conv"
)

// backend supplies and releases the storage behind a region.
type backend interface {
	kind() string
	allocHeader(size int) ([]byte, error)
	allocSegment(index, size int) ([]byte, error)
	sync() error
	// clear releases every allocation and deletes persisted data.
	clear() error
	close() error
}

// region implements the addressing shared by all realizations.
type region struct {
	headerSize  int
	segmentSize int
	shift       uint
	mask        int64
	maxSegments int

	mu       sync.RWMutex
	header   []byte
	segments [][]byte
	closed   atomic.Bool

	b      backend
	logger *geostore.Logger
}

func newRegion(b backend, o options) (*region, error) {
	if !conv.IsPowerOfTwo(int64(o.segmentSize)) {
		return nil, geostore.NewArgumentError("segment size", o.segmentSize, "must be a power of two")
	}
	if o.headerSize < 0 {
		return nil, geostore.NewArgumentError("header size", o.headerSize, "must not be negative")
	}
	if o.maxSegments < 0 {
		return nil, geostore.NewArgumentError("max segments", o.maxSegments, "must not be negative")
	}
	return &region{
		headerSize:  o.headerSize,
		segmentSize: o.segmentSize,
		shift:       conv.Log2(int64(o.segmentSize)),
		mask:        int64(o.segmentSize) - 1,
		maxSegments: o.maxSegments,
		b:           b,
		logger:      o.logger.WithComponent("memory"),
	}, nil
}

func (r *region) HeaderSize() int    { return r.headerSize }
func (r *region) SegmentSize() int   { return r.segmentSize }
func (r *region) SegmentShift() uint { return r.shift }
func (r *region) SegmentMask() int64 { return r.mask }

func (r *region) Header() ([]byte, error) {
	if r.closed.Load() {
		return nil, geostore.ErrClosed
	}
	r.mu.RLock()
	h := r.header
	r.mu.RUnlock()
	if h != nil || r.headerSize == 0 {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.header != nil {
		return r.header, nil
	}
	h, err := r.b.allocHeader(r.headerSize)
	if err != nil {
		return nil, fmt.Errorf("%s memory: allocate header: %w", r.b.kind(), err)
	}
	r.header = h
	return h, nil
}

func (r *region) Segment(index int) ([]byte, error) {
	if r.closed.Load() {
		return nil, geostore.ErrClosed
	}
	if index < 0 {
		return nil, geostore.NewBoundsError("segment", int64(index), 1, int64(r.Segments()))
	}
	r.mu.RLock()
	if index < len(r.segments) {
		s := r.segments[index]
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.growLocked(index + 1); err != nil {
		return nil, err
	}
	return r.segments[index], nil
}

// growLocked allocates segments until n exist. r.mu must be held.
func (r *region) growLocked(n int) error {
	if r.maxSegments > 0 && n > r.maxSegments {
		return fmt.Errorf("%w: %d segments requested, limit is %d", geostore.ErrCapacityExceeded, n, r.maxSegments)
	}
	ctx := context.Background()
	for i := len(r.segments); i < n; i++ {
		s, err := r.b.allocSegment(i, r.segmentSize)
		r.logger.LogSegmentAllocated(ctx, r.b.kind(), i, r.segmentSize, err)
		if err != nil {
			return fmt.Errorf("%s memory: allocate segment %d: %w", r.b.kind(), i, err)
		}
		r.segments = append(r.segments, s)
	}
	return nil
}

func (r *region) Allocate(minCapacity int64) error {
	if r.closed.Load() {
		return geostore.ErrClosed
	}
	if minCapacity < 0 {
		return geostore.NewArgumentError("capacity", minCapacity, "must not be negative")
	}
	n64 := conv.CeilDiv(minCapacity, int64(r.segmentSize))
	n, err := conv.Int64ToInt(n64)
	if err != nil {
		return fmt.Errorf("%w: %w", geostore.ErrCapacityExceeded, err)
	}
	r.mu.RLock()
	have := len(r.segments)
	r.mu.RUnlock()
	if n <= have {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.growLocked(n)
}

func (r *region) ReadAt(p []byte, off int64) (int, error) {
	if r.closed.Load() {
		return 0, geostore.ErrClosed
	}
	size := r.Size()
	if off < 0 || off > size || int64(len(p)) > size-off {
		return 0, geostore.NewBoundsError("read", off, int64(len(p)), size)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for n < len(p) {
		pos := off + int64(n)
		seg := r.segments[pos>>r.shift]
		n += copy(p[n:], seg[pos&r.mask:])
	}
	return n, nil
}

func (r *region) WriteAt(p []byte, off int64) (int, error) {
	if r.closed.Load() {
		return 0, geostore.ErrClosed
	}
	if off < 0 || int64(len(p)) > math.MaxInt64-off {
		return 0, geostore.NewBoundsError("write", off, int64(len(p)), r.Size())
	}
	if err := r.Allocate(off + int64(len(p))); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for n < len(p) {
		pos := off + int64(n)
		seg := r.segments[pos>>r.shift]
		n += copy(seg[pos&r.mask:], p[n:])
	}
	return n, nil
}

func (r *region) Size() int64 {
	return int64(r.Segments()) << r.shift
}

func (r *region) Segments() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.segments)
}

func (r *region) Sync() error {
	if r.closed.Load() {
		return geostore.ErrClosed
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.b.sync()
}

func (r *region) Clear() error {
	if r.closed.Load() {
		return geostore.ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.header = nil
	r.segments = nil
	err := r.b.clear()
	r.logger.LogClose(context.Background(), r.b.kind()+" memory clear", err)
	return err
}

func (r *region) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.header = nil
	r.segments = nil
	err := r.b.close()
	r.logger.LogClose(context.Background(), r.b.kind()+" memory", err)
	return err
}

// restore maps segments that already exist in persistent storage.
func (r *region) restore(n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.growLocked(n)
}
