package collection

import (
	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/memory"
)

// array addresses fixed-size slots in a region. Slot i lives in segment
// i/perSegment, so no slot straddles a segment boundary.
type array[T any] struct {
	dt         datatype.FixedSizeDataType[T]
	mem        memory.Memory
	elemSize   int
	perSegment int64
}

func newArray[T any](dt datatype.FixedSizeDataType[T], mem memory.Memory) (array[T], error) {
	size := dt.FixedSize()
	if size <= 0 || size > mem.SegmentSize() {
		return array[T]{}, geostore.NewArgumentError("element size", size, "must be between 1 and the segment size")
	}
	return array[T]{
		dt:         dt,
		mem:        mem,
		elemSize:   size,
		perSegment: int64(mem.SegmentSize() / size),
	}, nil
}

// locate returns the segment and byte offset of slot i, allocating the
// segment when alloc is set. A nil segment means the slot is not allocated.
func (a array[T]) locate(i int64, alloc bool) ([]byte, int, error) {
	segIndex := int(i / a.perSegment)
	if !alloc && segIndex >= a.mem.Segments() {
		return nil, 0, nil
	}
	seg, err := a.mem.Segment(segIndex)
	if err != nil {
		return nil, 0, err
	}
	return seg, int(i%a.perSegment) * a.elemSize, nil
}

// allocated reports whether slot i is backed by an allocated segment.
func (a array[T]) allocated(i int64) bool {
	return i >= 0 && int(i/a.perSegment) < a.mem.Segments()
}

// capacity returns the number of slots in allocated segments.
func (a array[T]) capacity() int64 {
	return int64(a.mem.Segments()) * a.perSegment
}

func (a array[T]) get(i int64) (T, error) {
	seg, off, err := a.locate(i, false)
	if err != nil || seg == nil {
		var zero T
		if err == nil {
			err = geostore.NewBoundsError("get", i, 1, a.capacity())
		}
		return zero, err
	}
	return a.dt.Read(seg, off)
}

func (a array[T]) set(i int64, v T) error {
	seg, off, err := a.locate(i, true)
	if err != nil {
		return err
	}
	return a.dt.Write(seg, off, v)
}

// reserve allocates segments for n slots.
func (a array[T]) reserve(n int64) error {
	if n <= 0 {
		return nil
	}
	segments := (n + a.perSegment - 1) / a.perSegment
	return a.mem.Allocate(segments * int64(a.mem.SegmentSize()))
}
