package collection

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/memory"
)

const frameSize = 4

// Entry is a value read back from an AppendOnlyLog together with its position.
type Entry[T any] struct {
	Position int64
	Value    T
}

// AppendOnlyLog stores variable-size values back to back. Each entry is framed
// as [int32 length][payload] and never straddles a segment; a zero length or a
// segment tail shorter than a frame means the next entry starts at the next
// segment.
type AppendOnlyLog[T any] struct {
	dt     datatype.DataType[T]
	mem    memory.Memory
	size   int64
	offset int64
	closed bool
}

// NewAppendOnlyLog creates a log over mem. The header must hold two int64
// counters (size and write offset); a log reopened over persisted memory
// resumes appending after the last entry.
func NewAppendOnlyLog[T any](dt datatype.DataType[T], mem memory.Memory) (*AppendOnlyLog[T], error) {
	h, err := loadHeader(mem, 2)
	if err != nil {
		return nil, err
	}
	size, offset := h[0], h[1]
	if size < 0 || offset < 0 || offset > mem.Size() {
		return nil, fmt.Errorf("%w: log header size %d offset %d", geostore.ErrCorrupted, size, offset)
	}
	return &AppendOnlyLog[T]{dt: dt, mem: mem, size: size, offset: offset}, nil
}

// Add appends v and returns its position.
func (l *AppendOnlyLog[T]) Add(v T) (int64, error) {
	if l.closed {
		return 0, geostore.ErrClosed
	}
	n := l.dt.Size(v)
	if n <= 0 {
		return 0, geostore.NewArgumentError("value size", n, "log entries must encode to at least one byte")
	}
	segSize := int64(l.mem.SegmentSize())
	entry := int64(frameSize) + int64(n)
	if entry > segSize || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: entry of %d bytes exceeds segment size %d", geostore.ErrCapacityExceeded, entry, segSize)
	}

	pos := l.offset
	if within := pos & l.mem.SegmentMask(); segSize-within < entry {
		if segSize-within >= frameSize {
			// Mark the tail so readers skip it even if the segment was reused.
			if err := l.writeFrame(pos, 0); err != nil {
				return 0, err
			}
		}
		pos += segSize - within
	}

	seg, err := l.mem.Segment(int(pos >> l.mem.SegmentShift()))
	if err != nil {
		return 0, err
	}
	off := int(pos & l.mem.SegmentMask())
	binary.LittleEndian.PutUint32(seg[off:], uint32(n))
	if err := l.dt.Write(seg, off+frameSize, v); err != nil {
		return 0, err
	}
	l.offset = pos + entry
	l.size++
	return pos, nil
}

func (l *AppendOnlyLog[T]) writeFrame(pos int64, n uint32) error {
	seg, err := l.mem.Segment(int(pos >> l.mem.SegmentShift()))
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(seg[pos&l.mem.SegmentMask():], n)
	return nil
}

// Read returns the value stored at position, which must be a position
// previously returned by Add.
func (l *AppendOnlyLog[T]) Read(position int64) (T, error) {
	var zero T
	if l.closed {
		return zero, geostore.ErrClosed
	}
	if position < 0 || position >= l.offset {
		return zero, geostore.NewBoundsError("read", position, frameSize, l.offset)
	}
	seg, off, n, err := l.frame(position)
	if err != nil {
		return zero, err
	}
	if n == 0 {
		return zero, fmt.Errorf("%w: no entry at position %d", geostore.ErrCorrupted, position)
	}
	return l.dt.Read(seg[:off+frameSize+n], off+frameSize)
}

// frame returns the segment, in-segment offset and payload length of the
// entry at pos. A zero length means skip to the next segment.
func (l *AppendOnlyLog[T]) frame(pos int64) ([]byte, int, int, error) {
	seg, err := l.mem.Segment(int(pos >> l.mem.SegmentShift()))
	if err != nil {
		return nil, 0, 0, err
	}
	off := int(pos & l.mem.SegmentMask())
	if len(seg)-off < frameSize {
		return seg, off, 0, nil
	}
	n := int32(binary.LittleEndian.Uint32(seg[off:]))
	if n < 0 || int(n) > len(seg)-off-frameSize {
		return nil, 0, 0, fmt.Errorf("%w: entry length %d at position %d", geostore.ErrCorrupted, n, pos)
	}
	return seg, off, int(n), nil
}

// Size returns the number of entries.
func (l *AppendOnlyLog[T]) Size() int64 {
	return l.size
}

// Offset returns the position the next entry will be written at, before
// any skip to the next segment.
func (l *AppendOnlyLog[T]) Offset() int64 {
	return l.offset
}

// All yields the entries in append order. Each call starts a new scan.
func (l *AppendOnlyLog[T]) All() iter.Seq2[Entry[T], error] {
	return func(yield func(Entry[T], error) bool) {
		if l.closed {
			yield(Entry[T]{}, geostore.ErrClosed)
			return
		}
		segSize := int64(l.mem.SegmentSize())
		mask := l.mem.SegmentMask()
		for pos := int64(0); pos < l.offset; {
			seg, off, n, err := l.frame(pos)
			if err != nil {
				yield(Entry[T]{}, err)
				return
			}
			if n == 0 {
				pos += segSize - pos&mask
				continue
			}
			v, err := l.dt.Read(seg[:off+frameSize+n], off+frameSize)
			if !yield(Entry[T]{Position: pos, Value: v}, err) || err != nil {
				return
			}
			pos += int64(frameSize + n)
		}
	}
}

// Sync persists the counters and flushes the region.
func (l *AppendOnlyLog[T]) Sync() error {
	if l.closed {
		return geostore.ErrClosed
	}
	if err := storeHeader(l.mem, l.size, l.offset); err != nil {
		return err
	}
	return l.mem.Sync()
}

// Clear removes every entry and releases the region's segments.
func (l *AppendOnlyLog[T]) Clear() error {
	if l.closed {
		return geostore.ErrClosed
	}
	l.size, l.offset = 0, 0
	return l.mem.Clear()
}

// Close persists the counters and closes the region. It is idempotent.
func (l *AppendOnlyLog[T]) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Join(storeHeader(l.mem, l.size, l.offset), l.mem.Close())
}
