package collection

import (
	"errors"
	"fmt"
	"iter"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/memory"
)

// FixedSizeDataList stores fixed-size values with O(1) index access.
// The list owns its memory region and closes it on Close.
type FixedSizeDataList[T any] struct {
	arr    array[T]
	mem    memory.Memory
	size   int64
	closed bool
}

// NewFixedSizeDataList creates a list over mem. A size persisted in the
// region header by a previous Sync or Close is restored.
func NewFixedSizeDataList[T any](dt datatype.FixedSizeDataType[T], mem memory.Memory) (*FixedSizeDataList[T], error) {
	arr, err := newArray(dt, mem)
	if err != nil {
		return nil, err
	}
	h, err := loadHeader(mem, 1)
	if err != nil {
		return nil, err
	}
	if h[0] < 0 {
		return nil, fmt.Errorf("%w: list size %d", geostore.ErrCorrupted, h[0])
	}
	return &FixedSizeDataList[T]{arr: arr, mem: mem, size: h[0]}, nil
}

// Add appends v and returns its index.
func (l *FixedSizeDataList[T]) Add(v T) (int64, error) {
	if l.closed {
		return 0, geostore.ErrClosed
	}
	i := l.size
	if err := l.arr.set(i, v); err != nil {
		return 0, err
	}
	l.size++
	return i, nil
}

// Set replaces the value at index i, which must be in [0, Size()).
func (l *FixedSizeDataList[T]) Set(i int64, v T) error {
	if l.closed {
		return geostore.ErrClosed
	}
	if i < 0 || i >= l.size {
		return geostore.NewBoundsError("set", i, 1, l.size)
	}
	return l.arr.set(i, v)
}

// Get returns the value at index i, which must be in [0, Size()).
func (l *FixedSizeDataList[T]) Get(i int64) (T, error) {
	if l.closed {
		var zero T
		return zero, geostore.ErrClosed
	}
	if i < 0 || i >= l.size {
		var zero T
		return zero, geostore.NewBoundsError("get", i, 1, l.size)
	}
	return l.arr.get(i)
}

// Size returns the number of values.
func (l *FixedSizeDataList[T]) Size() int64 {
	return l.size
}

// All yields the values in index order.
func (l *FixedSizeDataList[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i := int64(0); i < l.size; i++ {
			v, err := l.Get(i)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Clear removes every value and releases the region's segments.
func (l *FixedSizeDataList[T]) Clear() error {
	if l.closed {
		return geostore.ErrClosed
	}
	l.size = 0
	return l.mem.Clear()
}

// Sync persists the size and flushes the region.
func (l *FixedSizeDataList[T]) Sync() error {
	if l.closed {
		return geostore.ErrClosed
	}
	if err := storeHeader(l.mem, l.size); err != nil {
		return err
	}
	return l.mem.Sync()
}

// Close persists the size and closes the region. It is idempotent.
func (l *FixedSizeDataList[T]) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Join(storeHeader(l.mem, l.size), l.mem.Close())
}
