package collection

import (
	"errors"
	"iter"

	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/memory"
)

// IndexedDataList stores variable-size values with index access. Values go
// to an append-only log; a fixed-size list maps each index to its position.
type IndexedDataList[T any] struct {
	index  *FixedSizeDataList[int64]
	values *AppendOnlyLog[T]
}

// NewIndexedDataList creates a list that keeps positions in index and
// payloads in values. The list owns both regions; if construction fails
// both are closed.
func NewIndexedDataList[T any](dt datatype.DataType[T], index, values memory.Memory) (*IndexedDataList[T], error) {
	idx, err := NewFixedSizeDataList(datatype.Int64, index)
	if err != nil {
		return nil, errors.Join(err, closeRegions([]memory.Memory{index, values}))
	}
	log, err := NewAppendOnlyLog(dt, values)
	if err != nil {
		return nil, errors.Join(err, closeRegions([]memory.Memory{index, values}))
	}
	return &IndexedDataList[T]{index: idx, values: log}, nil
}

// Add appends v and returns its index.
func (l *IndexedDataList[T]) Add(v T) (int64, error) {
	pos, err := l.values.Add(v)
	if err != nil {
		return 0, err
	}
	return l.index.Add(pos)
}

// Set replaces the value at index i. The previous payload stays in the log.
func (l *IndexedDataList[T]) Set(i int64, v T) error {
	if _, err := l.index.Get(i); err != nil {
		return err
	}
	pos, err := l.values.Add(v)
	if err != nil {
		return err
	}
	return l.index.Set(i, pos)
}

// Get returns the value at index i.
func (l *IndexedDataList[T]) Get(i int64) (T, error) {
	pos, err := l.index.Get(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return l.values.Read(pos)
}

// Size returns the number of values.
func (l *IndexedDataList[T]) Size() int64 {
	return l.index.Size()
}

// All yields the values in index order.
func (l *IndexedDataList[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for pos, err := range l.index.All() {
			var v T
			if err == nil {
				v, err = l.values.Read(pos)
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Sync persists both structures.
func (l *IndexedDataList[T]) Sync() error {
	return errors.Join(l.index.Sync(), l.values.Sync())
}

// Clear removes every value.
func (l *IndexedDataList[T]) Clear() error {
	return errors.Join(l.index.Clear(), l.values.Clear())
}

// Close closes both structures and their regions.
func (l *IndexedDataList[T]) Close() error {
	return errors.Join(l.index.Close(), l.values.Close())
}
