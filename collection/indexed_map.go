package collection

import (
	"errors"
	"iter"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/memory"
)

// IndexedDataMap stores values in an append-only log and their positions in a
// dense array indexed by key. A slot holds position+1 so a zero-filled slot
// reads as absent. Keys must be non-negative; the array grows to the largest
// key written.
type IndexedDataMap[V any] struct {
	index    array[int64]
	indexMem memory.Memory
	values   *AppendOnlyLog[V]
	size     int64
	closed   bool
}

// NewIndexedDataMap creates the map's two regions from the configured
// memory factory, the index region first. Regions holding a persisted map
// are reopened as they were.
func NewIndexedDataMap[V any](dt datatype.DataType[V], optFns ...Option) (*IndexedDataMap[V], error) {
	o := resolveOptions(optFns)
	mems, err := newRegions(o.factory, 2)
	if err != nil {
		return nil, err
	}
	m, err := newIndexedDataMap(dt, mems[0], mems[1])
	if err != nil {
		return nil, errors.Join(err, closeRegions(mems))
	}
	return m, nil
}

func newIndexedDataMap[V any](dt datatype.DataType[V], indexMem, valuesMem memory.Memory) (*IndexedDataMap[V], error) {
	index, err := newArray(datatype.Int64, indexMem)
	if err != nil {
		return nil, err
	}
	h, err := loadHeader(indexMem, 1)
	if err != nil {
		return nil, err
	}
	values, err := NewAppendOnlyLog(dt, valuesMem)
	if err != nil {
		return nil, err
	}
	return &IndexedDataMap[V]{index: index, indexMem: indexMem, values: values, size: h[0]}, nil
}

func (m *IndexedDataMap[V]) Put(key int64, v V) error {
	if m.closed {
		return geostore.ErrClosed
	}
	if key < 0 {
		return geostore.NewArgumentError("key", key, "indexed maps need non-negative keys")
	}
	prev, err := m.slot(key)
	if err != nil {
		return err
	}
	pos, err := m.values.Add(v)
	if err != nil {
		return err
	}
	if err := m.index.set(key, pos+1); err != nil {
		return err
	}
	if prev == 0 {
		m.size++
	}
	return nil
}

// slot returns the stored position+1 for key, or 0 when absent.
func (m *IndexedDataMap[V]) slot(key int64) (int64, error) {
	if key < 0 || !m.index.allocated(key) {
		return 0, nil
	}
	return m.index.get(key)
}

func (m *IndexedDataMap[V]) Get(key int64) (V, bool, error) {
	var zero V
	if m.closed {
		return zero, false, geostore.ErrClosed
	}
	p, err := m.slot(key)
	if err != nil || p == 0 {
		return zero, false, err
	}
	v, err := m.values.Read(p - 1)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (m *IndexedDataMap[V]) ContainsKey(key int64) (bool, error) {
	if m.closed {
		return false, geostore.ErrClosed
	}
	p, err := m.slot(key)
	return p != 0, err
}

func (m *IndexedDataMap[V]) Size() int64   { return m.size }
func (m *IndexedDataMap[V]) IsEmpty() bool { return m.size == 0 }

// All yields entries in ascending key order.
func (m *IndexedDataMap[V]) All() iter.Seq2[MapEntry[V], error] {
	return func(yield func(MapEntry[V], error) bool) {
		if m.closed {
			yield(MapEntry[V]{}, geostore.ErrClosed)
			return
		}
		limit := m.index.capacity()
		for key, seen := int64(0), int64(0); key < limit && seen < m.size; key++ {
			p, err := m.index.get(key)
			if err != nil {
				yield(MapEntry[V]{}, err)
				return
			}
			if p == 0 {
				continue
			}
			seen++
			v, err := m.values.Read(p - 1)
			if !yield(MapEntry[V]{Key: key, Value: v}, err) || err != nil {
				return
			}
		}
	}
}

func (m *IndexedDataMap[V]) Keys() iter.Seq2[int64, error] { return keysOf(m.All()) }
func (m *IndexedDataMap[V]) Values() iter.Seq2[V, error]   { return valuesOf(m.All()) }

// Sync persists the map's counters and flushes both regions.
func (m *IndexedDataMap[V]) Sync() error {
	if m.closed {
		return geostore.ErrClosed
	}
	if err := storeHeader(m.indexMem, m.size); err != nil {
		return err
	}
	return errors.Join(m.indexMem.Sync(), m.values.Sync())
}

func (m *IndexedDataMap[V]) Clear() error {
	if m.closed {
		return geostore.ErrClosed
	}
	m.size = 0
	return errors.Join(m.indexMem.Clear(), m.values.Clear())
}

func (m *IndexedDataMap[V]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return errors.Join(storeHeader(m.indexMem, m.size), m.indexMem.Close(), m.values.Close())
}
