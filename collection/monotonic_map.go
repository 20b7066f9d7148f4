package collection

import (
	"errors"
	"fmt"
	"iter"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/memory"
)

const monotonicChunkShift = 8

// MonotonicDataMap stores (key, value) pairs in key order for keys written in
// non-decreasing order. A chunk table maps key>>8 to the first pair of that
// chunk; lookups binary search within one chunk. Writing the last key again
// overwrites its value in place.
type MonotonicDataMap[V any] struct {
	offsets *FixedSizeDataList[int64]
	pairs   *FixedSizeDataList[datatype.Pair[int64, V]]
	lastKey int64
	closed  bool
}

// NewMonotonicDataMap creates the map's chunk table and pair regions from the
// configured memory factory, in that order.
func NewMonotonicDataMap[V any](dt datatype.FixedSizeDataType[V], optFns ...Option) (*MonotonicDataMap[V], error) {
	o := resolveOptions(optFns)
	mems, err := newRegions(o.factory, 2)
	if err != nil {
		return nil, err
	}
	m, err := newMonotonicDataMap(dt, mems[0], mems[1])
	if err != nil {
		return nil, errors.Join(err, closeRegions(mems))
	}
	return m, nil
}

func newMonotonicDataMap[V any](dt datatype.FixedSizeDataType[V], offsetsMem, pairsMem memory.Memory) (*MonotonicDataMap[V], error) {
	offsets, err := NewFixedSizeDataList(datatype.Int64, offsetsMem)
	if err != nil {
		return nil, err
	}
	pairs, err := NewFixedSizeDataList[datatype.Pair[int64, V]](datatype.NewFixedPair(datatype.Int64, dt), pairsMem)
	if err != nil {
		return nil, err
	}
	m := &MonotonicDataMap[V]{offsets: offsets, pairs: pairs, lastKey: -1}
	if n := pairs.Size(); n > 0 {
		last, err := pairs.Get(n - 1)
		if err != nil {
			return nil, err
		}
		m.lastKey = last.Left
	}
	return m, nil
}

func (m *MonotonicDataMap[V]) Put(key int64, v V) error {
	if m.closed {
		return geostore.ErrClosed
	}
	if key < 0 {
		return geostore.NewArgumentError("key", key, "monotonic maps need non-negative keys")
	}
	switch {
	case key < m.lastKey:
		return fmt.Errorf("%w: key %d after %d", geostore.ErrNotMonotonic, key, m.lastKey)
	case key == m.lastKey:
		return m.pairs.Set(m.pairs.Size()-1, datatype.Pair[int64, V]{Left: key, Right: v})
	}
	chunk := key >> monotonicChunkShift
	for m.offsets.Size() <= chunk {
		if _, err := m.offsets.Add(m.pairs.Size()); err != nil {
			return err
		}
	}
	if _, err := m.pairs.Add(datatype.Pair[int64, V]{Left: key, Right: v}); err != nil {
		return err
	}
	m.lastKey = key
	return nil
}

// find returns the pair index of key, or -1.
func (m *MonotonicDataMap[V]) find(key int64) (int64, V, error) {
	var zero V
	chunk := key >> monotonicChunkShift
	if key < 0 || chunk >= m.offsets.Size() {
		return -1, zero, nil
	}
	lo, err := m.offsets.Get(chunk)
	if err != nil {
		return -1, zero, err
	}
	hi := m.pairs.Size()
	if chunk+1 < m.offsets.Size() {
		if hi, err = m.offsets.Get(chunk + 1); err != nil {
			return -1, zero, err
		}
	}
	for hi--; lo <= hi; {
		mid := int64(uint64(lo+hi) >> 1)
		p, err := m.pairs.Get(mid)
		if err != nil {
			return -1, zero, err
		}
		switch {
		case p.Left < key:
			lo = mid + 1
		case p.Left > key:
			hi = mid - 1
		default:
			return mid, p.Right, nil
		}
	}
	return -1, zero, nil
}

func (m *MonotonicDataMap[V]) Get(key int64) (V, bool, error) {
	if m.closed {
		var zero V
		return zero, false, geostore.ErrClosed
	}
	i, v, err := m.find(key)
	return v, i >= 0, err
}

func (m *MonotonicDataMap[V]) ContainsKey(key int64) (bool, error) {
	if m.closed {
		return false, geostore.ErrClosed
	}
	i, _, err := m.find(key)
	return i >= 0, err
}

func (m *MonotonicDataMap[V]) Size() int64   { return m.pairs.Size() }
func (m *MonotonicDataMap[V]) IsEmpty() bool { return m.pairs.Size() == 0 }

// All yields entries in ascending key order.
func (m *MonotonicDataMap[V]) All() iter.Seq2[MapEntry[V], error] {
	return func(yield func(MapEntry[V], error) bool) {
		if m.closed {
			yield(MapEntry[V]{}, geostore.ErrClosed)
			return
		}
		for p, err := range m.pairs.All() {
			if !yield(MapEntry[V]{Key: p.Left, Value: p.Right}, err) || err != nil {
				return
			}
		}
	}
}

func (m *MonotonicDataMap[V]) Keys() iter.Seq2[int64, error] { return keysOf(m.All()) }
func (m *MonotonicDataMap[V]) Values() iter.Seq2[V, error]   { return valuesOf(m.All()) }

// Sync persists both lists.
func (m *MonotonicDataMap[V]) Sync() error {
	return errors.Join(m.offsets.Sync(), m.pairs.Sync())
}

func (m *MonotonicDataMap[V]) Clear() error {
	if m.closed {
		return geostore.ErrClosed
	}
	m.lastKey = -1
	return errors.Join(m.offsets.Clear(), m.pairs.Clear())
}

func (m *MonotonicDataMap[V]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return errors.Join(m.offsets.Close(), m.pairs.Close())
}
