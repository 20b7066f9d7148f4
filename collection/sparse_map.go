package collection

import (
	"errors"
	"iter"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/internal/conv"
	"github.com/hupe1980/geostore/memory"
)

// SparseDataMap stores values in fixed-size blocks of consecutive keys. Only
// blocks that hold at least one key are materialized; each slot carries a
// presence byte so a stored zero is distinct from an absent key. Any int64 key
// is accepted.
//
// The block directory lives on the heap and is not persisted.
type SparseDataMap[V any] struct {
	slots     array[datatype.Null[V]]
	mem       memory.Memory
	shift     uint
	mask      int64
	directory map[int64]int64
	blocks    *roaring64.Bitmap
	size      int64
	closed    bool
}

// NewSparseDataMap creates the map's slot region from the configured memory
// factory.
func NewSparseDataMap[V any](dt datatype.FixedSizeDataType[V], optFns ...Option) (*SparseDataMap[V], error) {
	o := resolveOptions(optFns)
	bs := int64(o.blockSize)
	if !conv.IsPowerOfTwo(bs) {
		return nil, geostore.NewArgumentError("block size", o.blockSize, "must be a power of two")
	}
	mems, err := scratchRegions(o.factory, 1)
	if err != nil {
		return nil, err
	}
	mem := mems[0]
	slots, err := newArray[datatype.Null[V]](datatype.NewNullable(dt), mem)
	if err != nil {
		return nil, errors.Join(err, mem.Close())
	}
	return &SparseDataMap[V]{
		slots:     slots,
		mem:       mem,
		shift:     conv.Log2(bs),
		mask:      bs - 1,
		directory: make(map[int64]int64),
		blocks:    roaring64.New(),
	}, nil
}

// blockID orders negative blocks before non-negative ones.
func blockID(block int64) uint64 {
	return uint64(block) ^ (1 << 63)
}

func (m *SparseDataMap[V]) index(key int64) (int64, bool) {
	slot, ok := m.directory[key>>m.shift]
	if !ok {
		return 0, false
	}
	return slot<<m.shift | key&m.mask, true
}

func (m *SparseDataMap[V]) Put(key int64, v V) error {
	if m.closed {
		return geostore.ErrClosed
	}
	i, ok := m.index(key)
	if !ok {
		block := key >> m.shift
		slot := int64(len(m.directory))
		m.directory[block] = slot
		m.blocks.Add(blockID(block))
		i = slot<<m.shift | key&m.mask
	}
	prev, err := m.load(i)
	if err != nil {
		return err
	}
	if err := m.slots.set(i, datatype.Some(v)); err != nil {
		return err
	}
	if !prev.Valid {
		m.size++
	}
	return nil
}

func (m *SparseDataMap[V]) load(i int64) (datatype.Null[V], error) {
	if !m.slots.allocated(i) {
		return datatype.Null[V]{}, nil
	}
	return m.slots.get(i)
}

func (m *SparseDataMap[V]) Get(key int64) (V, bool, error) {
	var zero V
	if m.closed {
		return zero, false, geostore.ErrClosed
	}
	i, ok := m.index(key)
	if !ok {
		return zero, false, nil
	}
	n, err := m.load(i)
	if err != nil || !n.Valid {
		return zero, false, err
	}
	return n.Value, true, nil
}

func (m *SparseDataMap[V]) ContainsKey(key int64) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

func (m *SparseDataMap[V]) Size() int64   { return m.size }
func (m *SparseDataMap[V]) IsEmpty() bool { return m.size == 0 }

// All yields entries in ascending key order.
func (m *SparseDataMap[V]) All() iter.Seq2[MapEntry[V], error] {
	return func(yield func(MapEntry[V], error) bool) {
		if m.closed {
			yield(MapEntry[V]{}, geostore.ErrClosed)
			return
		}
		it := m.blocks.Iterator()
		for it.HasNext() {
			block := int64(it.Next() ^ (1 << 63))
			base := m.directory[block] << m.shift
			for j := int64(0); j <= m.mask; j++ {
				n, err := m.load(base + j)
				if err != nil {
					yield(MapEntry[V]{}, err)
					return
				}
				if !n.Valid {
					continue
				}
				if !yield(MapEntry[V]{Key: block<<m.shift + j, Value: n.Value}, nil) {
					return
				}
			}
		}
	}
}

func (m *SparseDataMap[V]) Keys() iter.Seq2[int64, error] { return keysOf(m.All()) }
func (m *SparseDataMap[V]) Values() iter.Seq2[V, error]   { return valuesOf(m.All()) }

// Blocks returns the number of materialized blocks.
func (m *SparseDataMap[V]) Blocks() int64 {
	return int64(len(m.directory))
}

func (m *SparseDataMap[V]) Clear() error {
	if m.closed {
		return geostore.ErrClosed
	}
	m.size = 0
	clear(m.directory)
	m.blocks.Clear()
	return m.mem.Clear()
}

func (m *SparseDataMap[V]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.directory = nil
	return m.mem.Close()
}
