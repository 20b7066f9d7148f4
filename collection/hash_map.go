package collection

import (
	"context"
	"errors"
	"iter"
	"math"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/internal/conv"
	"github.com/hupe1980/geostore/internal/hash"
	"github.com/hupe1980/geostore/memory"
)

// emptyKey is the stored form of an unused slot. Keys are stored XOR the sign
// bit, so math.MinInt64 is the one key that cannot be represented.
const emptyKey = 0

// HashDataMap is an open-addressing hash table with linear probing over two
// regions, one for keys and one for values. It doubles its capacity into
// fresh regions from the memory factory once the load factor would be
// exceeded. Deletion is not supported.
type HashDataMap[V any] struct {
	dt         datatype.FixedSizeDataType[V]
	factory    memory.Factory
	logger     *geostore.Logger
	loadFactor float64

	hashTable[V]
	size   int64
	closed bool
}

// hashTable is one generation of slots. A resize builds a new table and
// swaps it in only after every entry has been moved.
type hashTable[V any] struct {
	keysMem   memory.Memory
	valuesMem memory.Memory
	keys      array[int64]
	values    array[V]
	capacity  int64
	mask      int64
}

// NewHashDataMap creates a hash map. The initial capacity is rounded up to a
// power of two.
func NewHashDataMap[V any](dt datatype.FixedSizeDataType[V], optFns ...Option) (*HashDataMap[V], error) {
	o := resolveOptions(optFns)
	if o.loadFactor <= 0 || o.loadFactor >= 1 || math.IsNaN(o.loadFactor) {
		return nil, geostore.NewArgumentError("load factor", o.loadFactor, "must be in (0, 1)")
	}
	if o.initialCapacity <= 0 {
		return nil, geostore.NewArgumentError("initial capacity", o.initialCapacity, "must be positive")
	}
	m := &HashDataMap[V]{
		dt:         dt,
		factory:    o.factory,
		logger:     o.logger.WithComponent("hash_map"),
		loadFactor: o.loadFactor,
	}
	t, err := m.newTable(conv.NextPowerOfTwo(o.initialCapacity))
	if err != nil {
		return nil, err
	}
	m.hashTable = t
	return m, nil
}

// newTable allocates empty regions for capacity slots.
func (m *HashDataMap[V]) newTable(capacity int64) (hashTable[V], error) {
	mems, err := scratchRegions(m.factory, 2)
	if err != nil {
		return hashTable[V]{}, err
	}
	keys, err := newArray(datatype.Int64, mems[0])
	if err == nil {
		err = keys.reserve(capacity)
	}
	var values array[V]
	if err == nil {
		values, err = newArray(m.dt, mems[1])
	}
	if err == nil {
		err = values.reserve(capacity)
	}
	if err != nil {
		return hashTable[V]{}, errors.Join(err, closeRegions(mems))
	}
	return hashTable[V]{
		keysMem:   mems[0],
		valuesMem: mems[1],
		keys:      keys,
		values:    values,
		capacity:  capacity,
		mask:      capacity - 1,
	}, nil
}

func (t *hashTable[V]) regions() []memory.Memory {
	return []memory.Memory{t.keysMem, t.valuesMem}
}

// findSlot returns the slot holding key or the empty slot where it belongs.
func (t *hashTable[V]) findSlot(stored int64) (int64, bool, error) {
	i := int64(hash.Key64(stored^math.MinInt64)) & t.mask
	for {
		k, err := t.keys.get(i)
		if err != nil {
			return 0, false, err
		}
		if k == stored {
			return i, true, nil
		}
		if k == emptyKey {
			return i, false, nil
		}
		i = (i + 1) & t.mask
	}
}

// insert stores an entry whose key is known to be absent.
func (t *hashTable[V]) insert(stored int64, v V) error {
	i, _, err := t.findSlot(stored)
	if err != nil {
		return err
	}
	if err := t.values.set(i, v); err != nil {
		return err
	}
	return t.keys.set(i, stored)
}

func (m *HashDataMap[V]) Put(key int64, v V) error {
	if m.closed {
		return geostore.ErrClosed
	}
	if key == math.MinInt64 {
		return geostore.NewArgumentError("key", key, "math.MinInt64 is reserved by hash maps")
	}
	stored := key ^ math.MinInt64
	i, found, err := m.findSlot(stored)
	if err != nil {
		return err
	}
	if found {
		return m.values.set(i, v)
	}
	if float64(m.size+1) > float64(m.capacity)*m.loadFactor {
		if err := m.resize(m.capacity * 2); err != nil {
			return err
		}
		if i, _, err = m.findSlot(stored); err != nil {
			return err
		}
	}
	if err := m.values.set(i, v); err != nil {
		return err
	}
	if err := m.keys.set(i, stored); err != nil {
		return err
	}
	m.size++
	return nil
}

// resize rehashes every entry into a table of the given capacity. On failure
// the new regions are closed and the map keeps its current table.
func (m *HashDataMap[V]) resize(capacity int64) (err error) {
	ctx := context.Background()
	oldCapacity := m.capacity
	defer func() { m.logger.LogResize(ctx, oldCapacity, capacity, m.size, err) }()

	if capacity <= oldCapacity {
		return geostore.ErrCapacityExceeded
	}
	next, err := m.newTable(capacity)
	if err != nil {
		return err
	}
	if err := m.rehash(&next); err != nil {
		return errors.Join(err, closeRegions(next.regions()))
	}
	old := m.hashTable.regions()
	m.hashTable = next
	for _, mem := range old {
		if err := mem.Clear(); err != nil {
			return errors.Join(err, closeRegions(old))
		}
	}
	return closeRegions(old)
}

func (m *HashDataMap[V]) rehash(next *hashTable[V]) error {
	for i := int64(0); i < m.capacity; i++ {
		k, err := m.keys.get(i)
		if err != nil {
			return err
		}
		if k == emptyKey {
			continue
		}
		v, err := m.values.get(i)
		if err != nil {
			return err
		}
		if err := next.insert(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *HashDataMap[V]) Get(key int64) (V, bool, error) {
	var zero V
	if m.closed {
		return zero, false, geostore.ErrClosed
	}
	if key == math.MinInt64 {
		return zero, false, nil
	}
	i, found, err := m.findSlot(key ^ math.MinInt64)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := m.values.get(i)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (m *HashDataMap[V]) ContainsKey(key int64) (bool, error) {
	if m.closed {
		return false, geostore.ErrClosed
	}
	if key == math.MinInt64 {
		return false, nil
	}
	_, found, err := m.findSlot(key ^ math.MinInt64)
	return found, err
}

func (m *HashDataMap[V]) Size() int64   { return m.size }
func (m *HashDataMap[V]) IsEmpty() bool { return m.size == 0 }

// Capacity returns the number of slots.
func (m *HashDataMap[V]) Capacity() int64 { return m.capacity }

// All yields entries in slot order.
func (m *HashDataMap[V]) All() iter.Seq2[MapEntry[V], error] {
	return func(yield func(MapEntry[V], error) bool) {
		if m.closed {
			yield(MapEntry[V]{}, geostore.ErrClosed)
			return
		}
		for i := int64(0); i < m.capacity; i++ {
			k, err := m.keys.get(i)
			if err != nil {
				yield(MapEntry[V]{}, err)
				return
			}
			if k == emptyKey {
				continue
			}
			v, err := m.values.get(i)
			if !yield(MapEntry[V]{Key: k ^ math.MinInt64, Value: v}, err) || err != nil {
				return
			}
		}
	}
}

func (m *HashDataMap[V]) Keys() iter.Seq2[int64, error] { return keysOf(m.All()) }
func (m *HashDataMap[V]) Values() iter.Seq2[V, error]   { return valuesOf(m.All()) }

// Clear removes every entry and keeps the current capacity.
func (m *HashDataMap[V]) Clear() error {
	if m.closed {
		return geostore.ErrClosed
	}
	m.size = 0
	if err := errors.Join(m.keysMem.Clear(), m.valuesMem.Clear()); err != nil {
		return err
	}
	return errors.Join(m.keys.reserve(m.capacity), m.values.reserve(m.capacity))
}

func (m *HashDataMap[V]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return closeRegions(m.hashTable.regions())
}
