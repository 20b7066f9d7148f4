package collection

import (
	"fmt"
	"iter"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
)

// DataMap maps int64 keys to values stored in memory regions.
type DataMap[V any] interface {
	// Put stores v under key, replacing any previous value.
	Put(key int64, v V) error
	// Get returns the value stored under key and whether it exists.
	Get(key int64) (V, bool, error)
	// ContainsKey reports whether key has a value.
	ContainsKey(key int64) (bool, error)
	// Size returns the number of keys.
	Size() int64
	// IsEmpty reports whether Size() is zero.
	IsEmpty() bool
	// Keys yields every key.
	Keys() iter.Seq2[int64, error]
	// Values yields every value.
	Values() iter.Seq2[V, error]
	// All yields every entry.
	All() iter.Seq2[MapEntry[V], error]
	// Clear removes every entry.
	Clear() error
	// Close releases the map's regions. It is idempotent.
	Close() error
}

// MapEntry is a key/value pair.
type MapEntry[V any] struct {
	Key   int64
	Value V
}

// MapKind selects a DataMap variant.
type MapKind int

const (
	// MapIndexed suits dense keys starting near zero and variable-size values.
	MapIndexed MapKind = iota
	// MapMonotonic suits keys written in non-decreasing order.
	MapMonotonic
	// MapSparse suits clustered keys anywhere in the int64 range.
	MapSparse
	// MapHash suits random keys.
	MapHash
)

func (k MapKind) String() string {
	switch k {
	case MapIndexed:
		return "indexed"
	case MapMonotonic:
		return "monotonic"
	case MapSparse:
		return "sparse"
	case MapHash:
		return "hash"
	default:
		return fmt.Sprintf("MapKind(%d)", int(k))
	}
}

// NewDataMap creates a map of the given kind. Every kind except MapIndexed
// requires a datatype.FixedSizeDataType.
func NewDataMap[V any](kind MapKind, dt datatype.DataType[V], optFns ...Option) (DataMap[V], error) {
	if kind == MapIndexed {
		m, err := NewIndexedDataMap(dt, optFns...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	fixed, ok := dt.(datatype.FixedSizeDataType[V])
	if !ok {
		return nil, geostore.NewArgumentError("data type", fmt.Sprintf("%T", dt), kind.String()+" maps need a fixed-size data type")
	}
	switch kind {
	case MapMonotonic:
		m, err := NewMonotonicDataMap(fixed, optFns...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case MapSparse:
		m, err := NewSparseDataMap(fixed, optFns...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case MapHash:
		m, err := NewHashDataMap(fixed, optFns...)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, geostore.NewArgumentError("map kind", kind, "unknown")
	}
}

// ContainsValue reports whether any entry of m holds v.
func ContainsValue[V comparable](m DataMap[V], v V) (bool, error) {
	for value, err := range m.Values() {
		if err != nil {
			return false, err
		}
		if value == v {
			return true, nil
		}
	}
	return false, nil
}

// EntriesEqual reports whether a and b hold the same key/value associations,
// regardless of iteration order.
func EntriesEqual[V comparable](a, b DataMap[V]) (bool, error) {
	if a.Size() != b.Size() {
		return false, nil
	}
	for e, err := range a.All() {
		if err != nil {
			return false, err
		}
		v, ok, err := b.Get(e.Key)
		if err != nil {
			return false, err
		}
		if !ok || v != e.Value {
			return false, nil
		}
	}
	return true, nil
}

// ToMap copies every entry of m into a Go map.
func ToMap[V any](m DataMap[V]) (map[int64]V, error) {
	out := make(map[int64]V, m.Size())
	for e, err := range m.All() {
		if err != nil {
			return nil, err
		}
		out[e.Key] = e.Value
	}
	return out, nil
}

// keysOf and valuesOf project All.
func keysOf[V any](all iter.Seq2[MapEntry[V], error]) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		for e, err := range all {
			if !yield(e.Key, err) || err != nil {
				return
			}
		}
	}
}

func valuesOf[V any](all iter.Seq2[MapEntry[V], error]) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for e, err := range all {
			if !yield(e.Value, err) || err != nil {
				return
			}
		}
	}
}
