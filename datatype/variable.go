package datatype

import (
	"fmt"

	"github.com/hupe1980/geostore"
)

type stringType struct{}

// String encodes a string as [int32 byte length][UTF-8 bytes].
var String DataType[string] = stringType{}

func (stringType) Size(v string) int { return lenSize + len(v) }

func (stringType) SizeAt(buf []byte, off int) (int, error) {
	n, err := readLen(buf, off)
	if err != nil {
		return 0, err
	}
	return lenSize + n, nil
}

func (stringType) Write(buf []byte, off int, v string) error {
	if err := checkRange("write", buf, off, lenSize+len(v)); err != nil {
		return err
	}
	if err := writeLen(buf, off, len(v)); err != nil {
		return err
	}
	copy(buf[off+lenSize:], v)
	return nil
}

func (stringType) Read(buf []byte, off int) (string, error) {
	n, err := readLen(buf, off)
	if err != nil {
		return "", err
	}
	if err := checkRange("read", buf, off+lenSize, n); err != nil {
		return "", err
	}
	return string(buf[off+lenSize : off+lenSize+n]), nil
}

type bytesType struct{}

// Bytes encodes a byte slice as [int32 length][bytes]. Read returns a copy.
var Bytes DataType[[]byte] = bytesType{}

func (bytesType) Size(v []byte) int { return lenSize + len(v) }

func (bytesType) SizeAt(buf []byte, off int) (int, error) {
	return String.SizeAt(buf, off)
}

func (bytesType) Write(buf []byte, off int, v []byte) error {
	if err := checkRange("write", buf, off, lenSize+len(v)); err != nil {
		return err
	}
	if err := writeLen(buf, off, len(v)); err != nil {
		return err
	}
	copy(buf[off+lenSize:], v)
	return nil
}

func (bytesType) Read(buf []byte, off int) ([]byte, error) {
	n, err := readLen(buf, off)
	if err != nil {
		return nil, err
	}
	if err := checkRange("read", buf, off+lenSize, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf[off+lenSize:])
	return out, nil
}

// SliceType encodes a slice of fixed-size elements as
// [int32 byte length][element]...
type SliceType[T any] struct {
	elem FixedSizeDataType[T]
}

// NewSlice returns a slice codec over a fixed-size element codec.
func NewSlice[T any](elem FixedSizeDataType[T]) SliceType[T] {
	return SliceType[T]{elem: elem}
}

var (
	Int32Slice   = NewSlice(Int32)
	Int64Slice   = NewSlice(Int64)
	Float64Slice = NewSlice(Float64)
)

func (s SliceType[T]) Size(v []T) int { return lenSize + len(v)*s.elem.FixedSize() }

func (s SliceType[T]) SizeAt(buf []byte, off int) (int, error) {
	return String.SizeAt(buf, off)
}

func (s SliceType[T]) Write(buf []byte, off int, v []T) error {
	size := s.Size(v)
	if err := checkRange("write", buf, off, size); err != nil {
		return err
	}
	if err := writeLen(buf, off, size-lenSize); err != nil {
		return err
	}
	p := off + lenSize
	for _, e := range v {
		if err := s.elem.Write(buf, p, e); err != nil {
			return err
		}
		p += s.elem.FixedSize()
	}
	return nil
}

func (s SliceType[T]) Read(buf []byte, off int) ([]T, error) {
	n, err := readLen(buf, off)
	if err != nil {
		return nil, err
	}
	es := s.elem.FixedSize()
	if n%es != 0 {
		return nil, fmt.Errorf("%w: slice length %d is not a multiple of %d", geostore.ErrCorrupted, n, es)
	}
	if err := checkRange("read", buf, off+lenSize, n); err != nil {
		return nil, err
	}
	out := make([]T, n/es)
	p := off + lenSize
	for i := range out {
		if out[i], err = s.elem.Read(buf, p); err != nil {
			return nil, err
		}
		p += es
	}
	return out, nil
}

// ListType encodes a list as [int32 count][element]... Elements may be of
// any size, so SizeAt walks them.
type ListType[T any] struct {
	elem DataType[T]
}

// NewList returns a list codec.
func NewList[T any](elem DataType[T]) ListType[T] {
	return ListType[T]{elem: elem}
}

func (l ListType[T]) Size(v []T) int {
	size := lenSize
	for _, e := range v {
		size += l.elem.Size(e)
	}
	return size
}

func (l ListType[T]) SizeAt(buf []byte, off int) (int, error) {
	count, err := readLen(buf, off)
	if err != nil {
		return 0, err
	}
	p := off + lenSize
	for i := 0; i < count; i++ {
		n, err := l.elem.SizeAt(buf, p)
		if err != nil {
			return 0, err
		}
		p += n
	}
	return p - off, nil
}

func (l ListType[T]) Write(buf []byte, off int, v []T) error {
	if err := checkRange("write", buf, off, l.Size(v)); err != nil {
		return err
	}
	if err := writeLen(buf, off, len(v)); err != nil {
		return err
	}
	p := off + lenSize
	for _, e := range v {
		if err := l.elem.Write(buf, p, e); err != nil {
			return err
		}
		p += l.elem.Size(e)
	}
	return nil
}

func (l ListType[T]) Read(buf []byte, off int) ([]T, error) {
	count, err := readLen(buf, off)
	if err != nil {
		return nil, err
	}
	// Every element takes at least one byte, so a count beyond the buffer is corrupt.
	if count > len(buf)-off-lenSize {
		return nil, fmt.Errorf("%w: list count %d exceeds buffer", geostore.ErrCorrupted, count)
	}
	out := make([]T, count)
	p := off + lenSize
	for i := range out {
		n, err := l.elem.SizeAt(buf, p)
		if err != nil {
			return nil, err
		}
		if out[i], err = l.elem.Read(buf, p); err != nil {
			return nil, err
		}
		p += n
	}
	return out, nil
}

// MapType encodes a map as [int32 byte length][key value]... Entry order
// follows Go map iteration and is not significant.
type MapType[K comparable, V any] struct {
	key   DataType[K]
	value DataType[V]
}

// NewMap returns a map codec.
func NewMap[K comparable, V any](key DataType[K], value DataType[V]) MapType[K, V] {
	return MapType[K, V]{key: key, value: value}
}

func (m MapType[K, V]) Size(v map[K]V) int {
	size := lenSize
	for k, e := range v {
		size += m.key.Size(k) + m.value.Size(e)
	}
	return size
}

func (m MapType[K, V]) SizeAt(buf []byte, off int) (int, error) {
	return String.SizeAt(buf, off)
}

func (m MapType[K, V]) Write(buf []byte, off int, v map[K]V) error {
	size := m.Size(v)
	if err := checkRange("write", buf, off, size); err != nil {
		return err
	}
	if err := writeLen(buf, off, size-lenSize); err != nil {
		return err
	}
	p := off + lenSize
	for k, e := range v {
		if err := m.key.Write(buf, p, k); err != nil {
			return err
		}
		p += m.key.Size(k)
		if err := m.value.Write(buf, p, e); err != nil {
			return err
		}
		p += m.value.Size(e)
	}
	return nil
}

func (m MapType[K, V]) Read(buf []byte, off int) (map[K]V, error) {
	n, err := readLen(buf, off)
	if err != nil {
		return nil, err
	}
	if err := checkRange("read", buf, off+lenSize, n); err != nil {
		return nil, err
	}
	out := make(map[K]V)
	end := off + lenSize + n
	// Entries are decoded from the declared window only.
	window := buf[:end]
	for p := off + lenSize; p < end; {
		kn, err := m.key.SizeAt(window, p)
		if err != nil {
			return nil, err
		}
		k, err := m.key.Read(window, p)
		if err != nil {
			return nil, err
		}
		p += kn
		vn, err := m.value.SizeAt(window, p)
		if err != nil {
			return nil, err
		}
		e, err := m.value.Read(window, p)
		if err != nil {
			return nil, err
		}
		p += vn
		out[k] = e
	}
	return out, nil
}

// Pair is a two-element tuple.
type Pair[L, R any] struct {
	Left  L
	Right R
}

// PairType encodes the left value followed by the right value.
type PairType[L, R any] struct {
	left  DataType[L]
	right DataType[R]
}

// NewPair returns a pair codec.
func NewPair[L, R any](left DataType[L], right DataType[R]) PairType[L, R] {
	return PairType[L, R]{left: left, right: right}
}

func (p PairType[L, R]) Size(v Pair[L, R]) int {
	return p.left.Size(v.Left) + p.right.Size(v.Right)
}

func (p PairType[L, R]) SizeAt(buf []byte, off int) (int, error) {
	ln, err := p.left.SizeAt(buf, off)
	if err != nil {
		return 0, err
	}
	rn, err := p.right.SizeAt(buf, off+ln)
	if err != nil {
		return 0, err
	}
	return ln + rn, nil
}

func (p PairType[L, R]) Write(buf []byte, off int, v Pair[L, R]) error {
	if err := p.left.Write(buf, off, v.Left); err != nil {
		return err
	}
	return p.right.Write(buf, off+p.left.Size(v.Left), v.Right)
}

func (p PairType[L, R]) Read(buf []byte, off int) (Pair[L, R], error) {
	var out Pair[L, R]
	ln, err := p.left.SizeAt(buf, off)
	if err != nil {
		return out, err
	}
	if out.Left, err = p.left.Read(buf, off); err != nil {
		return out, err
	}
	if out.Right, err = p.right.Read(buf, off+ln); err != nil {
		return out, err
	}
	return out, nil
}

// OptionalType encodes a presence byte followed by the value when present.
type OptionalType[T any] struct {
	elem DataType[T]
}

// NewOptional returns an optional codec.
func NewOptional[T any](elem DataType[T]) OptionalType[T] {
	return OptionalType[T]{elem: elem}
}

func (o OptionalType[T]) Size(v Null[T]) int {
	if !v.Valid {
		return 1
	}
	return 1 + o.elem.Size(v.Value)
}

func (o OptionalType[T]) SizeAt(buf []byte, off int) (int, error) {
	if err := checkRange("read", buf, off, 1); err != nil {
		return 0, err
	}
	if buf[off] == 0 {
		return 1, nil
	}
	n, err := o.elem.SizeAt(buf, off+1)
	if err != nil {
		return 0, err
	}
	return 1 + n, nil
}

func (o OptionalType[T]) Write(buf []byte, off int, v Null[T]) error {
	if err := checkRange("write", buf, off, 1); err != nil {
		return err
	}
	if !v.Valid {
		buf[off] = 0
		return nil
	}
	buf[off] = 1
	return o.elem.Write(buf, off+1, v.Value)
}

func (o OptionalType[T]) Read(buf []byte, off int) (Null[T], error) {
	if err := checkRange("read", buf, off, 1); err != nil {
		return Null[T]{}, err
	}
	if buf[off] == 0 {
		return Null[T]{}, nil
	}
	v, err := o.elem.Read(buf, off+1)
	if err != nil {
		return Null[T]{}, err
	}
	return Some(v), nil
}
