package datatype

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/conv"
)

// DataType encodes values of type T at byte offsets.
type DataType[T any] interface {
	// Size returns the number of bytes Write needs for v.
	Size(v T) int
	// SizeAt returns the number of bytes occupied by the value encoded at off.
	SizeAt(buf []byte, off int) (int, error)
	// Write encodes v at off.
	Write(buf []byte, off int, v T) error
	// Read decodes the value at off.
	Read(buf []byte, off int) (T, error)
}

// FixedSizeDataType is a DataType whose values all encode to FixedSize() bytes.
type FixedSizeDataType[T any] interface {
	DataType[T]
	FixedSize() int
}

// Null is a value that may be absent.
type Null[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Null.
func Some[T any](v T) Null[T] {
	return Null[T]{Value: v, Valid: true}
}

var le = binary.LittleEndian

const lenSize = 4

func checkRange(op string, buf []byte, off, n int) error {
	if off < 0 || n < 0 || off > len(buf) || n > len(buf)-off {
		return geostore.NewBoundsError(op, int64(off), int64(n), int64(len(buf)))
	}
	return nil
}

// readLen reads a non-negative int32 length prefix.
func readLen(buf []byte, off int) (int, error) {
	if err := checkRange("read", buf, off, lenSize); err != nil {
		return 0, err
	}
	n := int32(le.Uint32(buf[off:]))
	if n < 0 {
		return 0, fmt.Errorf("%w: negative length %d at offset %d", geostore.ErrCorrupted, n, off)
	}
	return int(n), nil
}

func writeLen(buf []byte, off, n int) error {
	n32, err := conv.IntToInt32(n)
	if err != nil {
		return geostore.NewArgumentError("length", n, err.Error())
	}
	if err := checkRange("write", buf, off, lenSize); err != nil {
		return err
	}
	le.PutUint32(buf[off:], uint32(n32))
	return nil
}
