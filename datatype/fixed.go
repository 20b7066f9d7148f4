package datatype

import (
	"math"

	"github.com/hupe1980/geostore"
)

// fixed adapts a pair of put/get functions over exactly size bytes.
type fixed[T any] struct {
	size int
	put  func(b []byte, v T)
	get  func(b []byte) T
}

func (f fixed[T]) FixedSize() int { return f.size }
func (f fixed[T]) Size(T) int     { return f.size }

func (f fixed[T]) SizeAt(buf []byte, off int) (int, error) {
	if err := checkRange("read", buf, off, f.size); err != nil {
		return 0, err
	}
	return f.size, nil
}

func (f fixed[T]) Write(buf []byte, off int, v T) error {
	if err := checkRange("write", buf, off, f.size); err != nil {
		return err
	}
	f.put(buf[off:off+f.size], v)
	return nil
}

func (f fixed[T]) Read(buf []byte, off int) (T, error) {
	if err := checkRange("read", buf, off, f.size); err != nil {
		var zero T
		return zero, err
	}
	return f.get(buf[off : off+f.size]), nil
}

var (
	// Bool encodes true as 1 and false as 0.
	Bool FixedSizeDataType[bool] = fixed[bool]{
		size: 1,
		put: func(b []byte, v bool) {
			b[0] = 0
			if v {
				b[0] = 1
			}
		},
		get: func(b []byte) bool { return b[0] != 0 },
	}

	Byte FixedSizeDataType[byte] = fixed[byte]{
		size: 1,
		put:  func(b []byte, v byte) { b[0] = v },
		get:  func(b []byte) byte { return b[0] },
	}

	Int16 FixedSizeDataType[int16] = fixed[int16]{
		size: 2,
		put:  func(b []byte, v int16) { le.PutUint16(b, uint16(v)) },
		get:  func(b []byte) int16 { return int16(le.Uint16(b)) },
	}

	Int32 FixedSizeDataType[int32] = fixed[int32]{
		size: 4,
		put:  func(b []byte, v int32) { le.PutUint32(b, uint32(v)) },
		get:  func(b []byte) int32 { return int32(le.Uint32(b)) },
	}

	Int64 FixedSizeDataType[int64] = fixed[int64]{
		size: 8,
		put:  func(b []byte, v int64) { le.PutUint64(b, uint64(v)) },
		get:  func(b []byte) int64 { return int64(le.Uint64(b)) },
	}

	Uint64 FixedSizeDataType[uint64] = fixed[uint64]{
		size: 8,
		put:  func(b []byte, v uint64) { le.PutUint64(b, v) },
		get:  func(b []byte) uint64 { return le.Uint64(b) },
	}

	// Float32 stores the IEEE 754 bits; NaN payloads survive a round trip.
	Float32 FixedSizeDataType[float32] = fixed[float32]{
		size: 4,
		put:  func(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) },
		get:  func(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) },
	}

	// Float64 stores the IEEE 754 bits; NaN payloads survive a round trip.
	Float64 FixedSizeDataType[float64] = fixed[float64]{
		size: 8,
		put:  func(b []byte, v float64) { le.PutUint64(b, math.Float64bits(v)) },
		get:  func(b []byte) float64 { return math.Float64frombits(le.Uint64(b)) },
	}
)

// SmallInt returns a codec storing an int64 in n bytes (1 to 8), sign-extended
// on read. Values outside the n-byte two's complement range are truncated, so
// callers pick n from the largest value they store.
func SmallInt(n int) (FixedSizeDataType[int64], error) {
	if n < 1 || n > 8 {
		return nil, geostore.NewArgumentError("small int width", n, "must be between 1 and 8")
	}
	shift := uint(64 - 8*n)
	return fixed[int64]{
		size: n,
		put: func(b []byte, v int64) {
			u := uint64(v)
			for i := 0; i < n; i++ {
				b[i] = byte(u >> (8 * i))
			}
		},
		get: func(b []byte) int64 {
			var u uint64
			for i := 0; i < n; i++ {
				u |= uint64(b[i]) << (8 * i)
			}
			return int64(u<<shift) >> shift
		},
	}, nil
}
