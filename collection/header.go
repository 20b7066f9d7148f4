package collection

import (
	"encoding/binary"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/memory"
)

// loadHeader reads n little-endian int64 counters from the region header.
func loadHeader(mem memory.Memory, n int) ([]int64, error) {
	if mem.HeaderSize() < 8*n {
		return nil, geostore.NewArgumentError("header size", mem.HeaderSize(), "too small for collection bookkeeping")
	}
	h, err := mem.Header()
	if err != nil {
		return nil, err
	}
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = int64(binary.LittleEndian.Uint64(h[8*i:]))
	}
	return vals, nil
}

// storeHeader writes counters to the region header.
func storeHeader(mem memory.Memory, vals ...int64) error {
	h, err := mem.Header()
	if err != nil {
		return err
	}
	for i, v := range vals {
		binary.LittleEndian.PutUint64(h[8*i:], uint64(v))
	}
	return nil
}
