package collection

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/memory"
)

func newHeap(t *testing.T, opts ...memory.Option) memory.Memory {
	t.Helper()
	m, err := memory.NewHeap(opts...)
	require.NoError(t, err)
	return m
}

func TestFixedSizeDataList_AddGetSet(t *testing.T) {
	list, err := NewFixedSizeDataList(datatype.Int64, newHeap(t, memory.WithSegmentSize(64)))
	require.NoError(t, err)
	defer list.Close()

	for i := int64(0); i < 100; i++ {
		idx, err := list.Add(i * 3)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	assert.Equal(t, int64(100), list.Size())

	v, err := list.Get(42)
	require.NoError(t, err)
	assert.Equal(t, int64(126), v)

	require.NoError(t, list.Set(42, -1))
	v, err = list.Get(42)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)

	_, err = list.Get(100)
	assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
	_, err = list.Get(-1)
	assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
	assert.ErrorIs(t, list.Set(100, 1), geostore.ErrOutOfBounds)
}

func TestFixedSizeDataList_NoStraddle(t *testing.T) {
	// 16-byte segments hold one 12-byte pair each.
	pairType := datatype.NewFixedPair(datatype.Int64, datatype.Int32)
	mem := newHeap(t, memory.WithSegmentSize(16))
	list, err := NewFixedSizeDataList[datatype.Pair[int64, int32]](pairType, mem)
	require.NoError(t, err)
	defer list.Close()

	for i := int64(0); i < 5; i++ {
		_, err := list.Add(datatype.Pair[int64, int32]{Left: i, Right: int32(i)})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, mem.Segments())

	i := int64(0)
	for p, err := range list.All() {
		require.NoError(t, err)
		assert.Equal(t, i, p.Left)
		assert.Equal(t, int32(i), p.Right)
		i++
	}
	assert.Equal(t, int64(5), i)
}

func TestFixedSizeDataList_ElementLargerThanSegment(t *testing.T) {
	_, err := NewFixedSizeDataList(datatype.EnvelopeType, newHeap(t, memory.WithSegmentSize(16)))
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
}

func TestFixedSizeDataList_Large(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large list in short mode")
	}
	const n = 1 << 20
	list, err := NewFixedSizeDataList(datatype.Int64, newHeap(t))
	require.NoError(t, err)
	defer list.Close()

	for i := int64(0); i < n; i++ {
		_, err := list.Add(i)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(n), list.Size())
	for _, i := range []int64{0, 1, n / 2, n - 1} {
		v, err := list.Get(i)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestFixedSizeDataList_ClearAndClose(t *testing.T) {
	list, err := NewFixedSizeDataList(datatype.Int32, newHeap(t))
	require.NoError(t, err)

	_, err = list.Add(7)
	require.NoError(t, err)
	require.NoError(t, list.Clear())
	assert.Equal(t, int64(0), list.Size())
	_, err = list.Get(0)
	assert.ErrorIs(t, err, geostore.ErrOutOfBounds)

	idx, err := list.Add(8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), idx)

	require.NoError(t, list.Close())
	require.NoError(t, list.Close())
	_, err = list.Add(1)
	assert.ErrorIs(t, err, geostore.ErrClosed)
}

func TestFixedSizeDataList_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.bin")
	opts := []memory.Option{memory.WithSegmentSize(4096), memory.WithHeaderSize(16)}

	mem, err := memory.NewMappedFile(path, opts...)
	require.NoError(t, err)
	list, err := NewFixedSizeDataList(datatype.Float64, mem)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		_, err := list.Add(float64(i) / 2)
		require.NoError(t, err)
	}
	require.NoError(t, list.Close())

	mem, err = memory.NewMappedFile(path, opts...)
	require.NoError(t, err)
	list, err = NewFixedSizeDataList(datatype.Float64, mem)
	require.NoError(t, err)
	defer list.Close()

	assert.Equal(t, int64(1000), list.Size())
	v, err := list.Get(999)
	require.NoError(t, err)
	assert.Equal(t, 499.5, v)
}

func TestIndexedDataList(t *testing.T) {
	list, err := NewIndexedDataList(datatype.String, newHeap(t), newHeap(t, memory.WithSegmentSize(64)))
	require.NoError(t, err)
	defer list.Close()

	words := []string{"alpha", "", "gamma", "a somewhat longer value to force segment skips"}
	for i, w := range words {
		idx, err := list.Add(w)
		require.NoError(t, err)
		assert.Equal(t, int64(i), idx)
	}

	got, err := list.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "gamma", got)

	require.NoError(t, list.Set(1, "beta"))
	got, err = list.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "beta", got)

	var all []string
	for v, err := range list.All() {
		require.NoError(t, err)
		all = append(all, v)
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma", words[3]}, all)

	assert.ErrorIs(t, list.Set(4, "x"), geostore.ErrOutOfBounds)
}

func TestIndexedDataList_FailedOpenReleasesRegions(t *testing.T) {
	index, values := newHeap(t), newHeap(t)
	require.NoError(t, values.Close())

	_, err := NewIndexedDataList(datatype.String, index, values)
	require.ErrorIs(t, err, geostore.ErrClosed)

	_, err = index.Header()
	assert.ErrorIs(t, err, geostore.ErrClosed)
}
