package collection

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/datatype"
	"github.com/hupe1980/geostore/memory"
)

// emptyType encodes to zero bytes.
type emptyType struct{}

func (emptyType) Size(struct{}) int                  { return 0 }
func (emptyType) SizeAt([]byte, int) (int, error)    { return 0, nil }
func (emptyType) Write([]byte, int, struct{}) error  { return nil }
func (emptyType) Read([]byte, int) (struct{}, error) { return struct{}{}, nil }

func TestAppendOnlyLog_Order(t *testing.T) {
	log, err := NewAppendOnlyLog(datatype.String, newHeap(t, memory.WithSegmentSize(256)))
	require.NoError(t, err)
	defer log.Close()

	var positions []int64
	for i := 0; i < 500; i++ {
		pos, err := log.Add(fmt.Sprintf("value-%d", i))
		require.NoError(t, err)
		positions = append(positions, pos)
	}
	assert.Equal(t, int64(500), log.Size())
	assert.IsIncreasing(t, positions)

	// Restartable: two full scans see the same sequence.
	for range 2 {
		i := 0
		for e, err := range log.All() {
			require.NoError(t, err)
			assert.Equal(t, positions[i], e.Position)
			assert.Equal(t, fmt.Sprintf("value-%d", i), e.Value)
			i++
		}
		assert.Equal(t, 500, i)
	}

	v, err := log.Read(positions[321])
	require.NoError(t, err)
	assert.Equal(t, "value-321", v)
}

func TestAppendOnlyLog_SegmentSkip(t *testing.T) {
	tests := []struct {
		name      string
		valueLen  int
		positions []int64
	}{
		// 28-byte entries leave an 8-byte tail that gets a zero marker.
		{"marked tail", 20, []int64{0, 28, 64, 92}},
		// 31-byte entries leave a 2-byte tail, too short for a marker.
		{"short tail", 23, []int64{0, 31, 64, 95}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewAppendOnlyLog(datatype.String, newHeap(t, memory.WithSegmentSize(64), memory.WithHeaderSize(16)))
			require.NoError(t, err)
			defer log.Close()

			value := strings.Repeat("x", tt.valueLen)
			for _, want := range tt.positions {
				pos, err := log.Add(value)
				require.NoError(t, err)
				assert.Equal(t, want, pos)
			}

			n := 0
			for e, err := range log.All() {
				require.NoError(t, err)
				assert.Equal(t, tt.positions[n], e.Position)
				assert.Equal(t, value, e.Value)
				n++
			}
			assert.Equal(t, len(tt.positions), n)
		})
	}
}

func TestAppendOnlyLog_Errors(t *testing.T) {
	t.Run("entry larger than segment", func(t *testing.T) {
		log, err := NewAppendOnlyLog(datatype.String, newHeap(t, memory.WithSegmentSize(64)))
		require.NoError(t, err)
		defer log.Close()

		_, err = log.Add(strings.Repeat("x", 61))
		assert.ErrorIs(t, err, geostore.ErrCapacityExceeded)
		_, err = log.Add(strings.Repeat("x", 56))
		assert.NoError(t, err)
	})

	t.Run("zero size codec", func(t *testing.T) {
		log, err := NewAppendOnlyLog[struct{}](emptyType{}, newHeap(t))
		require.NoError(t, err)
		defer log.Close()

		_, err = log.Add(struct{}{})
		assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	})

	t.Run("header too small", func(t *testing.T) {
		_, err := NewAppendOnlyLog(datatype.String, newHeap(t, memory.WithHeaderSize(8)))
		assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	})

	t.Run("read out of range", func(t *testing.T) {
		log, err := NewAppendOnlyLog[int64](datatype.Int64, newHeap(t))
		require.NoError(t, err)
		defer log.Close()

		pos, err := log.Add(1)
		require.NoError(t, err)
		_, err = log.Read(pos + 12)
		assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
		_, err = log.Read(-1)
		assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
	})

	t.Run("closed", func(t *testing.T) {
		log, err := NewAppendOnlyLog[int64](datatype.Int64, newHeap(t))
		require.NoError(t, err)
		require.NoError(t, log.Close())
		require.NoError(t, log.Close())

		_, err = log.Add(1)
		assert.ErrorIs(t, err, geostore.ErrClosed)
		for _, err := range log.All() {
			assert.ErrorIs(t, err, geostore.ErrClosed)
		}
	})
}

func TestAppendOnlyLog_Clear(t *testing.T) {
	log, err := NewAppendOnlyLog(datatype.String, newHeap(t))
	require.NoError(t, err)
	defer log.Close()

	_, err = log.Add("a")
	require.NoError(t, err)
	require.NoError(t, log.Clear())
	assert.Equal(t, int64(0), log.Size())
	assert.Equal(t, int64(0), log.Offset())

	pos, err := log.Add("b")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)
}

func TestAppendOnlyLog_Persistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	opts := []memory.Option{memory.WithSegmentSize(4096)}

	mem, err := memory.NewMappedDirectory(dir, opts...)
	require.NoError(t, err)
	log, err := NewAppendOnlyLog(datatype.String, mem)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		_, err := log.Add(fmt.Sprintf("entry %d", i))
		require.NoError(t, err)
	}
	offset := log.Offset()
	require.NoError(t, log.Close())

	mem, err = memory.NewMappedDirectory(dir, opts...)
	require.NoError(t, err)
	log, err = NewAppendOnlyLog(datatype.String, mem)
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, int64(1000), log.Size())
	assert.Equal(t, offset, log.Offset())

	pos, err := log.Add("appended")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pos, offset)

	var last string
	n := 0
	for e, err := range log.All() {
		require.NoError(t, err)
		last = e.Value
		n++
	}
	assert.Equal(t, 1001, n)
	assert.Equal(t, "appended", last)
}
