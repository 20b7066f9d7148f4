package memory

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/fs"
	"github.com/hupe1980/geostore/resource"
)

type constructor struct {
	name string
	new  func(t *testing.T, opts ...Option) Memory
}

func constructors() []constructor {
	return []constructor{
		{"heap", func(t *testing.T, opts ...Option) Memory {
			m, err := NewHeap(opts...)
			require.NoError(t, err)
			return m
		}},
		{"offheap", func(t *testing.T, opts ...Option) Memory {
			m, err := NewOffHeap(opts...)
			require.NoError(t, err)
			return m
		}},
		{"file", func(t *testing.T, opts ...Option) Memory {
			m, err := NewMappedFile(filepath.Join(t.TempDir(), "region.bin"), opts...)
			require.NoError(t, err)
			return m
		}},
		{"directory", func(t *testing.T, opts ...Option) Memory {
			m, err := NewMappedDirectory(filepath.Join(t.TempDir(), "region"), opts...)
			require.NoError(t, err)
			return m
		}},
	}
}

func TestMemory_Contract(t *testing.T) {
	for _, c := range constructors() {
		t.Run(c.name, func(t *testing.T) {
			m := c.new(t, WithSegmentSize(4096), WithHeaderSize(64))
			defer m.Close()

			assert.Equal(t, 4096, m.SegmentSize())
			assert.Equal(t, uint(12), m.SegmentShift())
			assert.Equal(t, int64(4095), m.SegmentMask())
			assert.Equal(t, 64, m.HeaderSize())
			assert.Equal(t, 0, m.Segments())
			assert.Equal(t, int64(0), m.Size())

			// Lazy allocation of segment 2 brings 0 and 1 with it.
			seg, err := m.Segment(2)
			require.NoError(t, err)
			assert.Len(t, seg, 4096)
			assert.Equal(t, 3, m.Segments())
			assert.Equal(t, int64(3*4096), m.Size())

			// Stable addresses.
			seg[10] = 42
			again, err := m.Segment(2)
			require.NoError(t, err)
			assert.Equal(t, byte(42), again[10])
			_, err = m.Segment(5)
			require.NoError(t, err)
			assert.Equal(t, byte(42), seg[10])

			hdr, err := m.Header()
			require.NoError(t, err)
			assert.Len(t, hdr, 64)
			hdr[0] = 7
			hdr2, err := m.Header()
			require.NoError(t, err)
			assert.Equal(t, byte(7), hdr2[0])
		})
	}
}

func TestMemory_AccessHint(t *testing.T) {
	for _, hint := range []AccessHint{AccessSequential, AccessRandom} {
		for _, c := range constructors() {
			t.Run(c.name, func(t *testing.T) {
				m := c.new(t, WithSegmentSize(4096), WithAccessHint(hint))
				defer m.Close()

				_, err := m.WriteAt([]byte("hinted"), 3*4096+10)
				require.NoError(t, err)
				got := make([]byte, 6)
				_, err = m.ReadAt(got, 3*4096+10)
				require.NoError(t, err)
				assert.Equal(t, "hinted", string(got))
			})
		}
	}
}

func TestMemory_ReadWriteAcrossSegments(t *testing.T) {
	for _, c := range constructors() {
		t.Run(c.name, func(t *testing.T) {
			m := c.new(t, WithSegmentSize(1024))
			defer m.Close()

			payload := bytes.Repeat([]byte("geostore"), 500) // 4000 bytes
			n, err := m.WriteAt(payload, 1000)
			require.NoError(t, err)
			assert.Equal(t, len(payload), n)
			assert.Equal(t, 5, m.Segments())

			got := make([]byte, len(payload))
			n, err = m.ReadAt(got, 1000)
			require.NoError(t, err)
			assert.Equal(t, len(payload), n)
			assert.Equal(t, payload, got)

			_, err = m.ReadAt(make([]byte, 10), m.Size()-5)
			assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
			var be *geostore.BoundsError
			assert.ErrorAs(t, err, &be)

			_, err = m.ReadAt(make([]byte, 1), -1)
			assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
			_, err = m.WriteAt([]byte{1}, -1)
			assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
			_, err = m.Segment(-1)
			assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
		})
	}
}

func TestMemory_ClearAndClose(t *testing.T) {
	for _, c := range constructors() {
		t.Run(c.name, func(t *testing.T) {
			m := c.new(t, WithSegmentSize(4096))

			_, err := m.WriteAt([]byte("hello"), 0)
			require.NoError(t, err)
			require.NoError(t, m.Sync())

			require.NoError(t, m.Clear())
			assert.Equal(t, 0, m.Segments())

			// Still usable and zeroed.
			buf := make([]byte, 5)
			require.NoError(t, m.Allocate(5))
			_, err = m.ReadAt(buf, 0)
			require.NoError(t, err)
			assert.Equal(t, make([]byte, 5), buf)

			require.NoError(t, m.Close())
			require.NoError(t, m.Close())

			_, err = m.Segment(0)
			assert.ErrorIs(t, err, geostore.ErrClosed)
			_, err = m.Header()
			assert.ErrorIs(t, err, geostore.ErrClosed)
			_, err = m.ReadAt(buf, 0)
			assert.ErrorIs(t, err, geostore.ErrClosed)
			_, err = m.WriteAt(buf, 0)
			assert.ErrorIs(t, err, geostore.ErrClosed)
			assert.ErrorIs(t, m.Allocate(1), geostore.ErrClosed)
			assert.ErrorIs(t, m.Sync(), geostore.ErrClosed)
			assert.ErrorIs(t, m.Clear(), geostore.ErrClosed)
		})
	}
}

func TestMemory_MaxSegments(t *testing.T) {
	m, err := NewHeap(WithSegmentSize(1024), WithMaxSegments(2))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Allocate(2048))
	err = m.Allocate(2049)
	assert.ErrorIs(t, err, geostore.ErrCapacityExceeded)
	_, err = m.WriteAt([]byte{1}, 2048)
	assert.ErrorIs(t, err, geostore.ErrCapacityExceeded)
	assert.Equal(t, 2, m.Segments())
}

func TestMemory_OffsetOverflow(t *testing.T) {
	for _, c := range constructors() {
		t.Run(c.name, func(t *testing.T) {
			m := c.new(t, WithSegmentSize(1024), WithMaxSegments(4))
			defer m.Close()

			_, err := m.WriteAt([]byte{1}, 0)
			require.NoError(t, err)

			for _, off := range []int64{math.MaxInt64, math.MaxInt64 - 1, 1025} {
				_, err = m.ReadAt(make([]byte, 2), off)
				assert.ErrorIs(t, err, geostore.ErrOutOfBounds, off)
			}
			_, err = m.WriteAt([]byte{1, 2}, math.MaxInt64)
			assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
			_, err = m.WriteAt([]byte{1}, math.MaxInt64-1)
			assert.ErrorIs(t, err, geostore.ErrCapacityExceeded)
			assert.Equal(t, 1, m.Segments())
		})
	}
}

func TestMemory_InvalidGeometry(t *testing.T) {
	_, err := NewHeap(WithSegmentSize(1000))
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	_, err = NewOffHeap(WithSegmentSize(0))
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	_, err = NewHeap(WithHeaderSize(-1))
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	_, err = NewMappedFile(filepath.Join(t.TempDir(), "x"), WithSegmentSize(3))
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)

	m, err := NewHeap()
	require.NoError(t, err)
	assert.ErrorIs(t, m.Allocate(-1), geostore.ErrInvalidArgument)
	assert.Equal(t, DefaultSegmentSize, m.SegmentSize())
	assert.Equal(t, DefaultHeaderSize, m.HeaderSize())
}

func TestMappedFile_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.bin")

	m, err := NewMappedFile(path, WithSegmentSize(4096), WithHeaderSize(16))
	require.NoError(t, err)
	assert.Equal(t, path, m.Path())
	hdr, err := m.Header()
	require.NoError(t, err)
	copy(hdr, "HDR")
	_, err = m.WriteAt([]byte("persisted"), 4096+100)
	require.NoError(t, err)
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.Size(), int64(2*4096))

	m2, err := NewMappedFile(path, WithSegmentSize(4096), WithHeaderSize(16))
	require.NoError(t, err)
	defer m2.Close()
	assert.Equal(t, 2, m2.Segments())

	got := make([]byte, 9)
	_, err = m2.ReadAt(got, 4096+100)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
	hdr2, err := m2.Header()
	require.NoError(t, err)
	assert.Equal(t, "HDR", string(hdr2[:3]))

	require.NoError(t, m2.Clear())
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestMappedDirectory_LayoutAndPersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dir")

	m, err := NewMappedDirectory(dir, WithSegmentSize(4096))
	require.NoError(t, err)
	assert.Equal(t, dir, m.Dir())
	_, err = m.WriteAt([]byte("tail"), 3*4096+1)
	require.NoError(t, err)
	_, err = m.Header()
	require.NoError(t, err)
	require.NoError(t, m.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
		info, err := e.Info()
		require.NoError(t, err)
		if e.Name() != headerFileName {
			assert.Equal(t, int64(4096), info.Size(), e.Name())
		}
	}
	assert.ElementsMatch(t, []string{
		"header",
		"segment-00000000.bin",
		"segment-00000001.bin",
		"segment-00000002.bin",
		"segment-00000003.bin",
	}, names)

	m2, err := NewMappedDirectory(dir, WithSegmentSize(4096))
	require.NoError(t, err)
	defer m2.Close()
	assert.Equal(t, 4, m2.Segments())
	got := make([]byte, 4)
	_, err = m2.ReadAt(got, 3*4096+1)
	require.NoError(t, err)
	assert.Equal(t, "tail", string(got))

	require.NoError(t, m2.Clear())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSegmentFileName(t *testing.T) {
	assert.Equal(t, "segment-00000012.bin", SegmentFileName(12))

	idx, ok := ParseSegmentFileName("segment-00000012.bin")
	assert.True(t, ok)
	assert.Equal(t, 12, idx)

	for _, name := range []string{"header", "segment-x.bin", "segment-00000001.tmp", "segment--0001.bin"} {
		_, ok := ParseSegmentFileName(name)
		assert.False(t, ok, name)
	}
}

func TestMapped_AllocationFailureSurfacesEagerly(t *testing.T) {
	boom := errors.New("no space left on device")

	t.Run("directory", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule("segment-00000001", fs.Fault{FailAfterBytes: -1, FailOnTruncate: true, Err: boom})

		m, err := NewMappedDirectory(filepath.Join(t.TempDir(), "d"), WithSegmentSize(4096), WithFileSystem(ffs))
		require.NoError(t, err)
		defer m.Close()

		_, err = m.WriteAt([]byte("ok"), 0)
		require.NoError(t, err)
		_, err = m.WriteAt([]byte("fails"), 4096)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, m.Segments())
	})

	t.Run("file", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule("data.bin", fs.Fault{FailAfterBytes: -1, FailOnTruncate: true, Err: boom})

		m, err := NewMappedFile(filepath.Join(t.TempDir(), "data.bin"), WithSegmentSize(4096), WithFileSystem(ffs))
		require.NoError(t, err)
		defer m.Close()

		assert.ErrorIs(t, m.Allocate(1), boom)
		assert.Equal(t, 0, m.Segments())
	})

	t.Run("open", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule("locked.bin", fs.Fault{FailAfterBytes: -1, FailOnOpen: true})
		_, err := NewMappedFile(filepath.Join(t.TempDir(), "locked.bin"), WithFileSystem(ffs))
		assert.ErrorIs(t, err, fs.ErrInjected)
	})
}

func TestOffHeap_Budget(t *testing.T) {
	rc := resource.New(resource.Config{MemoryLimit: 3 * 4096})
	m, err := NewOffHeap(WithSegmentSize(4096), WithHeaderSize(0), WithController(rc))
	require.NoError(t, err)

	require.NoError(t, m.Allocate(3*4096))
	assert.Equal(t, int64(3*4096), rc.Reserved())
	assert.Equal(t, int64(3*4096), m.Reserved())

	err = m.Allocate(4 * 4096)
	assert.ErrorIs(t, err, geostore.ErrCapacityExceeded)
	assert.ErrorIs(t, err, resource.ErrBudgetExceeded)
	assert.Equal(t, 3, m.Segments())

	require.NoError(t, m.Clear())
	assert.Equal(t, int64(0), rc.Reserved())

	require.NoError(t, m.Allocate(4096))
	require.NoError(t, m.Close())
	assert.Equal(t, int64(0), rc.Reserved())
}

func TestFactories(t *testing.T) {
	root := t.TempDir()
	factory := DirectoryFactory(root, WithSegmentSize(4096))

	a, err := factory()
	require.NoError(t, err)
	defer a.Close()
	b, err := factory()
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, filepath.Join(root, "000000"), a.(*MappedDirectoryMemory).Dir())
	assert.Equal(t, filepath.Join(root, "000001"), b.(*MappedDirectoryMemory).Dir())

	h, err := HeapFactory(WithSegmentSize(256))()
	require.NoError(t, err)
	assert.Equal(t, 256, h.SegmentSize())

	o, err := OffHeapFactory(WithSegmentSize(8192))()
	require.NoError(t, err)
	assert.Equal(t, 8192, o.SegmentSize())
	require.NoError(t, o.Close())
}

func TestOpenConfig(t *testing.T) {
	tmp := t.TempDir()
	cases := []struct {
		cfg  Config
		want any
	}{
		{Config{}, &HeapMemory{}},
		{Config{Kind: KindHeap, SegmentSize: 2048}, &HeapMemory{}},
		{Config{Kind: KindOffHeap, MaxSegments: 1}, &OffHeapMemory{}},
		{Config{Kind: KindFile, Path: filepath.Join(tmp, "f.bin")}, &MappedFileMemory{}},
		{Config{Kind: KindDirectory, Path: filepath.Join(tmp, "d")}, &MappedDirectoryMemory{}},
	}
	for _, c := range cases {
		m, err := Open(c.cfg)
		require.NoError(t, err, c.cfg.Kind)
		assert.IsType(t, c.want, m)
		if c.cfg.SegmentSize > 0 {
			assert.Equal(t, c.cfg.SegmentSize, m.SegmentSize())
		}
		require.NoError(t, m.Close())
	}

	_, err := Open(Config{Kind: KindFile})
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	_, err = Open(Config{Kind: KindDirectory})
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	_, err = Open(Config{Kind: "tape"})
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("NODES_KIND", "Directory")
	t.Setenv("NODES_PATH", "/var/lib/geostore/nodes")
	t.Setenv("NODES_SEGMENT_SIZE", "65536")
	t.Setenv("NODES_HEADER_SIZE", "128")

	cfg, err := ConfigFromEnv("nodes_")
	require.NoError(t, err)
	assert.Equal(t, Config{
		Kind:        KindDirectory,
		Path:        "/var/lib/geostore/nodes",
		SegmentSize: 65536,
		HeaderSize:  128,
	}, cfg)

	t.Setenv("WAYS_SEGMENT_SIZE", "big")
	_, err = ConfigFromEnv("WAYS")
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)

	cfg, err = ConfigFromEnv("UNSET")
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}
