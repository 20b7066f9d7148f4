package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	path := filepath.Join(t.TempDir(), "mmap_test")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())

	assert.Equal(t, "Mmap!", string(m.Bytes()[7:]))

	// Sync on a read-only mapping is a no-op.
	assert.NoError(t, m.Sync())
}

func TestMmap_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.Nil(t, m.Bytes())
}

func TestMapFile_UnalignedWindowWritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rw.bin")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	const offset = 100
	const size = 3 * 4096
	require.NoError(t, f.Truncate(offset+size))

	m, err := MapFile(f, offset, size, true)
	require.NoError(t, err)
	require.Len(t, m.Bytes(), size)

	copy(m.Bytes(), "window")
	m.Bytes()[size-1] = 0xAB
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "window", string(raw[offset:offset+6]))
	assert.Equal(t, byte(0xAB), raw[offset+size-1])
}

func TestMapFile_InvalidArguments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = MapFile(f, -1, 10, true)
	assert.ErrorIs(t, err, ErrInvalidOffset)
	_, err = MapFile(f, 0, 0, true)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMapAnon(t *testing.T) {
	m, err := MapAnon(1 << 16)
	require.NoError(t, err)

	data := m.Bytes()
	require.Len(t, data, 1<<16)
	for _, b := range data[:128] {
		assert.Zero(t, b)
	}
	data[0] = 1
	data[len(data)-1] = 2
	assert.Equal(t, byte(2), m.Bytes()[1<<16-1])
	assert.NoError(t, m.Sync())
	assert.NoError(t, m.Advise(AccessRandom))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())

	_, err = MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMmap_AdviseAndClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advise")
	require.NoError(t, os.WriteFile(path, make([]byte, 1024), 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	for _, p := range []AccessPattern{AccessDefault, AccessSequential, AccessRandom} {
		require.NoError(t, m.Advise(p))
	}

	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	assert.ErrorIs(t, m.Sync(), ErrClosed)
}

func TestPageSize(t *testing.T) {
	p := PageSize()
	assert.Positive(t, p)
	assert.Zero(t, p&(p-1))
}
