package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	name := "ways/index-001.bin"
	data := []byte("hello world, this is a test blob for geostore")

	w, err := store.Create(ctx, name)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible before Close.
	_, err = store.Open(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, "ways", "index-001.bin"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	rc, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "this", string(content))

	m, ok := blob.(Mappable)
	require.True(t, ok)
	b, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, b)

	require.NoError(t, store.Put(ctx, "nodes.bin", []byte("n")))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"nodes.bin", name}, names)

	names, err = store.List(ctx, "ways/")
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	require.NoError(t, store.Delete(ctx, name))
	require.NoError(t, store.Delete(ctx, name))
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"nodes.bin"}, names)

	_, err = store.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalStore_ReadRangeBoundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary.bin", data))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, 10)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, content)

	r, err = blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "89", string(content))

	_, err = blob.ReadRange(ctx, 20, 5)
	assert.ErrorIs(t, err, io.EOF)

	_, err = blob.ReadRange(ctx, -1, 5)
	assert.ErrorIs(t, err, geostore.ErrOutOfBounds)

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
}

func TestLocalStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "empty", nil))
	blob, err := store.Open(ctx, "empty")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(0), blob.Size())
	got, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalStore_InvalidNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "../escape", "/abs"} {
		_, err := store.Create(ctx, name)
		assert.ErrorIs(t, err, geostore.ErrInvalidArgument, name)
	}
}

func TestLocalStore_FailedPutLeavesNoBlob(t *testing.T) {
	tmpDir := t.TempDir()
	faulty := fs.NewFaultyFS(fs.LocalFS{})
	faulty.AddRule(".tmp", fs.Fault{Err: errors.New("disk full")})
	store := NewLocalStore(tmpDir, WithFileSystem(faulty))
	ctx := context.Background()

	err := store.Put(ctx, "segment.bin", []byte("payload"))
	require.Error(t, err)

	names, err := NewLocalStore(tmpDir).List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
