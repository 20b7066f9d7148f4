package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/geostore/internal/fs"
	"github.com/hupe1980/geostore/internal/mmap"
)

// MappedFileMemory maps a single file as [header][segment 0][segment 1]...
// The header area is rounded up to the page size so segment windows start on
// page boundaries when the segment size allows it.
//
// Reopening an existing file with the same geometry maps its segments again,
// so data written by one process is visible to the next.
type MappedFileMemory struct {
	*region
	b *fileBackend
}

var _ Memory = (*MappedFileMemory)(nil)

// NewMappedFile opens or creates the file at path.
func NewMappedFile(path string, optFns ...Option) (*MappedFileMemory, error) {
	o := resolveOptions(optFns)
	b := &fileBackend{path: path, fsys: o.fs, hint: o.access}
	r, err := newRegion(b, o)
	if err != nil {
		return nil, err
	}
	r.logger = r.logger.WithPath(path)
	b.headerSpan = roundUp(int64(o.headerSize), int64(mmap.PageSize()))

	if err := o.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mapped file memory: %w", err)
	}
	if err := b.open(); err != nil {
		return nil, err
	}

	m := &MappedFileMemory{region: r, b: b}
	info, err := b.file.Stat()
	if err != nil {
		_ = b.close()
		return nil, fmt.Errorf("mapped file memory: %w", err)
	}
	if existing := (info.Size() - b.headerSpan) >> r.shift; existing > 0 {
		if err := r.restore(int(existing)); err != nil {
			_ = b.close()
			return nil, err
		}
		r.logger.DebugContext(context.Background(), "mapped file reopened", "segments", existing)
	}
	return m, nil
}

// Path returns the backing file path.
func (m *MappedFileMemory) Path() string {
	return m.b.path
}

type fileBackend struct {
	path       string
	fsys       fs.FileSystem
	file       fs.File
	headerSpan int64
	hint       AccessHint
	mappings   []*mmap.Mapping
}

func (b *fileBackend) kind() string { return "mapped-file" }

func (b *fileBackend) open() error {
	f, err := b.fsys.OpenFile(b.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("mapped file memory: %w", err)
	}
	b.file = f
	return nil
}

// ensureLength grows the file to at least n bytes.
func (b *fileBackend) ensureLength(n int64) error {
	info, err := b.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() >= n {
		return nil
	}
	return b.file.Truncate(n)
}

func (b *fileBackend) mapWindow(offset int64, size int) ([]byte, error) {
	if err := b.ensureLength(offset + int64(size)); err != nil {
		return nil, err
	}
	m, err := mmap.MapFile(b.file, offset, size, true)
	if err != nil {
		return nil, err
	}
	if err := advise(m, b.hint); err != nil {
		return nil, errors.Join(err, m.Close())
	}
	b.mappings = append(b.mappings, m)
	return m.Bytes(), nil
}

func (b *fileBackend) allocHeader(size int) ([]byte, error) {
	return b.mapWindow(0, size)
}

func (b *fileBackend) allocSegment(index, size int) ([]byte, error) {
	return b.mapWindow(b.headerSpan+int64(index)*int64(size), size)
}

func (b *fileBackend) sync() error {
	return syncAll(b.mappings)
}

func (b *fileBackend) unmap() error {
	err := unmapAll(b.mappings)
	b.mappings = nil
	return err
}

func (b *fileBackend) clear() error {
	err := b.unmap()
	if b.file == nil {
		return err
	}
	return errors.Join(err, b.file.Truncate(0))
}

func (b *fileBackend) close() error {
	err := b.unmap()
	if b.file != nil {
		err = errors.Join(err, b.file.Close())
		b.file = nil
	}
	return err
}

func roundUp(n, multiple int64) int64 {
	return (n + multiple - 1) / multiple * multiple
}

func advise(m *mmap.Mapping, h AccessHint) error {
	if h == AccessDefault {
		return nil
	}
	return m.Advise(h.pattern())
}

// syncAll flushes mappings concurrently.
func syncAll(mappings []*mmap.Mapping) error {
	var g errgroup.Group
	g.SetLimit(8)
	for _, m := range mappings {
		g.Go(m.Sync)
	}
	return g.Wait()
}

func unmapAll(mappings []*mmap.Mapping) error {
	var errs []error
	for _, m := range mappings {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
