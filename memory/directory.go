package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/geostore/internal/fs"
	"github.com/hupe1980/geostore/internal/mmap"
)

const (
	headerFileName = "header"
	segmentPrefix  = "segment-"
	segmentSuffix  = ".bin"
)

// SegmentFileName returns the file name of segment index inside a mapped directory.
func SegmentFileName(index int) string {
	return fmt.Sprintf("%s%08d%s", segmentPrefix, index, segmentSuffix)
}

// ParseSegmentFileName returns the segment index encoded in name.
func ParseSegmentFileName(name string) (int, bool) {
	if !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentSuffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, segmentPrefix), segmentSuffix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// MappedDirectoryMemory stores the header and every segment in its own file
// inside one directory. Each file is capped at the segment size, and the
// segment index is derived from the file name alone.
type MappedDirectoryMemory struct {
	*region
	b *dirBackend
}

var _ Memory = (*MappedDirectoryMemory)(nil)

// NewMappedDirectory opens or creates a mapped directory region at dir.
// Existing segment files are mapped again.
func NewMappedDirectory(dir string, optFns ...Option) (*MappedDirectoryMemory, error) {
	o := resolveOptions(optFns)
	b := &dirBackend{dir: dir, fsys: o.fs, hint: o.access}
	r, err := newRegion(b, o)
	if err != nil {
		return nil, err
	}
	r.logger = r.logger.WithPath(dir)
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mapped directory memory: %w", err)
	}

	entries, err := o.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("mapped directory memory: %w", err)
	}
	existing := 0
	for _, e := range entries {
		if idx, ok := ParseSegmentFileName(e.Name()); ok && idx+1 > existing {
			existing = idx + 1
		}
	}
	if existing > 0 {
		if err := r.restore(existing); err != nil {
			_ = b.close()
			return nil, err
		}
		r.logger.DebugContext(context.Background(), "mapped directory reopened", "segments", existing)
	}
	return &MappedDirectoryMemory{region: r, b: b}, nil
}

// Dir returns the backing directory.
func (m *MappedDirectoryMemory) Dir() string {
	return m.b.dir
}

type dirBackend struct {
	dir      string
	fsys     fs.FileSystem
	hint     AccessHint
	mappings []*mmap.Mapping
}

func (b *dirBackend) kind() string { return "mapped-directory" }

// mapFile maps the first size bytes of name, creating or extending the file.
// The descriptor is closed right away; the mapping keeps the pages alive.
func (b *dirBackend) mapFile(name string, size int) (_ []byte, err error) {
	f, err := b.fsys.OpenFile(filepath.Join(b.dir, name), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, err
		}
	}
	m, err := mmap.MapFile(f, 0, size, true)
	if err != nil {
		return nil, err
	}
	if err := advise(m, b.hint); err != nil {
		return nil, errors.Join(err, m.Close())
	}
	b.mappings = append(b.mappings, m)
	return m.Bytes(), nil
}

func (b *dirBackend) allocHeader(size int) ([]byte, error) {
	return b.mapFile(headerFileName, size)
}

func (b *dirBackend) allocSegment(index, size int) ([]byte, error) {
	return b.mapFile(SegmentFileName(index), size)
}

func (b *dirBackend) sync() error {
	return syncAll(b.mappings)
}

func (b *dirBackend) clear() error {
	err := unmapAll(b.mappings)
	b.mappings = nil
	if rmErr := b.fsys.RemoveAll(b.dir); rmErr != nil {
		return errors.Join(err, rmErr)
	}
	return errors.Join(err, b.fsys.MkdirAll(b.dir, 0o755))
}

func (b *dirBackend) close() error {
	err := unmapAll(b.mappings)
	b.mappings = nil
	return err
}

// DirectoryFactory returns a Factory that creates mapped directory regions in
// numbered sub-directories of root (000000, 000001, ...).
func DirectoryFactory(root string, optFns ...Option) Factory {
	var next atomic.Int64
	return func() (Memory, error) {
		n := next.Add(1) - 1
		return NewMappedDirectory(filepath.Join(root, fmt.Sprintf("%06d", n)), optFns...)
	}
}
