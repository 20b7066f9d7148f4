package mmap

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Mapping owns a range of mapped pages and unmaps them on Close.
type Mapping struct {
	base   []byte // page-aligned region returned by the kernel
	data   []byte // caller window inside base
	file   bool
	write  bool
	closed atomic.Bool
}

// PageSize returns the system page size.
func PageSize() int { return pageSize() }

// Open maps the whole file at path read-only. An empty file yields an empty
// Mapping.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	switch size := info.Size(); {
	case size == 0:
		return &Mapping{}, nil
	case int64(int(size)) != size:
		return nil, ErrInvalidSize
	default:
		return MapFile(f, 0, int(size), false)
	}
}

// MapFile maps size bytes of f starting at offset, which need not be
// page-aligned. The file must already cover offset+size. f may be closed
// after MapFile returns.
func MapFile(f Descriptor, offset int64, size int, writable bool) (*Mapping, error) {
	if offset < 0 {
		return nil, ErrInvalidOffset
	}
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	page := int64(pageSize())
	start := offset &^ (page - 1)
	skew := int(offset - start)

	base, err := osMap(f.Fd(), start, size+skew, writable)
	if err != nil {
		return nil, fmt.Errorf("mmap: map %d bytes at %d: %w", size, offset, err)
	}
	return &Mapping{base: base, data: base[skew : skew+size : skew+size], file: true, write: writable}, nil
}

// MapAnon returns size bytes of zeroed, private memory outside the Go heap.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	base, err := osMapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("mmap: anonymous map %d bytes: %w", size, err)
	}
	return &Mapping{base: base, data: base, write: true}, nil
}

// Close unmaps the pages. Further calls return nil.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) || m.base == nil {
		return nil
	}
	return osUnmap(m.base)
}

// Bytes returns the mapped window, or nil once closed. The slice must not be
// used after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the window length.
func (m *Mapping) Size() int { return len(m.data) }

// Sync writes dirty pages of a writable file mapping back to the file.
func (m *Mapping) Sync() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.file || !m.write {
		return nil
	}
	return osSync(m.base)
}

// Advise passes an access pattern to the kernel.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return osAdvise(m.base, pattern)
}
