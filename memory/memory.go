package memory

import (
	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/fs"
	"github.com/hupe1980/geostore/internal/mmap"
	"github.com/hupe1980/geostore/resource"
)

const (
	// DefaultSegmentSize is the segment size used when none is configured (1 MiB).
	DefaultSegmentSize = 1 << 20
	// DefaultHeaderSize is the header size used when none is configured (1 KiB).
	DefaultHeaderSize = 1 << 10
)

// Memory is a resizable, segment-addressable byte region.
type Memory interface {
	// HeaderSize returns the size of the header area in bytes.
	HeaderSize() int
	// SegmentSize returns the size of one segment in bytes (a power of two).
	SegmentSize() int
	// SegmentShift returns log2(SegmentSize()).
	SegmentShift() uint
	// SegmentMask returns SegmentSize()-1.
	SegmentMask() int64

	// Header returns the header area, creating it on first use.
	Header() ([]byte, error)
	// Segment returns segment index, allocating it and every segment before it.
	Segment(index int) ([]byte, error)
	// Allocate ensures the region can address minCapacity bytes.
	Allocate(minCapacity int64) error

	// ReadAt copies allocated bytes starting at off into p.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt copies p into the region at off, allocating as needed.
	WriteAt(p []byte, off int64) (int, error)

	// Size returns the allocated capacity in bytes.
	Size() int64
	// Segments returns the number of allocated segments.
	Segments() int

	// Sync flushes mapped segments and header to their files.
	Sync() error
	// Clear releases every segment and deletes backing files.
	// The region remains usable and starts over empty.
	Clear() error
	// Close releases all resources. It is idempotent.
	Close() error
}

// Factory creates fresh regions. Structures that rebuild themselves into new
// storage (hash map resize) take a Factory instead of a Memory.
type Factory func() (Memory, error)

type options struct {
	segmentSize int
	headerSize  int
	maxSegments int
	logger      *geostore.Logger
	controller  *resource.Controller
	fs          fs.FileSystem
	access      AccessHint
}

// Option configures a Memory.
type Option func(*options)

// WithSegmentSize sets the segment size. It must be a power of two.
func WithSegmentSize(size int) Option {
	return func(o *options) {
		o.segmentSize = size
	}
}

// WithHeaderSize sets the size of the header area.
func WithHeaderSize(size int) Option {
	return func(o *options) {
		o.headerSize = size
	}
}

// WithMaxSegments bounds how many segments the region may allocate.
// Allocation beyond the bound fails with geostore.ErrCapacityExceeded.
// Zero means unbounded.
func WithMaxSegments(n int) Option {
	return func(o *options) {
		o.maxSegments = n
	}
}

// WithLogger sets the logger for allocation and lifecycle events.
func WithLogger(l *geostore.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithController budgets off-heap segments against a resource controller.
// It is ignored by the other realizations.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithFileSystem sets the file system used by mapped realizations.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fs = fsys
		}
	}
}

// AccessHint describes how a region's mapped segments will be read.
type AccessHint int

const (
	AccessDefault AccessHint = iota
	// AccessSequential suits lists and logs that are scanned in order.
	AccessSequential
	// AccessRandom suits maps looked up by key.
	AccessRandom
)

func (h AccessHint) pattern() mmap.AccessPattern {
	switch h {
	case AccessSequential:
		return mmap.AccessSequential
	case AccessRandom:
		return mmap.AccessRandom
	default:
		return mmap.AccessDefault
	}
}

// WithAccessHint passes h to madvise for every segment the region maps.
// Heap regions ignore it.
func WithAccessHint(h AccessHint) Option {
	return func(o *options) {
		o.access = h
	}
}

func resolveOptions(optFns []Option) options {
	o := options{
		segmentSize: DefaultSegmentSize,
		headerSize:  DefaultHeaderSize,
		logger:      geostore.NoopLogger(),
		fs:          fs.Default,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// HeapFactory returns a Factory creating heap regions.
func HeapFactory(optFns ...Option) Factory {
	return func() (Memory, error) {
		return NewHeap(optFns...)
	}
}

// OffHeapFactory returns a Factory creating off-heap regions.
func OffHeapFactory(optFns ...Option) Factory {
	return func() (Memory, error) {
		return NewOffHeap(optFns...)
	}
}
