package mmap

import "errors"

// AccessPattern is passed to madvise.
type AccessPattern int

const (
	AccessDefault AccessPattern = iota
	AccessSequential
	AccessRandom
)

var (
	// ErrClosed is returned by operations on an unmapped Mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for non-positive lengths and files larger
	// than the address space.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned for negative file offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)

// Descriptor is a file with a kernel descriptor, such as *os.File.
type Descriptor interface {
	Fd() uintptr
}
