// Package mmap provides memory-mapped file access and anonymous mappings.
//
// # Overview
//
// Memory mapping lets geostore address regions far larger than the Go heap.
// File mappings back the mapped-file and mapped-directory memories; anonymous
// mappings back off-heap memory, which lives outside the garbage collector.
//
// # Usage
//
//	// Read-only view of a whole file
//	m, err := mmap.Open("index.bin")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
//	// Read-write window at an arbitrary offset (aligned internally)
//	w, err := mmap.MapFile(f, headerSize, segmentSize, true)
//
//	// Off-heap segment
//	a, err := mmap.MapAnon(1 << 20)
//
//	// Kernel hints and durability
//	w.Advise(mmap.AccessSequential)
//	w.Sync()
//
// # Platform Support
//
// Unix only (Linux, macOS, BSD), through golang.org/x/sys/unix.
//
// # Thread Safety
//
// A Mapping is safe for concurrent access. Close is idempotent and
// protected by an atomic flag; callers must not touch Bytes() after Close returns.
package mmap
