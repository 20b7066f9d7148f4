// Package memory provides segment-addressed byte regions.
//
// A Memory is an ordered sequence of fixed-size segments addressed by a 64-bit
// offset. The segment size is a power of two, so an offset splits into a segment
// index (offset >> shift) and a position inside it (offset & mask). Segments are
// allocated lazily on first use and never move once allocated: a slice returned
// by Segment stays valid until the region is cleared or closed.
//
// Every region also owns a small fixed-size header used by collections for their
// own bookkeeping (entry counts, write offsets).
//
// # Realizations
//
//   - HeapMemory: segments are ordinary Go byte slices
//   - OffHeapMemory: anonymous mappings outside the garbage collector, optionally
//     budgeted by a resource.Controller
//   - MappedFileMemory: a single file, [header][segment 0][segment 1]...
//   - MappedDirectoryMemory: a directory with a header file and one file per
//     segment, named segment-00000000.bin, segment-00000001.bin, ...
//
// Mapped realizations extend their backing files while allocating, so disk-full
// and permission errors surface from Segment, Allocate or WriteAt and never
// later from a read.
//
// # Concurrency
//
// Allocation is serialized internally. Reads and writes of already allocated
// segments are not synchronized; callers keep one writer per region.
package memory
