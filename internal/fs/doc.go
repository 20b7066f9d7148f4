// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/sync/truncate and a descriptor for mmap
//   - [FileSystem]: filesystem operations (open, remove, rename, etc.)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects I/O errors
//
// # Usage
//
// Mapped memories default to fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
//
// Tests inject [FaultyFS] to simulate a full disk while a region grows:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("segment-", fs.Fault{FailAfterBytes: -1, FailOnTruncate: true})
//	m, err := memory.NewMappedDirectory(dir, memory.WithFileSystem(ffs))
//
// Filesystem operations take no context.Context. They are short syscalls that
// cannot be interrupted; slow remote storage goes through blobstore instead.
package fs
