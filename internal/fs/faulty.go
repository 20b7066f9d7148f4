package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is returned by injected faults that carry no error of their own.
var ErrInjected = errors.New("injected fault error")

// Fault describes how operations on matching files fail.
type Fault struct {
	// FailAfterBytes fails writes that would take the file past this many
	// bytes. Negative disables the check.
	FailAfterBytes int64
	FailOnOpen     bool
	FailOnTruncate bool
	FailOnSync     bool
	FailOnClose    bool
	// Err replaces ErrInjected.
	Err error
}

func (f Fault) cause() error {
	if f.Err == nil {
		return ErrInjected
	}
	return f.Err
}

type rule struct {
	pattern string
	fault   Fault
}

// FaultyFS wraps a FileSystem and fails selected operations. Files match a
// rule when their name contains its pattern; the most recently added match
// wins. Operations without a fault hook pass straight through.
type FaultyFS struct {
	FileSystem

	mu      sync.Mutex
	rules   []rule
	written int64
	limit   int64
}

// NewFaultyFS wraps fsys, or Default when fsys is nil.
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{FileSystem: fsys, limit: -1}
}

// AddRule fails operations on files whose name contains pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	f.rules = append(f.rules, rule{pattern: pattern, fault: fault})
	f.mu.Unlock()
}

// SetLimit fails every write once the bytes written through f would exceed
// limit. Negative removes the limit.
func (f *FaultyFS) SetLimit(limit int64) {
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
}

// Written returns the bytes written through f so far.
func (f *FaultyFS) Written() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

func (f *FaultyFS) lookup(name string) Fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rules) - 1; i >= 0; i-- {
		if strings.Contains(name, f.rules[i].pattern) {
			return f.rules[i].fault
		}
	}
	return Fault{FailAfterBytes: -1}
}

// charge accounts n bytes against the global limit.
func (f *FaultyFS) charge(n int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limit >= 0 && f.written+n > f.limit {
		return false
	}
	f.written += n
	return true
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault := f.lookup(name)
	if fault.FailOnOpen {
		return nil, &os.PathError{Op: "open", Path: name, Err: fault.cause()}
	}
	file, err := f.FileSystem.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, owner: f, fault: fault}, nil
}

func (f *FaultyFS) Truncate(name string, size int64) error {
	if fault := f.lookup(name); fault.FailOnTruncate {
		return &os.PathError{Op: "truncate", Path: name, Err: fault.cause()}
	}
	return f.FileSystem.Truncate(name, size)
}

type faultyFile struct {
	File
	owner   *FaultyFS
	fault   Fault
	written int64
}

func (ff *faultyFile) admit(n int) error {
	over := ff.fault.FailAfterBytes >= 0 && ff.written+int64(n) > ff.fault.FailAfterBytes
	if over || !ff.owner.charge(int64(n)) {
		return ff.fault.cause()
	}
	return nil
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if err := ff.admit(len(p)); err != nil {
		return 0, err
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) WriteAt(p []byte, off int64) (int, error) {
	if err := ff.admit(len(p)); err != nil {
		return 0, err
	}
	n, err := ff.File.WriteAt(p, off)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Truncate(size int64) error {
	if ff.fault.FailOnTruncate {
		return ff.fault.cause()
	}
	return ff.File.Truncate(size)
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.cause()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	err := ff.File.Close()
	if ff.fault.FailOnClose {
		return ff.fault.cause()
	}
	return err
}
