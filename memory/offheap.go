package memory

import (
	"errors"
	"fmt"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/mmap"
	"github.com/hupe1980/geostore/resource"
)

// OffHeapMemory stores segments in anonymous mappings that the garbage
// collector never scans. Mappings are released on Clear and Close.
type OffHeapMemory struct {
	*region
	b *offHeapBackend
}

var _ Memory = (*OffHeapMemory)(nil)

// NewOffHeap creates an empty off-heap region. With WithController every
// segment is charged against the controller's memory budget.
func NewOffHeap(optFns ...Option) (*OffHeapMemory, error) {
	o := resolveOptions(optFns)
	b := &offHeapBackend{controller: o.controller, hint: o.access}
	r, err := newRegion(b, o)
	if err != nil {
		return nil, err
	}
	return &OffHeapMemory{region: r, b: b}, nil
}

type offHeapBackend struct {
	controller *resource.Controller
	hint       AccessHint
	mappings   []*mmap.Mapping
	reserved   int64
}

func (b *offHeapBackend) kind() string { return "off-heap" }

func (b *offHeapBackend) mapAnon(size int) ([]byte, error) {
	if err := b.controller.Reserve(int64(size)); err != nil {
		return nil, fmt.Errorf("%w: %w", geostore.ErrCapacityExceeded, err)
	}
	m, err := mmap.MapAnon(size)
	if err == nil {
		if err = advise(m, b.hint); err != nil {
			err = errors.Join(err, m.Close())
		}
	}
	if err != nil {
		b.controller.Release(int64(size))
		return nil, err
	}
	b.reserved += int64(size)
	b.mappings = append(b.mappings, m)
	return m.Bytes(), nil
}

func (b *offHeapBackend) allocHeader(size int) ([]byte, error) {
	return b.mapAnon(size)
}

func (b *offHeapBackend) allocSegment(_, size int) ([]byte, error) {
	return b.mapAnon(size)
}

func (b *offHeapBackend) sync() error { return nil }

func (b *offHeapBackend) clear() error {
	var errs []error
	for _, m := range b.mappings {
		errs = append(errs, m.Close())
	}
	b.mappings = nil
	b.controller.Release(b.reserved)
	b.reserved = 0
	return errors.Join(errs...)
}

func (b *offHeapBackend) close() error {
	return b.clear()
}

// Reserved returns the bytes currently mapped by the region, header included.
func (m *OffHeapMemory) Reserved() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.b.reserved
}
