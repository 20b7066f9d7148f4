package memory

// HeapMemory stores segments in ordinary Go byte slices.
type HeapMemory struct {
	*region
}

var _ Memory = (*HeapMemory)(nil)

// NewHeap creates an empty heap region.
func NewHeap(optFns ...Option) (*HeapMemory, error) {
	o := resolveOptions(optFns)
	r, err := newRegion(heapBackend{}, o)
	if err != nil {
		return nil, err
	}
	return &HeapMemory{region: r}, nil
}

type heapBackend struct{}

func (heapBackend) kind() string { return "heap" }

func (heapBackend) allocHeader(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (heapBackend) allocSegment(_, size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (heapBackend) sync() error  { return nil }
func (heapBackend) clear() error { return nil }
func (heapBackend) close() error { return nil }
