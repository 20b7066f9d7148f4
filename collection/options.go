package collection

import (
	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/memory"
)

const (
	// DefaultLoadFactor is the hash map load factor used when none is configured.
	DefaultLoadFactor = 0.75
	// DefaultInitialCapacity is the initial number of hash map slots.
	DefaultInitialCapacity = 1 << 10
	// DefaultBlockSize is the number of keys per sparse map block.
	DefaultBlockSize = 1 << 8
)

type options struct {
	logger          *geostore.Logger
	factory         memory.Factory
	loadFactor      float64
	initialCapacity int64
	blockSize       int
}

// Option configures a collection.
type Option func(*options)

// WithLogger sets the logger for resize and lifecycle events.
func WithLogger(l *geostore.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMemoryFactory sets the factory maps use to create their regions.
// The default creates heap regions.
func WithMemoryFactory(f memory.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithLoadFactor sets the hash map load factor. It must be in (0, 1).
func WithLoadFactor(lf float64) Option {
	return func(o *options) {
		o.loadFactor = lf
	}
}

// WithInitialCapacity sets the initial number of hash map slots.
// It is rounded up to a power of two.
func WithInitialCapacity(n int64) Option {
	return func(o *options) {
		o.initialCapacity = n
	}
}

// WithBlockSize sets the number of keys per sparse map block (a power of two).
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.blockSize = n
	}
}

func resolveOptions(optFns []Option) options {
	o := options{
		logger:          geostore.NoopLogger(),
		factory:         memory.HeapFactory(),
		loadFactor:      DefaultLoadFactor,
		initialCapacity: DefaultInitialCapacity,
		blockSize:       DefaultBlockSize,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
