package archive

import (
	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/resource"
)

type options struct {
	compression Compression
	controller  *resource.Controller
	logger      *geostore.Logger
	name        string
	readAhead   int
}

// Option configures an export, import or search.
type Option func(*options)

// WithCompression selects the block codec for exports. Imports read the codec
// from the archive.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithController bounds parallelism and IO throughput.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithLogger sets the logger for export and import events.
func WithLogger(l *geostore.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithReadAhead sets how many bytes SearchBlob fetches per ranged read.
func WithReadAhead(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readAhead = n
		}
	}
}

func withName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func resolveOptions(optFns []Option) options {
	o := options{
		compression: CompressionZSTD,
		logger:      geostore.NoopLogger(),
		readAhead:   64 << 10,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	o.logger = o.logger.WithComponent("archive")
	return o
}
