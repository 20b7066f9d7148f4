package rtree

import "github.com/hupe1980/geostore"

type options struct {
	logger    *geostore.Logger
	presorted bool
}

// Option configures Build.
type Option func(*options)

// WithLogger sets the logger for build events.
func WithLogger(l *geostore.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPresorted keeps items in the given order instead of sorting them by
// Hilbert index, for callers that already wrote their features in that order.
func WithPresorted() Option {
	return func(o *options) {
		o.presorted = true
	}
}
