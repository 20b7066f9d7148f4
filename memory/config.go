package memory

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/resource"
)

// Kind names a Memory realization.
type Kind string

const (
	KindHeap      Kind = "heap"
	KindOffHeap   Kind = "offheap"
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Config describes a region so that layers which only know a path or an
// environment can open one.
type Config struct {
	Kind        Kind
	Path        string
	SegmentSize int
	HeaderSize  int
	MaxSegments int
	Controller  *resource.Controller
	Logger      *geostore.Logger
}

func (c Config) options() []Option {
	var opts []Option
	if c.SegmentSize > 0 {
		opts = append(opts, WithSegmentSize(c.SegmentSize))
	}
	if c.HeaderSize > 0 {
		opts = append(opts, WithHeaderSize(c.HeaderSize))
	}
	if c.MaxSegments > 0 {
		opts = append(opts, WithMaxSegments(c.MaxSegments))
	}
	if c.Controller != nil {
		opts = append(opts, WithController(c.Controller))
	}
	if c.Logger != nil {
		opts = append(opts, WithLogger(c.Logger))
	}
	return opts
}

// Open creates the region described by cfg. Unset sizes take the defaults.
func Open(cfg Config, optFns ...Option) (Memory, error) {
	opts := append(cfg.options(), optFns...)
	switch cfg.Kind {
	case KindHeap, "":
		return NewHeap(opts...)
	case KindOffHeap:
		return NewOffHeap(opts...)
	case KindFile:
		if cfg.Path == "" {
			return nil, geostore.NewArgumentError("path", cfg.Path, "required for file memory")
		}
		return NewMappedFile(cfg.Path, opts...)
	case KindDirectory:
		if cfg.Path == "" {
			return nil, geostore.NewArgumentError("path", cfg.Path, "required for directory memory")
		}
		return NewMappedDirectory(cfg.Path, opts...)
	default:
		return nil, geostore.NewArgumentError("kind", cfg.Kind, "unknown memory kind")
	}
}

// ConfigFromEnv reads <PREFIX>_KIND, <PREFIX>_PATH, <PREFIX>_SEGMENT_SIZE and
// <PREFIX>_HEADER_SIZE. Unset variables leave the zero value.
func ConfigFromEnv(prefix string) (Config, error) {
	prefix = strings.ToUpper(strings.TrimSuffix(prefix, "_"))
	cfg := Config{}
	if env := os.Getenv(prefix + "_KIND"); env != "" {
		cfg.Kind = Kind(strings.ToLower(env))
	}
	if env := os.Getenv(prefix + "_PATH"); env != "" {
		cfg.Path = env
	}
	if env := os.Getenv(prefix + "_SEGMENT_SIZE"); env != "" {
		val, err := strconv.Atoi(env)
		if err != nil {
			return Config{}, fmt.Errorf("%s_SEGMENT_SIZE: %w", prefix, geostore.NewArgumentError("segment size", env, err.Error()))
		}
		cfg.SegmentSize = val
	}
	if env := os.Getenv(prefix + "_HEADER_SIZE"); env != "" {
		val, err := strconv.Atoi(env)
		if err != nil {
			return Config{}, fmt.Errorf("%s_HEADER_SIZE: %w", prefix, geostore.NewArgumentError("header size", env, err.Error()))
		}
		cfg.HeaderSize = val
	}
	return cfg, nil
}
