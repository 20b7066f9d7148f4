package geostore

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is a *slog.Logger with helpers for the events emitted by regions,
// maps and archives. Field names are shared across packages so that records
// from different components can be correlated.
type Logger struct {
	*slog.Logger
}

// NewLogger returns a Logger writing to handler. A nil handler logs text at
// info level to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger returns a Logger that drops every record.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1 << 10),
	}))}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithComponent tags records with the emitting component.
func (l *Logger) WithComponent(name string) *Logger { return l.with("component", name) }

// WithPath tags records with a file or directory path.
func (l *Logger) WithPath(path string) *Logger { return l.with("path", path) }

// WithSegment tags records with a segment index.
func (l *Logger) WithSegment(index int) *Logger { return l.with("segment", index) }

// LogSegmentAllocated records the allocation of segment index.
func (l *Logger) LogSegmentAllocated(ctx context.Context, kind string, index, size int, err error) {
	sl := l.WithSegment(index)
	if err != nil {
		sl.ErrorContext(ctx, "segment allocation failed", "kind", kind, "size", size, "error", err)
		return
	}
	sl.DebugContext(ctx, "segment allocated", "kind", kind, "size", size)
}

// LogResize records a hash map growing from oldCapacity to newCapacity slots.
func (l *Logger) LogResize(ctx context.Context, oldCapacity, newCapacity, size int64, err error) {
	attrs := []any{"old_capacity", oldCapacity, "new_capacity", newCapacity, "size", size}
	if err != nil {
		l.ErrorContext(ctx, "resize failed", append(attrs, "error", err)...)
		return
	}
	l.InfoContext(ctx, "resize completed", attrs...)
}

// LogExport records the outcome of an archive export.
func (l *Logger) LogExport(ctx context.Context, name string, segments int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed", "name", name, "segments", segments, "error", err)
		return
	}
	l.InfoContext(ctx, "export completed", "name", name, "segments", segments, "bytes", bytes)
}

// LogImport records the outcome of an archive import.
func (l *Logger) LogImport(ctx context.Context, name string, segments int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "import failed", "name", name, "segments", segments, "error", err)
		return
	}
	l.InfoContext(ctx, "import completed", "name", name, "segments", segments)
}

// LogClose records a failed release. Successful closes are silent.
func (l *Logger) LogClose(ctx context.Context, what string, err error) {
	if err != nil {
		l.WarnContext(ctx, "close failed", "resource", what, "error", err)
	}
}
