package geostore

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when a read or write addresses bytes, indices or
	// positions outside the allocated or written region.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrClosed is returned when operating on a closed region or collection.
	ErrClosed = errors.New("closed")

	// ErrInvalidArgument is returned for invalid construction parameters or keys.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotMonotonic is returned when a monotonic map receives a key smaller than
	// the last key written.
	ErrNotMonotonic = errors.New("key is not monotonic")

	// ErrCapacityExceeded is returned when a value cannot fit in a segment or a
	// region reached its configured segment limit.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrCorrupted is returned when persisted bytes cannot be decoded.
	ErrCorrupted = errors.New("corrupted data")

	// ErrNotFound is returned when a named resource does not exist.
	ErrNotFound = errors.New("not found")
)

// BoundsError describes an access outside of a region.
//
// It matches ErrOutOfBounds with errors.Is.
type BoundsError struct {
	Op     string
	Offset int64
	Length int64
	Limit  int64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s: offset %d length %d exceeds limit %d", e.Op, e.Offset, e.Length, e.Limit)
}

func (e *BoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// NewBoundsError returns a *BoundsError for the given access.
func NewBoundsError(op string, offset, length, limit int64) error {
	return &BoundsError{Op: op, Offset: offset, Length: length, Limit: limit}
}

// ArgumentError describes a rejected parameter.
//
// It matches ErrInvalidArgument with errors.Is.
type ArgumentError struct {
	Name   string
	Value  any
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Name, e.Value, e.Reason)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// NewArgumentError returns an *ArgumentError.
func NewArgumentError(name string, value any, reason string) error {
	return &ArgumentError{Name: name, Value: value, Reason: reason}
}
