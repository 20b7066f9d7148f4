// Package conv provides safe integer type conversion utilities and power-of-two
// arithmetic used for segment addressing.
//
// These functions perform bounds checking to prevent integer overflow/underflow
// when converting between signed/unsigned and different bit-width integer types.
//
// Use cases:
//   - Validating untrusted data from disk (archive headers, lengths, counts)
//   - Converting 64-bit region offsets into slice indices
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead to avoid overhead.
package conv
