// Package cache provides a byte-budgeted LRU for immutable blob blocks.
//
// Remote R-tree searches read the same upper index levels on every query. The
// block cache keeps those ranges in RAM, charged against the shared resource
// controller so cached blocks and off-heap segments draw from one budget.
package cache
