// Package rtree implements a static packed Hilbert R-tree.
//
// Items are sorted by the Hilbert index of their box centers and packed
// bottom-up into nodes of nodeSize children. The tree is stored as a flat
// array of 40-byte nodes (minX, minY, maxX, maxY as float64 and an int64
// offset, little-endian) with the root first and the leaves last:
//
//	[root][level n-1 ...][... leaves]
//
// A leaf's offset is the value supplied with its item (typically the byte
// offset of a feature). An interior node's offset is the storage index of its
// first child.
//
// The layout matches the FlatGeobuf spatial index, so a serialized tree can be
// searched in place (SearchBuffer) or from a forward-only reader
// (SearchStream) without building the tree in memory.
package rtree
