package rtree

import (
	"math"
	"slices"
)

// HilbertMax is the largest coordinate on each axis of the Hilbert grid.
const HilbertMax = 1<<16 - 1

// Hilbert returns the index of (x, y) on a 16-bit Hilbert curve. Only the low
// 16 bits of each coordinate are used.
func Hilbert(x, y uint32) uint32 {
	x &= 0xFFFF
	y &= 0xFFFF

	a := x ^ y
	b := 0xFFFF ^ a
	c := 0xFFFF ^ (x | y)
	d := x & (y ^ 0xFFFF)

	A := a | (b >> 1)
	B := (a >> 1) ^ a
	C := ((c >> 1) ^ (b & (d >> 1))) ^ c
	D := ((a & (c >> 1)) ^ (d >> 1)) ^ d

	a, b, c, d = A, B, C, D
	A = (a & (a >> 2)) ^ (b & (b >> 2))
	B = (a & (b >> 2)) ^ (b & ((a ^ b) >> 2))
	C ^= (a & (c >> 2)) ^ (b & (d >> 2))
	D ^= (b & (c >> 2)) ^ ((a ^ b) & (d >> 2))

	a, b, c, d = A, B, C, D
	A = (a & (a >> 4)) ^ (b & (b >> 4))
	B = (a & (b >> 4)) ^ (b & ((a ^ b) >> 4))
	C ^= (a & (c >> 4)) ^ (b & (d >> 4))
	D ^= (b & (c >> 4)) ^ ((a ^ b) & (d >> 4))

	a, b, c, d = A, B, C, D
	C ^= (a & (c >> 8)) ^ (b & (d >> 8))
	D ^= (b & (c >> 8)) ^ ((a ^ b) & (d >> 8))

	a = C ^ (C >> 1)
	b = D ^ (D >> 1)

	i0 := x ^ y
	i1 := b | (0xFFFF ^ (i0 | a))

	return interleave(i1)<<1 | interleave(i0)
}

// interleave spreads the low 16 bits of v to the even bit positions.
func interleave(v uint32) uint32 {
	v = (v | (v << 8)) & 0x00FF00FF
	v = (v | (v << 4)) & 0x0F0F0F0F
	v = (v | (v << 2)) & 0x33333333
	v = (v | (v << 1)) & 0x55555555
	return v
}

// HilbertIndex maps the center of b onto the Hilbert grid spanning extent.
// An axis along which extent has no width maps to 0.
func HilbertIndex(b, extent Box) uint32 {
	cx, cy := b.Center()
	return Hilbert(gridCoord(cx, extent.MinX, extent.Width()), gridCoord(cy, extent.MinY, extent.Height()))
}

func gridCoord(v, lo, span float64) uint32 {
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return 0
	}
	g := math.Floor(HilbertMax * (v - lo) / span)
	switch {
	case g <= 0 || math.IsNaN(g):
		return 0
	case g >= HilbertMax:
		return HilbertMax
	default:
		return uint32(g)
	}
}

// HilbertSort returns the permutation that orders items by the Hilbert index
// of their centers within extent: order[i] is the index in items of the i-th
// item in Hilbert order. Items with equal indexes keep their relative order.
// items is not modified.
func HilbertSort(items []Item, extent Box) []int {
	keys := make([]uint32, len(items))
	order := make([]int, len(items))
	for i := range items {
		keys[i] = HilbertIndex(items[i].Box, extent)
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case keys[a] < keys[b]:
			return -1
		case keys[a] > keys[b]:
			return 1
		default:
			return 0
		}
	})
	return order
}
