package rtree

import "math"

// Box is an axis-aligned bounding rectangle.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyBox returns a box that any Expand replaces.
func EmptyBox() Box {
	return Box{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// IsEmpty reports whether b contains no point.
func (b Box) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Expand returns the union of b and o.
func (b Box) Expand(o Box) Box {
	return Box{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Intersects reports whether b and o overlap. Touching edges overlap.
func (b Box) Intersects(o Box) bool {
	return !(o.MaxX < b.MinX || o.MaxY < b.MinY || o.MinX > b.MaxX || o.MinY > b.MaxY)
}

func (b Box) Width() float64  { return b.MaxX - b.MinX }
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of b.
func (b Box) Center() (x, y float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Item is a box to index together with a caller-defined offset.
type Item struct {
	Box    Box
	Offset int64
}

// Hit is a search result.
type Hit struct {
	// Index identifies the matched item. PackedRTree.Search reports the
	// item's position in the slice passed to Build; SearchBuffer and
	// SearchStream report its position in Hilbert order.
	Index int64
	// Offset is the offset stored with the item.
	Offset int64
}
