package rtree

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/geostore"
)

type node struct {
	box    Box
	offset int64
}

// PackedRTree is an immutable packed Hilbert R-tree. It is safe for
// concurrent use.
type PackedRTree struct {
	nodes    []node
	levels   []Level
	numItems int64
	nodeSize int
	// order maps leaf positions to the indexes passed to Build; nil means
	// identity.
	order []int
}

// Build sorts items by Hilbert index and bulk loads them into a tree with
// nodeSize children per node. nodeSize must be at least 2 and is clamped to
// MaxNodeSize.
func Build(items []Item, nodeSize int, optFns ...Option) (*PackedRTree, error) {
	o := options{logger: geostore.NoopLogger()}
	for _, fn := range optFns {
		fn(&o)
	}
	ns, err := checkGeometry(int64(len(items)), nodeSize)
	if err != nil {
		return nil, err
	}

	var order []int
	if !o.presorted {
		extent := EmptyBox()
		for i := range items {
			extent = extent.Expand(items[i].Box)
		}
		order = HilbertSort(items, extent)
	}

	numItems := int64(len(items))
	levels := levelBounds(numItems, int64(ns))
	t := &PackedRTree{
		nodes:    make([]node, levels[0].End),
		levels:   levels,
		numItems: numItems,
		nodeSize: ns,
		order:    order,
	}
	leaves := t.nodes[levels[0].Start:]
	for i := range leaves {
		item := items[t.itemIndex(int64(i))]
		leaves[i] = node{box: item.Box, offset: item.Offset}
	}
	t.generateNodes()

	o.logger.DebugContext(context.Background(), "rtree built",
		"items", numItems,
		"nodes", len(t.nodes),
		"node_size", ns,
		"levels", len(levels),
	)
	return t, nil
}

// generateNodes fills every interior level from the level below it.
func (t *PackedRTree) generateNodes() {
	ns := int64(t.nodeSize)
	for i := 0; i < len(t.levels)-1; i++ {
		pos, end := t.levels[i].Start, t.levels[i].End
		parent := t.levels[i+1].Start
		for pos < end {
			n := node{box: EmptyBox(), offset: pos}
			for j := int64(0); j < ns && pos < end; j++ {
				n.box = n.box.Expand(t.nodes[pos].box)
				pos++
			}
			t.nodes[parent] = n
			parent++
		}
	}
}

func (t *PackedRTree) itemIndex(leaf int64) int {
	if t.order == nil {
		return int(leaf)
	}
	return t.order[leaf]
}

// Search returns every item whose box intersects q. Hit.Index is the item's
// index in the slice passed to Build.
func (t *PackedRTree) Search(q Box) []Hit {
	var hits []Hit
	// Reads from memory cannot fail.
	_ = traverse(t.levels, t.nodeSize, q, func(i int64) (Box, int64, error) {
		return t.nodes[i].box, t.nodes[i].offset, nil
	}, func(leaf, offset int64) {
		hits = append(hits, Hit{Index: int64(t.itemIndex(leaf)), Offset: offset})
	})
	return hits
}

// Order returns a copy of the leaf permutation: Order()[i] is the index in
// the build input of the i-th leaf.
func (t *PackedRTree) Order() []int {
	out := make([]int, t.numItems)
	for i := range out {
		out[i] = t.itemIndex(int64(i))
	}
	return out
}

// Extent returns the bounding box of all items.
func (t *PackedRTree) Extent() Box { return t.nodes[0].box }

func (t *PackedRTree) NumItems() int64 { return t.numItems }
func (t *PackedRTree) NodeSize() int   { return t.nodeSize }
func (t *PackedRTree) NumNodes() int64 { return int64(len(t.nodes)) }

// Levels returns the node range of every level, leaves first.
func (t *PackedRTree) Levels() []Level {
	return append([]Level(nil), t.levels...)
}

// Size returns the serialized size in bytes.
func (t *PackedRTree) Size() int64 {
	return int64(len(t.nodes)) * NodeItemSize
}

func putNode(b []byte, n node) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(n.box.MinX))
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(n.box.MinY))
	binary.LittleEndian.PutUint64(b[16:], math.Float64bits(n.box.MaxX))
	binary.LittleEndian.PutUint64(b[24:], math.Float64bits(n.box.MaxY))
	binary.LittleEndian.PutUint64(b[32:], uint64(n.offset))
}

func readNode(b []byte) node {
	return node{
		box: Box{
			MinX: math.Float64frombits(binary.LittleEndian.Uint64(b)),
			MinY: math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
			MaxX: math.Float64frombits(binary.LittleEndian.Uint64(b[16:])),
			MaxY: math.Float64frombits(binary.LittleEndian.Uint64(b[24:])),
		},
		offset: int64(binary.LittleEndian.Uint64(b[32:])),
	}
}

// WriteTo writes the nodes in storage order. It implements io.WriterTo.
func (t *PackedRTree) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, 64*NodeItemSize)
	var buf [NodeItemSize]byte
	var written int64
	for _, n := range t.nodes {
		putNode(buf[:], n)
		k, err := bw.Write(buf[:])
		written += int64(k)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// MarshalBinary returns the serialized tree.
func (t *PackedRTree) MarshalBinary() ([]byte, error) {
	b := make([]byte, t.Size())
	for i, n := range t.nodes {
		putNode(b[i*NodeItemSize:], n)
	}
	return b, nil
}

// Decode reads a serialized tree over numItems items. The decoded tree
// reports leaf positions as Hit.Index since the build order is not stored.
func Decode(r io.Reader, numItems int64, nodeSize int) (*PackedRTree, error) {
	ns, err := checkGeometry(numItems, nodeSize)
	if err != nil {
		return nil, err
	}
	levels := levelBounds(numItems, int64(ns))
	t := &PackedRTree{
		nodes:    make([]node, levels[0].End),
		levels:   levels,
		numItems: numItems,
		nodeSize: ns,
	}
	// Read exactly the tree so r stays positioned at whatever follows it.
	const chunk = 1024
	buf := make([]byte, min(len(t.nodes), chunk)*NodeItemSize)
	for i := 0; i < len(t.nodes); {
		n := min(len(t.nodes)-i, chunk)
		b := buf[:n*NodeItemSize]
		if _, err := io.ReadFull(r, b); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: tree truncated near node %d of %d", geostore.ErrCorrupted, i, len(t.nodes))
			}
			return nil, err
		}
		for j := range n {
			t.nodes[i+j] = readNode(b[j*NodeItemSize:])
		}
		i += n
	}
	return t, nil
}
