package rtree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/queue"
)

// traverse walks the nodes intersecting q depth first and calls emit with the
// leaf position and stored offset of every matching leaf.
func traverse(levels []Level, nodeSize int, q Box, read func(i int64) (Box, int64, error), emit func(leaf, offset int64)) error {
	leafStart := levels[0].Start
	stack := []queue.NodeRef{{Node: 0, Level: len(levels) - 1}}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		end := min(ref.Node+int64(nodeSize), levels[ref.Level].End)
		for pos := ref.Node; pos < end; pos++ {
			box, offset, err := read(pos)
			if err != nil {
				return err
			}
			if !q.Intersects(box) {
				continue
			}
			if ref.Level == 0 {
				emit(pos-leafStart, offset)
				continue
			}
			child, err := childRef(levels, ref.Level, offset)
			if err != nil {
				return err
			}
			stack = append(stack, child)
		}
	}
	return nil
}

// childRef validates the first-child index stored in an interior node.
func childRef(levels []Level, level int, offset int64) (queue.NodeRef, error) {
	below := levels[level-1]
	if offset < below.Start || offset >= below.End {
		return queue.NodeRef{}, fmt.Errorf("%w: child index %d outside level %d range [%d, %d)",
			geostore.ErrCorrupted, offset, level-1, below.Start, below.End)
	}
	return queue.NodeRef{Node: offset, Level: level - 1}, nil
}

// SearchBuffer searches a serialized tree held in buf without decoding it.
// Hit.Index is the leaf position in Hilbert order.
func SearchBuffer(buf []byte, numItems int64, nodeSize int, q Box) ([]Hit, error) {
	ns, err := checkGeometry(numItems, nodeSize)
	if err != nil {
		return nil, err
	}
	levels := levelBounds(numItems, int64(ns))
	if size := levels[0].End * NodeItemSize; int64(len(buf)) < size {
		return nil, fmt.Errorf("%w: tree needs %d bytes, buffer has %d", geostore.ErrCorrupted, size, len(buf))
	}
	var hits []Hit
	err = traverse(levels, ns, q, func(i int64) (Box, int64, error) {
		n := readNode(buf[i*NodeItemSize:])
		return n.box, n.offset, nil
	}, func(leaf, offset int64) {
		hits = append(hits, Hit{Index: leaf, Offset: offset})
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// SearchStream searches a serialized tree read sequentially from r, which
// must be positioned at the first node. Nodes are visited in storage order so
// r only moves forward; bytes between needed nodes are skipped (with Seek when
// r is an io.Seeker). It returns the hits and the number of bytes consumed.
// Hit.Index is the leaf position in Hilbert order, so the hit set equals that
// of SearchBuffer over the same bytes.
func SearchStream(r io.Reader, numItems int64, nodeSize int, q Box) ([]Hit, int64, error) {
	ns, err := checkGeometry(numItems, nodeSize)
	if err != nil {
		return nil, 0, err
	}
	levels := levelBounds(numItems, int64(ns))
	leafStart := levels[0].Start
	s := &stream{r: r}

	pending := queue.NewNodeQueue(64)
	pending.PushRef(queue.NodeRef{Node: 0, Level: len(levels) - 1})
	buf := make([]byte, min(int64(ns), levels[0].End)*NodeItemSize)

	var hits []Hit
	for {
		ref, ok := pending.PopRef()
		if !ok {
			break
		}
		end := min(ref.Node+int64(ns), levels[ref.Level].End)
		if err := s.skipTo(ref.Node * NodeItemSize); err != nil {
			return nil, s.pos, err
		}
		b := buf[:(end-ref.Node)*NodeItemSize]
		if err := s.read(b); err != nil {
			return nil, s.pos, err
		}
		for j := int64(0); j < end-ref.Node; j++ {
			n := readNode(b[j*NodeItemSize:])
			if !q.Intersects(n.box) {
				continue
			}
			if ref.Level == 0 {
				hits = append(hits, Hit{Index: ref.Node + j - leafStart, Offset: n.offset})
				continue
			}
			child, err := childRef(levels, ref.Level, n.offset)
			if err != nil {
				return nil, s.pos, err
			}
			pending.PushRef(child)
		}
	}
	return hits, s.pos, nil
}

// ReadLeafOffsets reads the offsets stored with the leaves at the given Hilbert
// order positions from a serialized tree read sequentially from r. On success
// r is positioned right after the tree.
func ReadLeafOffsets(r io.Reader, numItems int64, nodeSize int, indices []int64) ([]int64, error) {
	ns, err := checkGeometry(numItems, nodeSize)
	if err != nil {
		return nil, err
	}
	levels := levelBounds(numItems, int64(ns))
	for _, idx := range indices {
		if idx < 0 || idx >= numItems {
			return nil, geostore.NewBoundsError("read leaf offset", idx, 1, numItems)
		}
	}

	perm := make([]int, len(indices))
	for i := range perm {
		perm[i] = i
	}
	slices.SortFunc(perm, func(a, b int) int {
		switch {
		case indices[a] < indices[b]:
			return -1
		case indices[a] > indices[b]:
			return 1
		default:
			return 0
		}
	})

	s := &stream{r: r}
	out := make([]int64, len(indices))
	var buf [8]byte
	prev, prevOffset := int64(-1), int64(0)
	for _, k := range perm {
		idx := indices[k]
		if idx == prev {
			out[k] = prevOffset
			continue
		}
		if err := s.skipTo((levels[0].Start+idx)*NodeItemSize + 32); err != nil {
			return nil, err
		}
		if err := s.read(buf[:]); err != nil {
			return nil, err
		}
		prev, prevOffset = idx, int64(binary.LittleEndian.Uint64(buf[:]))
		out[k] = prevOffset
	}
	if err := s.skipTo(levels[0].End * NodeItemSize); err != nil {
		return nil, err
	}
	return out, nil
}

// stream tracks the position of a forward-only reader.
type stream struct {
	r   io.Reader
	pos int64
}

func (s *stream) skipTo(off int64) error {
	n := off - s.pos
	switch {
	case n < 0:
		return fmt.Errorf("%w: backward seek from %d to %d", geostore.ErrCorrupted, s.pos, off)
	case n == 0:
		return nil
	}
	if seeker, ok := s.r.(io.Seeker); ok {
		if _, err := seeker.Seek(n, io.SeekCurrent); err != nil {
			return err
		}
		s.pos = off
		return nil
	}
	copied, err := io.CopyN(io.Discard, s.r, n)
	s.pos += copied
	if err != nil {
		return truncated(err, s.pos)
	}
	return nil
}

func (s *stream) read(b []byte) error {
	n, err := io.ReadFull(s.r, b)
	s.pos += int64(n)
	if err != nil {
		return truncated(err, s.pos)
	}
	return nil
}

func truncated(err error, pos int64) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: tree truncated at byte %d", geostore.ErrCorrupted, pos)
	}
	return err
}
