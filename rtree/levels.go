package rtree

import (
	"fmt"
	"slices"

	"github.com/hupe1980/geostore"
)

const (
	// NodeItemSize is the serialized size of one node in bytes.
	NodeItemSize = 40
	// MaxNodeSize is the largest supported node size; larger values are clamped.
	MaxNodeSize = 1<<16 - 1
	// MaxItems is the largest number of items a tree may index.
	MaxItems = 1 << 56
)

// Level is the half-open range [Start, End) of node indexes on one level.
type Level struct {
	Start, End int64
}

// Len returns the number of nodes on the level.
func (l Level) Len() int64 { return l.End - l.Start }

func checkGeometry(numItems int64, nodeSize int) (int, error) {
	if nodeSize < 2 {
		return 0, geostore.NewArgumentError("node size", nodeSize, "must be at least 2")
	}
	if numItems <= 0 {
		return 0, geostore.NewArgumentError("number of items", numItems, "must be positive")
	}
	if numItems > MaxItems {
		return 0, geostore.NewArgumentError("number of items", numItems, fmt.Sprintf("must not exceed %d", int64(MaxItems)))
	}
	return min(nodeSize, MaxNodeSize), nil
}

// LevelBounds returns the node range of every level, leaves first:
// levels[0] holds the leaves, which are stored last, and the final entry is
// the root, stored at index 0. TopDownLevels returns the same ranges in
// storage order.
func LevelBounds(numItems int64, nodeSize int) ([]Level, error) {
	ns, err := checkGeometry(numItems, nodeSize)
	if err != nil {
		return nil, err
	}
	return levelBounds(numItems, int64(ns)), nil
}

// TopDownLevels returns the node range of every level, root first. The
// ranges ascend through the node array.
func TopDownLevels(numItems int64, nodeSize int) ([]Level, error) {
	levels, err := LevelBounds(numItems, nodeSize)
	if err != nil {
		return nil, err
	}
	slices.Reverse(levels)
	return levels, nil
}

func levelBounds(numItems, nodeSize int64) []Level {
	n := numItems
	numNodes := n
	counts := []int64{n}
	// A single item still gets a root above its leaf.
	for {
		n = (n + nodeSize - 1) / nodeSize
		numNodes += n
		counts = append(counts, n)
		if n == 1 {
			break
		}
	}
	levels := make([]Level, len(counts))
	start := numNodes
	for i, c := range counts {
		start -= c
		levels[i] = Level{Start: start, End: start + c}
	}
	return levels
}

// NumNodes returns the total number of nodes of a tree over numItems items.
func NumNodes(numItems int64, nodeSize int) (int64, error) {
	levels, err := LevelBounds(numItems, nodeSize)
	if err != nil {
		return 0, err
	}
	return levels[0].End, nil
}

// Size returns the serialized size in bytes of a tree over numItems items.
func Size(numItems int64, nodeSize int) (int64, error) {
	n, err := NumNodes(numItems, nodeSize)
	if err != nil {
		return 0, err
	}
	return n * NodeItemSize, nil
}
