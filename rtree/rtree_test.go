package rtree

import (
	"bytes"
	"io"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geostore"
)

func TestBox(t *testing.T) {
	a := Box{0, 0, 1, 1}
	assert.True(t, a.Intersects(Box{1, 1, 2, 2}), "touching corners overlap")
	assert.True(t, a.Intersects(Box{0.2, 0.2, 0.3, 0.3}))
	assert.False(t, a.Intersects(Box{1.1, 0, 2, 1}))
	assert.False(t, a.Intersects(Box{0, -2, 1, -0.5}))

	e := EmptyBox()
	assert.True(t, e.IsEmpty())
	assert.Equal(t, a, e.Expand(a))
	assert.Equal(t, Box{-1, 0, 1, 3}, a.Expand(Box{-1, 2, 0, 3}))
	assert.Equal(t, 2.0, Box{0, 0, 2, 4}.Width())
	assert.Equal(t, 4.0, Box{0, 0, 2, 4}.Height())
	x, y := Box{0, 0, 2, 4}.Center()
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 2.0, y)
}

func TestLevelBounds(t *testing.T) {
	levels, err := LevelBounds(10, 3)
	require.NoError(t, err)
	// 10 leaves, 4 nodes, 2 nodes, 1 root.
	assert.Equal(t, []Level{{7, 17}, {3, 7}, {1, 3}, {0, 1}}, levels)

	levels, err = LevelBounds(1, 16)
	require.NoError(t, err)
	assert.Equal(t, []Level{{1, 2}, {0, 1}}, levels)

	size, err := Size(10, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(17*NodeItemSize), size)

	n, err := NumNodes(100000, 16)
	require.NoError(t, err)
	assert.Equal(t, int64(100000+6250+391+25+2+1), n)

	_, err = LevelBounds(0, 16)
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	_, err = LevelBounds(10, 1)
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	_, err = Size(MaxItems+1, 16)
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
}

func TestTopDownLevels(t *testing.T) {
	levels, err := TopDownLevels(10, 3)
	require.NoError(t, err)
	assert.Equal(t, []Level{{0, 1}, {1, 3}, {3, 7}, {7, 17}}, levels)
	for i := 1; i < len(levels); i++ {
		assert.Equal(t, levels[i-1].End, levels[i].Start)
	}

	_, err = TopDownLevels(0, 16)
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
}

func threeBoxes() []Item {
	return []Item{
		{Box: Box{0, 0, 1, 1}, Offset: 100},
		{Box: Box{2, 2, 3, 3}, Offset: 200},
		{Box: Box{5, 5, 6, 6}, Offset: 300},
	}
}

func TestBuild_ThreeBoxes(t *testing.T) {
	tree, err := Build(threeBoxes(), 2)
	require.NoError(t, err)

	assert.Equal(t, int64(3), tree.NumItems())
	assert.Equal(t, 2, tree.NodeSize())
	assert.Equal(t, int64(6), tree.NumNodes())
	assert.Equal(t, Box{0, 0, 6, 6}, tree.Extent())

	hits := tree.Search(Box{1.5, 1.5, 2.5, 2.5})
	assert.Equal(t, []Hit{{Index: 1, Offset: 200}}, hits)

	hits = tree.Search(Box{-1, -1, 10, 10})
	assert.ElementsMatch(t, []int64{0, 1, 2}, hitIndexes(hits))

	assert.Empty(t, tree.Search(Box{100, 100, 200, 200}))
}

func TestBuild_Validation(t *testing.T) {
	_, err := Build(nil, 16)
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)
	_, err = Build(threeBoxes(), 1)
	assert.ErrorIs(t, err, geostore.ErrInvalidArgument)

	tree, err := Build(threeBoxes(), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, MaxNodeSize, tree.NodeSize())
}

func TestBuild_SingleItem(t *testing.T) {
	tree, err := Build([]Item{{Box: Box{1, 2, 3, 4}, Offset: 7}}, 16)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tree.NumNodes())
	assert.Equal(t, []Hit{{Index: 0, Offset: 7}}, tree.Search(Box{0, 0, 10, 10}))
	assert.Empty(t, tree.Search(Box{5, 5, 10, 10}))
}

func TestBuild_Presorted(t *testing.T) {
	items := threeBoxes()
	slices.Reverse(items)
	tree, err := Build(items, 2, WithPresorted())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, tree.Order())
	assert.Equal(t, []Hit{{Index: 0, Offset: 300}}, tree.Search(Box{5.5, 5.5, 5.6, 5.6}))
}

func randomItems(rng *rand.Rand, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		x, y := rng.Float64()*360-180, rng.Float64()*180-90
		w, h := rng.Float64()*2, rng.Float64()*2
		items[i] = Item{Box: Box{x, y, x + w, y + h}, Offset: int64(i) * 10}
	}
	return items
}

func bruteForce(items []Item, q Box) []int64 {
	var out []int64
	for i, it := range items {
		if q.Intersects(it.Box) {
			out = append(out, int64(i))
		}
	}
	return out
}

func hitIndexes(hits []Hit) []int64 {
	out := make([]int64, len(hits))
	for i, h := range hits {
		out[i] = h.Index
	}
	slices.Sort(out)
	return out
}

func TestSearch_MatchesBruteForce(t *testing.T) {
	for _, n := range []int{10, 1000, 100000} {
		if n == 100000 && testing.Short() {
			continue
		}
		rng := rand.New(rand.NewPCG(uint64(n), 42))
		items := randomItems(rng, n)
		for _, nodeSize := range []int{2, 16} {
			tree, err := Build(items, nodeSize)
			require.NoError(t, err)

			queries := []Box{
				{-180, -90, 180, 90},
				{0, 0, 10, 10},
				{-50.5, 20.25, -40, 25},
				{179, 89, 180, 90},
				{500, 500, 600, 600},
			}
			for i := 0; i < 20; i++ {
				x, y := rng.Float64()*360-180, rng.Float64()*180-90
				queries = append(queries, Box{x, y, x + rng.Float64()*20, y + rng.Float64()*20})
			}
			for _, q := range queries {
				want := bruteForce(items, q)
				hits := tree.Search(q)
				got := hitIndexes(hits)
				if len(want) == 0 {
					assert.Empty(t, got, "n=%d nodeSize=%d q=%v", n, nodeSize, q)
				} else {
					assert.Equal(t, want, got, "n=%d nodeSize=%d q=%v", n, nodeSize, q)
				}
				for _, h := range hits {
					assert.Equal(t, h.Index*10, h.Offset)
				}
			}
		}
	}
}

func TestSearch_DegenerateExtents(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
	}{
		{"zero width", []Item{
			{Box: Box{1, 0, 1, 1}}, {Box: Box{1, 5, 1, 6}}, {Box: Box{1, 9, 1, 9}},
		}},
		{"zero height", []Item{
			{Box: Box{0, 3, 1, 3}}, {Box: Box{4, 3, 5, 3}}, {Box: Box{8, 3, 8, 3}},
		}},
		{"single point", []Item{
			{Box: Box{2, 2, 2, 2}}, {Box: Box{2, 2, 2, 2}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(tt.items, 2)
			require.NoError(t, err)
			all := tree.Search(tree.Extent())
			assert.Len(t, all, len(tt.items))
			for i, it := range tt.items {
				assert.Contains(t, hitIndexes(tree.Search(it.Box)), int64(i))
			}
		})
	}
}

func TestSerialization_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	items := randomItems(rng, 1000)
	tree, err := Build(items, 16)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := tree.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, tree.Size(), n)
	size, err := Size(1000, 16)
	require.NoError(t, err)
	assert.Equal(t, size, n)

	raw, err := tree.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), raw)

	// Trailing bytes must stay unread.
	buf.WriteString("trailer")
	decoded, err := Decode(&buf, 1000, 16)
	require.NoError(t, err)
	assert.Equal(t, "trailer", buf.String())
	assert.Equal(t, tree.NumNodes(), decoded.NumNodes())
	assert.Equal(t, tree.Extent(), decoded.Extent())

	// Decoded trees report Hilbert positions.
	q := Box{-20, -20, 20, 20}
	order := tree.Order()
	var mapped []int64
	for _, h := range decoded.Search(q) {
		mapped = append(mapped, int64(order[h.Index]))
	}
	slices.Sort(mapped)
	assert.Equal(t, hitIndexes(tree.Search(q)), mapped)

	_, err = Decode(bytes.NewReader(raw[:len(raw)-1]), 1000, 16)
	assert.ErrorIs(t, err, geostore.ErrCorrupted)
}

// forwardOnly hides io.Seeker so skips go through io.CopyN.
type forwardOnly struct{ r io.Reader }

func (f forwardOnly) Read(p []byte) (int, error) { return f.r.Read(p) }

func TestSearchStream_MatchesSearchBuffer(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	items := randomItems(rng, 5000)
	for _, nodeSize := range []int{2, 7, 16} {
		tree, err := Build(items, nodeSize)
		require.NoError(t, err)
		raw, err := tree.MarshalBinary()
		require.NoError(t, err)

		for i := 0; i < 25; i++ {
			x, y := rng.Float64()*360-180, rng.Float64()*180-90
			q := Box{x, y, x + rng.Float64()*30, y + rng.Float64()*30}

			fromBuffer, err := SearchBuffer(raw, 5000, nodeSize, q)
			require.NoError(t, err)

			fromSeeker, consumed, err := SearchStream(bytes.NewReader(raw), 5000, nodeSize, q)
			require.NoError(t, err)
			assert.LessOrEqual(t, consumed, int64(len(raw)))

			fromReader, consumed2, err := SearchStream(forwardOnly{bytes.NewReader(raw)}, 5000, nodeSize, q)
			require.NoError(t, err)
			assert.Equal(t, consumed, consumed2)

			want := sortedHits(fromBuffer)
			assert.Equal(t, want, sortedHits(fromSeeker))
			assert.Equal(t, want, sortedHits(fromReader))

			order := tree.Order()
			var mapped []int64
			for _, h := range fromBuffer {
				mapped = append(mapped, int64(order[h.Index]))
			}
			slices.Sort(mapped)
			expected := bruteForce(items, q)
			if len(expected) == 0 {
				assert.Empty(t, mapped)
			} else {
				assert.Equal(t, expected, mapped)
			}
		}
	}
}

func sortedHits(hits []Hit) []Hit {
	out := slices.Clone(hits)
	slices.SortFunc(out, func(a, b Hit) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		default:
			return 0
		}
	})
	return out
}

func TestSearchBuffer_Errors(t *testing.T) {
	tree, err := Build(threeBoxes(), 2)
	require.NoError(t, err)
	raw, err := tree.MarshalBinary()
	require.NoError(t, err)

	_, err = SearchBuffer(raw[:len(raw)-1], 3, 2, Box{0, 0, 1, 1})
	assert.ErrorIs(t, err, geostore.ErrCorrupted)

	_, _, err = SearchStream(bytes.NewReader(raw[:NodeItemSize]), 3, 2, Box{-1, -1, 10, 10})
	assert.ErrorIs(t, err, geostore.ErrCorrupted)

	// Point the root at a node outside the level below it.
	bad := slices.Clone(raw)
	bad[32] = 0xFF
	_, err = SearchBuffer(bad, 3, 2, Box{-1, -1, 10, 10})
	assert.ErrorIs(t, err, geostore.ErrCorrupted)
}

func TestReadLeafOffsets(t *testing.T) {
	items := threeBoxes()
	tree, err := Build(items, 2)
	require.NoError(t, err)
	raw, err := tree.MarshalBinary()
	require.NoError(t, err)

	order := tree.Order()
	r := bytes.NewBuffer(append(slices.Clone(raw), "features"...))
	offsets, err := ReadLeafOffsets(r, 3, 2, []int64{2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{
		items[order[2]].Offset,
		items[order[0]].Offset,
		items[order[2]].Offset,
	}, offsets)
	assert.Equal(t, "features", r.String())

	_, err = ReadLeafOffsets(bytes.NewReader(raw), 3, 2, []int64{3})
	assert.ErrorIs(t, err, geostore.ErrOutOfBounds)
}

func BenchmarkSearch(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	tree, err := Build(randomItems(rng, 100000), 16)
	require.NoError(b, err)
	q := Box{-10, -10, 10, 10}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Search(q)
	}
}
