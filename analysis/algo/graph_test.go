package algo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valentinpasche/transnetmap-impacts/analysis/algo"
	"github.com/valentinpasche/transnetmap-impacts/errs"
)

func intLess(a, b int) bool { return a < b }

func TestSearchGraphShortestPaths(t *testing.T) {
	g := algo.NewSearchGraph[int](intLess)

	// 1 -> 2 -> 3 -> 4 chain plus a slower direct 1 -> 4
	assert.NoError(t, g.InitEdge(1, 2, 1, 10, 12))
	assert.NoError(t, g.InitEdge(2, 3, 1, 10, 23))
	assert.NoError(t, g.InitEdge(3, 4, 1, 10, 34))
	assert.NoError(t, g.InitEdge(1, 4, 5, 10, 14))

	res := g.ShortestPathsFrom(1)

	r4 := res[4]
	assert.True(t, r4.Reachable)
	assert.Equal(t, 3.0, r4.Time)
	assert.Equal(t, 30.0, r4.Length)
	assert.Equal(t, []int{12, 23, 34}, r4.Edges)

	r1 := res[1]
	assert.True(t, r1.Reachable)
	assert.Equal(t, 0.0, r1.Time)
	assert.Empty(t, r1.Edges)
}

func TestSearchGraphUnreachable(t *testing.T) {
	g := algo.NewSearchGraph[int](intLess)
	assert.NoError(t, g.InitEdge(1, 2, 1, 1, 12))
	g.InitNode(5)

	res := g.ShortestPathsFrom(1)
	r5 := res[5]
	assert.False(t, r5.Reachable)
	assert.True(t, math.IsInf(r5.Time, 1))
	assert.True(t, math.IsInf(r5.Length, 1))

	// edges only point away from 2
	res = g.ShortestPathsFrom(2)
	assert.False(t, res[1].Reachable)
}

func TestSearchGraphUnknownSource(t *testing.T) {
	g := algo.NewSearchGraph[int](intLess)
	assert.NoError(t, g.InitEdge(1, 2, 1, 1, 12))
	res := g.ShortestPathsFrom(99)
	assert.Empty(t, res)
}

func TestSearchGraphLengthTieBreak(t *testing.T) {
	g := algo.NewSearchGraph[int](intLess)

	// two equal-time routes 1 -> 4, the lower one is shorter
	assert.NoError(t, g.InitEdge(1, 2, 2, 10, 12))
	assert.NoError(t, g.InitEdge(2, 4, 2, 10, 24))
	assert.NoError(t, g.InitEdge(1, 3, 2, 5, 13))
	assert.NoError(t, g.InitEdge(3, 4, 2, 5, 34))

	res := g.ShortestPathsFrom(1)
	r4 := res[4]
	assert.Equal(t, 4.0, r4.Time)
	assert.Equal(t, 10.0, r4.Length)
	assert.Equal(t, []int{13, 34}, r4.Edges)
}

func TestSearchGraphAttrTieBreak(t *testing.T) {
	g := algo.NewSearchGraph[int](intLess)

	// identical time and length, distinct attribute sequences
	assert.NoError(t, g.InitEdge(1, 2, 2, 10, 12))
	assert.NoError(t, g.InitEdge(2, 4, 2, 10, 24))
	assert.NoError(t, g.InitEdge(1, 3, 2, 10, 13))
	assert.NoError(t, g.InitEdge(3, 4, 2, 10, 34))

	res := g.ShortestPathsFrom(1)
	assert.Equal(t, []int{12, 24}, res[4].Edges)
}

func TestSearchGraphParallelEdgeKeepsBetter(t *testing.T) {
	g := algo.NewSearchGraph[int](intLess)
	assert.NoError(t, g.InitEdge(1, 2, 5, 10, 991))
	assert.NoError(t, g.InitEdge(1, 2, 3, 10, 992))
	assert.NoError(t, g.InitEdge(1, 2, 4, 10, 993))
	assert.Equal(t, 1, g.NumEdges())

	res := g.ShortestPathsFrom(1)
	assert.Equal(t, 3.0, res[2].Time)
	assert.Equal(t, []int{992}, res[2].Edges)
}

func TestSearchGraphRejectsCorruptWeights(t *testing.T) {
	g := algo.NewSearchGraph[int](intLess)
	err := g.InitEdge(1, 2, -1, 10, 12)
	assert.ErrorIs(t, err, errs.ErrInvariant)
	err = g.InitEdge(1, 2, 1, math.NaN(), 12)
	assert.ErrorIs(t, err, errs.ErrInvariant)
	assert.Equal(t, 0, g.NumEdges())
}

// bruteForce enumerates every simple path and returns the minimum total
// time, Inf when no path exists.
func bruteForce(edges [][3]float64, from, to int16) float64 {
	best := math.Inf(1)
	var walk func(cur int16, time float64, seen map[int16]bool)
	walk = func(cur int16, time float64, seen map[int16]bool) {
		if cur == to {
			if time < best {
				best = time
			}
			return
		}
		for _, e := range edges {
			if int16(e[0]) != cur || seen[int16(e[1])] {
				continue
			}
			seen[int16(e[1])] = true
			walk(int16(e[1]), time+e[2], seen)
			delete(seen, int16(e[1]))
		}
	}
	walk(from, 0, map[int16]bool{from: true})
	return best
}

func TestSearchGraphAgainstBruteForce(t *testing.T) {
	// {from, to, time}
	edges := [][3]float64{
		{1, 2, 3}, {1, 3, 1}, {3, 2, 1}, {2, 4, 2},
		{3, 4, 5}, {4, 5, 1}, {1, 5, 9}, {5, 1, 2},
		{2, 5, 3.5}, {4, 1, 0.5},
	}
	g := algo.NewSearchGraph[int](intLess)
	for i, e := range edges {
		assert.NoError(t, g.InitEdge(int16(e[0]), int16(e[1]), e[2], 1, i))
	}
	for src := int16(1); src <= 5; src++ {
		res := g.ShortestPathsFrom(src)
		for dst := int16(1); dst <= 5; dst++ {
			if dst == src {
				continue
			}
			want := bruteForce(edges, src, dst)
			got := res[dst]
			if math.IsInf(want, 1) {
				assert.False(t, got.Reachable, "src=%d dst=%d", src, dst)
				continue
			}
			assert.Equal(t, want, got.Time, "src=%d dst=%d", src, dst)
		}
	}
}

func TestSearchGraphInitNodeIdempotent(t *testing.T) {
	g := algo.NewSearchGraph[int](intLess)
	i := g.InitNode(7)
	j := g.InitNode(7)
	assert.Equal(t, i, j)
	assert.Equal(t, 1, g.NumNodes())
	assert.True(t, g.HasNode(7))
	assert.False(t, g.HasNode(8))
}
