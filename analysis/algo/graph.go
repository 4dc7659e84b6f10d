package algo

import (
	"container/heap"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/valentinpasche/transnetmap-impacts/errs"
)

// halfEdge is one outgoing edge: target node index, weights and the
// caller-supplied attribute (the edge key in the optimizer).
type halfEdge[ET any] struct {
	to     int
	time   float64
	length float64
	attr   ET
}

// SearchGraph is a directed graph weighted by time, with length and an
// attribute sequence carried along for tie-breaking and path output.
// Nodes are external int16 identifiers (zones and stations share one id
// space). The graph is append-only while being built and treated as an
// immutable value once searches begin.
type SearchGraph[ET any] struct {
	ids   []int16
	index map[int16]int
	// adjacency, kept sorted by target index so relaxation order is
	// deterministic for a given input
	edges [][]halfEdge[ET]
	// attrLess orders edge attributes for the lexicographic tie-break
	attrLess func(a, b ET) bool
}

func NewSearchGraph[ET any](attrLess func(a, b ET) bool) *SearchGraph[ET] {
	return &SearchGraph[ET]{
		index:    make(map[int16]int),
		attrLess: attrLess,
	}
}

// InitNode registers a node id and returns its dense index. Repeated
// registration of the same id is a no-op.
func (g *SearchGraph[ET]) InitNode(id int16) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.ids)
	g.ids = append(g.ids, id)
	g.edges = append(g.edges, nil)
	g.index[id] = i
	return i
}

// HasNode reports whether the id was registered.
func (g *SearchGraph[ET]) HasNode(id int16) bool {
	_, ok := g.index[id]
	return ok
}

// NumNodes returns the number of registered nodes.
func (g *SearchGraph[ET]) NumNodes() int { return len(g.ids) }

// NumEdges returns the number of stored edges.
func (g *SearchGraph[ET]) NumEdges() int {
	n := 0
	for _, adj := range g.edges {
		n += len(adj)
	}
	return n
}

// InitEdge adds a directed edge. Endpoints are registered on the fly.
// A parallel edge to the same target is resolved by keeping the better
// of the two by (time, length, attribute order). Negative weights are
// an upstream corruption and fail with ErrInvariant.
func (g *SearchGraph[ET]) InitEdge(from, to int16, time, length float64, attr ET) error {
	if time < 0 || math.IsNaN(time) {
		return errs.Invariantf("edge (%d,%d) has negative or undefined time %v", from, to, time)
	}
	if length < 0 || math.IsNaN(length) {
		return errs.Invariantf("edge (%d,%d) has negative or undefined length %v", from, to, length)
	}
	u := g.InitNode(from)
	v := g.InitNode(to)
	adj := g.edges[u]
	pos := sort.Search(len(adj), func(i int) bool { return adj[i].to >= v })
	cand := halfEdge[ET]{to: v, time: time, length: length, attr: attr}
	if pos < len(adj) && adj[pos].to == v {
		if g.edgeLess(cand, adj[pos]) {
			adj[pos] = cand
		}
		return nil
	}
	adj = append(adj, halfEdge[ET]{})
	copy(adj[pos+1:], adj[pos:])
	adj[pos] = cand
	g.edges[u] = adj
	return nil
}

func (g *SearchGraph[ET]) edgeLess(a, b halfEdge[ET]) bool {
	if a.time != b.time {
		return a.time < b.time
	}
	if a.length != b.length {
		return a.length < b.length
	}
	return g.attrLess(a.attr, b.attr)
}

// PathResult is the outcome of one single-source search for one target:
// total time and length plus the ordered attribute sequence of the
// route. Reachable is false when no path exists, in which case Time is
// +Inf.
type PathResult[ET any] struct {
	Time      float64
	Length    float64
	Edges     []ET
	Reachable bool
}

// ShortestPathsFrom runs a label-setting search (Dijkstra) from the
// given source over time as the sole weight. Equal-time labels prefer
// strictly lower total length, then the lexicographically smaller edge
// attribute sequence, so the result is fully deterministic.
//
// The receiver is only read; concurrent searches from distinct sources
// are safe.
func (g *SearchGraph[ET]) ShortestPathsFrom(source int16) map[int16]PathResult[ET] {
	out := make(map[int16]PathResult[ET], len(g.ids))
	src, ok := g.index[source]
	if !ok {
		return out
	}

	n := len(g.ids)
	timeOf := make([]float64, n)
	lengthOf := make([]float64, n)
	prev := make([]int, n)
	prevAttr := make([]ET, n)
	visited := make([]bool, n)
	for i := range timeOf {
		timeOf[i] = math.Inf(1)
		prev[i] = -1
	}
	timeOf[src] = 0
	lengthOf[src] = 0

	openSet := make(PriorityQueue, 0, n)
	openSetMap := make(map[int]*Item, n)
	item := &Item{Value: src, Time: 0, Length: 0}
	heap.Push(&openSet, item)
	openSetMap[src] = item

	for openSet.Len() > 0 {
		cur := heap.Pop(&openSet).(*Item).Value
		if visited[cur] {
			continue
		}
		visited[cur] = true
		delete(openSetMap, cur)
		for _, e := range g.edges[cur] {
			if visited[e.to] {
				continue
			}
			t := timeOf[cur] + e.time
			l := lengthOf[cur] + e.length
			better := false
			switch {
			case t < timeOf[e.to]:
				better = true
			case t == timeOf[e.to] && l < lengthOf[e.to]:
				better = true
			case t == timeOf[e.to] && l == lengthOf[e.to] && prev[e.to] >= 0:
				better = g.candidateLess(prev, prevAttr, cur, e.attr, e.to)
			}
			if !better {
				continue
			}
			timeOf[e.to] = t
			lengthOf[e.to] = l
			prev[e.to] = cur
			prevAttr[e.to] = e.attr
			if it, ok := openSetMap[e.to]; ok {
				it.Time = t
				it.Length = l
				heap.Fix(&openSet, it.Index)
			} else {
				it := &Item{Value: e.to, Time: t, Length: l}
				heap.Push(&openSet, it)
				openSetMap[e.to] = it
			}
		}
	}

	for i, id := range g.ids {
		if i == src {
			out[id] = PathResult[ET]{Reachable: true}
			continue
		}
		if !visited[i] {
			out[id] = PathResult[ET]{Time: math.Inf(1), Length: math.Inf(1)}
			continue
		}
		out[id] = PathResult[ET]{
			Time:      timeOf[i],
			Length:    lengthOf[i],
			Edges:     reconstruct(prev, prevAttr, src, i),
			Reachable: true,
		}
	}
	return out
}

// candidateLess compares the candidate route to node via (cur, attr)
// against the current tentative route, lexicographically by edge
// attribute. Both routes have equal time and length at this point.
func (g *SearchGraph[ET]) candidateLess(prev []int, prevAttr []ET, cur int, attr ET, node int) bool {
	a := append(reconstruct(prev, prevAttr, -1, cur), attr)
	b := reconstruct(prev, prevAttr, -1, node)
	for i := 0; i < len(a) && i < len(b); i++ {
		if g.attrLess(a[i], b[i]) {
			return true
		}
		if g.attrLess(b[i], a[i]) {
			return false
		}
	}
	return len(a) < len(b)
}

// reconstruct walks the predecessor chain back to the source (or to the
// chain start when src is -1) and returns the edge attribute sequence
// in travel order.
func reconstruct[ET any](prev []int, prevAttr []ET, src, node int) []ET {
	attrs := make([]ET, 0, 8)
	for node != src && prev[node] >= 0 {
		attrs = append(attrs, prevAttr[node])
		node = prev[node]
	}
	return lo.Reverse(attrs)
}
