package analysis

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/valentinpasche/transnetmap-impacts/analysis/algo"
	"github.com/valentinpasche/transnetmap-impacts/pre"
)

// Route is one optimized zone-to-zone relation in one scenario. Path
// holds the ordered edge keys of the route; it is empty when the
// destination is unreachable, in which case Time and Length are +Inf.
type Route struct {
	Origin      int16
	Destination int16
	Scenario    pre.Scenario
	Time        float64
	Length      float64
	Path        []EdgeKey
	Unreachable bool
}

// Scenarios lists the routing contexts the optimizer solves, in fixed
// output order: the new network first, then each baseline.
var Scenarios = []pre.Scenario{pre.ScenarioNTS, pre.ScenarioIMT, pre.ScenarioPT}

// Optimizer computes all zone-to-zone optimal routes per scenario over
// a frozen edge list.
type Optimizer struct {
	cfg     pre.Config
	edges   *EdgeList
	workers int
	log     *logrus.Entry
}

func NewOptimizer(cfg pre.Config, edges *EdgeList) *Optimizer {
	return &Optimizer{
		cfg:     cfg,
		edges:   edges,
		workers: runtime.GOMAXPROCS(0),
		log:     logrus.WithField("module", "optimizer"),
	}
}

// SetWorkers caps the number of concurrent single-source searches.
func (o *Optimizer) SetWorkers(n int) {
	if n > 0 {
		o.workers = n
	}
}

// admits reports whether an edge participates in the search graph of a
// scenario. Baseline scenarios route over their own mode matrix alone.
// The NTS scenario combines non-dominated network edges, zone-access
// connectors and the extension baseline; with ExtensionNTS no baseline
// edge is admitted and every trip runs over the new network.
func (o *Optimizer) admits(sc pre.Scenario, e Edge) bool {
	if e.Irrelevant {
		return false
	}
	if mode, ok := sc.BaselineType(); ok {
		return e.Provenance == ProvenanceBaseline && e.Mode == mode
	}
	switch e.Provenance {
	case ProvenanceLink, ProvenanceAccess:
		return true
	case ProvenanceBaseline:
		extMode, ok := pre.Scenario(o.cfg.ExtensionType).BaselineType()
		return ok && e.Mode == extMode
	}
	return false
}

func (o *Optimizer) buildGraph(sc pre.Scenario) (*algo.SearchGraph[EdgeKey], error) {
	g := algo.NewSearchGraph[EdgeKey](EdgeKey.Less)
	for _, e := range o.edges.Edges() {
		if !o.admits(sc, e) {
			continue
		}
		if err := g.InitEdge(e.From, e.To, e.Time, e.Length, e.Key()); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Run solves every ordered zone pair in every scenario. Sources are
// distributed over a worker pool; each worker writes into a disjoint
// slice of the preallocated result set, so the output order is fixed
// regardless of scheduling: scenario, then origin, then destination,
// all ascending.
func (o *Optimizer) Run(zones []pre.Zone) ([]Route, error) {
	ids := make([]int16, len(zones))
	for i, z := range zones {
		ids[i] = z.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	perOrigin := len(ids) - 1
	if perOrigin < 0 {
		perOrigin = 0
	}
	routes := make([]Route, 0, len(Scenarios)*len(ids)*perOrigin)

	for _, sc := range Scenarios {
		g, err := o.buildGraph(sc)
		if err != nil {
			return nil, err
		}
		o.log.Infof("scenario %s: %d nodes, %d edges", sc, g.NumNodes(), g.NumEdges())

		block := make([]Route, len(ids)*perOrigin)
		var wg sync.WaitGroup
		srcCh := make(chan int)
		for w := 0; w < o.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range srcCh {
					o.solveSource(g, sc, ids, i, block[i*perOrigin:(i+1)*perOrigin])
				}
			}()
		}
		for i := range ids {
			srcCh <- i
		}
		close(srcCh)
		wg.Wait()
		routes = append(routes, block...)
	}
	return routes, nil
}

// solveSource fills out the routes from ids[src] to every other zone,
// in ascending destination order.
func (o *Optimizer) solveSource(g *algo.SearchGraph[EdgeKey], sc pre.Scenario, ids []int16, src int, out []Route) {
	origin := ids[src]
	var results map[int16]algo.PathResult[EdgeKey]
	if g.HasNode(origin) {
		results = g.ShortestPathsFrom(origin)
	}
	k := 0
	for j, dest := range ids {
		if j == src {
			continue
		}
		r := Route{Origin: origin, Destination: dest, Scenario: sc}
		res, ok := results[dest]
		if ok && res.Reachable {
			r.Time = res.Time
			r.Length = res.Length
			r.Path = res.Edges
		} else {
			r.Time = math.Inf(1)
			r.Length = math.Inf(1)
			r.Unreachable = true
		}
		out[k] = r
		k++
	}
}

type routeKey struct {
	origin   int16
	dest     int16
	scenario pre.Scenario
}

// RouteSet indexes optimizer output for aggregation lookups.
type RouteSet struct {
	routes []Route
	index  map[routeKey]int
}

func NewRouteSet(routes []Route) *RouteSet {
	rs := &RouteSet{routes: routes, index: make(map[routeKey]int, len(routes))}
	for i, r := range routes {
		rs.index[routeKey{r.Origin, r.Destination, r.Scenario}] = i
	}
	return rs
}

// Routes returns the full result set in optimizer output order. The
// slice is shared and must be treated as read-only.
func (rs *RouteSet) Routes() []Route { return rs.routes }

// Get returns the route for one (origin, destination, scenario) triple.
func (rs *RouteSet) Get(origin, dest int16, sc pre.Scenario) (Route, bool) {
	i, ok := rs.index[routeKey{origin, dest, sc}]
	if !ok {
		return Route{}, false
	}
	return rs.routes[i], true
}

// Origins returns the distinct origin zones present, ascending.
func (rs *RouteSet) Origins() []int16 {
	seen := make(map[int16]bool)
	var out []int16
	for _, r := range rs.routes {
		if !seen[r.Origin] {
			seen[r.Origin] = true
			out = append(out, r.Origin)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
