// Package analysis implements the network-optimization core: candidate
// edge construction, the travel-time function catalogue and the
// per-scenario shortest-path optimizer.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb/geo"
	"github.com/sirupsen/logrus"

	"github.com/valentinpasche/transnetmap-impacts/errs"
	"github.com/valentinpasche/transnetmap-impacts/pre"
)

// EdgeKey uniquely identifies a candidate edge.
type EdgeKey struct {
	From int16
	To   int16
	Mode pre.Type
}

func (k EdgeKey) Less(o EdgeKey) bool {
	if k.From != o.From {
		return k.From < o.From
	}
	if k.To != o.To {
		return k.To < o.To
	}
	return k.Mode < o.Mode
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%d-%d-%d", k.From, k.To, k.Mode)
}

// Provenance records where a candidate edge came from, for audit.
type Provenance int8

const (
	ProvenanceBaseline Provenance = iota + 1
	ProvenanceLink
	ProvenanceAccess
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceBaseline:
		return "baseline"
	case ProvenanceLink:
		return "link"
	case ProvenanceAccess:
		return "access"
	}
	return "unknown"
}

// Edge is one candidate edge. Time is in minutes, length in kilometers.
// Irrelevant edges are kept in the table for audit but excluded from
// the search graphs.
type Edge struct {
	From       int16
	To         int16
	Mode       pre.Type
	Time       float64
	Length     float64
	Provenance Provenance
	Irrelevant bool
}

func (e Edge) Key() EdgeKey { return EdgeKey{From: e.From, To: e.To, Mode: e.Mode} }

// EdgeList is the immutable candidate edge table of one (network,
// extension-type) configuration. A rebuild produces a new EdgeList;
// the previous one is never mutated.
type EdgeList struct {
	edges []Edge
	byKey map[EdgeKey]int
}

// Edges returns the table rows, sorted by key. The slice is shared and
// must be treated as read-only.
func (el *EdgeList) Edges() []Edge { return el.edges }

// Lookup returns the edge stored under key.
func (el *EdgeList) Lookup(key EdgeKey) (Edge, bool) {
	i, ok := el.byKey[key]
	if !ok {
		return Edge{}, false
	}
	return el.edges[i], true
}

func (el *EdgeList) Len() int { return len(el.edges) }

// Irrelevant returns the edges flagged as dominated, the audit view a
// user inspects before optimisation.
func (el *EdgeList) Irrelevant() []Edge {
	var out []Edge
	for _, e := range el.edges {
		if e.Irrelevant {
			out = append(out, e)
		}
	}
	return out
}

func (el *EdgeList) IrrelevantCount() int {
	n := 0
	for _, e := range el.edges {
		if e.Irrelevant {
			n++
		}
	}
	return n
}

// BuilderInput bundles the validated reference data the builder
// consumes. Upstream import and validation is an external collaborator;
// the builder still re-checks identifiers and value domains at its
// boundary.
type BuilderInput struct {
	Zones      []pre.Zone
	Stations   []pre.Station
	Links      []pre.Link
	Baselines  map[pre.Scenario]pre.ODMatrix
	TravelTime pre.PVSTravelTime
}

// Builder turns station, link and zone definitions plus baseline mode
// matrices into the deduplicated candidate edge table.
type Builder struct {
	cfg pre.Config
	reg *Registry
	log *logrus.Entry
}

func NewBuilder(cfg pre.Config, reg *Registry) *Builder {
	return &Builder{
		cfg: cfg,
		reg: reg,
		log: logrus.WithField("module", "edgelist"),
	}
}

// Build constructs the edge table. The registry is frozen before first
// use so the build is reproducible. Fails fast with ErrValidation on
// malformed input and with ErrConfiguration when a zone ends up with no
// candidate edge at all (isolated zone).
func (b *Builder) Build(in BuilderInput) (*EdgeList, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := pre.ValidateZones(in.Zones); err != nil {
		return nil, err
	}
	if err := pre.ValidateStations(in.Stations, in.Zones); err != nil {
		return nil, err
	}
	if err := pre.ValidateLinks(in.Links, in.Stations); err != nil {
		return nil, err
	}
	for _, sc := range pre.BaselineScenarios {
		if err := pre.ValidateODMatrix(sc, in.Baselines[sc]); err != nil {
			return nil, err
		}
	}
	if err := in.TravelTime.Validate(); err != nil {
		return nil, err
	}
	b.reg.Freeze()

	byKey := make(map[EdgeKey]Edge)
	add := func(e Edge) {
		key := e.Key()
		old, ok := byKey[key]
		if !ok {
			byKey[key] = e
			return
		}
		// duplicate key: lowest time wins, then shortest length
		if e.Time < old.Time || (e.Time == old.Time && e.Length < old.Length) {
			byKey[key] = e
		}
	}

	// 1. baseline OD matrices
	for _, sc := range pre.BaselineScenarios {
		mode, _ := sc.BaselineType()
		for pair, cell := range in.Baselines[sc] {
			if pair.From == pair.To {
				continue
			}
			add(Edge{
				From: pair.From, To: pair.To, Mode: mode,
				Time: cell.Time, Length: cell.Length,
				Provenance: ProvenanceBaseline,
			})
		}
	}

	// 2. declared links of the new network
	tf, err := b.reg.Lookup(in.TravelTime.TFName)
	if err != nil {
		return nil, err
	}
	for _, l := range in.Links {
		lp := in.TravelTime.Levels[l.Level]
		lengthM := l.Length * lp.FF
		t := l.Time
		if math.IsNaN(t) {
			t = tf(lengthM, lp.TS, lp.AA, lp.AD) + lp.AIT + lp.BIT
		}
		e := Edge{
			From: l.From, To: l.To, Mode: l.Level.LinkType(),
			Time: t, Length: lengthM / 1000,
			Provenance: ProvenanceLink,
		}
		add(e)
		if !l.Oneway {
			rev := e
			rev.From, rev.To = e.To, e.From
			add(rev)
		}
	}

	// 3. zone-access connectors within the access radius
	for _, z := range in.Zones {
		for _, s := range in.Stations {
			distKm := geo.Distance(z.Centroid, s.Position) / 1000
			if distKm > b.cfg.AccessRadius {
				continue
			}
			t := distKm / b.cfg.AccessSpeed * 60
			add(Edge{
				From: z.ID, To: s.ID, Mode: pre.TypeZoneAccess,
				Time: t, Length: distKm,
				Provenance: ProvenanceAccess,
			})
			add(Edge{
				From: s.ID, To: z.ID, Mode: pre.TypeZoneAccess,
				Time: t, Length: distKm,
				Provenance: ProvenanceAccess,
			})
		}
	}

	// 4. mark network edges that cannot serve any trip: dominated by a
	// same-pair extension-baseline edge, or not on any zone-to-zone
	// route. Kept in the table so the filtering decision stays auditable.
	if extMode, ok := pre.Scenario(b.cfg.ExtensionType).BaselineType(); ok {
		for key, e := range byKey {
			if e.Provenance != ProvenanceLink {
				continue
			}
			base, ok := byKey[EdgeKey{From: e.From, To: e.To, Mode: extMode}]
			if ok && e.Time > base.Time {
				e.Irrelevant = true
				byKey[key] = e
			}
		}
	}
	markUnreachable(byKey, in.Zones)

	edges := make([]Edge, 0, len(byKey))
	for _, e := range byKey {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Key().Less(edges[j].Key()) })

	el := &EdgeList{edges: edges, byKey: make(map[EdgeKey]int, len(edges))}
	for i, e := range edges {
		el.byKey[e.Key()] = i
	}

	if err := b.checkIsolatedZones(in.Zones, el); err != nil {
		return nil, err
	}

	b.log.Infof("edgelist built: %d edges, %d irrelevant", el.Len(), el.IrrelevantCount())
	return el, nil
}

// markUnreachable flags link edges that cannot lie on any zone-to-zone
// route over the new network: the tail must be reachable from some zone
// and the head must reach some zone, both over access and link edges.
func markUnreachable(byKey map[EdgeKey]Edge, zones []pre.Zone) {
	fwd := make(map[int16][]int16)
	rev := make(map[int16][]int16)
	for _, e := range byKey {
		if e.Provenance == ProvenanceBaseline || e.Irrelevant {
			continue
		}
		fwd[e.From] = append(fwd[e.From], e.To)
		rev[e.To] = append(rev[e.To], e.From)
	}
	flood := func(adj map[int16][]int16) map[int16]bool {
		seen := make(map[int16]bool, len(adj))
		queue := make([]int16, 0, len(zones))
		for _, z := range zones {
			seen[z.ID] = true
			queue = append(queue, z.ID)
		}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range adj[cur] {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
		return seen
	}
	fromZones := flood(fwd)
	toZones := flood(rev)
	for key, e := range byKey {
		if e.Provenance != ProvenanceLink || e.Irrelevant {
			continue
		}
		if !fromZones[e.From] || !toZones[e.To] {
			e.Irrelevant = true
			byKey[key] = e
		}
	}
}

// checkIsolatedZones surfaces zones that ended up with no candidate
// edge of any provenance. A zone that has edges but no viable path is
// not an error; it yields explicit unreachable results downstream.
func (b *Builder) checkIsolatedZones(zones []pre.Zone, el *EdgeList) error {
	touched := make(map[int16]bool, len(zones))
	for _, e := range el.edges {
		touched[e.From] = true
		touched[e.To] = true
	}
	for _, z := range zones {
		if !touched[z.ID] {
			return errs.Configurationf("zone %d is isolated: no baseline cell and no station within %.1f km", z.ID, b.cfg.AccessRadius)
		}
	}
	return nil
}
