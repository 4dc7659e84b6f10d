// Package post turns optimized routes into per-origin impact tables:
// travel times, route-summed impacts per physical value set and the
// deltas of the new network against each baseline mode.
package post

import (
	"context"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/valentinpasche/transnetmap-impacts/analysis"
	"github.com/valentinpasche/transnetmap-impacts/errs"
	"github.com/valentinpasche/transnetmap-impacts/pre"
)

// Row is one destination line of a per-origin result table. Times are
// minutes, lengths kilometers. Unreachable relations carry +Inf times
// and NaN impacts and deltas, so downstream consumers can tell "no
// route" from "zero impact".
type Row struct {
	Destination int16
	Time        map[pre.Scenario]float64
	Length      map[pre.Scenario]float64
	Impacts     map[string]map[pre.Scenario]float64
	TimeDiff    map[pre.Scenario]float64
	ImpactDiff  map[string]map[pre.Scenario]float64
}

// ResultsStore is the persistence surface the aggregator writes
// through. Implemented by store.Store.
type ResultsStore interface {
	ReplaceResults(ctx context.Context, origin int16, rows []Row) error
}

// Aggregator computes impact tables from a frozen edge list and route
// set. The impacts PVS can be swapped without re-running the optimizer;
// routes depend only on travel times.
type Aggregator struct {
	cfg    pre.Config
	zones  map[int16]pre.Zone
	ids    []int16
	edges  *analysis.EdgeList
	routes *analysis.RouteSet
	pvs    pre.PVSImpacts
	log    *logrus.Entry
}

func NewAggregator(cfg pre.Config, zones []pre.Zone, edges *analysis.EdgeList, routes *analysis.RouteSet, pvs pre.PVSImpacts) (*Aggregator, error) {
	if err := pvs.Validate(); err != nil {
		return nil, err
	}
	a := &Aggregator{
		cfg:    cfg,
		zones:  make(map[int16]pre.Zone, len(zones)),
		edges:  edges,
		routes: routes,
		pvs:    pvs,
		log:    logrus.WithField("module", "aggregator"),
	}
	for _, z := range zones {
		a.zones[z.ID] = z
		a.ids = append(a.ids, z.ID)
	}
	sort.Slice(a.ids, func(i, j int) bool { return a.ids[i] < a.ids[j] })
	return a, nil
}

// HasZone reports whether id is a known origin zone.
func (a *Aggregator) HasZone(id int16) bool {
	_, ok := a.zones[id]
	return ok
}

// Kinds returns the impact kinds of the active PVS, in canonical order.
func (a *Aggregator) Kinds() []string { return a.pvs.Kinds() }

// routeImpacts sums the per-kind impacts of one route: every traversed
// edge contributes time times the time coefficient plus length times
// the length coefficient of its transport type.
func (a *Aggregator) routeImpacts(r analysis.Route) (map[string]float64, error) {
	kinds := a.pvs.Kinds()
	out := make(map[string]float64, len(kinds))
	if r.Unreachable {
		for _, k := range kinds {
			out[k] = math.NaN()
		}
		return out, nil
	}
	for _, key := range r.Path {
		e, ok := a.edges.Lookup(key)
		if !ok {
			return nil, errs.Invariantf("route (%d,%d,%s) references unknown edge %s", r.Origin, r.Destination, r.Scenario, key)
		}
		for _, k := range kinds {
			c := a.pvs.Coeff(k, e.Mode)
			out[k] += e.Time*c.Time + e.Length*c.Length
		}
	}
	return out, nil
}

// PreparePartialNetwork builds the full result table of one origin
// zone: one row per other zone, with per-scenario times, lengths,
// impacts and the NTS-versus-baseline deltas.
func (a *Aggregator) PreparePartialNetwork(origin int16) ([]Row, error) {
	if !a.HasZone(origin) {
		return nil, errs.Validationf("origin zone %d is not part of the study area", origin)
	}
	kinds := a.pvs.Kinds()
	rows := make([]Row, 0, len(a.ids)-1)
	for _, dest := range a.ids {
		if dest == origin {
			continue
		}
		row := Row{
			Destination: dest,
			Time:        make(map[pre.Scenario]float64, len(analysis.Scenarios)),
			Length:      make(map[pre.Scenario]float64, len(analysis.Scenarios)),
			Impacts:     make(map[string]map[pre.Scenario]float64, len(kinds)),
			TimeDiff:    make(map[pre.Scenario]float64, len(pre.BaselineScenarios)),
			ImpactDiff:  make(map[string]map[pre.Scenario]float64, len(kinds)),
		}
		for _, k := range kinds {
			row.Impacts[k] = make(map[pre.Scenario]float64, len(analysis.Scenarios))
			row.ImpactDiff[k] = make(map[pre.Scenario]float64, len(pre.BaselineScenarios))
		}
		for _, sc := range analysis.Scenarios {
			r, ok := a.routes.Get(origin, dest, sc)
			if !ok {
				return nil, errs.Invariantf("no route for (%d,%d,%s); optimizer output is incomplete", origin, dest, sc)
			}
			row.Time[sc] = r.Time
			row.Length[sc] = r.Length
			imp, err := a.routeImpacts(r)
			if err != nil {
				return nil, err
			}
			for _, k := range kinds {
				row.Impacts[k][sc] = imp[k]
			}
		}
		for _, base := range pre.BaselineScenarios {
			row.TimeDiff[base] = diff(row.Time[pre.ScenarioNTS], row.Time[base])
			for _, k := range kinds {
				row.ImpactDiff[k][base] = diff(row.Impacts[k][pre.ScenarioNTS], row.Impacts[k][base])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// diff is nts minus baseline, NaN when either side is unusable.
func diff(nts, base float64) float64 {
	if math.IsInf(nts, 0) || math.IsInf(base, 0) || math.IsNaN(nts) || math.IsNaN(base) {
		return math.NaN()
	}
	return nts - base
}

// ReplaceAllImpacts swaps the impacts PVS and recomputes every origin
// table in memory. Routes are reused as-is: impact coefficients never
// influence route choice.
func (a *Aggregator) ReplaceAllImpacts(pvs pre.PVSImpacts) (map[int16][]Row, error) {
	if err := pvs.Validate(); err != nil {
		return nil, err
	}
	a.pvs = pvs
	out := make(map[int16][]Row, len(a.ids))
	for _, origin := range a.ids {
		rows, err := a.PreparePartialNetwork(origin)
		if err != nil {
			return nil, err
		}
		out[origin] = rows
	}
	return out, nil
}

// ReplaceAllImpactsInDB recomputes every origin table with a new
// impacts PVS and overwrites the persisted results. Each origin is
// replaced atomically; a failure leaves later origins untouched and is
// reported to the caller.
func (a *Aggregator) ReplaceAllImpactsInDB(ctx context.Context, st ResultsStore, pvs pre.PVSImpacts) error {
	tables, err := a.ReplaceAllImpacts(pvs)
	if err != nil {
		return err
	}
	for _, origin := range a.ids {
		if err := st.ReplaceResults(ctx, origin, tables[origin]); err != nil {
			return err
		}
		a.log.Debugf("results for origin %d replaced with PVS %q", origin, pvs.Name)
	}
	a.log.Infof("impacts replaced for %d origins with PVS %q", len(a.ids), pvs.Name)
	return nil
}
