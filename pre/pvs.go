package pre

import (
	"math"

	"github.com/valentinpasche/transnetmap-impacts/errs"
)

// LevelParams are the kinematic parameters of one infrastructure level,
// used when a link's travel time must be derived instead of read from
// input.
type LevelParams struct {
	// FF is the fractal factor applied to the geometric link length
	// to account for the real alignment.
	FF float64
	// TS is the top speed [km/h].
	TS float64
	// AA and AD are the average acceleration and deceleration [m/s²].
	AA float64
	AD float64
	// AIT and BIT are fixed intermediate times added to every section
	// time (station dwell, turnaround) [min].
	AIT float64
	BIT float64
}

// PVSTravelTime is the named travel-time parameter bundle of one
// physical value set: per-level kinematics plus the name of the
// registered time function they feed.
type PVSTravelTime struct {
	Name   string
	TFName string
	Levels map[Level]LevelParams
}

// Validate checks that every level carries usable kinematics.
func (p PVSTravelTime) Validate() error {
	if p.Name == "" {
		return errs.Validationf("travel-time PVS has no name")
	}
	if p.TFName == "" {
		return errs.Validationf("travel-time PVS %q names no time function", p.Name)
	}
	for _, level := range []Level{LevelLower, LevelMain, LevelHigher} {
		lp, ok := p.Levels[level]
		if !ok {
			return errs.Validationf("travel-time PVS %q misses level %d parameters", p.Name, level)
		}
		if lp.FF <= 0 || lp.TS <= 0 || lp.AA <= 0 || lp.AD == 0 {
			return errs.Validationf("travel-time PVS %q has invalid kinematics for level %d", p.Name, level)
		}
		if lp.AIT < 0 || lp.BIT < 0 {
			return errs.Validationf("travel-time PVS %q has negative intermediate times for level %d", p.Name, level)
		}
	}
	return nil
}

// ImpactCoeff weights one mode for one impact kind: per-unit-time and
// per-unit-length coefficients (impact per minute, impact per km).
type ImpactCoeff struct {
	Time   float64
	Length float64
}

// PVSImpacts maps impact kind -> transport type -> coefficients for one
// named physical value set. Its lifecycle is independent of the routes:
// swapping a PVSImpacts never invalidates optimisation results.
type PVSImpacts struct {
	Name   string
	Coeffs map[string]map[Type]ImpactCoeff
}

// Validate rejects unknown impact kinds and non-finite coefficients.
func (p PVSImpacts) Validate() error {
	if p.Name == "" {
		return errs.Validationf("impacts PVS has no name")
	}
	known := make(map[string]struct{}, len(Impacts))
	for _, k := range Impacts {
		known[k] = struct{}{}
	}
	for kind, byType := range p.Coeffs {
		if _, ok := known[kind]; !ok {
			return errs.Validationf("impacts PVS %q carries unknown impact kind %q", p.Name, kind)
		}
		for t, c := range byType {
			if math.IsNaN(c.Time) || math.IsInf(c.Time, 0) || math.IsNaN(c.Length) || math.IsInf(c.Length, 0) {
				return errs.Validationf("impacts PVS %q has non-finite coefficients for kind %q, type %s", p.Name, kind, t)
			}
		}
	}
	return nil
}

// Coeff returns the coefficients of an impact kind for a transport
// type; missing entries weigh zero so an incomplete PVS degrades to
// partial sums instead of failing mid-aggregation.
func (p PVSImpacts) Coeff(kind string, t Type) ImpactCoeff {
	byType, ok := p.Coeffs[kind]
	if !ok {
		return ImpactCoeff{}
	}
	return byType[t]
}

// Kinds returns the impact kinds present in the set, in the canonical
// report order.
func (p PVSImpacts) Kinds() []string {
	out := make([]string, 0, len(p.Coeffs))
	for _, k := range Impacts {
		if _, ok := p.Coeffs[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
