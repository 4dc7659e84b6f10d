package analysis

import (
	"math"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/valentinpasche/transnetmap-impacts/errs"
)

// TimeFunction computes the travel time of one section.
//
// Inputs: distance [m], vMax [km/h], acceleration and deceleration
// [m/s²]. The result is in minutes and must be finite and non-negative
// for any admissible input.
type TimeFunction func(distance, vMax, acceleration, deceleration float64) float64

// sampleInputs are the representative inputs a candidate function must
// behave on before it is accepted into the registry.
var sampleInputs = []struct {
	distance, vMax, acc, dec float64
}{
	{0, 100, 1, 1},
	{500, 30, 0.8, 0.8},
	{1_000, 120, 1.3, 1.3},
	{250_000, 400, 1.3, 1.3},
}

// Registry is an explicit, named catalogue of travel-time strategies.
// It is populated once at startup, frozen, and then only read: the
// edge-list builder never observes a mutating registry, which keeps a
// given build reproducible.
type Registry struct {
	mu     *xsync.RBMutex
	fns    map[string]TimeFunction
	frozen bool
}

// NewRegistry returns a registry preloaded with the built-in functions
// ("suarm" and "uniform"), still open for registration.
func NewRegistry() *Registry {
	r := &Registry{
		mu:  xsync.NewRBMutex(),
		fns: make(map[string]TimeFunction),
	}
	// built-ins are known good, no sample validation needed
	r.fns["suarm"] = Suarm
	r.fns["uniform"] = Uniform
	return r
}

// Register validates and adds a strategy under a unique name.
// A missing name, nil function or duplicate registration fails with
// ErrSignature; a function producing negative, NaN or infinite times on
// the representative sample inputs fails with ErrRange. Registration on
// a frozen registry fails with ErrSignature.
func (r *Registry) Register(name string, fn TimeFunction) error {
	if name == "" {
		return errs.Signaturef("time function has no name")
	}
	if fn == nil {
		return errs.Signaturef("time function %q is nil", name)
	}
	for _, in := range sampleInputs {
		v := fn(in.distance, in.vMax, in.acc, in.dec)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errs.Rangef("time function %q returned %v for distance=%v vMax=%v", name, v, in.distance, in.vMax)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errs.Signaturef("registry is frozen, cannot register %q", name)
	}
	if _, ok := r.fns[name]; ok {
		return errs.Signaturef("time function %q is already registered", name)
	}
	r.fns[name] = fn
	return nil
}

// Freeze closes the registry for registration. Idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Lookup returns the strategy registered under name, or ErrNotFound.
func (r *Registry) Lookup(name string) (TimeFunction, error) {
	token := r.mu.RLock()
	defer r.mu.RUnlock(token)
	fn, ok := r.fns[name]
	if !ok {
		return nil, errs.NotFoundf("time function %q is not registered (available: %v)", name, r.names())
	}
	return fn, nil
}

// names must be called with the read lock held.
func (r *Registry) names() []string {
	out := make([]string, 0, len(r.fns))
	for name := range r.fns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Suarm computes travel time under symmetrical uniformly accelerated
// rectilinear motion: accelerate to vMax, cruise, decelerate. Short
// sections that never reach vMax use the triangular profile.
func Suarm(distance, vMax, acceleration, deceleration float64) float64 {
	v := vMax / 3.6 // [m/s]
	a := acceleration
	d := math.Abs(deceleration)
	taMax := v / a
	tdMax := v / d
	dAccDec := (taMax + tdMax) * (v / 2)

	var total float64 // [s]
	if distance > dAccDec {
		total = (distance-dAccDec)/v + taMax + tdMax
	} else {
		td := math.Sqrt(2 * distance / ((d*d)/a + d))
		ta := td * (d / a)
		total = ta + td
	}
	return roundTenth(total / 60)
}

// Uniform computes travel time at constant speed, ignoring the
// acceleration parameters.
func Uniform(distance, vMax, _, _ float64) float64 {
	return roundTenth(distance / (vMax / 3.6) / 60)
}

// roundTenth rounds to one decimal, the resolution of the baseline
// matrices.
func roundTenth(minutes float64) float64 {
	return math.Round(minutes*10) / 10
}
