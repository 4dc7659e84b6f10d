package analysis_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valentinpasche/transnetmap-impacts/analysis"
	"github.com/valentinpasche/transnetmap-impacts/errs"
)

func TestSuarm(t *testing.T) {
	// short section, never reaches top speed (triangular profile)
	assert.Equal(t, 1.1, analysis.Suarm(1000, 120, 1, 1))
	// long section with a cruise phase
	assert.Equal(t, 5.6, analysis.Suarm(10000, 120, 1, 1))
	// zero distance costs nothing
	assert.Equal(t, 0.0, analysis.Suarm(0, 120, 1, 1))
	// deceleration sign is ignored
	assert.Equal(t, analysis.Suarm(10000, 120, 1, 1), analysis.Suarm(10000, 120, 1, -1))
}

func TestUniform(t *testing.T) {
	assert.Equal(t, 1.0, analysis.Uniform(1000, 60, 0, 0))
	assert.Equal(t, 30.0, analysis.Uniform(60000, 120, 0, 0))
}

func TestRegistryBuiltins(t *testing.T) {
	r := analysis.NewRegistry()
	fn, err := r.Lookup("suarm")
	assert.NoError(t, err)
	assert.NotNil(t, fn)
	fn, err = r.Lookup("uniform")
	assert.NoError(t, err)
	assert.NotNil(t, fn)
}

func TestRegistryRegister(t *testing.T) {
	r := analysis.NewRegistry()
	err := r.Register("crawl", func(distance, vMax, _, _ float64) float64 {
		return distance / 100
	})
	assert.NoError(t, err)
	fn, err := r.Lookup("crawl")
	assert.NoError(t, err)
	assert.Equal(t, 10.0, fn(1000, 0, 0, 0))
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	r := analysis.NewRegistry()

	err := r.Register("", analysis.Uniform)
	assert.ErrorIs(t, err, errs.ErrSignature)

	err = r.Register("nil-fn", nil)
	assert.ErrorIs(t, err, errs.ErrSignature)

	err = r.Register("suarm", analysis.Uniform)
	assert.ErrorIs(t, err, errs.ErrSignature)

	err = r.Register("negative", func(_, _, _, _ float64) float64 { return -1 })
	assert.ErrorIs(t, err, errs.ErrRange)

	err = r.Register("nan", func(_, _, _, _ float64) float64 { return math.NaN() })
	assert.ErrorIs(t, err, errs.ErrRange)
}

func TestRegistryFreeze(t *testing.T) {
	r := analysis.NewRegistry()
	r.Freeze()
	err := r.Register("late", analysis.Uniform)
	assert.ErrorIs(t, err, errs.ErrSignature)

	// lookups keep working on a frozen registry
	_, err = r.Lookup("suarm")
	assert.NoError(t, err)
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := analysis.NewRegistry()
	_, err := r.Lookup("warp")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Contains(t, err.Error(), "suarm")
}
