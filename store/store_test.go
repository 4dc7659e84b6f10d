package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valentinpasche/transnetmap-impacts/analysis"
	"github.com/valentinpasche/transnetmap-impacts/post"
	"github.com/valentinpasche/transnetmap-impacts/pre"
	"github.com/valentinpasche/transnetmap-impacts/store"
)

// Integration tests run against a live database only; set
// TEST_POSTGRES_URI to enable them.
func testStore(t *testing.T) *store.Store {
	t.Helper()
	uri := os.Getenv("TEST_POSTGRES_URI")
	if uri == "" {
		t.Skip("TEST_POSTGRES_URI not set")
	}
	cfg := pre.Config{
		NetworkNumber: 9001,
		PVSNumber:     1,
		ExtensionType: pre.ExtensionIMT,
		AccessRadius:  5,
		AccessSpeed:   30,
	}
	st, err := store.Open(context.Background(), uri, cfg)
	assert.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEnsureSchema(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	assert.NoError(t, st.EnsureSchema(ctx))
	assert.Equal(t, "results_9001_pvs1_imt", st.Schema())
	// idempotent
	assert.NoError(t, st.EnsureSchema(ctx))
}

func TestReplaceEdgeListRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	assert.NoError(t, st.EnsureSchema(ctx))

	el := &analysis.EdgeList{}
	assert.NoError(t, st.ReplaceEdgeList(ctx, el))
	// replacing twice must not fail or duplicate
	assert.NoError(t, st.ReplaceEdgeList(ctx, el))
}

func TestReplaceResults(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	assert.NoError(t, st.EnsureSchema(ctx))

	rows := []post.Row{{
		Destination: 2,
		Time: map[pre.Scenario]float64{
			pre.ScenarioNTS: 9.4, pre.ScenarioIMT: 30, pre.ScenarioPT: 40,
		},
		Length: map[pre.Scenario]float64{
			pre.ScenarioNTS: 14.2, pre.ScenarioIMT: 20, pre.ScenarioPT: 18,
		},
		Impacts: map[string]map[pre.Scenario]float64{
			pre.ImpactCO2: {pre.ScenarioNTS: 0.29, pre.ScenarioIMT: 4, pre.ScenarioPT: 0.9},
		},
		TimeDiff: map[pre.Scenario]float64{
			pre.ScenarioIMT: -20.6, pre.ScenarioPT: -30.6,
		},
		ImpactDiff: map[string]map[pre.Scenario]float64{
			pre.ImpactCO2: {pre.ScenarioIMT: -3.71, pre.ScenarioPT: -0.61},
		},
	}}
	assert.NoError(t, st.ReplaceResults(ctx, 1, rows))

	got, cols, err := st.LoadResults(ctx, 1)
	assert.NoError(t, err)
	assert.Contains(t, cols, "impact_diff_co2_imt")
	assert.Len(t, got, 1)
	assert.Equal(t, rows[0], got[0])
}
