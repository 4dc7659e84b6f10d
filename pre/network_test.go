package pre_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valentinpasche/transnetmap-impacts/errs"
	"github.com/valentinpasche/transnetmap-impacts/pre"
)

func TestValidateZones(t *testing.T) {
	zones := []pre.Zone{
		{ID: 1, Centroid: [2]float64{7.0, 46.0}},
		{ID: 2, Centroid: [2]float64{7.1, 46.1}},
	}
	assert.NoError(t, pre.ValidateZones(zones))

	dup := append(zones, pre.Zone{ID: 1, Centroid: [2]float64{7.2, 46.2}})
	assert.ErrorIs(t, pre.ValidateZones(dup), errs.ErrValidation)

	bad := []pre.Zone{{ID: 1, Centroid: [2]float64{200, 46.0}}}
	assert.ErrorIs(t, pre.ValidateZones(bad), errs.ErrValidation)

	nan := []pre.Zone{{ID: 1, Centroid: [2]float64{math.NaN(), 46.0}}}
	assert.ErrorIs(t, pre.ValidateZones(nan), errs.ErrValidation)
}

func TestValidateStations(t *testing.T) {
	zones := []pre.Zone{{ID: 1, Centroid: [2]float64{7.0, 46.0}}}
	stations := []pre.Station{
		{ID: 101, Position: [2]float64{7.0, 46.0}},
		{ID: 102, Position: [2]float64{7.1, 46.1}},
	}
	assert.NoError(t, pre.ValidateStations(stations, zones))

	dup := append(stations, pre.Station{ID: 101, Position: [2]float64{7.2, 46.2}})
	assert.ErrorIs(t, pre.ValidateStations(dup, zones), errs.ErrValidation)

	// stations share the node id space with zones
	collision := []pre.Station{{ID: 1, Position: [2]float64{7.0, 46.0}}}
	assert.ErrorIs(t, pre.ValidateStations(collision, zones), errs.ErrValidation)
}

func TestValidateLinks(t *testing.T) {
	stations := []pre.Station{
		{ID: 101, Position: [2]float64{7.0, 46.0}},
		{ID: 102, Position: [2]float64{7.1, 46.1}},
	}
	good := []pre.Link{{From: 101, To: 102, Length: 5000, Level: pre.LevelMain, Time: math.NaN()}}
	assert.NoError(t, pre.ValidateLinks(good, stations))

	unknown := []pre.Link{{From: 101, To: 999, Length: 5000, Level: pre.LevelMain, Time: math.NaN()}}
	assert.ErrorIs(t, pre.ValidateLinks(unknown, stations), errs.ErrValidation)

	self := []pre.Link{{From: 101, To: 101, Length: 5000, Level: pre.LevelMain, Time: math.NaN()}}
	assert.ErrorIs(t, pre.ValidateLinks(self, stations), errs.ErrValidation)

	badLength := []pre.Link{{From: 101, To: 102, Length: 0, Level: pre.LevelMain, Time: math.NaN()}}
	assert.ErrorIs(t, pre.ValidateLinks(badLength, stations), errs.ErrValidation)

	badLevel := []pre.Link{{From: 101, To: 102, Length: 5000, Level: 9, Time: math.NaN()}}
	assert.ErrorIs(t, pre.ValidateLinks(badLevel, stations), errs.ErrValidation)

	badTime := []pre.Link{{From: 101, To: 102, Length: 5000, Level: pre.LevelMain, Time: -3}}
	assert.ErrorIs(t, pre.ValidateLinks(badTime, stations), errs.ErrValidation)
}

func TestValidateODMatrix(t *testing.T) {
	good := pre.ODMatrix{
		{From: 1, To: 2}: {Time: 30, Length: 20},
	}
	assert.NoError(t, pre.ValidateODMatrix(pre.ScenarioIMT, good))

	negative := pre.ODMatrix{
		{From: 1, To: 2}: {Time: -1, Length: 20},
	}
	assert.ErrorIs(t, pre.ValidateODMatrix(pre.ScenarioIMT, negative), errs.ErrValidation)

	infinite := pre.ODMatrix{
		{From: 1, To: 2}: {Time: 30, Length: math.Inf(1)},
	}
	assert.ErrorIs(t, pre.ValidateODMatrix(pre.ScenarioPT, infinite), errs.ErrValidation)
}
