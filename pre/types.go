// Package pre holds the validated reference data consumed by the
// analysis pipeline: zones, stations, links, baseline OD matrices and
// physical value sets, plus the run configuration.
package pre

import "fmt"

// Type is the integer transport-type code carried in the "mode" column
// of every persisted table. The NTS prefix/suffix stands for New
// Transportation System. Values are part of the database contract and
// must not be renumbered.
type Type int8

const (
	TypeIMT       Type = 1
	TypePT        Type = 2
	TypeNTSLower  Type = 3
	TypeNTSMain   Type = 4
	TypeNTSHigher Type = 5
	TypeWithNTS   Type = 6
	TypeExtendNTS Type = 7
	// TypeZoneAccess codes the synthetic connectors between zone
	// centroids and nearby stations.
	TypeZoneAccess Type = 8
)

var typeNames = map[Type]string{
	TypeIMT:        "IMT",
	TypePT:         "PT",
	TypeNTSLower:   "NTS-lower",
	TypeNTSMain:    "NTS-main",
	TypeNTSHigher:  "NTS-higher",
	TypeWithNTS:    "with-NTS",
	TypeExtendNTS:  "extend-NTS",
	TypeZoneAccess: "zone-access",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int8(t))
}

// Level is the infrastructure level of a new-network link. It selects
// the physical parameters (speed profile, fractal factor) applied when
// deriving the link's travel time.
type Level int8

const (
	LevelLower  Level = 1
	LevelMain   Level = 2
	LevelHigher Level = 3
)

// LinkType maps a link level to the transport-type code used in the
// edge table.
func (l Level) LinkType() Type {
	switch l {
	case LevelLower:
		return TypeNTSLower
	case LevelMain:
		return TypeNTSMain
	case LevelHigher:
		return TypeNTSHigher
	}
	return 0
}

func (l Level) Valid() bool {
	return l == LevelLower || l == LevelMain || l == LevelHigher
}

// Scenario is a routing context: the new network or one baseline mode
// in isolation.
type Scenario string

const (
	ScenarioNTS Scenario = "NTS"
	ScenarioIMT Scenario = "IMT"
	ScenarioPT  Scenario = "PT"
)

// BaselineScenarios lists the baseline contexts the NTS scenario is
// compared against, in fixed report order.
var BaselineScenarios = []Scenario{ScenarioIMT, ScenarioPT}

// BaselineType returns the transport-type code of a baseline scenario.
func (s Scenario) BaselineType() (Type, bool) {
	switch s {
	case ScenarioIMT:
		return TypeIMT, true
	case ScenarioPT:
		return TypePT, true
	}
	return 0, false
}

// Impact kinds carried by physical value sets. The list mirrors the
// native impacts of the reference data: CO2 emissions, primary energy
// and total cost of ownership.
const (
	ImpactCO2 = "CO2"
	ImpactEP  = "EP"
	ImpactTCO = "TCO"
)

// Impacts is the ordered list of supported impact kinds.
var Impacts = []string{ImpactCO2, ImpactEP, ImpactTCO}

// Pair is an ordered (origin, destination) node pair.
type Pair struct {
	From int16
	To   int16
}
