package pre

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/valentinpasche/transnetmap-impacts/errs"
)

// Zone is an aggregated geographic unit used as trip origin and
// destination. Reference data, set once per baseline import.
type Zone struct {
	ID       int16
	Name     string
	Centroid orb.Point // lon, lat
}

// Station is a node of the proposed new network.
type Station struct {
	ID       int16
	Name     string
	Position orb.Point // lon, lat
}

// Link is a section of the proposed new network between two stations.
// Length is in meters. Time is in minutes; NaN means the travel time
// must be derived from the registered time function of the link level.
type Link struct {
	From   int16
	To     int16
	Length float64
	Level  Level
	Time   float64
	Oneway bool
}

// ODCell is one baseline origin-destination relation. Time in minutes,
// length in kilometers.
type ODCell struct {
	Time   float64
	Length float64
}

// ODMatrix is the baseline travel matrix of one existing mode. Missing
// pairs are simply absent.
type ODMatrix map[Pair]ODCell

func validPoint(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// ValidateZones checks zone identifier uniqueness and centroid
// plausibility.
func ValidateZones(zones []Zone) error {
	seen := make(map[int16]struct{}, len(zones))
	for _, z := range zones {
		if _, ok := seen[z.ID]; ok {
			return errs.Validationf("duplicate zone id %d", z.ID)
		}
		seen[z.ID] = struct{}{}
		if !validPoint(z.Centroid) {
			return errs.Validationf("zone %d has an implausible centroid %v", z.ID, z.Centroid)
		}
	}
	return nil
}

// ValidateStations checks station uniqueness, spatial plausibility and
// that station identifiers do not collide with the zone id space. Zones
// and stations share one node id space in the edge table, so a collision
// would silently merge a station into a zone.
func ValidateStations(stations []Station, zones []Zone) error {
	zoneIDs := make(map[int16]struct{}, len(zones))
	for _, z := range zones {
		zoneIDs[z.ID] = struct{}{}
	}
	seen := make(map[int16]struct{}, len(stations))
	for _, s := range stations {
		if _, ok := seen[s.ID]; ok {
			return errs.Validationf("duplicate station id %d", s.ID)
		}
		seen[s.ID] = struct{}{}
		if _, ok := zoneIDs[s.ID]; ok {
			return errs.Validationf("station id %d collides with a zone id", s.ID)
		}
		if !validPoint(s.Position) {
			return errs.Validationf("station %d has an implausible position %v", s.ID, s.Position)
		}
	}
	return nil
}

// ValidateLinks checks that every link references existing stations and
// carries a plausible length, level and optional time.
func ValidateLinks(links []Link, stations []Station) error {
	ids := make(map[int16]struct{}, len(stations))
	for _, s := range stations {
		ids[s.ID] = struct{}{}
	}
	for _, l := range links {
		if _, ok := ids[l.From]; !ok {
			return errs.Validationf("link (%d,%d) references unknown station %d", l.From, l.To, l.From)
		}
		if _, ok := ids[l.To]; !ok {
			return errs.Validationf("link (%d,%d) references unknown station %d", l.From, l.To, l.To)
		}
		if l.From == l.To {
			return errs.Validationf("link (%d,%d) is a self loop", l.From, l.To)
		}
		if l.Length <= 0 || math.IsInf(l.Length, 0) || math.IsNaN(l.Length) {
			return errs.Validationf("link (%d,%d) has invalid length %v", l.From, l.To, l.Length)
		}
		if !l.Level.Valid() {
			return errs.Validationf("link (%d,%d) has invalid level %d", l.From, l.To, l.Level)
		}
		if !math.IsNaN(l.Time) && (l.Time < 0 || math.IsInf(l.Time, 0)) {
			return errs.Validationf("link (%d,%d) has invalid time %v", l.From, l.To, l.Time)
		}
	}
	return nil
}

// ValidateODMatrix rejects negative or non-finite baseline cells; the
// builder relies on every accepted cell being a usable edge.
func ValidateODMatrix(scenario Scenario, m ODMatrix) error {
	for pair, cell := range m {
		if cell.Time < 0 || math.IsNaN(cell.Time) || math.IsInf(cell.Time, 0) {
			return errs.Validationf("%s matrix cell (%d,%d) has invalid time %v", scenario, pair.From, pair.To, cell.Time)
		}
		if cell.Length < 0 || math.IsNaN(cell.Length) || math.IsInf(cell.Length, 0) {
			return errs.Validationf("%s matrix cell (%d,%d) has invalid length %v", scenario, pair.From, pair.To, cell.Length)
		}
	}
	return nil
}
