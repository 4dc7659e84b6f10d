package main

import (
	"flag"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valentinpasche/transnetmap-impacts/analysis"
	"github.com/valentinpasche/transnetmap-impacts/pre"
)

var (
	benchmarkZones    = flag.Int("benchmark.zones", 200, "the synthetic zone count for benchmark")
	benchmarkStations = flag.Int("benchmark.stations", 20, "the synthetic station count for benchmark")
	benchmarkSeed     = flag.Int64("benchmark.seed", 0, "the seed for benchmark")
	benchmarkCPU      = flag.Int("benchmark.cpu", 1, "the worker count for benchmark")
)

// runBenchmark measures edge-list construction and all-pairs
// optimisation over a synthetic study area: zones scattered around a
// line of stations, dense random baseline matrices, one network link
// between consecutive stations.
func runBenchmark() {
	logrus.SetLevel(logrus.WarnLevel)
	e := rand.New(rand.NewSource(*benchmarkSeed))

	cfg := pre.Config{
		NetworkNumber: 1,
		PVSNumber:     1,
		ExtensionType: pre.ExtensionIMT,
		AccessRadius:  50,
		AccessSpeed:   30,
	}

	zones := make([]pre.Zone, *benchmarkZones)
	for i := range zones {
		zones[i] = pre.Zone{
			ID:       int16(i + 1),
			Centroid: [2]float64{6.5 + e.Float64(), 46.5 + e.Float64()},
		}
	}
	stations := make([]pre.Station, *benchmarkStations)
	links := make([]pre.Link, 0, *benchmarkStations-1)
	for i := range stations {
		stations[i] = pre.Station{
			ID:       int16(10000 + i),
			Position: [2]float64{6.5 + float64(i)*0.05, 47.0},
		}
		if i > 0 {
			links = append(links, pre.Link{
				From:   stations[i-1].ID,
				To:     stations[i].ID,
				Length: 4000 + e.Float64()*2000,
				Level:  pre.LevelMain,
				Time:   math.NaN(),
			})
		}
	}
	baseline := func() pre.ODMatrix {
		m := make(pre.ODMatrix, len(zones)*len(zones))
		for _, a := range zones {
			for _, b := range zones {
				if a.ID == b.ID {
					continue
				}
				m[pre.Pair{From: a.ID, To: b.ID}] = pre.ODCell{
					Time:   10 + e.Float64()*110,
					Length: 5 + e.Float64()*95,
				}
			}
		}
		return m
	}
	travelTime := pre.PVSTravelTime{
		Name:   "bench",
		TFName: "suarm",
		Levels: map[pre.Level]pre.LevelParams{
			pre.LevelLower:  {FF: 1.2, TS: 120, AA: 1.0, AD: 1.0, AIT: 1, BIT: 1},
			pre.LevelMain:   {FF: 1.2, TS: 250, AA: 1.0, AD: 1.0, AIT: 2, BIT: 2},
			pre.LevelHigher: {FF: 1.2, TS: 400, AA: 1.0, AD: 1.0, AIT: 3, BIT: 3},
		},
	}

	start := time.Now()
	edges, err := analysis.NewBuilder(cfg, analysis.NewRegistry()).Build(analysis.BuilderInput{
		Zones:    zones,
		Stations: stations,
		Links:    links,
		Baselines: map[pre.Scenario]pre.ODMatrix{
			pre.ScenarioIMT: baseline(),
			pre.ScenarioPT:  baseline(),
		},
		TravelTime: travelTime,
	})
	if err != nil {
		log.Fatalf("benchmark edgelist failed: %s", err)
	}
	buildCost := time.Since(start)

	opt := analysis.NewOptimizer(cfg, edges)
	opt.SetWorkers(*benchmarkCPU)
	start = time.Now()
	routes, err := opt.Run(zones)
	if err != nil {
		log.Fatalf("benchmark optimisation failed: %s", err)
	}
	optCost := time.Since(start)

	reachable := 0
	for _, r := range routes {
		if !r.Unreachable {
			reachable++
		}
	}
	log.Error(
		"benchmark finished", "\n",
		"zones:", *benchmarkZones, "\n",
		"edges:", edges.Len(), "\n",
		"build:", buildCost, "\n",
		"routes:", len(routes), "\n",
		"optimise:", optCost, "\n",
		"avg per source:", optCost/time.Duration(len(analysis.Scenarios)**benchmarkZones), "\n",
		"reachable:", reachable, "\n",
	)
}
