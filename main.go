package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"

	"github.com/valentinpasche/transnetmap-impacts/analysis"
	"github.com/valentinpasche/transnetmap-impacts/post"
	"github.com/valentinpasche/transnetmap-impacts/pre"
	"github.com/valentinpasche/transnetmap-impacts/store"
)

var (
	postgresURI   = flag.String("postgres_uri", "", "postgres connection uri")
	networkNumber = flag.Int("network", 0, "new-network number to process")
	pvsNumber     = flag.Int("pvs", 0, "physical value set number")
	extensionType = flag.String("extension-type", "IMT", "network extension type [IMT, PT, NTS]")
	accessRadius  = flag.Float64("access-radius", 10, "zone-to-station access radius [km]")
	accessSpeed   = flag.Float64("access-speed", 30, "zone-to-station access speed [km/h]")
	httpEndpoint  = flag.String("listen", "localhost:52101", "HTTP listening address")
	logLevel      = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")

	benchmark = flag.Bool("benchmark", false, "benchmark mode")
	pprofAddr = flag.String("pprof", "localhost:52102", "pprof listening address")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}

	log = logrus.WithField("module", "transnetmap")
)

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	flag.Parse()
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	if *pprofAddr != "" {
		startHTTPDebugger(*pprofAddr)
	}

	if *benchmark {
		runBenchmark()
		return
	}

	cfg := pre.Config{
		NetworkNumber: *networkNumber,
		PVSNumber:     *pvsNumber,
		ExtensionType: pre.ExtensionType(*extensionType),
		AccessRadius:  *accessRadius,
		AccessSpeed:   *accessSpeed,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %s", err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, *postgresURI, cfg)
	if err != nil {
		log.Fatalf("store: %s", err)
	}
	defer st.Close()

	agg, edges, err := runPipeline(ctx, cfg, st)
	if err != nil {
		log.Fatalf("pipeline: %s", err)
	}

	server := NewAPIServer(cfg, agg, edges, st)
	s := &http.Server{
		Addr:    *httpEndpoint,
		Handler: server.Handler(),
	}

	// graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		go func() {
			<-signalCh
			os.Exit(1) // second signal forces exit
		}()
		s.Close()
		st.Close()
		os.Exit(0)
	}()

	log.Infof("server listening at %v", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to serve: %v", err)
	}
	time.Sleep(1 * time.Second) // let in-flight requests drain
	log.Info("transnetmap closes")
}

// runPipeline loads the inputs, builds the candidate edge table, solves
// all zone pairs per scenario, aggregates the impacts and persists
// every stage into the results schema.
func runPipeline(ctx context.Context, cfg pre.Config, st *store.Store) (*post.Aggregator, *analysis.EdgeList, error) {
	if err := st.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}
	zones, err := st.LoadZones(ctx)
	if err != nil {
		return nil, nil, err
	}
	stations, err := st.LoadStations(ctx)
	if err != nil {
		return nil, nil, err
	}
	links, err := st.LoadLinks(ctx)
	if err != nil {
		return nil, nil, err
	}
	baselines := make(map[pre.Scenario]pre.ODMatrix, len(pre.BaselineScenarios))
	for _, sc := range pre.BaselineScenarios {
		m, err := st.LoadBaseline(ctx, sc)
		if err != nil {
			return nil, nil, err
		}
		baselines[sc] = m
	}
	travelTime, err := st.LoadTravelTimePVS(ctx)
	if err != nil {
		return nil, nil, err
	}
	impacts, err := st.LoadImpactsPVS(ctx)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("inputs loaded: %d zones, %d stations, %d links", len(zones), len(stations), len(links))

	edges, err := analysis.NewBuilder(cfg, analysis.NewRegistry()).Build(analysis.BuilderInput{
		Zones:      zones,
		Stations:   stations,
		Links:      links,
		Baselines:  baselines,
		TravelTime: travelTime,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := st.ReplaceEdgeList(ctx, edges); err != nil {
		return nil, nil, err
	}

	routes, err := analysis.NewOptimizer(cfg, edges).Run(zones)
	if err != nil {
		return nil, nil, err
	}
	if err := st.ReplaceRoutes(ctx, routes); err != nil {
		return nil, nil, err
	}
	log.Infof("optimisation done: %d routes", len(routes))

	agg, err := post.NewAggregator(cfg, zones, edges, analysis.NewRouteSet(routes), impacts)
	if err != nil {
		return nil, nil, err
	}
	for _, z := range zones {
		rows, err := agg.PreparePartialNetwork(z.ID)
		if err != nil {
			return nil, nil, err
		}
		if err := st.ReplaceResults(ctx, z.ID, rows); err != nil {
			return nil, nil, err
		}
	}
	log.Infof("results written to schema %s", st.Schema())
	return agg, edges, nil
}
