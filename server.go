package main

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/valentinpasche/transnetmap-impacts/analysis"
	"github.com/valentinpasche/transnetmap-impacts/errs"
	"github.com/valentinpasche/transnetmap-impacts/post"
	"github.com/valentinpasche/transnetmap-impacts/pre"
)

// APIServer exposes the computed results over a small read-only JSON
// API. Result tables are immutable once the pipeline has run, so
// serialized responses are cached.
type APIServer struct {
	cfg   pre.Config
	agg   *post.Aggregator
	edges *analysis.EdgeList
	st    ResultsReader
	cache *gocache.Cache
}

// ResultsReader is the slice of the store the API needs.
type ResultsReader interface {
	Schema() string
}

func NewAPIServer(cfg pre.Config, agg *post.Aggregator, edges *analysis.EdgeList, st ResultsReader) *APIServer {
	return &APIServer{
		cfg:   cfg,
		agg:   agg,
		edges: edges,
		st:    st,
		cache: gocache.New(10*time.Minute, 30*time.Minute),
	}
}

// Handler builds the routing table. CORS is permissive: the API serves
// precomputed, non-sensitive analysis output to mapping frontends.
func (s *APIServer) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/edgelist/irrelevant", s.handleIrrelevant).Methods(http.MethodGet)
	api.HandleFunc("/results/{zone}", s.handleResults).Methods(http.MethodGet)
	return cors.AllowAll().Handler(r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrRange):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"schema":  s.st.Schema(),
		"network": s.cfg.NetworkNumber,
		"pvs":     s.cfg.PVSName(),
		"edges":   s.edges.Len(),
	})
}

type irrelevantEdge struct {
	From   int16   `json:"from"`
	To     int16   `json:"to"`
	Mode   string  `json:"mode"`
	Time   float64 `json:"time_min"`
	Length float64 `json:"length_km"`
}

// handleIrrelevant returns the network edges the builder flagged as
// dominated by the extension baseline, the audit view for network
// design iteration.
func (s *APIServer) handleIrrelevant(w http.ResponseWriter, r *http.Request) {
	const key = "irrelevant"
	if v, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}
	out := make([]irrelevantEdge, 0)
	for _, e := range s.edges.Irrelevant() {
		out = append(out, irrelevantEdge{
			From: e.From, To: e.To, Mode: e.Mode.String(),
			Time: e.Time, Length: e.Length,
		})
	}
	s.cache.Set(key, out, gocache.DefaultExpiration)
	writeJSON(w, http.StatusOK, out)
}

type resultRow struct {
	Destination int16               `json:"destination"`
	Time        map[string]*float64 `json:"time_min"`
	TimeDiff    map[string]*float64 `json:"time_diff_min"`
	Impacts     map[string]*float64 `json:"impacts,omitempty"`
	ImpactDiff  map[string]*float64 `json:"impact_diff,omitempty"`
}

// jsonFloat maps the sentinel values of unreachable relations to null;
// JSON has no NaN or Inf.
func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// handleResults serves the result table of one origin zone. The
// optional impact query parameter restricts the impact columns to one
// kind.
func (s *APIServer) handleResults(w http.ResponseWriter, r *http.Request) {
	zoneStr := mux.Vars(r)["zone"]
	zone64, err := strconv.ParseInt(zoneStr, 10, 16)
	if err != nil {
		writeError(w, errs.Validationf("invalid zone id %q", zoneStr))
		return
	}
	origin := int16(zone64)
	kind := r.URL.Query().Get("impact")
	if kind != "" {
		known := false
		for _, k := range s.agg.Kinds() {
			if k == kind {
				known = true
				break
			}
		}
		if !known {
			writeError(w, errs.NotFoundf("unknown impact kind %q", kind))
			return
		}
	}

	key := fmt.Sprintf("results:%d:%s", origin, kind)
	if v, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}

	rows, err := s.agg.PreparePartialNetwork(origin)
	if err != nil {
		writeError(w, err)
		return
	}
	kinds := s.agg.Kinds()
	if kind != "" {
		kinds = []string{kind}
	}
	out := make([]resultRow, 0, len(rows))
	for _, row := range rows {
		rr := resultRow{
			Destination: row.Destination,
			Time:        make(map[string]*float64, len(row.Time)),
			TimeDiff:    make(map[string]*float64, len(row.TimeDiff)),
			Impacts:     make(map[string]*float64),
			ImpactDiff:  make(map[string]*float64),
		}
		for sc, v := range row.Time {
			rr.Time[string(sc)] = jsonFloat(v)
		}
		for sc, v := range row.TimeDiff {
			rr.TimeDiff[string(sc)] = jsonFloat(v)
		}
		for _, k := range kinds {
			for sc, v := range row.Impacts[k] {
				rr.Impacts[k+"_"+string(sc)] = jsonFloat(v)
			}
			for sc, v := range row.ImpactDiff[k] {
				rr.ImpactDiff[k+"_diff_"+string(sc)] = jsonFloat(v)
			}
		}
		out = append(out, rr)
	}
	s.cache.Set(key, out, gocache.DefaultExpiration)
	writeJSON(w, http.StatusOK, out)
}
