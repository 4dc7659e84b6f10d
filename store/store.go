// Package store persists inputs and results in PostgreSQL. Reference
// data lives in fixed input schemas; every computed artifact of one
// (network, PVS, extension-type) configuration lives in its own results
// schema so runs never overwrite each other.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/valentinpasche/transnetmap-impacts/pre"
)

// Input schemas. Zones, stations, links and baseline matrices are
// written once by the import tooling; physical value sets carry the
// coefficient catalogues.
const (
	SchemaInputs = "inputs"
	SchemaPVS    = "pvs"
)

// Store wraps one PostgreSQL connection pool bound to one run
// configuration.
type Store struct {
	db     *sql.DB
	cfg    pre.Config
	schema string
	log    *logrus.Entry
}

// Open connects, configures the pool and verifies the connection.
func Open(ctx context.Context, uri string, cfg pre.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &Store{
		db:     db,
		cfg:    cfg,
		schema: cfg.ResultsSchema(),
		log:    logrus.WithField("module", "store"),
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Schema returns the results schema of the bound configuration.
func (s *Store) Schema() string { return s.schema }

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

// EnsureSchema creates the results schema of this configuration.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(s.schema))
	return errors.Wrapf(err, "create schema %s", s.schema)
}

// LoadZones reads the study-area zones from the input schema.
func (s *Store) LoadZones(ctx context.Context) ([]pre.Zone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, lon, lat FROM `+SchemaInputs+`.zones ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query zones")
	}
	defer rows.Close()
	var out []pre.Zone
	for rows.Next() {
		var z pre.Zone
		var lon, lat float64
		if err := rows.Scan(&z.ID, &z.Name, &lon, &lat); err != nil {
			return nil, errors.Wrap(err, "scan zone")
		}
		z.Centroid = [2]float64{lon, lat}
		out = append(out, z)
	}
	return out, errors.Wrap(rows.Err(), "iterate zones")
}

// LoadStations reads the new-network stations of the bound network
// number.
func (s *Store) LoadStations(ctx context.Context) ([]pre.Station, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, lon, lat FROM `+SchemaInputs+`.stations WHERE network = $1 ORDER BY id`,
		s.cfg.NetworkNumber)
	if err != nil {
		return nil, errors.Wrap(err, "query stations")
	}
	defer rows.Close()
	var out []pre.Station
	for rows.Next() {
		var st pre.Station
		var lon, lat float64
		if err := rows.Scan(&st.ID, &st.Name, &lon, &lat); err != nil {
			return nil, errors.Wrap(err, "scan station")
		}
		st.Position = [2]float64{lon, lat}
		out = append(out, st)
	}
	return out, errors.Wrap(rows.Err(), "iterate stations")
}

// LoadLinks reads the new-network links. A NULL time means the travel
// time must be derived from the level's time function.
func (s *Store) LoadLinks(ctx context.Context) ([]pre.Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, length_m, level, time_min, oneway
		   FROM `+SchemaInputs+`.links WHERE network = $1 ORDER BY from_id, to_id`,
		s.cfg.NetworkNumber)
	if err != nil {
		return nil, errors.Wrap(err, "query links")
	}
	defer rows.Close()
	var out []pre.Link
	for rows.Next() {
		var l pre.Link
		var t sql.NullFloat64
		if err := rows.Scan(&l.From, &l.To, &l.Length, &l.Level, &t, &l.Oneway); err != nil {
			return nil, errors.Wrap(err, "scan link")
		}
		l.Time = math.NaN()
		if t.Valid {
			l.Time = t.Float64
		}
		out = append(out, l)
	}
	return out, errors.Wrap(rows.Err(), "iterate links")
}

// LoadBaseline reads one baseline mode matrix.
func (s *Store) LoadBaseline(ctx context.Context, sc pre.Scenario) (pre.ODMatrix, error) {
	table := "od_" + strings.ToLower(string(sc))
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, time_min, length_km FROM `+SchemaInputs+`.`+table)
	if err != nil {
		return nil, errors.Wrapf(err, "query baseline %s", sc)
	}
	defer rows.Close()
	m := make(pre.ODMatrix)
	for rows.Next() {
		var p pre.Pair
		var c pre.ODCell
		if err := rows.Scan(&p.From, &p.To, &c.Time, &c.Length); err != nil {
			return nil, errors.Wrapf(err, "scan baseline %s cell", sc)
		}
		m[p] = c
	}
	return m, errors.Wrapf(rows.Err(), "iterate baseline %s", sc)
}

// LoadTravelTimePVS reads the travel-time parameter set of the bound
// PVS number: one row per network level plus the time-function name.
func (s *Store) LoadTravelTimePVS(ctx context.Context) (pre.PVSTravelTime, error) {
	p := pre.PVSTravelTime{
		Name:   s.cfg.PVSName(),
		Levels: make(map[pre.Level]pre.LevelParams, 3),
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tf_name, level, ff, ts, aa, ad, ait, bit
		   FROM `+SchemaPVS+`.travel_time WHERE pvs = $1 ORDER BY level`,
		s.cfg.PVSNumber)
	if err != nil {
		return p, errors.Wrap(err, "query travel-time pvs")
	}
	defer rows.Close()
	for rows.Next() {
		var lvl pre.Level
		var lp pre.LevelParams
		if err := rows.Scan(&p.TFName, &lvl, &lp.FF, &lp.TS, &lp.AA, &lp.AD, &lp.AIT, &lp.BIT); err != nil {
			return p, errors.Wrap(err, "scan travel-time row")
		}
		p.Levels[lvl] = lp
	}
	if err := rows.Err(); err != nil {
		return p, errors.Wrap(err, "iterate travel-time pvs")
	}
	return p, p.Validate()
}

// LoadImpactsPVS reads the impact coefficient catalogue of the bound
// PVS number: one row per (kind, transport type).
func (s *Store) LoadImpactsPVS(ctx context.Context) (pre.PVSImpacts, error) {
	p := pre.PVSImpacts{
		Name:   s.cfg.PVSName(),
		Coeffs: make(map[string]map[pre.Type]pre.ImpactCoeff),
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, type, coeff_time, coeff_length
		   FROM `+SchemaPVS+`.impacts WHERE pvs = $1 ORDER BY kind, type`,
		s.cfg.PVSNumber)
	if err != nil {
		return p, errors.Wrap(err, "query impacts pvs")
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var t pre.Type
		var c pre.ImpactCoeff
		if err := rows.Scan(&kind, &t, &c.Time, &c.Length); err != nil {
			return p, errors.Wrap(err, "scan impacts row")
		}
		if p.Coeffs[kind] == nil {
			p.Coeffs[kind] = make(map[pre.Type]pre.ImpactCoeff)
		}
		p.Coeffs[kind][t] = c
	}
	if err := rows.Err(); err != nil {
		return p, errors.Wrap(err, "iterate impacts pvs")
	}
	return p, p.Validate()
}

func (s *Store) qualified(table string) string {
	return pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(table)
}

// resultsTable is the per-origin table name.
func resultsTable(origin int16) string {
	return fmt.Sprintf("results_%d", origin)
}
