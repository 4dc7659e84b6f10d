package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/valentinpasche/transnetmap-impacts/analysis"
	"github.com/valentinpasche/transnetmap-impacts/post"
	"github.com/valentinpasche/transnetmap-impacts/pre"
)

// ReplaceEdgeList overwrites the persisted candidate edge table in one
// transaction. Rebuilds are idempotent: a second run with the same
// inputs leaves the same rows behind.
func (s *Store) ReplaceEdgeList(ctx context.Context, el *analysis.EdgeList) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.qualified("edgelist")+` (
			from_id       smallint         NOT NULL,
			to_id         smallint         NOT NULL,
			mode          smallint         NOT NULL,
			time          double precision NOT NULL,
			length        double precision NOT NULL,
			provenance    text             NOT NULL,
			is_irrelevant boolean          NOT NULL,
			PRIMARY KEY (from_id, to_id, mode)
		)`)
		if err != nil {
			return errors.Wrap(err, "create edgelist table")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.qualified("edgelist")); err != nil {
			return errors.Wrap(err, "clear edgelist")
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(s.schema, "edgelist",
			"from_id", "to_id", "mode", "time", "length", "provenance", "is_irrelevant"))
		if err != nil {
			return errors.Wrap(err, "prepare edgelist copy")
		}
		for _, e := range el.Edges() {
			if _, err := stmt.ExecContext(ctx, e.From, e.To, int16(e.Mode), e.Time, e.Length, e.Provenance.String(), e.Irrelevant); err != nil {
				stmt.Close()
				return errors.Wrap(err, "copy edgelist row")
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return errors.Wrap(err, "flush edgelist copy")
		}
		return errors.Wrap(stmt.Close(), "close edgelist copy")
	})
}

// ReplaceRoutes overwrites the optimisation table: one row per solved
// (origin, destination, scenario) relation, with the route stored as an
// ordered array of edge keys.
func (s *Store) ReplaceRoutes(ctx context.Context, routes []analysis.Route) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.qualified("optimisation")+` (
			origin_zone smallint         NOT NULL,
			dest_zone   smallint         NOT NULL,
			scenario    text             NOT NULL,
			time        double precision NOT NULL,
			length      double precision NOT NULL,
			path        text[]           NOT NULL,
			unreachable boolean          NOT NULL,
			PRIMARY KEY (origin_zone, dest_zone, scenario)
		)`)
		if err != nil {
			return errors.Wrap(err, "create optimisation table")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.qualified("optimisation")); err != nil {
			return errors.Wrap(err, "clear optimisation")
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(s.schema, "optimisation",
			"origin_zone", "dest_zone", "scenario", "time", "length", "path", "unreachable"))
		if err != nil {
			return errors.Wrap(err, "prepare optimisation copy")
		}
		for _, r := range routes {
			path := make([]string, len(r.Path))
			for i, k := range r.Path {
				path[i] = k.String()
			}
			if _, err := stmt.ExecContext(ctx, r.Origin, r.Destination, string(r.Scenario), r.Time, r.Length, pq.Array(path), r.Unreachable); err != nil {
				stmt.Close()
				return errors.Wrap(err, "copy optimisation row")
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return errors.Wrap(err, "flush optimisation copy")
		}
		return errors.Wrap(stmt.Close(), "close optimisation copy")
	})
}

// resultColumns builds the dynamic column list of a results table from
// the impact kinds of the active PVS: times and lengths per scenario,
// impacts per kind and scenario, deltas against each baseline.
func resultColumns(kinds []string) []string {
	cols := []string{"dest_zone"}
	for _, sc := range analysis.Scenarios {
		cols = append(cols, "time_"+strings.ToLower(string(sc)))
	}
	for _, sc := range analysis.Scenarios {
		cols = append(cols, "length_"+strings.ToLower(string(sc)))
	}
	for _, k := range kinds {
		for _, sc := range analysis.Scenarios {
			cols = append(cols, "impact_"+strings.ToLower(k)+"_"+strings.ToLower(string(sc)))
		}
	}
	for _, base := range pre.BaselineScenarios {
		cols = append(cols, "time_diff_"+strings.ToLower(string(base)))
	}
	for _, k := range kinds {
		for _, base := range pre.BaselineScenarios {
			cols = append(cols, "impact_diff_"+strings.ToLower(k)+"_"+strings.ToLower(string(base)))
		}
	}
	return cols
}

// rowValues flattens one result row in resultColumns order.
func rowValues(row post.Row, kinds []string) []interface{} {
	vals := []interface{}{row.Destination}
	for _, sc := range analysis.Scenarios {
		vals = append(vals, row.Time[sc])
	}
	for _, sc := range analysis.Scenarios {
		vals = append(vals, row.Length[sc])
	}
	for _, k := range kinds {
		for _, sc := range analysis.Scenarios {
			vals = append(vals, row.Impacts[k][sc])
		}
	}
	for _, base := range pre.BaselineScenarios {
		vals = append(vals, row.TimeDiff[base])
	}
	for _, k := range kinds {
		for _, base := range pre.BaselineScenarios {
			vals = append(vals, row.ImpactDiff[k][base])
		}
	}
	return vals
}

// kindsOf recovers the impact kinds from a row set, in the canonical
// order of the impact catalogue, extras appended alphabetically.
func kindsOf(rows []post.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	present := make(map[string]bool, len(rows[0].Impacts))
	for k := range rows[0].Impacts {
		present[k] = true
	}
	var kinds []string
	for _, k := range pre.Impacts {
		if present[k] {
			kinds = append(kinds, k)
			delete(present, k)
		}
	}
	var extra []string
	for k := range present {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(kinds, extra...)
}

// ReplaceResults drops and rewrites the per-origin results table in one
// transaction. The table is recreated because the column set depends on
// the impact kinds of the active PVS.
func (s *Store) ReplaceResults(ctx context.Context, origin int16, rows []post.Row) error {
	kinds := kindsOf(rows)
	cols := resultColumns(kinds)
	table := resultsTable(origin)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+s.qualified(table)); err != nil {
			return errors.Wrapf(err, "drop %s", table)
		}
		defs := make([]string, len(cols))
		defs[0] = pq.QuoteIdentifier(cols[0]) + " smallint PRIMARY KEY"
		for i := 1; i < len(cols); i++ {
			defs[i] = pq.QuoteIdentifier(cols[i]) + " double precision"
		}
		if _, err := tx.ExecContext(ctx, `CREATE TABLE `+s.qualified(table)+` (`+strings.Join(defs, ", ")+`)`); err != nil {
			return errors.Wrapf(err, "create %s", table)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(s.schema, table, cols...))
		if err != nil {
			return errors.Wrapf(err, "prepare %s copy", table)
		}
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, rowValues(row, kinds)...); err != nil {
				stmt.Close()
				return errors.Wrapf(err, "copy %s row", table)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return errors.Wrapf(err, "flush %s copy", table)
		}
		return errors.Wrapf(stmt.Close(), "close %s copy", table)
	})
}

// LoadResults reads one persisted per-origin results table back, mainly
// for the API layer. Column layout is recovered from the table itself.
func (s *Store) LoadResults(ctx context.Context, origin int16) ([]post.Row, []string, error) {
	table := resultsTable(origin)
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM `+s.qualified(table)+` ORDER BY dest_zone`)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "query %s", table)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "columns of %s", table)
	}
	var out []post.Row
	for rows.Next() {
		var dest int16
		vals := make([]interface{}, len(cols))
		vals[0] = &dest
		floats := make([]float64, len(cols)-1)
		for i := range floats {
			vals[i+1] = &floats[i]
		}
		if err := rows.Scan(vals...); err != nil {
			return nil, nil, errors.Wrapf(err, "scan %s row", table)
		}
		row := post.Row{
			Destination: dest,
			Time:        map[pre.Scenario]float64{},
			Length:      map[pre.Scenario]float64{},
			Impacts:     map[string]map[pre.Scenario]float64{},
			TimeDiff:    map[pre.Scenario]float64{},
			ImpactDiff:  map[string]map[pre.Scenario]float64{},
		}
		for i, col := range cols[1:] {
			assignColumn(&row, col, floats[i])
		}
		out = append(out, row)
	}
	return out, cols, errors.Wrapf(rows.Err(), "iterate %s", table)
}

// assignColumn routes one flat column value back into the row structure
// by its name.
func assignColumn(row *post.Row, col string, v float64) {
	scenarioOf := func(suffix string) (pre.Scenario, bool) {
		switch suffix {
		case "nts":
			return pre.ScenarioNTS, true
		case "imt":
			return pre.ScenarioIMT, true
		case "pt":
			return pre.ScenarioPT, true
		}
		return "", false
	}
	parts := strings.Split(col, "_")
	switch {
	case parts[0] == "time" && len(parts) == 2:
		if sc, ok := scenarioOf(parts[1]); ok {
			row.Time[sc] = v
		}
	case parts[0] == "time" && len(parts) == 3 && parts[1] == "diff":
		if sc, ok := scenarioOf(parts[2]); ok {
			row.TimeDiff[sc] = v
		}
	case parts[0] == "length" && len(parts) == 2:
		if sc, ok := scenarioOf(parts[1]); ok {
			row.Length[sc] = v
		}
	case parts[0] == "impact" && len(parts) == 3:
		if sc, ok := scenarioOf(parts[2]); ok {
			kind := strings.ToUpper(parts[1])
			if row.Impacts[kind] == nil {
				row.Impacts[kind] = map[pre.Scenario]float64{}
			}
			row.Impacts[kind][sc] = v
		}
	case parts[0] == "impact" && len(parts) == 4 && parts[1] == "diff":
		if sc, ok := scenarioOf(parts[3]); ok {
			kind := strings.ToUpper(parts[2])
			if row.ImpactDiff[kind] == nil {
				row.ImpactDiff[kind] = map[pre.Scenario]float64{}
			}
			row.ImpactDiff[kind][sc] = v
		}
	}
}
