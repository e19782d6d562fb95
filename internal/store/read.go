package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/cellsim/internal/ir"
)

// ReadRun retrieves a single run header by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ruleset_hash, width, height, initial_hash, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, id)

	var run ir.RunRecord
	err := row.Scan(&run.ID, &run.RulesetHash, &run.Width, &run.Height,
		&run.InitialHash, &run.EngineVersion, &run.IRVersion)
	if err != nil {
		return ir.RunRecord{}, err
	}
	return run, nil
}

// ListRuns returns every run header in insertion order (seq ASC).
func (s *Store) ListRuns(ctx context.Context) ([]ir.RunRecord, error) {
	return s.FindRuns(ctx, RunFilter{})
}

// ReadGenerations returns every recorded generation of a run, ordered by
// generation number, with its rule firings ordered by rule index.
func (s *Store) ReadGenerations(ctx context.Context, runID string) ([]ir.GenerationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT generation, hash, changed
		FROM generations
		WHERE run_id = ?
		ORDER BY generation ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read generations: %w", err)
	}

	gens := []ir.GenerationRecord{}
	index := make(map[int64]int)
	for rows.Next() {
		gen := ir.GenerationRecord{RunID: runID}
		if err := rows.Scan(&gen.Generation, &gen.Hash, &gen.Changed); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		index[gen.Generation] = len(gens)
		gens = append(gens, gen)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	rows.Close()

	firings, err := s.db.QueryContext(ctx, `
		SELECT generation, rule, count
		FROM rule_firings
		WHERE run_id = ?
		ORDER BY generation ASC, rule ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read rule firings: %w", err)
	}
	defer firings.Close()

	for firings.Next() {
		var gen int64
		var f ir.RuleFiring
		if err := firings.Scan(&gen, &f.Rule, &f.Count); err != nil {
			return nil, fmt.Errorf("scan rule firing: %w", err)
		}
		i, ok := index[gen]
		if !ok {
			return nil, fmt.Errorf("rule firing for unrecorded generation %d", gen)
		}
		gens[i].Firings = append(gens[i].Firings, f)
	}
	if err := firings.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule firings: %w", err)
	}
	return gens, nil
}

// RuleTotal is the number of cells a rule rewrote over a whole run.
type RuleTotal struct {
	Rule        int   `json:"rule"`
	Count       int64 `json:"count"`
	Generations int   `json:"generations"` // generations in which the rule fired
}

// ReadFiringTotals sums rule firings over a run, ordered by rule index.
// Rules that never fired are absent.
func (s *Store) ReadFiringTotals(ctx context.Context, runID string) ([]RuleTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, SUM(count), COUNT(*)
		FROM rule_firings
		WHERE run_id = ?
		GROUP BY rule
		ORDER BY rule ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read firing totals: %w", err)
	}
	defer rows.Close()

	totals := []RuleTotal{}
	for rows.Next() {
		var t RuleTotal
		if err := rows.Scan(&t.Rule, &t.Count, &t.Generations); err != nil {
			return nil, fmt.Errorf("scan firing total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firing totals: %w", err)
	}
	return totals, nil
}

// LastGeneration returns the highest recorded generation of a run, or
// sql.ErrNoRows when the run has none.
func (s *Store) LastGeneration(ctx context.Context, runID string) (int64, error) {
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(generation) FROM generations WHERE run_id = ?
	`, runID).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("last generation: %w", err)
	}
	if !last.Valid {
		return 0, sql.ErrNoRows
	}
	return last.Int64, nil
}
