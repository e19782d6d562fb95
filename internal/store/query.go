package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/cellsim/internal/ir"
)

// RunFilter selects run headers by equality on header columns.
// Zero fields match every run.
type RunFilter struct {
	RulesetHash   string
	Width         int
	Height        int
	EngineVersion string
}

// equals is one "column = ?" term of a WHERE clause.
type equals struct {
	column string
	value  any
}

// predicates returns the filter's terms in a fixed column order.
func (f RunFilter) predicates() []equals {
	var preds []equals
	if f.RulesetHash != "" {
		preds = append(preds, equals{"ruleset_hash", f.RulesetHash})
	}
	if f.Width > 0 {
		preds = append(preds, equals{"width", f.Width})
	}
	if f.Height > 0 {
		preds = append(preds, equals{"height", f.Height})
	}
	if f.EngineVersion != "" {
		preds = append(preds, equals{"engine_version", f.EngineVersion})
	}
	return preds
}

// compileRunQuery builds the SELECT for a filter. Values are always bound
// as parameters and every query carries the insertion ORDER BY.
func compileRunQuery(f RunFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, ruleset_hash, width, height, initial_hash, engine_version, ir_version FROM runs`)

	preds := f.predicates()
	params := make([]any, 0, len(preds))
	for i, p := range preds {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(p.column)
		b.WriteString(" = ?")
		params = append(params, p.value)
	}

	b.WriteString(" ORDER BY seq ASC, id ASC COLLATE BINARY")
	return b.String(), params
}

// FindRuns returns the run headers matching f in insertion order.
func (s *Store) FindRuns(ctx context.Context, f RunFilter) ([]ir.RunRecord, error) {
	query, params := compileRunQuery(f)
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		var run ir.RunRecord
		if err := rows.Scan(&run.ID, &run.RulesetHash, &run.Width, &run.Height,
			&run.InitialHash, &run.EngineVersion, &run.IRVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
