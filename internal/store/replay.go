package store

import (
	"context"
	"fmt"

	"github.com/roach88/cellsim/internal/ir"
)

// LoadRun returns a run header with all its generations, ready for
// engine.Verify. Returns an error wrapping sql.ErrNoRows for an unknown run.
func (s *Store) LoadRun(ctx context.Context, runID string) (ir.RunRecord, []ir.GenerationRecord, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return ir.RunRecord{}, nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	gens, err := s.ReadGenerations(ctx, runID)
	if err != nil {
		return ir.RunRecord{}, nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return run, gens, nil
}

// LatestRun returns the most recently written run, or an error wrapping
// sql.ErrNoRows for an empty log.
func (s *Store) LatestRun(ctx context.Context) (ir.RunRecord, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs ORDER BY seq DESC LIMIT 1
	`).Scan(&id)
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("latest run: %w", err)
	}
	return s.ReadRun(ctx, id)
}
