package store

import (
	"context"
	"fmt"

	"github.com/roach88/cellsim/internal/ir"
)

// WriteRun inserts a run header.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// The run's seq is assigned from insertion order.
func (s *Store) WriteRun(ctx context.Context, run ir.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, ruleset_hash, width, height, initial_hash, engine_version, ir_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.RulesetHash,
		run.Width,
		run.Height,
		run.InitialHash,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// RecordGeneration inserts a generation and its rule firings in one
// transaction. Implements engine.Recorder together with WriteRun.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
// Note: Recording a generation that already exists is a no-op.
func (s *Store) RecordGeneration(ctx context.Context, gen ir.GenerationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record generation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, hash, changed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO NOTHING
	`, gen.RunID, gen.Generation, gen.Hash, gen.Changed)
	if err != nil {
		return fmt.Errorf("record generation %d: %w", gen.Generation, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record generation %d: rows affected: %w", gen.Generation, err)
	}
	if rowsAffected == 0 {
		// Already recorded - keep the first write
		return tx.Commit()
	}

	for _, f := range gen.Firings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rule_firings (run_id, generation, rule, count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id, generation, rule) DO NOTHING
		`, gen.RunID, gen.Generation, f.Rule, f.Count)
		if err != nil {
			return fmt.Errorf("record generation %d: rule %d: %w", gen.Generation, f.Rule, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record generation %d: commit: %w", gen.Generation, err)
	}
	return nil
}
