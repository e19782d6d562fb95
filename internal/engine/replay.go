package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/roach88/cellsim/internal/ir"
)

// # Replay
//
// A run is reproducible from three things: the rule table, the initial grid
// and the number of generations. The run log keeps the identity of each
// (RulesetHash, InitialHash) and the hash of every generation, never the
// cells themselves, so replay means re-running and comparing hashes:
//
//	[ruleset + grid] -> New -> hash(gen 0) == run.InitialHash ?
//	                        -> Step ... hash(gen k) == records[k].Hash ?
//
// The first differing generation is reported as REPLAY_MISMATCH. Because a
// generation depends only on the previous one, everything after the first
// mismatch is meaningless and is not compared.

// Verify re-runs sim and compares it with a recorded run. sim must be fresh
// (generation 0) and should have no Recorder, or the replay is logged as a
// second run.
//
// Records may arrive in any order; generation 0, when present, is checked
// against the initial hash.
func Verify(ctx context.Context, sim *Simulation, run ir.RunRecord, records []ir.GenerationRecord) error {
	if sim.Generation() != 0 {
		return fmt.Errorf("verify: simulation already at generation %d", sim.Generation())
	}
	if sim.grid.width != run.Width || sim.grid.height != run.Height {
		return &RuntimeError{
			Code:    ErrCodeReplayMismatch,
			Message: fmt.Sprintf("grid is %dx%d, recorded run is %dx%d", sim.grid.width, sim.grid.height, run.Width, run.Height),
			RunID:   run.ID,
		}
	}
	if run.RulesetHash != "" && sim.rulesetHash != "" && run.RulesetHash != sim.rulesetHash {
		return &RuntimeError{
			Code:    ErrCodeReplayMismatch,
			Message: "ruleset differs from the recorded run",
			RunID:   run.ID,
			Details: map[string]string{"want": run.RulesetHash, "got": sim.rulesetHash},
		}
	}
	if sim.initialHash != run.InitialHash {
		return NewReplayMismatchError(run.ID, 0, run.InitialHash, sim.initialHash)
	}

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b ir.GenerationRecord) int {
		return cmp.Compare(a.Generation, b.Generation)
	})

	for _, want := range sorted {
		if want.Generation == 0 {
			if want.Hash != sim.initialHash {
				return NewReplayMismatchError(run.ID, 0, want.Hash, sim.initialHash)
			}
			continue
		}
		var got ir.GenerationRecord
		for sim.Generation() < want.Generation {
			rec, err := sim.Step(ctx)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			got = rec
		}
		if got.Generation != want.Generation {
			return fmt.Errorf("verify: duplicate record for generation %d", want.Generation)
		}
		if got.Hash != want.Hash {
			return NewReplayMismatchError(run.ID, want.Generation, want.Hash, got.Hash)
		}
	}

	sim.logger.Info("replay verified",
		"run_id", run.ID,
		"generation", sim.Generation(),
	)
	return nil
}
