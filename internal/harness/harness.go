package harness

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/roach88/cellsim/internal/compiler"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/rules"
	"github.com/roach88/cellsim/internal/store"
	"github.com/roach88/cellsim/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against the real stepper with a fixed run id.
type Harness struct {
	store    *store.Store
	sim      *engine.Simulation
	registry *rules.Registry
	boundary rules.State
}

// Run executes a test scenario and returns the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory run log for isolation.
//
// Execution flow:
// 1. Load, validate and compile the ruleset
// 2. Build the initial grid and record generation 0
// 3. Execute steps with expect validation
// 4. Step until stable for stable_within assertions
// 5. Cross-check the trace against the run log
// 6. Evaluate assertions
//
// Errors loading the ruleset or grid are returned; engine failures and
// unmet expectations are reported in the result.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	decl, err := loadRuleset(scenario.Ruleset)
	if err != nil {
		return nil, err
	}
	reg, table, err := rules.LoadRuleset(decl)
	if err != nil {
		return nil, fmt.Errorf("failed to load ruleset: %w", err)
	}
	rulesetHash, err := ir.RulesetHash(*decl)
	if err != nil {
		return nil, fmt.Errorf("failed to hash ruleset: %w", err)
	}

	grid, err := engine.GridFromDecl(reg, &scenario.Grid, table.Boundary())
	if err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	sim, err := engine.New(table, grid,
		engine.WithWorkers(scenario.Workers),
		engine.WithRecorder(st),
		engine.WithLogger(engine.DiscardLogger()), // Suppress logs in tests
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithRulesetHash(rulesetHash),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start simulation: %w", err)
	}

	h := &Harness{
		store:    st,
		sim:      sim,
		registry: reg,
		boundary: table.Boundary(),
	}

	result := NewResult()
	result.Trace = append(result.Trace, TraceEvent{
		Generation: 0,
		Hash:       sim.RunRecord().InitialHash,
		Rows:       grid.Rows(reg),
	})

	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		result.AddError(err.Error())
		return result, nil
	}
	if err := h.settle(ctx, scenario.Assertions, result); err != nil {
		result.AddError(err.Error())
		return result, nil
	}

	result.SettledAt, result.Settled = settledAt(result.Trace)
	if period, ok := sim.Settled(); ok {
		result.Period = period
	}

	if err := h.crossCheck(ctx, result); err != nil {
		result.AddError(err.Error())
	}

	for _, msg := range EvaluateAssertions(result, reg, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// loadRuleset reads and validates a ruleset source file.
func loadRuleset(path string) (*ir.RulesetDecl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset: %w", err)
	}
	decl, err := compiler.Decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to compile ruleset %s: %w", path, err)
	}
	if errs := compiler.Validate(decl); len(errs) > 0 {
		return nil, fmt.Errorf("invalid ruleset %s: %w", path, errs[0])
	}
	return decl, nil
}

// executeSteps runs the scripted steps, checking each expect clause.
//
// Expectation mismatches are recorded and execution continues; engine
// errors stop the run.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		for range step.Ticks {
			if err := h.tick(ctx, result); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
		if step.Expect == nil {
			continue
		}
		if msg := h.compareRows(step.Expect.Rows, result.Final()); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
		}
	}
	return nil
}

// settle keeps stepping until the run repeats a generation or reaches the
// largest stable_within bound.
func (h *Harness) settle(ctx context.Context, assertions []Assertion, result *Result) error {
	var limit int64
	for _, a := range assertions {
		if a.Type == AssertStableWithin && a.Generations > limit {
			limit = a.Generations
		}
	}

	for limit > 0 && h.sim.Generation() < limit {
		if _, ok := h.sim.Settled(); ok {
			return nil
		}
		if err := h.tick(ctx, result); err != nil {
			return fmt.Errorf("stable_within: %w", err)
		}
	}
	return nil
}

func (h *Harness) tick(ctx context.Context, result *Result) error {
	rec, err := h.sim.Step(ctx)
	if err != nil {
		return err
	}
	result.Trace = append(result.Trace, TraceEvent{
		Generation: rec.Generation,
		Hash:       rec.Hash,
		Changed:    rec.Changed,
		Firings:    rec.Firings,
		Rows:       h.sim.Grid().Rows(h.registry),
	})
	return nil
}

// compareRows canonicalizes expected rows and compares them with an event.
// Returns an empty string on a match.
func (h *Harness) compareRows(expected []string, ev TraceEvent) string {
	want, err := engine.GridFromDecl(h.registry, &ir.GridDecl{Rows: expected}, h.boundary)
	if err != nil {
		return fmt.Sprintf("invalid expected grid: %v", err)
	}
	wantRows := want.Rows(h.registry)
	if !slices.Equal(wantRows, ev.Rows) {
		return fmt.Sprintf("generation %d: expected rows %q, got %q", ev.Generation, wantRows, ev.Rows)
	}
	return ""
}

// crossCheck compares the trace with what the run log recorded.
func (h *Harness) crossCheck(ctx context.Context, result *Result) error {
	if h.sim.Generation() == 0 {
		// Nothing stepped, so nothing was written.
		return nil
	}
	gens, err := h.store.ReadGenerations(ctx, h.sim.RunID())
	if err != nil {
		return fmt.Errorf("failed to read run log: %w", err)
	}
	if len(gens) != len(result.Trace) {
		return fmt.Errorf("run log has %d generations, trace has %d", len(gens), len(result.Trace))
	}
	for i, rec := range gens {
		ev := result.Trace[i]
		if rec.Generation != ev.Generation || rec.Hash != ev.Hash || rec.Changed != ev.Changed {
			return fmt.Errorf("run log generation %d does not match trace (hash %s, changed %d)",
				rec.Generation, rec.Hash, rec.Changed)
		}
		if !slices.Equal(rec.Firings, ev.Firings) {
			return fmt.Errorf("run log generation %d firings %v, trace has %v", rec.Generation, rec.Firings, ev.Firings)
		}
	}
	return nil
}

// settledAt finds the first generation whose hash repeats an earlier one.
func settledAt(trace []TraceEvent) (int64, bool) {
	seen := make(map[string]struct{}, len(trace))
	for _, ev := range trace {
		if _, ok := seen[ev.Hash]; ok {
			return ev.Generation, true
		}
		seen[ev.Hash] = struct{}{}
	}
	return 0, false
}
