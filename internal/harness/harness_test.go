package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/testutil"
)

const circuitRuleset = "testdata/rulesets/circuit.toml"

func gridRows(rows ...string) ir.GridDecl {
	return ir.GridDecl{Rows: rows}
}

func TestRun_BatteryWireAir(t *testing.T) {
	scenario := &Scenario{
		Name:    "battery_wire_air",
		Ruleset: circuitRuleset,
		Grid:    gridRows("battery wire air"),
		Steps: []Step{{
			Ticks:  1,
			Expect: &ExpectClause{Rows: []string{"battery power[source:west] air"}},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, int64(1), result.Final().Generation)
	assert.Equal(t, 1, result.Final().Changed)
	assert.Len(t, result.Final().Hash, 64)
	assert.False(t, result.Settled, "no stable_within, so the run stops after the steps")
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:    "mismatch",
		Ruleset: circuitRuleset,
		Grid:    gridRows("battery wire air"),
		Steps: []Step{
			{Ticks: 1, Expect: &ExpectClause{Rows: []string{"battery wire air"}}},
			{Ticks: 1, Expect: &ExpectClause{Rows: []string{"battery power[source:west] air"}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1, "later steps still run")
	assert.Contains(t, result.Errors[0], "steps[0]: generation 1")
	assert.Len(t, result.Trace, 3)
}

func TestRun_ExpectCanonicalizesRows(t *testing.T) {
	scenario := &Scenario{
		Name:    "canonical",
		Ruleset: circuitRuleset,
		Grid:    gridRows("power[source:north] air"),
		Steps: []Step{
			{Ticks: 0, Expect: &ExpectClause{Rows: []string{"power   air"}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, 1)
}

func TestRun_InvalidExpectedGrid(t *testing.T) {
	scenario := &Scenario{
		Name:    "bad_expect",
		Ruleset: circuitRuleset,
		Grid:    gridRows("battery wire air"),
		Steps:   []Step{{Ticks: 1, Expect: &ExpectClause{Rows: []string{"lava"}}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "invalid expected grid")
}

func TestRun_StableWithinStopsAtSettle(t *testing.T) {
	scenario := &Scenario{
		Name:       "settle",
		Ruleset:    circuitRuleset,
		Grid:       gridRows("battery wire wire"),
		Assertions: []Assertion{{Type: AssertStableWithin, Generations: 50}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, result.Settled)
	assert.Equal(t, int64(3), result.SettledAt)
	assert.Equal(t, int64(1), result.Period)
	assert.Equal(t, int64(3), result.Final().Generation)
}

func TestRun_StableWithinFails(t *testing.T) {
	scenario := &Scenario{
		Name:       "too_slow",
		Ruleset:    circuitRuleset,
		Grid:       gridRows("battery wire wire wire wire"),
		Assertions: []Assertion{{Type: AssertStableWithin, Generations: 2}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.False(t, result.Settled)
	assert.Equal(t, int64(2), result.Final().Generation)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not settled after generation 2")
}

func TestRun_WorkersDoNotChangeTrace(t *testing.T) {
	base := Scenario{
		Name:       "workers",
		Ruleset:    circuitRuleset,
		Grid:       gridRows("battery wire wire wire", "air air wire air", "air air wire air"),
		Assertions: []Assertion{{Type: AssertStableWithin, Generations: 10}},
	}

	single, err := Run(&base)
	require.NoError(t, err)

	parallel := base
	parallel.Workers = 3
	multi, err := Run(&parallel)
	require.NoError(t, err)

	assert.Equal(t, single.Trace, multi.Trace)
}

func TestRun_RulesetErrors(t *testing.T) {
	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("name: broken\nboundary: lava\ncells:\n  - name: air\n"), 0644))

	tests := []struct {
		name    string
		ruleset string
		want    string
	}{
		{"missing file", filepath.Join(dir, "missing.toml"), "failed to read ruleset"},
		{"directory", "testdata/scenarios", "failed to read ruleset"},
		{"invalid ruleset", invalid, "invalid ruleset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(&Scenario{Name: "x", Ruleset: tt.ruleset, Grid: gridRows("air")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_InvalidGrid(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Ruleset: circuitRuleset, Grid: gridRows("air air", "air")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid grid")
}

func TestSettledAt(t *testing.T) {
	gen, ok := settledAt([]TraceEvent{{Generation: 0, Hash: "a"}, {Generation: 1, Hash: "b"}, {Generation: 2, Hash: "a"}})
	assert.True(t, ok)
	assert.Equal(t, int64(2), gen)

	_, ok = settledAt([]TraceEvent{{Generation: 0, Hash: "a"}, {Generation: 1, Hash: "b"}})
	assert.False(t, ok)
}

func TestCircuitRulesetFile(t *testing.T) {
	decl, err := loadRuleset(circuitRuleset)
	require.NoError(t, err)

	got, err := ir.RulesetHash(*decl)
	require.NoError(t, err)
	want, err := ir.RulesetHash(*testutil.CircuitRuleset())
	require.NoError(t, err)
	assert.Equal(t, want, got, "testdata circuit must keep the reference rule order")
}
