package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content as a scenario next to an empty ruleset file.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte("# placeholder"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
ruleset: rules.yaml
workers: 2
grid:
  rows:
    - battery wire air
steps:
  - ticks: 2
    expect:
      rows:
        - battery power[source:west] air
assertions:
  - type: stable_within
    generations: 3
  - type: fired
    rule: 3
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "rules.yaml"), scenario.Ruleset)
	assert.Equal(t, []string{"battery wire air"}, scenario.Grid.Rows)
	assert.Equal(t, 2, scenario.Workers)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, 2, scenario.Steps[0].Ticks)
	require.NotNil(t, scenario.Steps[0].Expect)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, int64(3), scenario.Assertions[0].Generations)
	require.NotNil(t, scenario.Assertions[1].Rule)
	assert.Equal(t, 3, *scenario.Assertions[1].Rule)
	assert.Nil(t, scenario.Assertions[1].Generation)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_RulesetNotFound(t *testing.T) {
	path := writeScenario(t, `
name: test
ruleset: nowhere.toml
grid:
  rows: [air]
steps:
  - ticks: 1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ruleset file not found")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: test
ruleset: rules.yaml
grid:
  rows: [air]
assertion:
  - type: stable_within
    generations: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing name", "ruleset: r.yaml\ngrid: {rows: [air]}\nsteps: [{ticks: 1}]", "name is required"},
		{"missing ruleset", "name: x\ngrid: {rows: [air]}\nsteps: [{ticks: 1}]", "ruleset is required"},
		{"missing grid", "name: x\nruleset: r.yaml\nsteps: [{ticks: 1}]", "grid.rows is required"},
		{"nothing to do", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}", "at least one step or assertion"},
		{"negative workers", "name: x\nruleset: r.yaml\nworkers: -1\ngrid: {rows: [air]}\nsteps: [{ticks: 1}]", "workers must be non-negative"},
		{"negative ticks", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nsteps: [{ticks: -1}]", "ticks must be non-negative"},
		{"empty expect", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nsteps: [{ticks: 1, expect: {rows: []}}]", "rows is required"},
		{"missing type", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{count: 1}]", "type is required"},
		{"unknown type", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{type: eventually}]", "unknown assertion type"},
		{"stable without bound", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{type: stable_within}]", "generations must be positive"},
		{"cell without state", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{type: cell, x: 0, y: 0}]", "state is required"},
		{"cell negative x", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{type: cell, x: -1, y: 0, state: air}]", "must be non-negative"},
		{"fired without rule", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{type: fired, count: 1}]", "rule is required"},
		{"fired without count", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{type: fired, rule: 0}]", "count is required"},
		{"changed generation 0", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{type: changed, generation: 0, count: 1}]", "generation >= 1"},
		{"changed without count", "name: x\nruleset: r.yaml\ngrid: {rows: [air]}\nassertions: [{type: changed, generation: 1}]", "count is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := DiscoverScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Description)
		})
	}
}
