package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/rules"
)

const circuitYAML = `
name: circuit
cells:
  - name: air
    color: "#000000"
  - name: wire
    color: "#888888"
  - name: power
    color: "#ffff00"
    states:
      source: [north, east, south, west]
rules:
  - in: wire
    out: power[source:west]
    conditions:
      - dirs: w
        type: power
      - dirs: w
        type: "!power[source:east]"
`

const circuitTOML = `
name = "circuit"

[[cells]]
name = "air"
color = "#000000"

[[cells]]
name = "wire"
color = "#888888"

[[cells]]
name = "power"
color = "#ffff00"
states = { source = ["north", "east", "south", "west"] }

[[rules]]
in = "wire"
out = "power[source:west]"

[[rules.conditions]]
dirs = "w"
type = "power"

[[rules.conditions]]
dirs = "w"
type = "!power[source:east]"
`

func TestDecodeYAMLAndTOMLAgree(t *testing.T) {
	fromYAML, err := DecodeYAML([]byte(circuitYAML))
	require.NoError(t, err)
	fromTOML, err := DecodeTOML([]byte(circuitTOML))
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromTOML)

	hy, err := ir.RulesetHash(*fromYAML)
	require.NoError(t, err)
	ht, err := ir.RulesetHash(*fromTOML)
	require.NoError(t, err)
	assert.Equal(t, hy, ht, "same ruleset in different formats must hash the same")
}

func TestDecodeYAMLRule(t *testing.T) {
	decl, err := DecodeYAML([]byte(circuitYAML))
	require.NoError(t, err)

	require.Len(t, decl.Rules, 1)
	rule := decl.Rules[0]
	require.Len(t, rule.Conditions, 2)
	assert.Equal(t, ir.MustParsePattern("!power[source:east]"), rule.Conditions[1].Pattern)
	assert.Equal(t, []ir.Direction{ir.West}, rule.Conditions[1].Dirs)
}

func TestDecodeTOMLShorthandAndCounts(t *testing.T) {
	decl, err := DecodeTOML([]byte(`
[[cells]]
name = "dead"
color = "#000000"

[[cells]]
name = "alive"
color = "#ffffff"
states = { age = 3 }
defaults = { age = 0 }

[[rules]]
in = "dead"
out = "alive"

[[rules.conditions]]
dirs = "n e s w"
type = "alive"
count = [2, 3]

[[rules]]
in = "alive"
out = "dead"

[[rules.conditions]]
type = "alive"
count = "..1"
`))
	require.NoError(t, err)

	alive := decl.Cells[1]
	assert.Equal(t, []string{"0", "1", "2", "3"}, alive.States[0].Values)
	assert.Equal(t, map[string]string{"age": "0"}, alive.Defaults)

	birth := decl.Rules[0].Conditions[0]
	assert.Equal(t, ir.AllDirections, birth.Dirs)
	assert.Equal(t, &ir.CountSpec{Kind: ir.CountList, Values: []int{2, 3}}, birth.Count)

	death := decl.Rules[1].Conditions[0]
	assert.Equal(t, ir.CountRange, death.Count.Kind)
	assert.Equal(t, 0, death.Count.Min)
	assert.Equal(t, 1, death.Count.Max)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		decode  func([]byte) (*ir.RulesetDecl, error)
		src     string
		message string
	}{
		{"yaml syntax", DecodeYAML, "cells: [", "yaml"},
		{"yaml unknown field", DecodeYAML, "cels: []", "cels"},
		{"yaml bad axis", DecodeYAML, "cells:\n  - name: a\n    states:\n      x: maybe\n", "cells[0].states"},
		{"yaml bad count", DecodeYAML, "cells: [{name: a}]\nrules:\n  - in: a\n    out: a\n    conditions: [{type: a, count: \"1..2..3\"}]\n", "rules[0].conditions[0]"},
		{"toml syntax", DecodeTOML, "[[cells]\n", "toml"},
		{"toml bad pattern", DecodeTOML, "[[rules]]\nin = \"a[\"\nout = \"a\"\n", "rules[0]"},
		{"toml huge shorthand", DecodeTOML, "[[cells]]\nname = \"lamp\"\nstates = { level = 4000000000 }\n", "exceeds"},
		{"yaml huge shorthand", DecodeYAML, "cells:\n  - name: lamp\n    states:\n      level: 4000000000\n", "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.decode([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestAxisShorthandBound(t *testing.T) {
	_, err := axisValues("level", int64(rules.MaxStates))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")

	values, err := axisValues("level", rules.MaxStates-1)
	require.NoError(t, err)
	assert.Len(t, values, rules.MaxStates)
	assert.Equal(t, "0", values[0])
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
		wantErr  bool
	}{
		{"rules/circuit.cue", FormatCUE, false},
		{"circuit.yaml", FormatYAML, false},
		{"circuit.YML", FormatYAML, false},
		{"circuit.toml", FormatTOML, false},
		{"circuit.json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := FormatOf(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestDecodeDispatch(t *testing.T) {
	decl, err := Decode("circuit.toml", []byte(circuitTOML))
	require.NoError(t, err)
	assert.Equal(t, "circuit", decl.Name)

	_, err = Decode("circuit.txt", []byte(circuitTOML))
	require.Error(t, err)
}

func TestDecodeGrid(t *testing.T) {
	grid, err := DecodeGrid([]byte("rows:\n  - battery wire air\n  - air air air\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"battery wire air", "air air air"}, grid.Rows)

	_, err = DecodeGrid([]byte("rows: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one row")
}
