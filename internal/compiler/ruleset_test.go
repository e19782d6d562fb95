package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/ir"
)

const circuitCUE = `
name:     "circuit"
boundary: "air"
cells: [
	{name: "air", color: "#000000"},
	{name: "wire", color: "#888888"},
	{name: "battery", color: "#ff0000"},
	{
		name:  "power"
		color: "#ffff00"
		states: source: ["north", "east", "south", "west"]
		defaults: source: "north"
	},
]
rules: [
	{
		in:  "wire"
		out: "power[source:west]"
		conditions: [{dirs: "w", type: "battery"}]
	},
	{
		in:  "power[source:west]"
		out: "wire"
		conditions: [
			{dirs: "w", type: "!battery"},
			{dirs: "w", type: "!power"},
		]
	},
]
`

func TestCompileRulesetBasic(t *testing.T) {
	decl, err := CompileCUE("circuit.cue", []byte(circuitCUE))
	require.NoError(t, err)

	assert.Equal(t, "circuit", decl.Name)
	assert.Equal(t, "air", decl.Boundary)
	require.Len(t, decl.Cells, 4)
	assert.Equal(t, "power", decl.Cells[3].Name)
	assert.Equal(t, []ir.AxisDecl{{Name: "source", Values: []string{"north", "east", "south", "west"}}}, decl.Cells[3].States)
	assert.Equal(t, map[string]string{"source": "north"}, decl.Cells[3].Defaults)

	require.Len(t, decl.Rules, 2)
	assert.Equal(t, "wire", decl.Rules[0].In.String())
	assert.Equal(t, "power[source:west]", decl.Rules[0].Out.String())
	assert.Equal(t, []ir.Direction{ir.West}, decl.Rules[0].Conditions[0].Dirs)
	assert.True(t, decl.Rules[1].Conditions[0].Pattern.Negated)
	assert.Equal(t, "battery", decl.Rules[1].Conditions[0].Pattern.Type)
}

func TestCompileRulesetIntegerShorthand(t *testing.T) {
	decl, err := CompileCUE("lamp.cue", []byte(`
		cells: [{name: "lamp", color: "#ffffff", states: level: 2}]
	`))
	require.NoError(t, err)

	require.Len(t, decl.Cells[0].States, 1)
	assert.Equal(t, []string{"0", "1", "2"}, decl.Cells[0].States[0].Values)
	assert.Empty(t, decl.Rules)
}

func TestCompileRulesetAxesSortedByName(t *testing.T) {
	decl, err := CompileCUE("lamp.cue", []byte(`
		cells: [{name: "lamp", states: {lit: ["no", "yes"], level: 1}}]
	`))
	require.NoError(t, err)

	require.Len(t, decl.Cells[0].States, 2)
	assert.Equal(t, "level", decl.Cells[0].States[0].Name)
	assert.Equal(t, "lit", decl.Cells[0].States[1].Name)
}

func TestCompileRulesetOmittedDirsMeansAll(t *testing.T) {
	decl, err := CompileCUE("life.cue", []byte(`
		cells: [{name: "dead"}, {name: "alive"}]
		rules: [{in: "dead", out: "alive", conditions: [{type: "alive", count: 3}]}]
	`))
	require.NoError(t, err)

	cond := decl.Rules[0].Conditions[0]
	assert.Equal(t, ir.AllDirections, cond.Dirs)
	require.NotNil(t, cond.Count)
	assert.Equal(t, ir.CountExact, cond.Count.Kind)
	assert.Equal(t, []int{3}, cond.Count.Values)
}

func TestCompileRulesetCounts(t *testing.T) {
	tests := []struct {
		name     string
		count    string
		expected ir.CountSpec
	}{
		{"exact", `2`, ir.CountSpec{Kind: ir.CountExact, Values: []int{2}}},
		{"list", `[1, 3]`, ir.CountSpec{Kind: ir.CountList, Values: []int{1, 3}}},
		{"range", `"1..3"`, ir.CountSpec{Kind: ir.CountRange, Min: 1, Max: 3}},
		{"open upper", `"2.."`, ir.CountSpec{Kind: ir.CountRange, Min: 2, Max: 4}},
		{"open lower", `"..1"`, ir.CountSpec{Kind: ir.CountRange, Min: 0, Max: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl, err := CompileCUE("count.cue", []byte(`
				cells: [{name: "a"}, {name: "b"}]
				rules: [{in: "a", out: "b", conditions: [{dirs: "nesw", type: "b", count: `+tt.count+`}]}]
			`))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *decl.Rules[0].Conditions[0].Count)
		})
	}
}

func TestCompileRulesetErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"missing cells", `rules: []`, "cells are required"},
		{"missing name", `cells: [{color: "#000000"}]`, "name is required"},
		{"missing out", `cells: [{name: "a"}]
			rules: [{in: "a"}]`, "out is required"},
		{"bad pattern", `cells: [{name: "a"}]
			rules: [{in: "a[x", out: "a"}]`, "missing closing"},
		{"bad dirs", `cells: [{name: "a"}]
			rules: [{in: "a", out: "a", conditions: [{dirs: "q", type: "a"}]}]`, "invalid direction letter"},
		{"float count", `cells: [{name: "a"}]
			rules: [{in: "a", out: "a", conditions: [{type: "a", count: 1.5}]}]`, "float values are forbidden"},
		{"bad range", `cells: [{name: "a"}]
			rules: [{in: "a", out: "a", conditions: [{type: "a", count: "3..1"}]}]`, "lower bound above upper bound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileCUE("bad.cue", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)

			var ce *CompileError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestCompileRulesetSyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileCUE("broken.cue", []byte("cells: [\n"))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid(), "CUE errors should carry a source position")
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileRulesetFromValue(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`cells: [{name: "only"}]`)
	require.NoError(t, v.Err())

	decl, err := CompileRuleset(v)
	require.NoError(t, err)
	require.Len(t, decl.Cells, 1)
	assert.Equal(t, "only", decl.Cells[0].Name)
}
