package testutil

import (
	"github.com/roach88/cellsim/internal/ir"
)

// CircuitRuleset returns the reference circuit ruleset: air, wire, battery
// and power carrying the direction its charge came from.
//
// A wire becomes powered from an adjacent battery, or from adjacent power
// that was not itself fed by this wire. Power with nothing feeding it
// from its source side falls back to wire.
func CircuitRuleset() *ir.RulesetDecl {
	decl := &ir.RulesetDecl{
		Name:     "circuit",
		Boundary: "air",
		Cells: []ir.CellDecl{
			{Name: "air", Color: "#000000"},
			{Name: "wire", Color: "#808080"},
			{Name: "battery", Color: "#ff0000"},
			{Name: "power", Color: "#ffff00", States: []ir.AxisDecl{
				{Name: "source", Values: []string{"north", "east", "south", "west"}},
			}},
		},
	}

	for _, d := range ir.AllDirections {
		decl.Rules = append(decl.Rules, ir.RuleDecl{
			In:  ir.MustParsePattern("wire"),
			Out: powered(d),
			Conditions: []ir.ConditionDecl{
				{Dirs: []ir.Direction{d}, Pattern: ir.MustParsePattern("battery")},
			},
		})
	}
	for _, d := range ir.AllDirections {
		back := powered(d.Opposite())
		back.Negated = true
		decl.Rules = append(decl.Rules, ir.RuleDecl{
			In:  ir.MustParsePattern("wire"),
			Out: powered(d),
			Conditions: []ir.ConditionDecl{
				{Dirs: []ir.Direction{d}, Pattern: ir.MustParsePattern("power")},
				{Dirs: []ir.Direction{d}, Pattern: back},
			},
		})
	}
	for _, d := range ir.AllDirections {
		decl.Rules = append(decl.Rules, ir.RuleDecl{
			In:  powered(d),
			Out: ir.MustParsePattern("wire"),
			Conditions: []ir.ConditionDecl{
				{Dirs: []ir.Direction{d}, Pattern: ir.MustParsePattern("!battery")},
				{Dirs: []ir.Direction{d}, Pattern: ir.MustParsePattern("!power")},
			},
		})
	}
	return decl
}

// powered is the pattern power[source:<d>].
func powered(d ir.Direction) ir.PatternRef {
	return ir.PatternRef{
		Type:        "power",
		Constraints: []ir.AxisConstraint{{Axis: "source", Value: d.String()}},
	}
}
