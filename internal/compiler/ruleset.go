package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/cellsim/internal/ir"
)

// CompileCUE compiles CUE source text into a ruleset.
func CompileCUE(filename string, src []byte) (*ir.RulesetDecl, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileRuleset(v)
}

// CompileRuleset parses a CUE value into a RulesetDecl.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the ruleset document itself:
//
//	cells: [{name: "air", color: "#000000"}, ...]
//	rules: [{in: "wire", out: "power[source:west]", conditions: [...]}]
func CompileRuleset(v cue.Value) (*ir.RulesetDecl, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	decl := &ir.RulesetDecl{}

	var err error
	if decl.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	decl.Name = strings.TrimSpace(decl.Name)
	boundary, err := optionalString(v, "boundary")
	if err != nil {
		return nil, err
	}
	decl.Boundary = nfc(boundary)

	cellsVal := v.LookupPath(cue.ParsePath("cells"))
	if !cellsVal.Exists() {
		return nil, &CompileError{
			Field:   "cells",
			Message: "cells are required",
			Pos:     v.Pos(),
		}
	}
	decl.Cells, err = parseCells(cellsVal)
	if err != nil {
		return nil, err
	}

	// Rules are optional: a ruleset without rules is a still life.
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if rulesVal.Exists() {
		decl.Rules, err = parseRules(rulesVal)
		if err != nil {
			return nil, err
		}
	}

	return decl, nil
}

// parseCells extracts cell declarations in declaration order.
func parseCells(v cue.Value) ([]ir.CellDecl, error) {
	var cells []ir.CellDecl

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		cellVal := iter.Value()
		field := fmt.Sprintf("cells[%d]", i)

		name, err := requiredString(cellVal, "name", field)
		if err != nil {
			return nil, err
		}
		color, err := optionalString(cellVal, "color")
		if err != nil {
			return nil, err
		}

		cell := ir.CellDecl{Name: nfc(name), Color: strings.TrimSpace(color)}

		// States are optional; a type without axes has exactly one state.
		statesVal := cellVal.LookupPath(cue.ParsePath("states"))
		if statesVal.Exists() {
			states, err := structToMap(statesVal)
			if err != nil {
				return nil, err
			}
			cell.States, err = buildAxes(states)
			if err != nil {
				return nil, &CompileError{Field: field + ".states", Message: err.Error(), Pos: statesVal.Pos()}
			}
		}

		defaultsVal := cellVal.LookupPath(cue.ParsePath("defaults"))
		if defaultsVal.Exists() {
			defaults, err := structToMap(defaultsVal)
			if err != nil {
				return nil, err
			}
			cell.Defaults, err = buildDefaults(defaults)
			if err != nil {
				return nil, &CompileError{Field: field + ".defaults", Message: err.Error(), Pos: defaultsVal.Pos()}
			}
		}

		cells = append(cells, cell)
	}

	return cells, nil
}

// parseRules extracts rules. Order is priority and is preserved.
func parseRules(v cue.Value) ([]ir.RuleDecl, error) {
	var rules []ir.RuleDecl

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		ruleVal := iter.Value()
		field := fmt.Sprintf("rules[%d]", i)

		in, err := requiredString(ruleVal, "in", field)
		if err != nil {
			return nil, err
		}
		out, err := requiredString(ruleVal, "out", field)
		if err != nil {
			return nil, err
		}

		var conds []ir.ConditionDecl
		condsVal := ruleVal.LookupPath(cue.ParsePath("conditions"))
		if condsVal.Exists() {
			conds, err = parseConditions(condsVal, field)
			if err != nil {
				return nil, err
			}
		}

		rule, err := buildRule(in, out, conds)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: ruleVal.Pos()}
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func parseConditions(v cue.Value, ruleField string) ([]ir.ConditionDecl, error) {
	var conds []ir.ConditionDecl

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for j := 0; iter.Next(); j++ {
		condVal := iter.Value()
		field := fmt.Sprintf("%s.conditions[%d]", ruleField, j)

		pattern, err := requiredString(condVal, "type", field)
		if err != nil {
			return nil, err
		}

		var dirs *string
		dirsVal := condVal.LookupPath(cue.ParsePath("dirs"))
		if dirsVal.Exists() {
			s, err := dirsVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			dirs = &s
		}

		var count any
		countVal := condVal.LookupPath(cue.ParsePath("count"))
		if countVal.Exists() {
			count, err = cueToAny(countVal)
			if err != nil {
				return nil, err
			}
		}

		cond, err := buildCondition(dirs, pattern, count)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: condVal.Pos()}
		}
		conds = append(conds, cond)
	}

	return conds, nil
}

func requiredString(v cue.Value, name, parent string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   parent + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// structToMap converts a CUE struct into the generic map shape shared with
// the YAML and TOML decoders.
func structToMap(v cue.Value) (map[string]any, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	m := make(map[string]any)
	for iter.Next() {
		val, err := cueToAny(iter.Value())
		if err != nil {
			return nil, err
		}
		m[iter.Label()] = val
	}
	return m, nil
}

// cueToAny converts the scalar and list values a ruleset uses.
// Floats are rejected: counts and axis shorthands are integral.
func cueToAny(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return int(n), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var list []any
		for iter.Next() {
			elem, err := cueToAny(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		if list == nil {
			list = []any{}
		}
		return list, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
