package compiler

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/roach88/cellsim/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Cell declaration errors (E101-E109)
	ErrNoCells        = "E101" // at least one cell type required
	ErrInvalidName    = "E102" // empty or malformed name
	ErrInvalidColor   = "E103" // color is not #RRGGBB
	ErrEmptyAxis      = "E104" // axis declares no values
	ErrDuplicateName  = "E105" // duplicate type/axis/value name
	ErrInvalidDefault = "E106" // default names an undeclared axis or value
	ErrUnknownBound   = "E107" // boundary names an undeclared type

	// Rule errors (E110-E119)
	ErrUnknownTypeRef      = "E110" // pattern references an undeclared type
	ErrUnknownAxisRef      = "E111" // constraint references an undeclared axis or value
	ErrNegatedRulePattern  = "E112" // in/out pattern may not be negated
	ErrEmptyDirections     = "E113" // condition lists no directions
	ErrInvalidCount        = "E114" // count outside 0..len(dirs)
	ErrDuplicateConstraint = "E115" // axis constrained twice in one pattern
	ErrDuplicateDirection  = "E116" // direction listed twice in one condition
	ErrWildcardRulePattern = "E117" // in/out pattern may not be a wildcard
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled ruleset.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch decl := v.(type) {
	case *ir.RulesetDecl:
		return validateRuleset(decl)
	case ir.RulesetDecl:
		return validateRuleset(&decl)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// colorPattern matches "#RRGGBB".
var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// namePattern rejects characters reserved by the pattern grammar.
var namePattern = regexp.MustCompile(`^[^\s\[\]:,!*]+$`)

func validateRuleset(decl *ir.RulesetDecl) []ValidationError {
	var errs []ValidationError

	// E101: at least one cell type
	if len(decl.Cells) == 0 {
		errs = append(errs, ValidationError{
			Field:   "cells",
			Message: "at least one cell type is required",
			Code:    ErrNoCells,
		})
	}

	types := make(map[string]*ir.CellDecl, len(decl.Cells))
	for i := range decl.Cells {
		cell := &decl.Cells[i]
		errs = append(errs, validateCell(cell, fmt.Sprintf("cells[%d]", i))...)

		// E105: duplicate type name
		if _, dup := types[cell.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("cells[%d].name", i),
				Message: fmt.Sprintf("duplicate cell type: %q", cell.Name),
				Code:    ErrDuplicateName,
			})
			continue
		}
		types[cell.Name] = cell
	}

	// E107: boundary must name a declared type
	if decl.Boundary != "" {
		if _, ok := types[decl.Boundary]; !ok {
			errs = append(errs, ValidationError{
				Field:   "boundary",
				Message: fmt.Sprintf("boundary type %q is not declared", decl.Boundary),
				Code:    ErrUnknownBound,
			})
		}
	}

	for i, rule := range decl.Rules {
		field := fmt.Sprintf("rules[%d]", i)

		// E112: only condition patterns may be negated
		if rule.In.Negated {
			errs = append(errs, ValidationError{
				Field:   field + ".in",
				Message: fmt.Sprintf("input pattern %q may not be negated", rule.In),
				Code:    ErrNegatedRulePattern,
			})
		}
		if rule.Out.Negated {
			errs = append(errs, ValidationError{
				Field:   field + ".out",
				Message: fmt.Sprintf("output pattern %q may not be negated", rule.Out),
				Code:    ErrNegatedRulePattern,
			})
		}

		// E117: only condition patterns may use the wildcard
		if rule.In.IsWildcard() || rule.Out.IsWildcard() {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("rule %q -> %q: input and output must name a type", rule.In, rule.Out),
				Code:    ErrWildcardRulePattern,
			})
		} else {
			errs = append(errs, validatePatternRef(rule.In, types, field+".in")...)
			errs = append(errs, validatePatternRef(rule.Out, types, field+".out")...)
		}

		for j, cond := range rule.Conditions {
			errs = append(errs, validateCondition(cond, types, fmt.Sprintf("%s.conditions[%d]", field, j))...)
		}
	}

	return errs
}

func validateCell(cell *ir.CellDecl, field string) []ValidationError {
	var errs []ValidationError

	// E102: name must be usable in patterns
	if !namePattern.MatchString(cell.Name) {
		errs = append(errs, ValidationError{
			Field:   field + ".name",
			Message: fmt.Sprintf("invalid cell type name %q", cell.Name),
			Code:    ErrInvalidName,
		})
	}

	// E103: color is display-only but must be well-formed when present
	if cell.Color != "" && !colorPattern.MatchString(cell.Color) {
		errs = append(errs, ValidationError{
			Field:   field + ".color",
			Message: fmt.Sprintf("color %q must have the form #RRGGBB", cell.Color),
			Code:    ErrInvalidColor,
		})
	}

	axes := make(map[string]map[string]bool, len(cell.States))
	for _, axis := range cell.States {
		axisField := fmt.Sprintf("%s.states.%s", field, axis.Name)
		if !namePattern.MatchString(axis.Name) {
			errs = append(errs, ValidationError{
				Field:   axisField,
				Message: fmt.Sprintf("invalid axis name %q", axis.Name),
				Code:    ErrInvalidName,
			})
		}
		if _, dup := axes[axis.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   axisField,
				Message: fmt.Sprintf("duplicate axis %q", axis.Name),
				Code:    ErrDuplicateName,
			})
			continue
		}

		// E104: an axis needs at least one value
		if len(axis.Values) == 0 {
			errs = append(errs, ValidationError{
				Field:   axisField,
				Message: fmt.Sprintf("axis %q declares no values", axis.Name),
				Code:    ErrEmptyAxis,
			})
		}

		values := make(map[string]bool, len(axis.Values))
		for _, v := range axis.Values {
			if !namePattern.MatchString(v) {
				errs = append(errs, ValidationError{
					Field:   axisField,
					Message: fmt.Sprintf("invalid value %q", v),
					Code:    ErrInvalidName,
				})
			}
			if values[v] {
				errs = append(errs, ValidationError{
					Field:   axisField,
					Message: fmt.Sprintf("duplicate value %q", v),
					Code:    ErrDuplicateName,
				})
			}
			values[v] = true
		}
		axes[axis.Name] = values
	}

	// E106: defaults must reference declared axes and values
	for _, axis := range slices.Sorted(maps.Keys(cell.Defaults)) {
		value := cell.Defaults[axis]
		values, ok := axes[axis]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.defaults.%s", field, axis),
				Message: fmt.Sprintf("default for undeclared axis %q", axis),
				Code:    ErrInvalidDefault,
			})
			continue
		}
		if !values[value] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.defaults.%s", field, axis),
				Message: fmt.Sprintf("default value %q is not declared on axis %q", value, axis),
				Code:    ErrInvalidDefault,
			})
		}
	}

	return errs
}

func validateCondition(cond ir.ConditionDecl, types map[string]*ir.CellDecl, field string) []ValidationError {
	var errs []ValidationError

	// E113: a condition must look somewhere
	if len(cond.Dirs) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".dirs",
			Message: "condition lists no directions",
			Code:    ErrEmptyDirections,
		})
	}

	// E116: each direction at most once
	var seen [ir.NumDirections]bool
	for _, d := range cond.Dirs {
		if d >= ir.NumDirections {
			errs = append(errs, ValidationError{
				Field:   field + ".dirs",
				Message: fmt.Sprintf("invalid direction %d", d),
				Code:    ErrEmptyDirections,
			})
			continue
		}
		if seen[d] {
			errs = append(errs, ValidationError{
				Field:   field + ".dirs",
				Message: fmt.Sprintf("direction %s listed twice", d),
				Code:    ErrDuplicateDirection,
			})
		}
		seen[d] = true
	}

	errs = append(errs, validatePatternRef(cond.Pattern, types, field+".type")...)

	// E114: counts are bounded by the number of directions
	if c := cond.Count; c != nil {
		limit := len(cond.Dirs)
		inBounds := func(n int) bool { return n >= 0 && n <= limit }
		switch c.Kind {
		case ir.CountRange:
			if !inBounds(c.Min) || !inBounds(c.Max) || c.Min > c.Max {
				errs = append(errs, ValidationError{
					Field:   field + ".count",
					Message: fmt.Sprintf("count range %d..%d outside 0..%d", c.Min, c.Max, limit),
					Code:    ErrInvalidCount,
				})
			}
		case ir.CountExact, ir.CountList:
			if len(c.Values) == 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".count",
					Message: "count lists no values",
					Code:    ErrInvalidCount,
				})
			}
			for _, n := range c.Values {
				if !inBounds(n) {
					errs = append(errs, ValidationError{
						Field:   field + ".count",
						Message: fmt.Sprintf("count %d outside 0..%d", n, limit),
						Code:    ErrInvalidCount,
					})
				}
			}
		default:
			errs = append(errs, ValidationError{
				Field:   field + ".count",
				Message: fmt.Sprintf("unknown count kind %q", c.Kind),
				Code:    ErrInvalidCount,
			})
		}
	}

	return errs
}

// validatePatternRef checks that a pattern only references declared names.
func validatePatternRef(p ir.PatternRef, types map[string]*ir.CellDecl, field string) []ValidationError {
	var errs []ValidationError

	if p.IsWildcard() {
		return validateWildcard(p, types, field)
	}

	cell, ok := types[p.Type]
	if !ok {
		return append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown cell type %q", p.Type),
			Code:    ErrUnknownTypeRef,
		})
	}

	seen := make(map[string]bool, len(p.Constraints))
	for _, c := range p.Constraints {
		if seen[c.Axis] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("axis %q constrained twice in %q", c.Axis, p),
				Code:    ErrDuplicateConstraint,
			})
		}
		seen[c.Axis] = true

		axis := findAxis(cell, c.Axis)
		if axis == nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("type %q has no axis %q", cell.Name, c.Axis),
				Code:    ErrUnknownAxisRef,
			})
			continue
		}
		if !containsValue(axis.Values, c.Value) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("axis %q of type %q has no value %q", c.Axis, cell.Name, c.Value),
				Code:    ErrUnknownAxisRef,
			})
		}
	}

	return errs
}

// validateWildcard requires every constrained axis:value pair of a "*"
// pattern to be declared by at least one type.
func validateWildcard(p ir.PatternRef, types map[string]*ir.CellDecl, field string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(p.Constraints))
	for _, c := range p.Constraints {
		if seen[c.Axis] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("axis %q constrained twice in %q", c.Axis, p),
				Code:    ErrDuplicateConstraint,
			})
		}
		seen[c.Axis] = true

		declared := false
		for _, cell := range types {
			if axis := findAxis(cell, c.Axis); axis != nil && containsValue(axis.Values, c.Value) {
				declared = true
				break
			}
		}
		if !declared {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("no cell type declares %q on axis %q", c.Value, c.Axis),
				Code:    ErrUnknownAxisRef,
			})
		}
	}
	return errs
}

func findAxis(cell *ir.CellDecl, name string) *ir.AxisDecl {
	for i := range cell.States {
		if cell.States[i].Name == name {
			return &cell.States[i]
		}
	}
	return nil
}

func containsValue(values []string, v string) bool {
	return slices.Contains(values, v)
}
