package rules

import (
	"github.com/roach88/cellsim/internal/ir"
)

// Neighborhood is the four-neighbor view of one cell, indexed by
// ir.Direction.
type Neighborhood [ir.NumDirections]State

// constraint pins axis to value index.
type constraint struct {
	axis  int
	value int
}

// Pattern is a pattern resolved against a Registry. Type is nil for a
// wildcard pattern.
type Pattern struct {
	Type        *CellType
	Negated     bool
	constraints []constraint
	text        string

	reg    *Registry
	byType [][]constraint // wildcard only: constraints per type index, nil if the type cannot match
}

// Matches reports whether s satisfies the pattern. Without negation the type
// must be equal (any type that declares every constrained axis, for a
// wildcard) and every constrained axis must hold its value; negation
// inverts that whole conjunction.
func (p *Pattern) Matches(s State) bool {
	return p.matchesPositive(s) != p.Negated
}

// Wildcard reports whether the pattern matches states of any type.
func (p *Pattern) Wildcard() bool { return p.Type == nil }

func (p *Pattern) matchesPositive(s State) bool {
	t, cs := p.Type, p.constraints
	if t == nil {
		t = p.reg.TypeOf(s)
		if t == nil || p.byType[t.index] == nil {
			return false
		}
		cs = p.byType[t.index]
	} else if !t.Contains(s) {
		return false
	}
	for _, c := range cs {
		if t.valueIndex(s, c.axis) != c.value {
			return false
		}
	}
	return true
}

func (p *Pattern) String() string { return p.text }

// compilePattern resolves a parsed pattern. Errors carry no rule position;
// callers fill it in.
func compilePattern(reg *Registry, ref ir.PatternRef) (Pattern, *LoadError) {
	if ref.IsWildcard() {
		return compileWildcard(reg, ref)
	}
	t, ok := reg.byName[ref.Type]
	if !ok {
		return Pattern{}, typeError(CodeUnknownType, ref.Type, "pattern %q names an unknown type", ref.String())
	}

	p := Pattern{Type: t, Negated: ref.Negated, text: ref.String()}
	seen := make(map[int]bool, len(ref.Constraints))
	for _, c := range ref.Constraints {
		axis, ok := t.AxisIndex(c.Axis)
		if !ok {
			return Pattern{}, typeError(CodeUnknownAxis, t.Name, "pattern %q: no axis %q", ref.String(), c.Axis)
		}
		if seen[axis] {
			return Pattern{}, typeError(CodeInvalidPattern, t.Name, "pattern %q constrains axis %q twice", ref.String(), c.Axis)
		}
		seen[axis] = true
		value := t.Axes[axis].IndexOf(c.Value)
		if value < 0 {
			return Pattern{}, typeError(CodeInvalidAxisValue, t.Name, "pattern %q: %q is not a value of axis %q", ref.String(), c.Value, c.Axis)
		}
		p.constraints = append(p.constraints, constraint{axis: axis, value: value})
	}
	return p, nil
}

// compileWildcard resolves "*" patterns per registered type. A type matches
// only if it declares every constrained axis with the constrained value.
// Each axis:value pair must be declared by at least one type.
func compileWildcard(reg *Registry, ref ir.PatternRef) (Pattern, *LoadError) {
	seen := make(map[string]bool, len(ref.Constraints))
	for _, c := range ref.Constraints {
		if seen[c.Axis] {
			return Pattern{}, typeError(CodeInvalidPattern, "", "pattern %q constrains axis %q twice", ref.String(), c.Axis)
		}
		seen[c.Axis] = true
	}

	p := Pattern{Negated: ref.Negated, text: ref.String(), reg: reg, byType: make([][]constraint, len(reg.types))}
	axisFound := make([]bool, len(ref.Constraints))
	valueFound := make([]bool, len(ref.Constraints))
	for _, t := range reg.types {
		cs := make([]constraint, 0, len(ref.Constraints))
		for i, c := range ref.Constraints {
			axis, ok := t.AxisIndex(c.Axis)
			if !ok {
				cs = nil
				continue
			}
			axisFound[i] = true
			value := t.Axes[axis].IndexOf(c.Value)
			if value < 0 {
				cs = nil
				continue
			}
			valueFound[i] = true
			if cs != nil {
				cs = append(cs, constraint{axis: axis, value: value})
			}
		}
		p.byType[t.index] = cs
	}

	for i, c := range ref.Constraints {
		if !axisFound[i] {
			return Pattern{}, typeError(CodeUnknownAxis, "", "pattern %q: no type declares axis %q", ref.String(), c.Axis)
		}
		if !valueFound[i] {
			return Pattern{}, typeError(CodeInvalidAxisValue, "", "pattern %q: no type declares %q on axis %q", ref.String(), c.Value, c.Axis)
		}
	}
	return p, nil
}

// Condition checks the neighbors in a set of directions against a pattern.
type Condition struct {
	Dirs    []ir.Direction
	Pattern Pattern
	Count   *ir.CountSpec // nil: the pattern must match in every direction
}

// Holds evaluates the condition against a neighborhood.
func (c *Condition) Holds(nb *Neighborhood) bool {
	if c.Count == nil {
		for _, d := range c.Dirs {
			if !c.Pattern.Matches(nb[d]) {
				return false
			}
		}
		return true
	}

	n := 0
	for _, d := range c.Dirs {
		if c.Pattern.Matches(nb[d]) {
			n++
		}
	}
	return c.Count.Contains(n)
}
