package rules

import (
	"fmt"

	"github.com/roach88/cellsim/internal/ir"
)

type loadConfig struct {
	boundary string
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithBoundary sets the type whose default state is read outside the grid.
// The default is the first declared type.
func WithBoundary(typeName string) LoadOption {
	return func(c *loadConfig) {
		c.boundary = typeName
	}
}

// LoadRuleset loads a compiled ruleset, honoring its boundary.
func LoadRuleset(decl *ir.RulesetDecl) (*Registry, *Table, error) {
	return Load(decl.Cells, decl.Rules, WithBoundary(decl.Boundary))
}

// Load validates the declarations and builds a frozen Registry and its
// Table. It is fail-closed: the first structural error rejects everything.
func Load(cells []ir.CellDecl, rules []ir.RuleDecl, opts ...LoadOption) (*Registry, *Table, error) {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(cells) == 0 {
		return nil, nil, typeError(CodeEmptyRegistry, "", "at least one cell type is required")
	}

	reg := NewRegistry()
	for _, c := range cells {
		if err := reg.Register(c); err != nil {
			return nil, nil, err
		}
	}

	table := &Table{
		reg:    reg,
		rules:  make([]Rule, 0, len(rules)),
		byType: make([][]*Rule, len(reg.types)),
	}

	if cfg.boundary == "" {
		table.boundary = reg.types[0].DefaultState()
	} else {
		bt, err := reg.Lookup(cfg.boundary)
		if err != nil {
			return nil, nil, err
		}
		table.boundary = bt.DefaultState()
	}

	for i, rd := range rules {
		rule, err := loadRule(reg, i, rd)
		if err != nil {
			return nil, nil, err
		}
		table.rules = append(table.rules, rule)
	}
	for i := range table.rules {
		r := &table.rules[i]
		ti := r.In.Type.index
		table.byType[ti] = append(table.byType[ti], r)
	}

	reg.Freeze()
	return reg, table, nil
}

func loadRule(reg *Registry, i int, rd ir.RuleDecl) (Rule, error) {
	at := func(e *LoadError, cond int) *LoadError {
		e.Rule, e.Condition = i, cond
		return e
	}

	if rd.In.Negated || rd.Out.Negated {
		return Rule{}, at(typeError(CodeInvalidPattern, "", "input and output patterns may not be negated"), -1)
	}
	if rd.In.IsWildcard() || rd.Out.IsWildcard() {
		return Rule{}, at(typeError(CodeInvalidPattern, "", "input and output patterns must name a type"), -1)
	}

	in, err := compilePattern(reg, rd.In)
	if err != nil {
		return Rule{}, at(err, -1)
	}

	out, lerr := resolveOutput(reg, rd.Out)
	if lerr != nil {
		return Rule{}, at(lerr, -1)
	}

	rule := Rule{Index: i, In: in, Out: out, Conditions: make([]Condition, 0, len(rd.Conditions))}
	for j, cd := range rd.Conditions {
		cond, err := loadCondition(reg, cd)
		if err != nil {
			return Rule{}, at(err, j)
		}
		rule.Conditions = append(rule.Conditions, cond)
	}
	return rule, nil
}

// resolveOutput turns an output pattern into one concrete state. Axes the
// pattern omits take the type's declared default; without one the pattern
// is incomplete.
func resolveOutput(reg *Registry, ref ir.PatternRef) (State, *LoadError) {
	p, err := compilePattern(reg, ref)
	if err != nil {
		return 0, err
	}
	t := p.Type
	idx := make([]int, len(t.Axes))
	set := make([]bool, len(t.Axes))
	for _, c := range p.constraints {
		idx[c.axis] = c.value
		set[c.axis] = true
	}
	for a := range t.Axes {
		if set[a] {
			continue
		}
		if !t.declared[a] {
			return 0, typeError(CodeIncompleteOutputPattern, t.Name,
				"output %q omits axis %q and the type declares no default", ref.String(), t.Axes[a].Name)
		}
		idx[a] = t.defaults[a]
	}
	return t.encode(idx), nil
}

func loadCondition(reg *Registry, cd ir.ConditionDecl) (Condition, *LoadError) {
	if len(cd.Dirs) == 0 {
		return Condition{}, typeError(CodeInvalidCondition, "", "condition lists no directions")
	}
	var seen [ir.NumDirections]bool
	for _, d := range cd.Dirs {
		if d >= ir.NumDirections {
			return Condition{}, typeError(CodeInvalidCondition, "", "invalid direction %d", d)
		}
		if seen[d] {
			return Condition{}, typeError(CodeInvalidCondition, "", "direction %s listed twice", d)
		}
		seen[d] = true
	}

	p, err := compilePattern(reg, cd.Pattern)
	if err != nil {
		return Condition{}, err
	}

	cond := Condition{Dirs: append([]ir.Direction(nil), cd.Dirs...), Pattern: p}
	if cd.Count != nil {
		if msg := checkCount(*cd.Count, len(cd.Dirs)); msg != "" {
			return Condition{}, typeError(CodeInvalidCondition, "", "%s", msg)
		}
		count := *cd.Count
		cond.Count = &count
	}
	return cond, nil
}

// checkCount returns a message when the count can never be evaluated
// sensibly against ndirs directions.
func checkCount(c ir.CountSpec, ndirs int) string {
	inRange := func(n int) bool { return n >= 0 && n <= ndirs }
	switch c.Kind {
	case ir.CountRange:
		if !inRange(c.Min) || !inRange(c.Max) || c.Min > c.Max {
			return fmt.Sprintf("count range %d..%d outside 0..%d", c.Min, c.Max, ndirs)
		}
	case ir.CountExact, ir.CountList:
		if len(c.Values) == 0 {
			return "count lists no values"
		}
		for _, n := range c.Values {
			if !inRange(n) {
				return fmt.Sprintf("count %d outside 0..%d", n, ndirs)
			}
		}
	default:
		return fmt.Sprintf("unknown count kind %q", c.Kind)
	}
	return ""
}
