package ir

// RulesetDecl is a complete ruleset as produced by a loader.
type RulesetDecl struct {
	Name     string     `json:"name,omitempty"`
	Boundary string     `json:"boundary,omitempty"` // type of out-of-bounds cells; empty = first cell
	Cells    []CellDecl `json:"cells"`
	Rules    []RuleDecl `json:"rules"`
}

// CellDecl declares a cell type.
type CellDecl struct {
	Name     string            `json:"name"`
	Color    string            `json:"color"` // display only, "#RRGGBB"
	States   []AxisDecl        `json:"states,omitempty"`
	Defaults map[string]string `json:"defaults,omitempty"` // axis -> value used to complete outputs
}

// AxisDecl declares a named enumeration of allowed values.
type AxisDecl struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// RuleDecl declares a rewrite rule. Rules are kept in declaration order.
type RuleDecl struct {
	In         PatternRef      `json:"in"`
	Out        PatternRef      `json:"out"`
	Conditions []ConditionDecl `json:"conditions,omitempty"`
}

// ConditionDecl declares a directional neighbor check.
type ConditionDecl struct {
	Dirs    []Direction `json:"dirs"`
	Pattern PatternRef  `json:"type"`
	Count   *CountSpec  `json:"count,omitempty"` // nil = pattern must hold in every direction
}

// CountKind selects how a CountSpec is interpreted.
type CountKind string

const (
	CountExact CountKind = "exact"
	CountList  CountKind = "list"
	CountRange CountKind = "range"
)

// CountSpec constrains how many of a condition's directions must match.
type CountSpec struct {
	Kind   CountKind `json:"kind"`
	Values []int     `json:"values,omitempty"` // exact (one value) or list
	Min    int       `json:"min,omitempty"`    // range, inclusive
	Max    int       `json:"max,omitempty"`    // range, inclusive
}

// Contains reports whether n satisfies the count.
func (c CountSpec) Contains(n int) bool {
	switch c.Kind {
	case CountRange:
		return n >= c.Min && n <= c.Max
	default:
		for _, v := range c.Values {
			if v == n {
				return true
			}
		}
		return false
	}
}

// GridDecl describes an initial grid as rows of whitespace-separated state texts.
type GridDecl struct {
	Rows []string `json:"rows" yaml:"rows"`
}
