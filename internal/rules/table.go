package rules

import "fmt"

// Rule is a loaded rewrite rule. Out is the concrete state written when the
// rule fires.
type Rule struct {
	Index      int
	In         Pattern
	Out        State
	Conditions []Condition
}

// Fires reports whether every condition holds. Callers check In first.
func (r *Rule) Fires(nb *Neighborhood) bool {
	for i := range r.Conditions {
		if !r.Conditions[i].Holds(nb) {
			return false
		}
	}
	return true
}

// Table is an immutable ordered rule list. Order is priority.
type Table struct {
	reg      *Registry
	rules    []Rule
	byType   [][]*Rule // candidate rules per type index, in declaration order
	boundary State
}

// Registry returns the registry the table was loaded against.
func (t *Table) Registry() *Registry { return t.reg }

// Boundary is the state read for coordinates outside a grid.
func (t *Table) Boundary() State { return t.boundary }

// Len is the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Rule returns rule i.
func (t *Table) Rule(i int) *Rule { return &t.rules[i] }

// Resolve returns the next state of a cell: the output of the first rule
// whose input matches current and whose conditions all hold, or current
// itself when no rule fires.
//
// current must be a state of the table's registry; Resolve panics otherwise.
// Unregistered neighbor states satisfy no positive pattern.
func (t *Table) Resolve(current State, nb *Neighborhood) State {
	next, _ := t.ResolveIndex(current, nb)
	return next
}

// ResolveIndex is Resolve that also returns the index of the fired rule,
// or -1 for the identity transition. It has the same precondition.
func (t *Table) ResolveIndex(current State, nb *Neighborhood) (State, int) {
	ct := t.reg.TypeOf(current)
	if ct == nil {
		panic(fmt.Sprintf("rules: resolve of unregistered state %d (registry has %d states)", current, t.reg.NumStates()))
	}
	for _, r := range t.byType[ct.index] {
		if r.In.Matches(current) && r.Fires(nb) {
			return r.Out, r.Index
		}
	}
	return current, -1
}
