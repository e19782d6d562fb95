package rules

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/cellsim/internal/ir"
)

// MaxStates bounds the total number of distinct cell states a registry may
// encode. Each type contributes the product of its axis sizes.
const MaxStates = 1 << 20

// State is a concrete cell state: a type plus one value per declared axis,
// encoded as a dense id. States of one Registry compare with ==.
type State uint32

// Axis is a named enumeration of allowed values.
type Axis struct {
	Name   string
	Values []string
}

// IndexOf returns the position of v in the axis, or -1.
func (a Axis) IndexOf(v string) int {
	return slices.Index(a.Values, v)
}

// CellType is a registered cell type. Its states occupy the contiguous id
// range [base, base+size).
type CellType struct {
	Name  string
	Color string
	Axes  []Axis // sorted by name

	index    int
	base     State
	size     int
	strides  []int
	defaults []int // default value index per axis
	declared []bool
}

// Index is the declaration position of the type.
func (t *CellType) Index() int { return t.index }

// NumStates is the number of concrete states of the type.
func (t *CellType) NumStates() int { return t.size }

// Contains reports whether s is a state of this type.
func (t *CellType) Contains(s State) bool {
	return s >= t.base && int(s-t.base) < t.size
}

// AxisIndex returns the position of the named axis.
func (t *CellType) AxisIndex(name string) (int, bool) {
	for i, a := range t.Axes {
		if a.Name == name {
			return i, true
		}
	}
	return -1, false
}

// DefaultState is the state with every axis at its default value.
func (t *CellType) DefaultState() State {
	return t.encode(t.defaults)
}

func (t *CellType) encode(valueIdx []int) State {
	s := t.base
	for i, v := range valueIdx {
		s += State(v * t.strides[i])
	}
	return s
}

// valueIndex returns the value position of axis i in s. s must belong to t.
func (t *CellType) valueIndex(s State, i int) int {
	return (int(s-t.base) / t.strides[i]) % len(t.Axes[i].Values)
}

// Registry catalogs cell types. It is mutable until Freeze and read-only
// (and safe for concurrent use) afterwards.
type Registry struct {
	types  []*CellType
	byName map[string]*CellType
	typeOf []int32 // state id -> type index
	frozen bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*CellType)}
}

// Register validates and adds a cell type.
func (r *Registry) Register(decl ir.CellDecl) error {
	if r.frozen {
		return typeError(CodeRegistryFrozen, decl.Name, "registry is read-only after load")
	}
	if !ir.ValidName(decl.Name) {
		return typeError(CodeInvalidPattern, decl.Name, "type name is not usable in patterns")
	}
	if _, dup := r.byName[decl.Name]; dup {
		return typeError(CodeDuplicateType, decl.Name, "type already registered")
	}

	axes := make([]Axis, 0, len(decl.States))
	seen := make(map[string]bool, len(decl.States))
	for _, a := range decl.States {
		if seen[a.Name] {
			return typeError(CodeInvalidAxis, decl.Name, "axis %q declared twice", a.Name)
		}
		seen[a.Name] = true
		if !ir.ValidName(a.Name) {
			return typeError(CodeInvalidAxis, decl.Name, "axis name %q is not usable in patterns", a.Name)
		}
		if len(a.Values) == 0 {
			return typeError(CodeInvalidAxis, decl.Name, "axis %q has no values", a.Name)
		}
		values := make(map[string]bool, len(a.Values))
		for _, v := range a.Values {
			if values[v] {
				return typeError(CodeInvalidAxis, decl.Name, "axis %q lists value %q twice", a.Name, v)
			}
			if !ir.ValidName(v) {
				return typeError(CodeInvalidAxis, decl.Name, "axis %q value %q is not usable in patterns", a.Name, v)
			}
			values[v] = true
		}
		axes = append(axes, Axis{Name: a.Name, Values: slices.Clone(a.Values)})
	}
	slices.SortFunc(axes, func(a, b Axis) int { return strings.Compare(a.Name, b.Name) })

	t := &CellType{
		Name:     decl.Name,
		Color:    decl.Color,
		Axes:     axes,
		index:    len(r.types),
		base:     State(len(r.typeOf)),
		size:     1,
		strides:  make([]int, len(axes)),
		defaults: make([]int, len(axes)),
		declared: make([]bool, len(axes)),
	}

	// Mixed radix, last axis varies fastest.
	for i := len(axes) - 1; i >= 0; i-- {
		t.strides[i] = t.size
		t.size *= len(axes[i].Values)
		if len(r.typeOf)+t.size > MaxStates {
			return typeError(CodeStateSpaceTooLarge, decl.Name, "type needs more than %d states", MaxStates)
		}
	}
	if len(r.typeOf)+t.size > MaxStates {
		return typeError(CodeStateSpaceTooLarge, decl.Name, "registry exceeds %d states", MaxStates)
	}

	for _, axis := range slices.Sorted(maps.Keys(decl.Defaults)) {
		value := decl.Defaults[axis]
		i, ok := t.AxisIndex(axis)
		if !ok {
			return typeError(CodeUnknownAxis, decl.Name, "default for undeclared axis %q", axis)
		}
		v := axes[i].IndexOf(value)
		if v < 0 {
			return typeError(CodeInvalidAxisValue, decl.Name, "default %q is not a value of axis %q", value, axis)
		}
		t.defaults[i] = v
		t.declared[i] = true
	}

	r.types = append(r.types, t)
	r.byName[t.Name] = t
	for range t.size {
		r.typeOf = append(r.typeOf, int32(t.index))
	}
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// Lookup returns the named type.
func (r *Registry) Lookup(name string) (*CellType, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, typeError(CodeUnknownType, name, "type is not registered")
	}
	return t, nil
}

// Types returns the registered types in declaration order.
func (r *Registry) Types() []*CellType {
	return slices.Clone(r.types)
}

// NumStates is the total number of encoded states.
func (r *Registry) NumStates() int { return len(r.typeOf) }

// TypeOf returns the type of s, or nil if s is not a state of r.
func (r *Registry) TypeOf(s State) *CellType {
	if int(s) >= len(r.typeOf) {
		return nil
	}
	return r.types[r.typeOf[s]]
}

// Default returns the default state of the named type: declared defaults,
// otherwise the first listed value of each axis.
func (r *Registry) Default(name string) (State, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return 0, err
	}
	return t.DefaultState(), nil
}

// Make builds a state from axis values. Axes absent from values take the
// type's default.
func (r *Registry) Make(name string, values map[string]string) (State, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return 0, err
	}
	idx := slices.Clone(t.defaults)
	for axis, value := range values {
		i, ok := t.AxisIndex(axis)
		if !ok {
			return 0, typeError(CodeUnknownAxis, name, "no axis %q", axis)
		}
		v := t.Axes[i].IndexOf(value)
		if v < 0 {
			return 0, typeError(CodeInvalidAxisValue, name, "%q is not a value of axis %q", value, axis)
		}
		idx[i] = v
	}
	return t.encode(idx), nil
}

// Value returns the value of an axis of s.
func (r *Registry) Value(s State, axis string) (string, error) {
	t := r.TypeOf(s)
	if t == nil {
		return "", fmt.Errorf("state %d is not registered", s)
	}
	i, ok := t.AxisIndex(axis)
	if !ok {
		return "", typeError(CodeUnknownAxis, t.Name, "no axis %q", axis)
	}
	return t.Axes[i].Values[t.valueIndex(s, i)], nil
}

// String renders s canonically: "type" or "type[a:x,b:y]" with axes in
// name order.
func (r *Registry) String(s State) string {
	t := r.TypeOf(s)
	if t == nil {
		return fmt.Sprintf("<invalid state %d>", s)
	}
	if len(t.Axes) == 0 {
		return t.Name
	}
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteByte('[')
	for i, a := range t.Axes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Name)
		b.WriteByte(':')
		b.WriteString(a.Values[t.valueIndex(s, i)])
	}
	b.WriteByte(']')
	return b.String()
}

// ParseState parses state text such as "power[source:west]". Axes the text
// omits take the type's default.
func (r *Registry) ParseState(text string) (State, error) {
	p, err := ir.ParsePattern(text)
	if err != nil {
		return 0, err
	}
	if p.Negated {
		return 0, &LoadError{Code: CodeInvalidPattern, Rule: -1, Condition: -1, Message: fmt.Sprintf("state %q may not be negated", text)}
	}
	values := make(map[string]string, len(p.Constraints))
	for _, c := range p.Constraints {
		if _, dup := values[c.Axis]; dup {
			return 0, typeError(CodeInvalidPattern, p.Type, "axis %q given twice in %q", c.Axis, text)
		}
		values[c.Axis] = c.Value
	}
	return r.Make(p.Type, values)
}
