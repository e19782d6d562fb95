package compiler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/rules"
)

// rangeSeparator splits the bounds of a count range such as "1..3".
const rangeSeparator = ".."

// nfc normalizes user-supplied names so that visually identical identifiers
// compare equal.
func nfc(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// axisValues converts a declared axis into its value list.
// An integer N is shorthand for the values "0".."N". N+1 may not exceed
// rules.MaxStates since no registry could encode the axis.
func axisValues(axis string, v any) ([]string, error) {
	if n, ok := asInt(v); ok {
		if n < 0 {
			return nil, fmt.Errorf("axis %q: integer shorthand must be >= 0, got %d", axis, n)
		}
		if n >= rules.MaxStates {
			return nil, fmt.Errorf("axis %q: integer shorthand %d exceeds %d values", axis, n, rules.MaxStates)
		}
		values := make([]string, 0, n+1)
		for i := 0; i <= n; i++ {
			values = append(values, strconv.Itoa(i))
		}
		return values, nil
	}

	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("axis %q: values must be a list of strings or an integer, got %T", axis, v)
	}
	values := make([]string, 0, len(list))
	for i, elem := range list {
		s, ok := scalarString(elem)
		if !ok {
			return nil, fmt.Errorf("axis %q: value %d must be a string, got %T", axis, i, elem)
		}
		values = append(values, nfc(s))
	}
	return values, nil
}

// buildAxes turns an axis map into declarations sorted by axis name.
// Map order is not stable across formats, so the sort fixes identity.
func buildAxes(states map[string]any) ([]ir.AxisDecl, error) {
	if len(states) == 0 {
		return nil, nil
	}
	axes := make([]ir.AxisDecl, 0, len(states))
	for name, raw := range states {
		values, err := axisValues(name, raw)
		if err != nil {
			return nil, err
		}
		axes = append(axes, ir.AxisDecl{Name: nfc(name), Values: values})
	}
	slices.SortFunc(axes, func(a, b ir.AxisDecl) int {
		return strings.Compare(a.Name, b.Name)
	})
	return axes, nil
}

// buildDefaults normalizes a defaults map; integer values become their
// decimal text so they line up with integer shorthand axes.
func buildDefaults(raw map[string]any) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	defaults := make(map[string]string, len(raw))
	for axis, v := range raw {
		s, ok := scalarString(v)
		if !ok {
			return nil, fmt.Errorf("default for axis %q must be a string or integer, got %T", axis, v)
		}
		defaults[nfc(axis)] = nfc(s)
	}
	return defaults, nil
}

// buildCondition assembles a condition. A nil dirs means all four directions.
func buildCondition(dirs *string, pattern string, count any) (ir.ConditionDecl, error) {
	var cond ir.ConditionDecl

	if dirs == nil {
		cond.Dirs = slices.Clone(ir.AllDirections)
	} else {
		parsed, err := ir.ParseDirections(*dirs)
		if err != nil {
			return cond, err
		}
		cond.Dirs = parsed
	}

	p, err := ir.ParsePattern(nfc(pattern))
	if err != nil {
		return cond, err
	}
	cond.Pattern = p

	if count != nil {
		spec, err := parseCount(count, len(cond.Dirs))
		if err != nil {
			return cond, err
		}
		cond.Count = spec
	}
	return cond, nil
}

// buildRule parses the in/out patterns of a rule.
func buildRule(in, out string, conds []ir.ConditionDecl) (ir.RuleDecl, error) {
	inPat, err := ir.ParsePattern(nfc(in))
	if err != nil {
		return ir.RuleDecl{}, fmt.Errorf("in: %w", err)
	}
	outPat, err := ir.ParsePattern(nfc(out))
	if err != nil {
		return ir.RuleDecl{}, fmt.Errorf("out: %w", err)
	}
	return ir.RuleDecl{In: inPat, Out: outPat, Conditions: conds}, nil
}

// parseCount accepts an integer (exact), a list of integers, or a range
// string "a..b" where either end may be omitted. Open ends resolve against
// the number of listed directions.
func parseCount(v any, ndirs int) (*ir.CountSpec, error) {
	if n, ok := asInt(v); ok {
		return &ir.CountSpec{Kind: ir.CountExact, Values: []int{n}}, nil
	}

	switch val := v.(type) {
	case []any:
		values := make([]int, 0, len(val))
		for i, elem := range val {
			n, ok := asInt(elem)
			if !ok {
				return nil, fmt.Errorf("count list element %d must be an integer, got %T", i, elem)
			}
			values = append(values, n)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("count list must not be empty")
		}
		return &ir.CountSpec{Kind: ir.CountList, Values: values}, nil
	case string:
		lo, hi, err := parseRange(val, ndirs)
		if err != nil {
			return nil, err
		}
		return &ir.CountSpec{Kind: ir.CountRange, Min: lo, Max: hi}, nil
	default:
		return nil, fmt.Errorf("count must be an integer, a list or a range string, got %T", v)
	}
}

func parseRange(s string, ndirs int) (int, int, error) {
	segments := strings.Split(strings.TrimSpace(s), rangeSeparator)
	if len(segments) != 2 {
		return 0, 0, fmt.Errorf("count range %q must have the form a..b", s)
	}
	loText, hiText := strings.TrimSpace(segments[0]), strings.TrimSpace(segments[1])
	if loText == "" && hiText == "" {
		return 0, 0, fmt.Errorf("count range %q has no bounds", s)
	}

	lo, hi := 0, ndirs
	var err error
	if loText != "" {
		if lo, err = strconv.Atoi(loText); err != nil {
			return 0, 0, fmt.Errorf("count range %q: invalid lower bound: %w", s, err)
		}
	}
	if hiText != "" {
		if hi, err = strconv.Atoi(hiText); err != nil {
			return 0, 0, fmt.Errorf("count range %q: invalid upper bound: %w", s, err)
		}
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("count range %q has lower bound above upper bound", s)
	}
	return lo, hi, nil
}

// asInt accepts the integer types the YAML, TOML and CUE decoders produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}

func scalarString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if n, ok := asInt(v); ok {
		return strconv.Itoa(n), true
	}
	return "", false
}
