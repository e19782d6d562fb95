package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/cellsim/internal/rules"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Index    int    // Position in the scenario's assertion list
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertions[%d] %s failed: expected %s, got %s", e.Index, e.Type, e.Expected, e.Actual)
}

// assertStableWithin checks that the run repeated a generation by
// generation N.
func assertStableWithin(result *Result, a Assertion) (string, string, bool) {
	expected := fmt.Sprintf("settled by generation %d", a.Generations)
	if !result.Settled {
		return expected, fmt.Sprintf("not settled after generation %d", result.Final().Generation), false
	}
	if result.SettledAt > a.Generations {
		return expected, fmt.Sprintf("settled at generation %d", result.SettledAt), false
	}
	return expected, "", true
}

// assertCell checks the final state of one cell. The expected state is
// canonicalized first, so omitted axes take their defaults.
func assertCell(result *Result, reg *rules.Registry, a Assertion) (string, string, bool) {
	s, err := reg.ParseState(a.State)
	if err != nil {
		return a.State, fmt.Sprintf("unknown state: %v", err), false
	}
	want := reg.String(s)
	expected := fmt.Sprintf("%s at (%d, %d)", want, a.X, a.Y)

	final := result.Final()
	if a.Y >= len(final.Rows) {
		return expected, fmt.Sprintf("row %d out of bounds (height %d)", a.Y, len(final.Rows)), false
	}
	cells := strings.Fields(final.Rows[a.Y])
	if a.X >= len(cells) {
		return expected, fmt.Sprintf("column %d out of bounds (width %d)", a.X, len(cells)), false
	}
	if cells[a.X] != want {
		return expected, cells[a.X], false
	}
	return expected, "", true
}

// assertFired checks how many cells a rule rewrote, over the whole run or
// in a single generation.
func assertFired(result *Result, a Assertion) (string, string, bool) {
	var got int
	scope := "in total"
	for _, ev := range result.Trace {
		if a.Generation != nil && ev.Generation != *a.Generation {
			continue
		}
		for _, f := range ev.Firings {
			if f.Rule == *a.Rule {
				got += f.Count
			}
		}
	}
	if a.Generation != nil {
		scope = fmt.Sprintf("in generation %d", *a.Generation)
		if _, ok := result.Generation(*a.Generation); !ok {
			return fmt.Sprintf("rule %d fired %d times %s", *a.Rule, *a.Count, scope), "generation not reached", false
		}
	}
	expected := fmt.Sprintf("rule %d fired %d times %s", *a.Rule, *a.Count, scope)
	if got != *a.Count {
		return expected, fmt.Sprintf("%d times", got), false
	}
	return expected, "", true
}

// assertChanged checks how many cells changed in a generation.
func assertChanged(result *Result, a Assertion) (string, string, bool) {
	expected := fmt.Sprintf("%d cells changed in generation %d", *a.Count, *a.Generation)
	ev, ok := result.Generation(*a.Generation)
	if !ok {
		return expected, "generation not reached", false
	}
	if ev.Changed != *a.Count {
		return expected, fmt.Sprintf("%d cells changed", ev.Changed), false
	}
	return expected, "", true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, reg *rules.Registry, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var expected, actual string
		var ok bool

		switch assertion.Type {
		case AssertStableWithin:
			expected, actual, ok = assertStableWithin(result, assertion)
		case AssertCell:
			expected, actual, ok = assertCell(result, reg, assertion)
		case AssertFired:
			expected, actual, ok = assertFired(result, assertion)
		case AssertChanged:
			expected, actual, ok = assertChanged(result, assertion)
		default:
			errors = append(errors, fmt.Sprintf("assertions[%d]: unknown assertion type %q", i, assertion.Type))
			continue
		}

		if !ok {
			err := &AssertionError{Index: i, Type: assertion.Type, Expected: expected, Actual: actual}
			errors = append(errors, err.Error())
		}
	}

	return errors
}
