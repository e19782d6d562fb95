package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RenderTrace renders a result as stable text for golden comparison.
//
// Hashes are left out so the files stay readable and can be written by
// hand; the run log cross-check already covers them.
//
//	scenario: battery_wire_air
//	generation 0
//	  battery wire air
//	generation 1 changed=1 fired=3x1
//	  battery power[source:west] air
//	settled at generation 2 period 1
func RenderTrace(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)

	for _, ev := range result.Trace {
		if ev.Generation == 0 {
			buf.WriteString("generation 0\n")
		} else {
			fmt.Fprintf(&buf, "generation %d changed=%d fired=%s\n", ev.Generation, ev.Changed, renderFirings(ev))
		}
		for _, row := range ev.Rows {
			fmt.Fprintf(&buf, "  %s\n", row)
		}
	}

	if result.Settled {
		fmt.Fprintf(&buf, "settled at generation %d period %d\n", result.SettledAt, result.Period)
	} else {
		buf.WriteString("not settled\n")
	}
	return []byte(buf.String())
}

func renderFirings(ev TraceEvent) string {
	if len(ev.Firings) == 0 {
		return "-"
	}
	parts := make([]string, len(ev.Firings))
	for i, f := range ev.Firings {
		parts[i] = fmt.Sprintf("%dx%d", f.Rule, f.Count)
	}
	return strings.Join(parts, ",")
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, RenderTrace(scenarioName, result))
}
