package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cellsim/internal/ir"
)

// Scenario defines a conformance test scenario: a ruleset, an initial grid,
// scripted ticks with expected grids, and assertions on the run.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ruleset is the path to a .cue, .yaml or .toml ruleset.
	// Relative paths are resolved against the scenario file's directory.
	Ruleset string `yaml:"ruleset"`

	// Grid is the initial generation.
	Grid ir.GridDecl `yaml:"grid"`

	// Steps advance the run and optionally check the resulting grid.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the finished run.
	// Supported types: stable_within, cell, fired, changed
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id.
	// If empty, defaults to "test-run-default" for golden file comparison.
	RunID string `yaml:"run_id,omitempty"`

	// Workers sets the stepper's band count. Results never depend on it;
	// scenarios set it to exercise the parallel path.
	Workers int `yaml:"workers,omitempty"`
}

// Step advances the run by Ticks generations.
type Step struct {
	Ticks int `yaml:"ticks"`

	// Expect specifies the grid after the ticks.
	// If nil, no validation is performed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected grid.
type ExpectClause struct {
	// Rows are whitespace-separated state texts, compared after
	// canonicalization (omitted axes take their defaults).
	Rows []string `yaml:"rows"`
}

// Assertion validates the finished run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "stable_within": run settles by generation Generations
	// - "cell": final state at (X, Y) is State
	// - "fired": Rule fired Count times (in Generation, if set)
	// - "changed": Count cells changed in Generation
	Type string `yaml:"type"`

	Generations int64  `yaml:"generations,omitempty"`
	X           int    `yaml:"x,omitempty"`
	Y           int    `yaml:"y,omitempty"`
	State       string `yaml:"state,omitempty"`
	Rule        *int   `yaml:"rule,omitempty"`
	Count       *int   `yaml:"count,omitempty"`
	Generation  *int64 `yaml:"generation,omitempty"`
}

// Assertion type constants.
const (
	AssertStableWithin = "stable_within"
	AssertCell         = "cell"
	AssertFired        = "fired"
	AssertChanged      = "changed"
)

// LoadScenario reads and parses a scenario YAML file, resolving the
// ruleset path relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Ruleset != "" && !filepath.IsAbs(scenario.Ruleset) {
		scenario.Ruleset = filepath.Join(filepath.Dir(path), scenario.Ruleset)
	}
	if _, err := os.Stat(scenario.Ruleset); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: ruleset file not found: %s", scenario.Ruleset)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and assertion shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Ruleset == "" {
		return fmt.Errorf("ruleset is required")
	}
	if len(s.Grid.Rows) == 0 {
		return fmt.Errorf("grid.rows is required and must be non-empty")
	}
	if len(s.Steps) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("at least one step or assertion is required")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}

	for i, step := range s.Steps {
		if step.Ticks < 0 {
			return fmt.Errorf("steps[%d]: ticks must be non-negative", i)
		}
		if step.Expect != nil && len(step.Expect.Rows) == 0 {
			return fmt.Errorf("steps[%d].expect: rows is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStableWithin:
		if a.Generations <= 0 {
			return fmt.Errorf("assertions[%d]: generations must be positive for stable_within", index)
		}
	case AssertCell:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for cell", index)
		}
		if a.X < 0 || a.Y < 0 {
			return fmt.Errorf("assertions[%d]: x and y must be non-negative for cell", index)
		}
	case AssertFired:
		if a.Rule == nil || *a.Rule < 0 {
			return fmt.Errorf("assertions[%d]: rule is required for fired", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for fired", index)
		}
	case AssertChanged:
		if a.Generation == nil || *a.Generation < 1 {
			return fmt.Errorf("assertions[%d]: generation >= 1 is required for changed", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for changed", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
