package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist or
// a directory holds no scenarios.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("no scenario files found at %s", e.Path)
}

// DiscoverScenarios returns the scenario files under path, sorted.
// A file path is returned as is; for a directory, the .yaml and .yml files
// directly inside it are returned. Subdirectories are not searched.
func DiscoverScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	sort.Strings(files)
	return files, nil
}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a failed scenario.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// RunSuite loads and runs every scenario file in paths.
// Load and execution errors count as failures rather than aborting the suite.
func RunSuite(paths []string) *SuiteResult {
	suite := &SuiteResult{}
	for _, p := range paths {
		suite.Total++

		scenario, err := LoadScenario(p)
		if err != nil {
			suite.fail(filepath.Base(p), p, err.Error())
			continue
		}
		result, err := Run(scenario)
		if err != nil {
			suite.fail(scenario.Name, p, err.Error())
			continue
		}
		if !result.Pass {
			suite.fail(scenario.Name, p, result.Errors...)
			continue
		}
		suite.Passed++
	}
	return suite
}

func (s *SuiteResult) fail(name, path string, errs ...string) {
	s.Failed++
	s.Failures = append(s.Failures, ScenarioFailure{Scenario: name, Path: path, Errors: errs})
}
