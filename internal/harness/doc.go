// Package harness provides conformance testing for cellsim rulesets.
//
// The harness loads a ruleset and an initial grid, steps the real engine,
// and checks the generations it produces against the scenario.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	ruleset: ../rulesets/circuit.yaml   # relative to the scenario file
//	grid:
//	  rows:
//	    - battery wire air
//	steps:
//	  - ticks: 1
//	    expect:
//	      rows:
//	        - battery power[source:west] air
//	assertions:
//	  - type: stable_within
//	    generations: 3
//	  - type: cell
//	    x: 1
//	    y: 0
//	    state: power[source:west]
//	  - type: fired
//	    rule: 3
//	    count: 1
//	  - type: changed
//	    generation: 1
//	    count: 1
//
// # Assertion Types
//
//   - stable_within: the run reaches a repeated generation by generation N.
//     Evaluated first; it keeps stepping after the scripted steps.
//   - cell: the final state at (x, y) equals state
//   - fired: rule fired count times in total (or in one generation)
//   - changed: exactly count cells changed in a generation
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run id and an in-memory SQLite run log,
// so the trace (and its golden rendering) is identical on every run.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/battery_wire_air.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
