// Package ir provides the declaration types shared by the loader, the rule
// engine, the run log and the conformance harness.
//
// This package contains type definitions, the pattern and direction grammar,
// and canonical hashing. All other internal packages import ir; ir imports
// nothing internal.
//
// Key design constraints:
//   - Declarations are plain data; semantic validation happens in package rules
//   - Names are NFC normalized at the canonical serialization boundary
//   - All JSON tags use snake_case
//   - Generations are counted with a logical clock, never wall-clock time
package ir
