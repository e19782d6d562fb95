// Package engine steps a grid of cells through generations.
//
// ARCHITECTURE:
//
// Double-Buffered Grid:
// A Grid owns two equally sized buffers. Every cell of generation n+1 is
// computed from generation n only, so evaluation order never matters and
// rows can be evaluated in parallel.
//
// Tick Flow:
//  1. Stepper splits rows into contiguous bands, one goroutine per band
//  2. Each worker reads the current buffer and writes its own slots of the
//     next buffer via rules.Table.ResolveIndex
//  3. errgroup.Wait is the barrier; a failed worker aborts the tick
//  4. Only then does the buffer index swap and the Clock advance
//
// Simulation wraps a Grid and Stepper with run identity, a generation
// quota, settle detection, logging and an optional Recorder for the run log.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Generations are numbered by Clock, never by wall time.
//
// Determinism:
// A generation is a pure function of the rule table and the previous
// generation. Worker count does not change the result, and Verify checks a
// recorded run against a fresh one by generation hash.
package engine
