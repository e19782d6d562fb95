// Package store provides SQLite-backed durable storage for cellsim run logs.
//
// The store is an append-only audit log, not a save format. It never holds
// cells, only identities and statistics:
//   - Runs: run id, ruleset hash, grid size, initial generation hash
//   - Generations: hash and changed-cell count of every generation
//   - Rule firings: cells rewritten per rule per generation
//
// A run is reproduced by re-running the ruleset from its initial grid and
// comparing generation hashes (engine.Verify).
//
// # Critical Patterns
//
// Idempotent Writes:
//   - ON CONFLICT DO NOTHING on every insert
//   - Recording the same generation twice is harmless
//
// Logical Ordering:
//   - Runs are ordered by seq (insertion order), generations by number
//   - All queries carry an explicit ORDER BY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
