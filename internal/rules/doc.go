// Package rules holds the validated, immutable form of a ruleset.
//
// A Registry catalogs cell types and encodes every concrete cell state as a
// dense State id. A Table holds the ordered rewrite rules with their patterns
// and outputs precomputed against the Registry, so resolving a cell's next
// state is allocation-free and safe to call from many goroutines.
//
// Both are built once by Load, which is fail-closed: any structural problem
// in the declarations rejects the whole ruleset with a *LoadError.
package rules
