// Package graph orders helpers by their declared dependencies.
//
// Ordering is Kahn's algorithm with a deterministic ready set: among the
// helpers whose dependencies are satisfied, the one with the highest
// priority runs first, then the lowest key, then the lowest registration
// index.
package graph
