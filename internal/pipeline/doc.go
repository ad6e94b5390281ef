// Package pipeline composes helper registries, dependency resolution, the
// continuation executor, extension lifecycles and rollback into a runnable
// code-generation pipeline.
//
// A run executes, by default:
//
//	fragments -> finalize fragments -> lifecycles... -> builders -> commit -> finalize result
//
// Each step is a Stage over a single *State. A failing stage rolls back all
// recorded work inline, most recent first, and marks the state halted; every
// later stage passes a halted state through untouched and Run returns the
// original error.
//
// Run returns an async.Result. When every helper, hook and rollback action
// completes immediately the Result is immediate too and no goroutines are
// started.
//
// Registration (Use, Extensions().Use) is expected to finish before runs
// start; concurrent runs of a fully registered pipeline are safe.
package pipeline
