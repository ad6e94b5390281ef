// Package executor runs an ordered list of helpers with middleware-style
// continuations.
package executor
