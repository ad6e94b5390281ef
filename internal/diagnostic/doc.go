// Package diagnostic collects non-fatal findings produced while preparing
// and running a pipeline.
//
// Key capabilities:
//   - Override conflicts detected at registration time
//   - Missing dependencies, each paired with an unused-helper record for the dependent
//   - Unused helpers found after a phase (cycles, unreachable entries)
//   - Conversion of findings into a ValidationError
//
// The manager never returns errors on its own; callers decide when a
// finding is fatal.
package diagnostic
