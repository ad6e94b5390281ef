// Package metrics exports Prometheus collectors fed by pipeline observer
// hooks: executed helper steps, failed rollback actions, and run outcomes
// with their durations.
package metrics
