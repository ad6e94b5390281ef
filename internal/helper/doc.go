// Package helper defines the units of work a pipeline executes.
//
// A Helper carries a Descriptor (key, kind, mode, priority, dependencies)
// and an Apply function. Registries wrap helpers into Entry values with a
// stable id; executed entries are recorded as Step values.
package helper
