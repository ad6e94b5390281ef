package diagnostic

import (
	"fmt"
	"slices"
	"strings"

	"codegen-pipeline/internal/helper"
)

//go:generate go tool stringer -type=Kind -linecomment -output=kind_string.go

// Kind is the variant of a Diagnostic.
type Kind int

const (
	KindConflict          Kind = iota // conflict
	KindMissingDependency             // missing-dependency
	KindUnusedHelper                  // unused-helper
)

// Diagnostic codes.
const (
	CodeOverrideConflict  = "override_conflict"
	CodeMissingDependency = "missing_dependency"
	CodeUnresolved        = "unresolved_helper"
	CodeNeverExecuted     = "never_executed"
)

// Diagnostic represents a single finding.
type Diagnostic struct {
	// Kind is the variant of the finding.
	Kind Kind
	// Code is a unique identifier for this type of diagnostic.
	Code string
	// Message is the human-readable reason.
	Message string
	// HelperKind is the phase the offending helpers belong to.
	HelperKind helper.Kind
	// Helpers are the offending descriptors. Conflicts carry the existing
	// helper first and the rejected one second.
	Helpers []helper.Descriptor
	// EntryID identifies the registered entry, when there is one.
	EntryID string
	// Dependency is the unresolved key of a missing-dependency finding.
	Dependency string
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.HelperKind != "" {
		prefix = append(prefix, "["+string(d.HelperKind)+"]")
	}

	if len(d.Helpers) > 0 {
		prefix = append(prefix, d.Helpers[len(d.Helpers)-1].Key)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}

// Diagnostics accumulates findings in the order they were recorded.
type Diagnostics struct {
	items []Diagnostic
	// explained holds entry ids that already have a specific unused reason.
	explained map[string]struct{}
}

// New returns an empty accumulator.
func New() *Diagnostics {
	return &Diagnostics{}
}

// DescribeHelper renders a stable identity for messages.
func DescribeHelper(desc helper.Descriptor) string {
	s := fmt.Sprintf("%s helper %q", desc.Kind, desc.Key)
	if desc.Origin != "" {
		s += " (" + desc.Origin + ")"
	}

	return s
}

// Add records d as-is.
func (d *Diagnostics) Add(diag Diagnostic) {
	d.items = append(d.items, diag)
}

// Conflict records two override helpers competing for the same key.
func (d *Diagnostics) Conflict(existing, incoming helper.Descriptor) Diagnostic {
	diag := Diagnostic{
		Kind: KindConflict,
		Code: CodeOverrideConflict,
		Message: fmt.Sprintf("%s conflicts with %s: only one override is allowed per key",
			DescribeHelper(incoming), DescribeHelper(existing)),
		HelperKind: incoming.Kind,
		Helpers:    []helper.Descriptor{existing, incoming},
	}
	d.Add(diag)

	return diag
}

// MissingDependency records that entry depends on a key nobody provides.
// The dependent is also recorded as unused since it can never run.
func (d *Diagnostics) MissingDependency(entry helper.Entry, key string) {
	d.Add(Diagnostic{
		Kind:       KindMissingDependency,
		Code:       CodeMissingDependency,
		Message:    fmt.Sprintf("%s depends on missing helper %q", DescribeHelper(entry.Descriptor), key),
		HelperKind: entry.Kind,
		Helpers:    []helper.Descriptor{entry.Descriptor},
		EntryID:    entry.ID,
		Dependency: key,
	})

	d.Unused(entry, fmt.Sprintf("dependency %q is not registered", key))
}

// Unused records that entry did not run, with a specific reason. Only the
// first reason per entry is kept.
func (d *Diagnostics) Unused(entry helper.Entry, reason string) {
	if _, ok := d.explained[entry.ID]; ok {
		return
	}

	if d.explained == nil {
		d.explained = make(map[string]struct{})
	}

	d.explained[entry.ID] = struct{}{}

	d.Add(Diagnostic{
		Kind:       KindUnusedHelper,
		Code:       CodeUnresolved,
		Message:    fmt.Sprintf("%s was never executed: %s", DescribeHelper(entry.Descriptor), reason),
		HelperKind: entry.Kind,
		Helpers:    []helper.Descriptor{entry.Descriptor},
		EntryID:    entry.ID,
	})
}

// ReviewUnusedHelpers flags every entry of kind missing from visited. Entries
// that already carry a specific reason are left alone.
func (d *Diagnostics) ReviewUnusedHelpers(entries []helper.Entry, visited map[string]struct{}, kind helper.Kind) {
	for _, e := range entries {
		if e.Kind != kind {
			continue
		}

		if _, ok := visited[e.ID]; ok {
			continue
		}

		if _, ok := d.explained[e.ID]; ok {
			continue
		}

		if d.explained == nil {
			d.explained = make(map[string]struct{})
		}

		d.explained[e.ID] = struct{}{}

		d.Add(Diagnostic{
			Kind:       KindUnusedHelper,
			Code:       CodeNeverExecuted,
			Message:    DescribeHelper(e.Descriptor) + " was registered but never executed",
			HelperKind: kind,
			Helpers:    []helper.Descriptor{e.Descriptor},
			EntryID:    e.ID,
		})
	}
}

// All returns a copy of every recorded diagnostic.
func (d *Diagnostics) All() []Diagnostic {
	if d == nil {
		return nil
	}

	return slices.Clone(d.items)
}

// Len returns the number of recorded diagnostics.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}

	return len(d.items)
}

// OfKind returns the diagnostics of the given variant.
func (d *Diagnostics) OfKind(kind Kind) []Diagnostic {
	var out []Diagnostic

	for _, diag := range d.All() {
		if diag.Kind == kind {
			out = append(out, diag)
		}
	}

	return out
}

// Merge appends another accumulator's findings into this one.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}

	for _, diag := range other.items {
		d.Add(diag)
	}

	for id := range other.explained {
		if d.explained == nil {
			d.explained = make(map[string]struct{})
		}

		d.explained[id] = struct{}{}
	}
}

// UnusedError converts unused non-optional helpers of kind into a
// ValidationError, or returns nil when every required helper ran.
func (d *Diagnostics) UnusedError(kind helper.Kind) error {
	var (
		details []string
		found   []Diagnostic
	)

	for _, diag := range d.OfKind(KindUnusedHelper) {
		if diag.HelperKind != kind || len(diag.Helpers) == 0 || diag.Helpers[0].Optional {
			continue
		}

		details = append(details, DescribeHelper(diag.Helpers[0]))
		found = append(found, diag)
	}

	if len(details) == 0 {
		return nil
	}

	return &ValidationError{
		Reason:      fmt.Sprintf("%s helpers never executed", kind),
		Details:     details,
		Diagnostics: found,
	}
}
