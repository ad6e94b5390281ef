package helper

import (
	"fmt"
	"slices"

	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/rollback"
)

// Kind names the phase a helper belongs to.
type Kind string

// Well-known kinds. Any other non-empty string is a valid custom kind.
const (
	KindFragment Kind = "fragment"
	KindBuilder  Kind = "builder"
)

//go:generate go tool stringer -type=Mode -linecomment -output=mode_string.go

// Mode controls how a helper interacts with others sharing its key.
type Mode int

const (
	ModeExtend   Mode = iota // extend
	ModeOverride             // override
)

// ParseMode converts a textual mode into a Mode. An empty string is extend.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", ModeExtend.String():
		return ModeExtend, nil
	case ModeOverride.String():
		return ModeOverride, nil
	default:
		return ModeExtend, fmt.Errorf("unknown helper mode %q", s)
	}
}

// Descriptor is the static metadata of a helper.
type Descriptor struct {
	// Key identifies the helper within its kind.
	Key string
	// Kind is the phase the helper runs in.
	Kind Kind
	// Mode is extend (accumulate) or override (replace every helper with the same key).
	Mode Mode
	// Priority orders ready helpers; higher runs first.
	Priority int
	// DependsOn lists keys that must execute before this helper.
	DependsOn []string
	// Optional helpers are not reported as fatal when they never execute.
	Optional bool
	// Origin is a provenance tag used in diagnostics.
	Origin string
}

// Next runs the remaining helpers of the chain.
type Next func() async.Result[struct{}]

// Outcome is what a helper reports after it completes.
type Outcome struct {
	// Rollback undoes the helper's side effects when the run fails later.
	Rollback rollback.Action
	// Label describes the rollback in error reports.
	Label string
}

// Helper is a registered unit of work.
type Helper interface {
	Descriptor() Descriptor
	// Apply performs the work. Calling next is optional: when the helper
	// returns without calling it, the executor continues the chain itself.
	Apply(args any, next Next) async.Result[Outcome]
}

// ApplyFunc is the function form of Helper.Apply.
type ApplyFunc func(args any, next Next) async.Result[Outcome]

type funcHelper struct {
	desc  Descriptor
	apply ApplyFunc
}

// New builds a Helper from a descriptor and an apply function.
func New(desc Descriptor, apply ApplyFunc) Helper {
	desc.DependsOn = slices.Clone(desc.DependsOn)

	return &funcHelper{desc: desc, apply: apply}
}

func (h *funcHelper) Descriptor() Descriptor {
	return h.desc
}

func (h *funcHelper) Apply(args any, next Next) async.Result[Outcome] {
	if h.apply == nil {
		return async.Value(Outcome{})
	}

	return h.apply(args, next)
}

// Entry is a helper as stored by a registry.
type Entry struct {
	// ID is "kind:key#index".
	ID string
	// Index is the registration sequence number within the registry.
	Index int
	Descriptor
	Helper Helper
}

// NewEntry wraps h with its registration index.
func NewEntry(h Helper, index int) Entry {
	desc := h.Descriptor()

	return Entry{
		ID:         fmt.Sprintf("%s:%s#%d", desc.Kind, desc.Key, index),
		Index:      index,
		Descriptor: desc,
		Helper:     h,
	}
}

// Step is the audit record of one executed helper.
type Step struct {
	ID        string
	Index     int
	Key       string
	Kind      Kind
	Mode      Mode
	Priority  int
	DependsOn []string
	Origin    string
}

// Step returns the audit record for e.
func (e Entry) Step() Step {
	return Step{
		ID:        e.ID,
		Index:     e.Index,
		Key:       e.Key,
		Kind:      e.Kind,
		Mode:      e.Mode,
		Priority:  e.Priority,
		DependsOn: slices.Clone(e.DependsOn),
		Origin:    e.Origin,
	}
}

// Keys returns the distinct keys of entries in first-seen order.
func Keys(entries []Entry) []string {
	seen := make(map[string]struct{}, len(entries))

	var keys []string

	for _, e := range entries {
		if _, ok := seen[e.Key]; ok {
			continue
		}

		seen[e.Key] = struct{}{}
		keys = append(keys, e.Key)
	}

	return keys
}
