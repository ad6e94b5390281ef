package registry

import (
	"fmt"
	"slices"
	"sync"

	"codegen-pipeline/internal/diagnostic"
	"codegen-pipeline/internal/helper"
)

// Registry holds the helpers of a single kind.
type Registry struct {
	kind  helper.Kind
	diags *diagnostic.Diagnostics

	mu      sync.Mutex
	entries []helper.Entry
	next    int
}

// New creates a registry for kind. Conflicts are recorded into diags.
func New(kind helper.Kind, diags *diagnostic.Diagnostics) *Registry {
	if diags == nil {
		diags = diagnostic.New()
	}

	return &Registry{kind: kind, diags: diags}
}

// Kind returns the kind accepted by the registry.
func (r *Registry) Kind() helper.Kind {
	return r.kind
}

// Register validates h and stores it.
//
// An override helper replaces every entry sharing its key; a second override
// for the same key is a conflict. Extend helpers accumulate.
func (r *Registry) Register(h helper.Helper) (helper.Entry, error) {
	desc := h.Descriptor()

	if desc.Kind != r.kind {
		return helper.Entry{}, &diagnostic.ValidationError{
			Reason: fmt.Sprintf("cannot register %s in the %s registry", diagnostic.DescribeHelper(desc), r.kind),
		}
	}

	if desc.Key == "" {
		return helper.Entry{}, &diagnostic.ValidationError{
			Reason: fmt.Sprintf("%s helper has an empty key", desc.Kind),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Mode == helper.ModeOverride {
		for _, e := range r.entries {
			if e.Key == desc.Key && e.Mode == helper.ModeOverride {
				diag := r.diags.Conflict(e.Descriptor, desc)

				return helper.Entry{}, &diagnostic.ValidationError{
					Reason:      "duplicate override",
					Details:     []string{diag.Message},
					Diagnostics: []diagnostic.Diagnostic{diag},
				}
			}
		}

		r.entries = slices.DeleteFunc(r.entries, func(e helper.Entry) bool {
			return e.Key == desc.Key
		})
	}

	entry := helper.NewEntry(h, r.next)
	r.next++
	r.entries = append(r.entries, entry)

	return entry, nil
}

// Entries returns a snapshot of the registered entries in registration order.
func (r *Registry) Entries() []helper.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.entries)
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Set maps kind names to registries. Fragment and builder registries always
// exist; other kinds are created on first use.
type Set struct {
	diags *diagnostic.Diagnostics

	mu     sync.Mutex
	kinds  []helper.Kind
	byKind map[helper.Kind]*Registry
}

// NewSet creates a Set with the well-known kinds.
func NewSet(diags *diagnostic.Diagnostics) *Set {
	if diags == nil {
		diags = diagnostic.New()
	}

	s := &Set{diags: diags, byKind: make(map[helper.Kind]*Registry)}
	s.Registry(helper.KindFragment)
	s.Registry(helper.KindBuilder)

	return s
}

// Registry returns the registry for kind, creating it if needed.
func (s *Set) Registry(kind helper.Kind) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.byKind[kind]; ok {
		return r
	}

	r := New(kind, s.diags)
	s.byKind[kind] = r
	s.kinds = append(s.kinds, kind)

	return r
}

// Lookup returns the registry for kind without creating it.
func (s *Set) Lookup(kind helper.Kind) (*Registry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byKind[kind]

	return r, ok
}

// Kinds returns every known kind in creation order.
func (s *Set) Kinds() []helper.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.kinds)
}

// Register dispatches h to the registry of its declared kind.
func (s *Set) Register(h helper.Helper) (helper.Entry, error) {
	kind := h.Descriptor().Kind
	if kind == "" {
		return helper.Entry{}, &diagnostic.ValidationError{
			Reason: fmt.Sprintf("helper %q has no kind", h.Descriptor().Key),
		}
	}

	return s.Registry(kind).Register(h)
}

// Snapshot returns the entries of every kind.
func (s *Set) Snapshot() map[helper.Kind][]helper.Entry {
	out := make(map[helper.Kind][]helper.Entry)

	for _, kind := range s.Kinds() {
		r, _ := s.Lookup(kind)
		out[kind] = r.Entries()
	}

	return out
}
