package graph

import (
	"cmp"
	"fmt"
	"slices"

	"codegen-pipeline/internal/diagnostic"
	"codegen-pipeline/internal/helper"
)

// Options configures graph construction.
type Options struct {
	// Kind labels error messages.
	Kind helper.Kind
	// ProvidedKeys are dependency keys satisfied outside this graph, for
	// example by an earlier phase. They are trusted, not verified.
	ProvidedKeys []string
	// Diagnostics receives missing-dependency and unused-helper findings.
	Diagnostics *diagnostic.Diagnostics
}

// Missing is a dependency key with no registered provider.
type Missing struct {
	Entry helper.Entry
	Key   string
}

// Graph is the dependency graph of one kind for one run.
type Graph struct {
	Entries []helper.Entry
	// Adjacency maps a dependency id to the ids of its dependents.
	Adjacency map[string][]string
	// Indegree counts unsatisfied dependencies per entry id. Missing
	// dependencies keep the count above zero forever.
	Indegree map[string]int
	Missing  []Missing
}

// Build links every entry to the entries providing its dependency keys.
func Build(entries []helper.Entry, opts Options) *Graph {
	g := &Graph{
		Entries:   slices.Clone(entries),
		Adjacency: make(map[string][]string, len(entries)),
		Indegree:  make(map[string]int, len(entries)),
	}

	byKey := make(map[string][]helper.Entry)
	for _, e := range entries {
		byKey[e.Key] = append(byKey[e.Key], e)
		g.Indegree[e.ID] = 0
	}

	provided := make(map[string]struct{}, len(opts.ProvidedKeys))
	for _, k := range opts.ProvidedKeys {
		provided[k] = struct{}{}
	}

	for _, e := range entries {
		seen := make(map[string]struct{}, len(e.DependsOn))

		for _, key := range e.DependsOn {
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}

			deps := byKey[key]
			if len(deps) == 0 {
				if _, ok := provided[key]; ok {
					continue
				}

				g.Missing = append(g.Missing, Missing{Entry: e, Key: key})
				g.Indegree[e.ID]++

				continue
			}

			for _, d := range deps {
				g.Adjacency[d.ID] = append(g.Adjacency[d.ID], e.ID)
				g.Indegree[e.ID]++
			}
		}
	}

	return g
}

// compareEntries orders ready entries: priority desc, key asc, index asc.
func compareEntries(a, b helper.Entry) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Key, b.Key); c != 0 {
		return c
	}

	return cmp.Compare(a.Index, b.Index)
}

// Sort returns the topological order and the entries it could not reach.
func (g *Graph) Sort() (order, unreached []helper.Entry) {
	byID := make(map[string]helper.Entry, len(g.Entries))
	indeg := make(map[string]int, len(g.Indegree))

	var ready []helper.Entry

	for _, e := range g.Entries {
		byID[e.ID] = e
		indeg[e.ID] = g.Indegree[e.ID]

		if indeg[e.ID] == 0 {
			ready = append(ready, e)
		}
	}

	slices.SortFunc(ready, compareEntries)

	order = make([]helper.Entry, 0, len(g.Entries))
	done := make(map[string]struct{}, len(g.Entries))

	for len(ready) > 0 {
		e := ready[0]
		ready = ready[1:]

		order = append(order, e)
		done[e.ID] = struct{}{}

		for _, id := range g.Adjacency[e.ID] {
			indeg[id]--
			if indeg[id] != 0 {
				continue
			}

			// Insert while keeping ready sorted.
			next := byID[id]
			k, _ := slices.BinarySearchFunc(ready, next, compareEntries)
			ready = slices.Insert(ready, k, next)
		}
	}

	for _, e := range g.Entries {
		if _, ok := done[e.ID]; !ok {
			unreached = append(unreached, e)
		}
	}

	return order, unreached
}

// Resolve builds and sorts the graph for entries.
//
// Missing dependencies are recorded (each also marks its dependent unused)
// and returned as one aggregated ValidationError. Otherwise, entries left
// unreached by the sort are recorded as unused and returned as a second
// aggregated ValidationError.
func Resolve(entries []helper.Entry, opts Options) ([]helper.Entry, error) {
	diags := opts.Diagnostics
	if diags == nil {
		diags = diagnostic.New()
	}

	g := Build(entries, opts)
	for _, m := range g.Missing {
		diags.MissingDependency(m.Entry, m.Key)
	}

	order, unreached := g.Sort()
	for _, e := range unreached {
		diags.Unused(e, "dependency graph could not be resolved (cycle or unreachable prerequisite)")
	}

	if len(g.Missing) > 0 {
		details := make([]string, 0, len(g.Missing))
		for _, m := range g.Missing {
			details = append(details, fmt.Sprintf("%s -> %s", m.Entry.Key, m.Key))
		}

		return nil, &diagnostic.ValidationError{
			Reason:      fmt.Sprintf("missing %s helper dependencies", opts.Kind),
			Details:     details,
			Diagnostics: diags.OfKind(diagnostic.KindMissingDependency),
		}
	}

	if len(unreached) > 0 {
		details := make([]string, 0, len(unreached))
		for _, e := range unreached {
			details = append(details, e.ID)
		}

		return nil, &diagnostic.ValidationError{
			Reason:  fmt.Sprintf("unresolved %s helper dependency graph", opts.Kind),
			Details: details,
		}
	}

	return order, nil
}
