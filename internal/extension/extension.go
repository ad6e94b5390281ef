package extension

import (
	"errors"
	"slices"
	"sync"

	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/rollback"
)

// DefaultLifecycle is used for hooks registered without a lifecycle.
const DefaultLifecycle = "after-fragments"

// HookOptions is what a hook receives.
type HookOptions struct {
	Context      any
	Options      any
	BuildOptions any
	Artifact     any
	Lifecycle    string
	// Extra carries values added by a custom hook options factory.
	Extra any
}

// HookResult is what a hook may return. A nil Artifact keeps the current one.
type HookResult struct {
	Artifact any
	Commit   rollback.Action
	Rollback rollback.Action
}

// Hook observes or replaces the artifact at a lifecycle point.
type Hook func(opts HookOptions) async.Result[*HookResult]

// Registration binds a hook to a lifecycle.
type Registration struct {
	Lifecycle string
	Hook      Hook
}

// HookEntry is a registered hook.
type HookEntry struct {
	Key       string
	Lifecycle string
	Hook      Hook
}

// Action is a commit/rollback pair contributed by one hook.
type Action struct {
	Key      string
	Commit   rollback.Action
	Rollback rollback.Action
}

// LifecycleState is the outcome of one lifecycle.
type LifecycleState struct {
	Lifecycle string
	Artifact  any
	Actions   []Action
}

func (s *LifecycleState) apply(key string, res *HookResult) {
	if res == nil {
		return
	}

	if res.Artifact != nil {
		s.Artifact = res.Artifact
	}

	if res.Commit != nil || res.Rollback != nil {
		s.Actions = append(s.Actions, Action{Key: key, Commit: res.Commit, Rollback: res.Rollback})
	}
}

// Stack records every lifecycle state of a run in the order they ran.
type Stack struct {
	states []*LifecycleState
}

// Push appends a new state for lifecycle.
func (s *Stack) Push(lifecycle string, artifact any) *LifecycleState {
	state := &LifecycleState{Lifecycle: lifecycle, Artifact: artifact}
	s.states = append(s.states, state)

	return state
}

// States returns the recorded states, oldest first.
func (s *Stack) States() []*LifecycleState {
	return slices.Clone(s.states)
}

// Len returns the number of lifecycles recorded.
func (s *Stack) Len() int {
	return len(s.states)
}

// Commit runs every commit action, lifecycle by lifecycle in run order.
// The first failure stops the pass and is returned.
func (s *Stack) Commit() async.Result[struct{}] {
	var steps []func() async.Result[struct{}]

	for _, st := range s.states {
		for _, a := range st.Actions {
			if a.Commit != nil {
				steps = append(steps, a.Commit)
			}
		}
	}

	return async.Sequence(steps...)
}

// Rollback undoes every lifecycle, most recent first. Within a lifecycle the
// last registered action is undone first.
func (s *Stack) Rollback(onError func(rollback.Failure)) async.Result[struct{}] {
	return s.RollbackRange(0, len(s.states), onError)
}

// RollbackRange undoes the lifecycles with index in [from, to), most recent
// first. Out of range bounds are clamped.
func (s *Stack) RollbackRange(from, to int, onError func(rollback.Failure)) async.Result[struct{}] {
	from = min(max(from, 0), len(s.states))
	to = min(to, len(s.states))

	var entries []rollback.Entry

	for _, st := range s.states[from:max(from, to)] {
		for _, a := range st.Actions {
			if a.Rollback == nil {
				continue
			}

			entries = append(entries, rollback.Entry{
				Key:   a.Key,
				Label: st.Lifecycle,
				Run:   a.Rollback,
			})
		}
	}

	return rollback.Run(entries, rollback.Options{Source: rollback.SourceExtension, OnError: onError})
}

// Coordinator stores hooks and runs them per lifecycle.
type Coordinator struct {
	mu    sync.Mutex
	hooks []HookEntry
}

// Add registers a hook. An empty lifecycle means DefaultLifecycle.
func (c *Coordinator) Add(entry HookEntry) error {
	if entry.Hook == nil {
		return errors.New("extension hook is nil")
	}

	if entry.Lifecycle == "" {
		entry.Lifecycle = DefaultLifecycle
	}

	c.mu.Lock()
	c.hooks = append(c.hooks, entry)
	c.mu.Unlock()

	return nil
}

// Hooks returns the hooks of lifecycle in registration order.
func (c *Coordinator) Hooks(lifecycle string) []HookEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []HookEntry

	for _, h := range c.hooks {
		if h.Lifecycle == lifecycle {
			out = append(out, h)
		}
	}

	return out
}

// Len returns the number of registered hooks.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.hooks)
}

// Lifecycles returns the distinct lifecycle names in first-registration order.
func (c *Coordinator) Lifecycles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string

	for _, h := range c.hooks {
		if !slices.Contains(out, h.Lifecycle) {
			out = append(out, h.Lifecycle)
		}
	}

	return out
}

// Run pushes a state for base.Lifecycle onto stack and invokes its hooks in
// order, threading the artifact from one hook to the next. prepare, when set,
// adjusts the options given to each hook.
//
// The state stays on the stack even when a hook fails, so the actions
// collected before the failure can still be rolled back. Hook errors are
// returned unchanged.
func (c *Coordinator) Run(stack *Stack, base HookOptions, prepare func(HookOptions) HookOptions) async.Result[*LifecycleState] {
	if base.Lifecycle == "" {
		base.Lifecycle = DefaultLifecycle
	}

	state := stack.Push(base.Lifecycle, base.Artifact)

	return runFrom(c.Hooks(base.Lifecycle), 0, state, base, prepare)
}

func runFrom(
	hooks []HookEntry,
	i int,
	state *LifecycleState,
	base HookOptions,
	prepare func(HookOptions) HookOptions,
) async.Result[*LifecycleState] {
	for ; i < len(hooks); i++ {
		h := hooks[i]

		opts := base
		opts.Artifact = state.Artifact
		opts.Lifecycle = state.Lifecycle

		res := async.Try(func() async.Result[*HookResult] {
			if prepare != nil {
				opts = prepare(opts)
			}

			return h.Hook(opts)
		})
		if !res.Deferred() {
			out, err := res.Await()
			if err != nil {
				return async.Error[*LifecycleState](err)
			}

			state.apply(h.Key, out)

			continue
		}

		next := i + 1

		return async.Then(res, func(out *HookResult) async.Result[*LifecycleState] {
			state.apply(h.Key, out)

			return runFrom(hooks, next, state, base, prepare)
		})
	}

	return async.Value(state)
}
