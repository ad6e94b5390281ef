package pipeline

import (
	"fmt"
	"log/slog"

	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/diagnostic"
	"codegen-pipeline/internal/extension"
	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/rollback"
)

// Halt marks a run that failed in some stage. Rollback has already run by
// the time a Halt is set.
type Halt struct {
	Stage string
	Err   error
}

func (h *Halt) Error() string {
	return fmt.Sprintf("pipeline halted in %s: %v", h.Stage, h.Err)
}

func (h *Halt) Unwrap() error {
	return h.Err
}

// phase records the helper rollbacks of one executed helper stage together
// with how many lifecycles had started before it.
type phase struct {
	kind             helper.Kind
	lifecyclesBefore int
	rollbacks        []rollback.Entry
}

// State is threaded through every stage of one run.
type State struct {
	RunID        string
	Options      any
	Context      Context
	BuildOptions any
	Draft        any
	Artifact     any
	Helpers      Orders
	Kinds        []helper.Kind
	Visited      map[helper.Kind]map[string]struct{}
	Steps        []helper.Step
	Diagnostics  *diagnostic.Diagnostics
	Lifecycles   *extension.Stack
	Result       any
	Halt         *Halt

	phases     []*phase
	rolledBack bool
	logger     *slog.Logger
	hooks      Hooks
	factories  Factories
}

// Halted reports whether an earlier stage failed.
func (st *State) Halted() bool {
	return st.Halt != nil
}

// HelperRollbacks returns every helper rollback entry recorded so far, in
// the order they were registered.
func (st *State) HelperRollbacks() []rollback.Entry {
	var out []rollback.Entry
	for _, ph := range st.phases {
		for _, e := range ph.rollbacks {
			if e.Run != nil {
				out = append(out, e)
			}
		}
	}

	return out
}

func (st *State) visited(kind helper.Kind) map[string]struct{} {
	v, ok := st.Visited[kind]
	if !ok {
		v = make(map[string]struct{})
		st.Visited[kind] = v
	}

	return v
}

func (st *State) beginPhase(kind helper.Kind) *phase {
	ph := &phase{kind: kind, lifecyclesBefore: st.Lifecycles.Len()}
	st.phases = append(st.phases, ph)

	return ph
}

func (st *State) reporter() Reporter {
	if st.Context != nil {
		if r := st.Context.Reporter(); r != nil {
			return r
		}
	}

	return st.logger
}

// rollback undoes everything recorded during the run, most recent first:
// helper phases and extension lifecycles interleave in the order they ran.
func (st *State) rollback() async.Result[struct{}] {
	st.rolledBack = true

	onHelper := st.rollbackErrorHandler(st.factories.OnHelperRollbackError)
	onExtension := st.rollbackErrorHandler(st.factories.OnExtensionRollbackError)

	var steps []func() async.Result[struct{}]

	hi := st.Lifecycles.Len()

	for i := len(st.phases) - 1; i >= 0; i-- {
		ph := st.phases[i]
		from, to := ph.lifecyclesBefore, hi

		steps = append(steps,
			func() async.Result[struct{}] {
				return st.Lifecycles.RollbackRange(from, to, onExtension)
			},
			func() async.Result[struct{}] {
				return rollback.Run(ph.rollbacks, rollback.Options{Source: rollback.SourceHelper, OnError: onHelper})
			},
		)

		hi = min(hi, ph.lifecyclesBefore)
	}

	rest := hi
	steps = append(steps, func() async.Result[struct{}] {
		return st.Lifecycles.RollbackRange(0, rest, onExtension)
	})

	return async.Sequence(steps...)
}

func (st *State) rollbackErrorHandler(custom func(RollbackErrorInput)) func(rollback.Failure) {
	return func(f rollback.Failure) {
		st.hooks.rollbackError(RollbackEvent{RunID: st.RunID, Failure: f})

		if custom != nil {
			custom(RollbackErrorInput{
				RunID:   st.RunID,
				Failure: f,
				Context: st.Context,
				Options: st.Options,
			})

			return
		}

		st.reporter().Warn("rollback action failed",
			"source", f.Source.String(),
			"key", f.Entry.Key,
			"label", f.Entry.Label,
			"error", f.Metadata.Message,
		)
	}
}
