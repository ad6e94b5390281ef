package pipeline

import (
	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/diagnostic"
	"codegen-pipeline/internal/executor"
	"codegen-pipeline/internal/extension"
	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/rollback"
)

// Stage transforms the run state. Stages must pass halted states through.
type Stage func(st *State) async.Result[*State]

// Compose chains stages right to left: the last stage runs first and its
// output feeds the stage before it.
func Compose(stages ...Stage) Stage {
	return func(st *State) async.Result[*State] {
		res := async.Value(st)

		for i := len(stages) - 1; i >= 0; i-- {
			stage := stages[i]
			res = async.Then(res, func(st *State) async.Result[*State] {
				return stage(st)
			})
		}

		return res
	}
}

// ArgsFunc builds helper arguments for a custom helper stage.
type ArgsFunc func(st *State, entry helper.Entry) any

// Stages exposes the building blocks of a run for custom stage sequences.
type Stages struct {
	p          *Pipeline
	lifecycles []string
}

// LifecycleNames returns the lifecycles configured for this run.
func (s *Stages) LifecycleNames() []string {
	return append([]string(nil), s.lifecycles...)
}

// Default is the standard sequence:
// fragments, finalize, lifecycles, builders, commit, finalize result.
func (s *Stages) Default() Stage {
	stages := []Stage{s.FinalizeResult, s.Commit, s.Builders}

	lifecycles := s.Lifecycles()
	for i := len(lifecycles) - 1; i >= 0; i-- {
		stages = append(stages, lifecycles[i])
	}

	stages = append(stages, s.FinalizeFragments, s.Fragments)

	return Compose(stages...)
}

// Fragments runs the fragment helpers against the draft.
func (s *Stages) Fragments(st *State) async.Result[*State] {
	return s.Helpers(helper.KindFragment, func(st *State, e helper.Entry) any {
		return s.p.factories.CreateFragmentArgs(FragmentArgsInput{
			Helper:       e,
			Options:      st.Options,
			Context:      st.Context,
			BuildOptions: st.BuildOptions,
			Draft:        st.Draft,
		})
	})(st)
}

// Builders runs the builder helpers against the artifact.
func (s *Stages) Builders(st *State) async.Result[*State] {
	return s.Helpers(helper.KindBuilder, func(st *State, e helper.Entry) any {
		return s.p.factories.CreateBuilderArgs(BuilderArgsInput{
			Helper:       e,
			Options:      st.Options,
			Context:      st.Context,
			BuildOptions: st.BuildOptions,
			Artifact:     st.Artifact,
		})
	})(st)
}

// Helpers returns a stage executing the resolved order of kind.
func (s *Stages) Helpers(kind helper.Kind, args ArgsFunc) Stage {
	name := string(kind)

	return s.guard(name, func(st *State) async.Result[*State] {
		if st.Halted() {
			return async.Value(st)
		}

		order := st.Helpers[kind]
		visited := st.visited(kind)
		ph := st.beginPhase(kind)

		st.logger.Debug("stage started", "stage", name, "helpers", len(order))

		res := executor.Execute(order, executor.Options{
			Args: func(e helper.Entry) any {
				return args(st, e)
			},
			Invoke: func(e helper.Entry, a any, next helper.Next) async.Result[struct{}] {
				step := e.Step()
				st.Steps = append(st.Steps, step)
				st.hooks.step(StepEvent{RunID: st.RunID, Step: step})
				st.logger.Debug("helper started", "id", e.ID, "priority", e.Priority)

				// The slot is reserved at start so undo order follows start order
				// even for helpers wrapping downstream ones through next.
				slot := len(ph.rollbacks)
				ph.rollbacks = append(ph.rollbacks, rollback.Entry{Key: e.Key, Label: e.ID})

				return async.Then(e.Helper.Apply(a, next), func(out helper.Outcome) async.Result[struct{}] {
					if out.Rollback != nil {
						ph.rollbacks[slot].Run = out.Rollback
						if out.Label != "" {
							ph.rollbacks[slot].Label = out.Label
						}
					}

					return async.Ok()
				})
			},
			Visited: visited,
		})

		return async.Handle(res, func(_ struct{}, err error) async.Result[*State] {
			st.Diagnostics.ReviewUnusedHelpers(order, visited, kind)

			if err != nil {
				return s.fail(st, name, err)
			}

			if err := st.Diagnostics.UnusedError(kind); err != nil {
				return s.fail(st, name, err)
			}

			return async.Value(st)
		})
	})
}

// FinalizeFragments turns the draft into the artifact.
func (s *Stages) FinalizeFragments(st *State) async.Result[*State] {
	return s.guard("finalize-fragments", s.finalizeFragments)(st)
}

func (s *Stages) finalizeFragments(st *State) async.Result[*State] {
	if st.Halted() {
		return async.Value(st)
	}

	artifact, err := s.p.factories.FinalizeFragmentState(FinalizeInput{
		Draft:        st.Draft,
		Options:      st.Options,
		Context:      st.Context,
		BuildOptions: st.BuildOptions,
		Helpers:      st.Helpers,
	})
	if err != nil {
		return s.fail(st, "finalize-fragments", err)
	}

	st.Artifact = artifact

	return async.Value(st)
}

// Lifecycles returns one stage per configured lifecycle, in run order.
func (s *Stages) Lifecycles() []Stage {
	out := make([]Stage, 0, len(s.lifecycles))
	for _, name := range s.lifecycles {
		out = append(out, s.Lifecycle(name))
	}

	return out
}

// Lifecycle returns a stage running the extension hooks of name.
func (s *Stages) Lifecycle(name string) Stage {
	stage := "lifecycle " + name

	return s.guard(stage, func(st *State) async.Result[*State] {
		if st.Halted() {
			return async.Value(st)
		}

		st.logger.Debug("lifecycle started", "lifecycle", name)

		res := s.p.coordinator.Run(st.Lifecycles, extension.HookOptions{
			Context:      st.Context,
			Options:      st.Options,
			BuildOptions: st.BuildOptions,
			Artifact:     st.Artifact,
			Lifecycle:    name,
		}, s.p.factories.CreateExtensionHookOptions)

		return async.Handle(res, func(state *extension.LifecycleState, err error) async.Result[*State] {
			if err != nil {
				return s.fail(st, stage, err)
			}

			st.Artifact = state.Artifact

			return async.Value(st)
		})
	})
}

// Commit runs the commit action of every lifecycle in the order they ran.
func (s *Stages) Commit(st *State) async.Result[*State] {
	return s.guard("commit", s.commit)(st)
}

func (s *Stages) commit(st *State) async.Result[*State] {
	if st.Halted() {
		return async.Value(st)
	}

	return async.Handle(st.Lifecycles.Commit(), func(_ struct{}, err error) async.Result[*State] {
		if err != nil {
			return s.fail(st, "commit", err)
		}

		return async.Value(st)
	})
}

// FinalizeResult reviews unused helpers and builds the run result.
// A failure here, including a panicking CreateRunResult, still rolls back
// every builder and lifecycle although commit already ran.
func (s *Stages) FinalizeResult(st *State) async.Result[*State] {
	return s.guard("finalize-result", s.finalizeResult)(st)
}

func (s *Stages) finalizeResult(st *State) async.Result[*State] {
	if st.Halted() {
		return async.Value(st)
	}

	before := st.Diagnostics.Len()

	for _, kind := range st.Kinds {
		st.Diagnostics.ReviewUnusedHelpers(st.Helpers[kind], st.visited(kind), kind)
	}

	for _, d := range st.Diagnostics.All()[before:] {
		if d.Kind == diagnostic.KindUnusedHelper {
			st.reporter().Warn("helper never executed", "kind", string(d.HelperKind), "id", d.EntryID)
		}
	}

	st.Result = s.p.factories.runResult(RunResultInput{
		Artifact:     st.Artifact,
		Diagnostics:  st.Diagnostics.All(),
		Steps:        append([]helper.Step(nil), st.Steps...),
		Context:      st.Context,
		BuildOptions: st.BuildOptions,
		Options:      st.Options,
		Helpers:      st.Helpers,
	})

	return async.Value(st)
}

// guard runs body and converts anything it raises outside its own error
// handling, panics included, into a failure of stage. A failure raised while
// rolling back only marks the state halted so rollback never runs twice.
func (s *Stages) guard(stage string, body Stage) Stage {
	return func(st *State) async.Result[*State] {
		res := async.Try(func() async.Result[*State] { return body(st) })

		return async.Catch(res, func(err error) async.Result[*State] {
			if st.Halted() || st.rolledBack {
				if st.Halt == nil {
					st.Halt = &Halt{Stage: stage, Err: err}
				}

				return async.Value(st)
			}

			return s.fail(st, stage, err)
		})
	}
}

func (s *Stages) fail(st *State, stage string, err error) async.Result[*State] {
	st.logger.Debug("stage failed, rolling back", "stage", stage, "error", err)

	return async.Then(st.rollback(), func(struct{}) async.Result[*State] {
		st.Halt = &Halt{Stage: stage, Err: err}

		return async.Value(st)
	})
}
