package pipeline

import (
	"time"

	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/rollback"
)

// StepEvent is emitted right before a helper starts.
type StepEvent struct {
	RunID string
	Step  helper.Step
}

// RollbackEvent is emitted when an undo action fails.
type RollbackEvent struct {
	RunID   string
	Failure rollback.Failure
}

// RunEvent is emitted once a run has completed.
type RunEvent struct {
	RunID    string
	Duration time.Duration
	Steps    int
	Deferred bool
	Err      error
}

// Hooks aggregates optional observer callbacks.
type Hooks struct {
	OnStep          func(StepEvent)
	OnRollbackError func(RollbackEvent)
	OnRunFinish     func(RunEvent)
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnStep:          chain(h.OnStep, other.OnStep),
		OnRollbackError: chain(h.OnRollbackError, other.OnRollbackError),
		OnRunFinish:     chain(h.OnRunFinish, other.OnRunFinish),
	}
}

func chain[E any](first, second func(E)) func(E) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(e E) {
			first(e)
			second(e)
		}
	}
}

func (h Hooks) step(e StepEvent) {
	if h.OnStep != nil {
		h.OnStep(e)
	}
}

func (h Hooks) rollbackError(e RollbackEvent) {
	if h.OnRollbackError != nil {
		h.OnRollbackError(e)
	}
}

func (h Hooks) runFinish(e RunEvent) {
	if h.OnRunFinish != nil {
		h.OnRunFinish(e)
	}
}
