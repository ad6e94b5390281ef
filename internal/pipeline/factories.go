package pipeline

import (
	"errors"

	"codegen-pipeline/internal/diagnostic"
	"codegen-pipeline/internal/extension"
	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/rollback"
)

// Reporter receives warnings raised during a run. *slog.Logger satisfies it.
type Reporter interface {
	Warn(msg string, args ...any)
}

// Context is the per-run value produced by Factories.CreateContext.
type Context interface {
	Reporter() Reporter
}

// Orders holds the resolved execution order of every helper kind.
type Orders map[helper.Kind][]helper.Entry

// StateInput is passed to CreateFragmentState.
type StateInput struct {
	Options      any
	Context      Context
	BuildOptions any
}

// FragmentArgsInput is passed to CreateFragmentArgs.
type FragmentArgsInput struct {
	Helper       helper.Entry
	Options      any
	Context      Context
	BuildOptions any
	Draft        any
}

// FinalizeInput is passed to FinalizeFragmentState.
type FinalizeInput struct {
	Draft        any
	Options      any
	Context      Context
	BuildOptions any
	Helpers      Orders
}

// BuilderArgsInput is passed to CreateBuilderArgs.
type BuilderArgsInput struct {
	Helper       helper.Entry
	Options      any
	Context      Context
	BuildOptions any
	Artifact     any
}

// RunResultInput is passed to CreateRunResult.
type RunResultInput struct {
	Artifact     any
	Diagnostics  []diagnostic.Diagnostic
	Steps        []helper.Step
	Context      Context
	BuildOptions any
	Options      any
	Helpers      Orders
}

// RunResult is the default value produced by a successful run.
type RunResult struct {
	Artifact    any
	Diagnostics []diagnostic.Diagnostic
	Steps       []helper.Step
}

// RollbackErrorInput describes a failed rollback action.
type RollbackErrorInput struct {
	RunID   string
	Failure rollback.Failure
	Context Context
	Options any
}

// Factories connect the engine to a concrete generator. CreateContext,
// CreateFragmentState, CreateFragmentArgs, FinalizeFragmentState and
// CreateBuilderArgs are required.
type Factories struct {
	CreateContext         func(options any) Context
	CreateBuildOptions    func(options any) any
	CreateFragmentState   func(in StateInput) any
	CreateFragmentArgs    func(in FragmentArgsInput) any
	FinalizeFragmentState func(in FinalizeInput) (any, error)
	CreateBuilderArgs     func(in BuilderArgsInput) any

	// CreateExtensionHookOptions adjusts the options handed to each hook.
	CreateExtensionHookOptions func(opts extension.HookOptions) extension.HookOptions
	// CreateRunResult shapes the value returned by Run. Defaults to *RunResult.
	CreateRunResult func(in RunResultInput) any

	OnExtensionRollbackError func(in RollbackErrorInput)
	OnHelperRollbackError    func(in RollbackErrorInput)
}

func (f Factories) validate() error {
	var errs []error

	if f.CreateContext == nil {
		errs = append(errs, errors.New("CreateContext is required"))
	}

	if f.CreateFragmentState == nil {
		errs = append(errs, errors.New("CreateFragmentState is required"))
	}

	if f.CreateFragmentArgs == nil {
		errs = append(errs, errors.New("CreateFragmentArgs is required"))
	}

	if f.FinalizeFragmentState == nil {
		errs = append(errs, errors.New("FinalizeFragmentState is required"))
	}

	if f.CreateBuilderArgs == nil {
		errs = append(errs, errors.New("CreateBuilderArgs is required"))
	}

	return errors.Join(errs...)
}

func (f Factories) buildOptions(options any) any {
	if f.CreateBuildOptions == nil {
		return options
	}

	return f.CreateBuildOptions(options)
}

func (f Factories) runResult(in RunResultInput) any {
	if f.CreateRunResult != nil {
		return f.CreateRunResult(in)
	}

	return &RunResult{
		Artifact:    in.Artifact,
		Diagnostics: in.Diagnostics,
		Steps:       in.Steps,
	}
}
