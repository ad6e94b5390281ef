package emit

import (
	"errors"
	"log/slog"

	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/pipeline"
)

// ErrInjected is returned by the helper or hook named in Options.FailAt.
var ErrInjected = errors.New("injected failure")

// Options are the run options of the generator.
type Options struct {
	// OutputDir receives the generated files.
	OutputDir string
	// FailAt names a helper or extension key that fails instead of running.
	FailAt string
	// Deferred makes helpers complete asynchronously.
	Deferred bool
}

func optionsOf(v any) Options {
	switch o := v.(type) {
	case Options:
		return o
	case *Options:
		if o != nil {
			return *o
		}
	}

	return Options{}
}

// RunContext is the per-run context handed to helpers.
type RunContext struct {
	Logger *slog.Logger
}

// Reporter implements pipeline.Context. Without a logger the pipeline
// falls back to its own.
func (c *RunContext) Reporter() pipeline.Reporter {
	if c.Logger == nil {
		return nil
	}

	return c.Logger
}

// Draft is the mutable state built by fragment helpers.
type Draft struct {
	Fragments []string
}

// Artifact is the finalized draft consumed by hooks and builders.
type Artifact struct {
	Fragments   []string
	Annotations []string
	// Files lists the paths written by builders, in write order.
	Files []string
}

// FragmentArgs are passed to fragment helpers.
type FragmentArgs struct {
	Entry   helper.Entry
	Draft   *Draft
	Options Options
	Context *RunContext
}

// BuilderArgs are passed to builder helpers.
type BuilderArgs struct {
	Entry    helper.Entry
	Artifact *Artifact
	Options  Options
	Context  *RunContext
}
