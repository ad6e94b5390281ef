package emit

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"codegen-pipeline/internal/extension"
	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/manifest"
	"codegen-pipeline/internal/pipeline"
)

// Factories returns the pipeline factories of the generator. Run options
// must be an Options value or pointer. A nil logger means slog.Default().
func Factories(logger *slog.Logger) pipeline.Factories {
	if logger == nil {
		logger = slog.Default()
	}

	return pipeline.Factories{
		CreateContext: func(any) pipeline.Context {
			return &RunContext{Logger: logger}
		},
		CreateBuildOptions: func(options any) any {
			return optionsOf(options)
		},
		CreateFragmentState: func(pipeline.StateInput) any {
			return &Draft{}
		},
		CreateFragmentArgs: func(in pipeline.FragmentArgsInput) any {
			return &FragmentArgs{
				Entry:   in.Helper,
				Draft:   in.Draft.(*Draft),
				Options: in.BuildOptions.(Options),
				Context: in.Context.(*RunContext),
			}
		},
		FinalizeFragmentState: func(in pipeline.FinalizeInput) (any, error) {
			draft, ok := in.Draft.(*Draft)
			if !ok {
				return nil, fmt.Errorf("unexpected draft %T", in.Draft)
			}

			return &Artifact{Fragments: slices.Clone(draft.Fragments)}, nil
		},
		CreateBuilderArgs: func(in pipeline.BuilderArgsInput) any {
			return &BuilderArgs{
				Entry:    in.Helper,
				Artifact: in.Artifact.(*Artifact),
				Options:  in.BuildOptions.(Options),
				Context:  in.Context.(*RunContext),
			}
		},
		CreateExtensionHookOptions: func(opts extension.HookOptions) extension.HookOptions {
			opts.Options = opts.BuildOptions

			return opts
		},
	}
}

// Build creates a pipeline from a manifest, registering every declared
// helper and extension.
func Build(f *manifest.File, logger *slog.Logger, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	if err := manifest.Validate(f); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	base := []pipeline.Option{pipeline.WithLogger(logger)}
	if len(f.Lifecycles) > 0 {
		base = append(base, pipeline.WithLifecycles(f.Lifecycles...))
	}

	for _, kind := range slices.Sorted(maps.Keys(f.ProvidedKeys)) {
		base = append(base, pipeline.WithProvidedKeys(helper.Kind(kind), f.ProvidedKeys[kind]...))
	}

	p, err := pipeline.New(Factories(logger), append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	for _, decl := range f.Helpers {
		h, err := NewHelper(decl)
		if err != nil {
			return nil, err
		}

		if err := p.Use(h); err != nil {
			return nil, fmt.Errorf("registering helper %q: %w", decl.Key, err)
		}
	}

	for _, decl := range f.Extensions {
		_, err := p.Extensions().Use(pipeline.Extension{
			Key: decl.Key,
			Register: func(*pipeline.Pipeline) (any, error) {
				return extension.Registration{Lifecycle: decl.Lifecycle, Hook: NewHook(decl)}, nil
			},
		})
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}
