package emit

import (
	"fmt"
	"path/filepath"

	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/extension"
	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/manifest"
)

// IndexFile is written by extensions with index enabled.
const IndexFile = "INDEX"

// NewHelper builds the helper declared by decl. Fragments record their key,
// builders render decl.Output, and helpers of any other kind do nothing.
func NewHelper(decl manifest.Helper) (helper.Helper, error) {
	desc, err := decl.Descriptor()
	if err != nil {
		return nil, err
	}

	switch desc.Kind {
	case helper.KindFragment:
		return helper.New(desc, func(args any, _ helper.Next) async.Result[helper.Outcome] {
			a := args.(*FragmentArgs)

			return complete(a.Options, a.Entry.Key, func() (helper.Outcome, error) {
				a.Draft.Fragments = append(a.Draft.Fragments, a.Entry.Key)

				return helper.Outcome{}, nil
			})
		}), nil

	case helper.KindBuilder:
		output := decl.Output
		if output == "" {
			output = decl.Key + ".txt"
		}

		return helper.New(desc, func(args any, _ helper.Next) async.Result[helper.Outcome] {
			a := args.(*BuilderArgs)

			return complete(a.Options, a.Entry.Key, func() (helper.Outcome, error) {
				return build(a, output)
			})
		}), nil

	default:
		return helper.New(desc, nil), nil
	}
}

func build(a *BuilderArgs, output string) (helper.Outcome, error) {
	content, err := renderFile(a.Entry.Key, a.Artifact)
	if err != nil {
		return helper.Outcome{}, err
	}

	path, undo, err := WriteFile(GeneratedFile{Filename: output, Content: content}, a.Options.OutputDir)
	if err != nil {
		return helper.Outcome{}, err
	}

	a.Artifact.Files = append(a.Artifact.Files, path)
	a.Context.Logger.Debug("file written", "builder", a.Entry.Key, "path", path)

	return helper.Outcome{Rollback: undo, Label: "remove " + path}, nil
}

// complete runs work immediately or on a goroutine depending on opts, and
// fails with ErrInjected when key is opts.FailAt.
func complete(opts Options, key string, work func() (helper.Outcome, error)) async.Result[helper.Outcome] {
	run := func() (helper.Outcome, error) {
		if opts.FailAt != "" && opts.FailAt == key {
			return helper.Outcome{}, fmt.Errorf("helper %q: %w", key, ErrInjected)
		}

		return work()
	}

	if opts.Deferred {
		return async.Go(run)
	}

	out, err := run()

	return async.From(out, err)
}

// NewHook builds the extension hook declared by decl. It appends the
// annotation to the artifact and, when decl.Index is set, writes an index of
// the files generated by builders on commit.
func NewHook(decl manifest.Extension) extension.Hook {
	return func(opts extension.HookOptions) async.Result[*extension.HookResult] {
		runOpts := optionsOf(opts.Options)
		if runOpts.FailAt != "" && runOpts.FailAt == decl.Key {
			return async.Error[*extension.HookResult](fmt.Errorf("extension %q: %w", decl.Key, ErrInjected))
		}

		art, ok := opts.Artifact.(*Artifact)
		if !ok {
			return async.Error[*extension.HookResult](fmt.Errorf("extension %q: unexpected artifact %T", decl.Key, opts.Artifact))
		}

		if decl.Annotation != "" {
			art.Annotations = append(art.Annotations, decl.Annotation)
		}

		res := &extension.HookResult{}
		if !decl.Index {
			return async.Value(res)
		}

		indexPath := filepath.Join(runOpts.OutputDir, IndexFile)
		res.Commit = func() async.Result[struct{}] {
			content, err := renderIndex(art.Files)
			if err != nil {
				return async.Error[struct{}](err)
			}

			_, _, err = WriteFile(GeneratedFile{Filename: IndexFile, Content: content}, runOpts.OutputDir)

			return async.Error[struct{}](err)
		}
		res.Rollback = removeAction(indexPath)

		return async.Value(res)
	}
}
