// Package main provides the CLI entrypoint for codegen-pipeline.
//
// codegen-pipeline runs a manifest-driven code generation pipeline:
//   - plan resolves and prints the helper execution order per kind
//   - run executes fragments, extension lifecycles and builders, rolling
//     back written files when anything fails
//   - version prints the build version
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out, errOut io.Writer, args []string) error {
	cmd := newRootCommand(out, errOut)
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}
