package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"codegen-pipeline/internal/diagnostic"
	"codegen-pipeline/internal/emit"
	"codegen-pipeline/internal/logging"
	"codegen-pipeline/internal/manifest"
	"codegen-pipeline/internal/metrics"
	"codegen-pipeline/internal/pipeline"
)

type rootFlags struct {
	logLevel  string
	logFormat string
}

type runFlags struct {
	manifest string
	output   string
	failAt   string
	deferred bool
	dump     bool
	metrics  bool
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "codegen-pipeline",
		Short:         "Run manifest-driven code generation pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(flags.logLevel, flags.logFormat, errOut)
			if err != nil {
				return err
			}

			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

			return nil
		},
	}

	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", logging.FormatText, "log format: text or json")

	root.AddCommand(newPlanCommand(), newRunCommand(), newVersionCommand())

	return root
}

func newPlanCommand() *cobra.Command {
	var manifestPath, normalizedPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Resolve and print the helper execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, p, err := loadPipeline(cmd, manifestPath)
			if err != nil {
				return err
			}

			if normalizedPath != "" {
				if err := manifest.WriteFile(f, normalizedPath); err != nil {
					return err
				}

				logging.FromContext(cmd.Context()).Info("normalized manifest written", "path", normalizedPath)
			}

			plan, err := p.Plan()
			printPlan(cmd.OutOrStdout(), plan)

			return err
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "file", "f", "pipeline.yaml", "pipeline manifest")
	cmd.Flags().StringVar(&normalizedPath, "write-normalized", "", "write the manifest with defaults applied to this path")

	return cmd
}

func newRunCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline and write generated files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.manifest, "file", "f", "pipeline.yaml", "pipeline manifest")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "./generated", "output directory")
	cmd.Flags().StringVar(&flags.failAt, "fail-at", "", "inject a failure at the named helper or extension")
	cmd.Flags().BoolVar(&flags.deferred, "deferred", false, "complete helpers asynchronously")
	cmd.Flags().BoolVar(&flags.dump, "dump", false, "dump the run result")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "print pipeline metrics after the run")

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "codegen-pipeline", version)
		},
	}
}

func loadPipeline(cmd *cobra.Command, path string, opts ...pipeline.Option) (*manifest.File, *pipeline.Pipeline, error) {
	f, err := manifest.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	p, err := emit.Build(f, logging.FromContext(cmd.Context()), opts...)

	return f, p, err
}

func runPipeline(cmd *cobra.Command, flags runFlags) error {
	out := cmd.OutOrStdout()
	logger := logging.FromContext(cmd.Context())

	var (
		opts []pipeline.Option
		reg  *prometheus.Registry
	)

	if flags.metrics {
		reg = prometheus.NewRegistry()
		opts = append(opts, pipeline.WithHooks(metrics.New(reg).Hooks()))
	}

	_, p, err := loadPipeline(cmd, flags.manifest, opts...)
	if err != nil {
		return err
	}

	v, err := p.Run(emit.Options{
		OutputDir: flags.output,
		FailAt:    flags.failAt,
		Deferred:  flags.deferred,
	}).Await()

	if reg != nil {
		if werr := metrics.WriteText(out, reg); werr != nil {
			logger.Warn("writing metrics failed", "error", werr)
		}
	}

	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	res, ok := v.(*pipeline.RunResult)
	if !ok {
		return fmt.Errorf("unexpected run result %T", v)
	}

	if flags.dump {
		spew.Fdump(out, res)
	}

	printResult(out, res)

	return nil
}

func printPlan(w io.Writer, plan *pipeline.Plan) {
	for _, kind := range plan.Kinds {
		order := plan.Orders[kind]

		parts := make([]string, 0, len(order))
		for _, e := range order {
			parts = append(parts, fmt.Sprintf("%s(%d)", e.Key, e.Priority))
		}

		fmt.Fprintf(w, "%s: %s\n", kind, strings.Join(parts, " -> "))
	}

	if len(plan.Lifecycles) > 0 {
		fmt.Fprintf(w, "lifecycles: %s\n", strings.Join(plan.Lifecycles, ", "))
	}

	printDiagnostics(w, plan.Diagnostics)
}

func printResult(w io.Writer, res *pipeline.RunResult) {
	for _, s := range res.Steps {
		fmt.Fprintf(w, "step %s\n", s.ID)
	}

	if art, ok := res.Artifact.(*emit.Artifact); ok {
		for _, f := range art.Files {
			fmt.Fprintf(w, "wrote %s\n", f)
		}
	}

	printDiagnostics(w, res.Diagnostics)
}

func printDiagnostics(w io.Writer, diags []diagnostic.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "diagnostic: %s\n", d)
	}
}
