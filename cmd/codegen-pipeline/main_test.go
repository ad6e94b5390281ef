package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestYAML = `
helpers:
  - key: header
    priority: 10
  - key: types
    depends_on: header
  - key: models
    kind: builder
    depends_on: types
extensions:
  - key: banner
    annotation: generated
    index: true
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	err := run(context.Background(), &out, &errOut, args)

	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "codegen-pipeline dev\n", out)
}

func TestPlan(t *testing.T) {
	path := writeManifest(t, manifestYAML)

	out, _, err := execute(t, "plan", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fragment: header(10) -> types(0)\n")
	assert.Contains(t, out, "builder: models(0)\n")
	assert.Contains(t, out, "lifecycles: after-fragments\n")
}

func TestPlanWritesNormalizedManifest(t *testing.T) {
	path := writeManifest(t, manifestYAML)
	normalized := filepath.Join(t.TempDir(), "normalized.yaml")

	_, _, err := execute(t, "plan", "-f", path, "--write-normalized", normalized)
	require.NoError(t, err)

	data, err := os.ReadFile(normalized)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: fragment")
	assert.Contains(t, string(data), "output: models.txt")

	out, _, err := execute(t, "plan", "-f", normalized)
	require.NoError(t, err)
	assert.Contains(t, out, "fragment: header(10) -> types(0)\n")
}

func TestPlanReportsMissingDependency(t *testing.T) {
	path := writeManifest(t, `
helpers:
  - key: types
    depends_on: header
`)

	out, _, err := execute(t, "plan", "-f", path)
	require.Error(t, err)
	assert.Contains(t, out, "diagnostic: ")
	assert.Contains(t, out, "header")
}

func TestRun(t *testing.T) {
	path := writeManifest(t, manifestYAML)
	dir := t.TempDir()

	out, _, err := execute(t, "run", "-f", path, "-o", dir, "--metrics", "--deferred")
	require.NoError(t, err)
	assert.Contains(t, out, "step fragment:header#0\n")
	assert.Contains(t, out, "step builder:models#0\n")
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "models.txt"))
	assert.Contains(t, out, `codegen_pipeline_runs_total{status="ok"} 1`)
	assert.FileExists(t, filepath.Join(dir, "INDEX"))
}

func TestRunDump(t *testing.T) {
	path := writeManifest(t, manifestYAML)

	out, _, err := execute(t, "run", "-f", path, "-o", t.TempDir(), "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "(*pipeline.RunResult)")
}

func TestRunFailureRollsBack(t *testing.T) {
	path := writeManifest(t, manifestYAML)
	dir := t.TempDir()

	_, _, err := execute(t, "run", "-f", path, "-o", dir, "--fail-at", "banner", "--log-level", "debug")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected failure")
	assert.NoFileExists(t, filepath.Join(dir, "models.txt"))
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "version", "--log-level", "loud")
	require.Error(t, err)
}
