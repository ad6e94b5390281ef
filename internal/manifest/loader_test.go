package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegen-pipeline/internal/extension"
	"codegen-pipeline/internal/helper"
)

const sample = `
lifecycles: [after-fragments, before-builders]
provided_keys:
  fragment: runtime
helpers:
  - key: header
    priority: 10
  - key: types
    kind: fragment
    mode: override
    depends_on: header
  - key: writer
    kind: builder
    depends_on: [types, header]
    optional: true
    origin: plugin
extensions:
  - lifecycle: before-builders
    annotation: generated
    index: true
  - key: audit
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, Validate(f))

	assert.Equal(t, "1", f.Version)
	assert.Equal(t, []string{"after-fragments", "before-builders"}, f.Lifecycles)
	assert.Equal(t, StringOrArray{"runtime"}, f.ProvidedKeys["fragment"])

	require.Len(t, f.Helpers, 3)

	header := f.Helpers[0]
	assert.Equal(t, "fragment", header.Kind)
	assert.Equal(t, DefaultOrigin, header.Origin)
	assert.Empty(t, header.Output)

	desc, err := f.Helpers[1].Descriptor()
	require.NoError(t, err)
	assert.Equal(t, helper.ModeOverride, desc.Mode)
	assert.Equal(t, []string{"header"}, desc.DependsOn)

	writer := f.Helpers[2]
	assert.Equal(t, "writer.txt", writer.Output)
	assert.Equal(t, "plugin", writer.Origin)

	desc, err = writer.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, helper.KindBuilder, desc.Kind)
	assert.True(t, desc.Optional)
	assert.Equal(t, []string{"types", "header"}, desc.DependsOn)

	require.Len(t, f.Extensions, 2)
	assert.Equal(t, "extension-1", f.Extensions[0].Key)
	assert.True(t, f.Extensions[0].Index)
	assert.Equal(t, extension.DefaultLifecycle, f.Extensions[1].Lifecycle)
}

func TestParseRejectsMalformedDependsOn(t *testing.T) {
	_, err := Parse([]byte(`
helpers:
  - key: a
    depends_on: {x: y}
`))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing key",
			yaml:    "helpers:\n  - kind: fragment\n",
			wantErr: "helpers[0]: key is required",
		},
		{
			name:    "unknown mode",
			yaml:    "helpers:\n  - key: a\n    mode: replace\n",
			wantErr: `unknown helper mode "replace"`,
		},
		{
			name:    "unsupported version",
			yaml:    "version: \"2\"\nhelpers: []\n",
			wantErr: `unsupported manifest version "2"`,
		},
		{
			name: "shared output",
			yaml: `helpers:
  - {key: a, kind: builder, output: out.txt}
  - {key: b, kind: builder, output: out.txt}
`,
			wantErr: `write the same output "out.txt"`,
		},
		{
			name: "duplicate extension",
			yaml: `extensions:
  - key: x
  - key: x
`,
			wantErr: `duplicate extension "x"`,
		},
		{
			name: "unlisted lifecycle",
			yaml: `lifecycles: [one]
extensions:
  - key: x
    lifecycle: two
`,
			wantErr: `lifecycle "two" which is not listed`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			err = Validate(f)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	require.Error(t, Validate(nil))
}

func TestWriteFileRoundTrip(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, WriteFile(f, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "depends_on: header")

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f, loaded)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read manifest")
}
