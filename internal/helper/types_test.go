package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeExtend},
		{in: "extend", want: ModeExtend},
		{in: "override", want: ModeOverride},
		{in: "replace", want: ModeExtend, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestNewEntry(t *testing.T) {
	deps := []string{"types"}
	h := New(Descriptor{Key: "writer", Kind: KindBuilder, Priority: 3, DependsOn: deps, Origin: "core"}, nil)
	deps[0] = "mutated"

	e := NewEntry(h, 4)
	assert.Equal(t, "builder:writer#4", e.ID)
	assert.Equal(t, 4, e.Index)
	assert.Equal(t, []string{"types"}, e.DependsOn)

	out, err := e.Helper.Apply(nil, nil).Await()
	require.NoError(t, err)
	assert.Nil(t, out.Rollback)

	step := e.Step()
	assert.Equal(t, Step{
		ID:        "builder:writer#4",
		Index:     4,
		Key:       "writer",
		Kind:      KindBuilder,
		Mode:      ModeExtend,
		Priority:  3,
		DependsOn: []string{"types"},
		Origin:    "core",
	}, step)
}

func TestKeys(t *testing.T) {
	entries := []Entry{
		NewEntry(New(Descriptor{Key: "b", Kind: KindFragment}, nil), 0),
		NewEntry(New(Descriptor{Key: "a", Kind: KindFragment}, nil), 1),
		NewEntry(New(Descriptor{Key: "b", Kind: KindFragment}, nil), 2),
	}

	assert.Equal(t, []string{"b", "a"}, Keys(entries))
}
