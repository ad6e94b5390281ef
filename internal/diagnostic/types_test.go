package diagnostic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegen-pipeline/internal/helper"
)

func entry(kind helper.Kind, key string, index int, optional bool) helper.Entry {
	return helper.NewEntry(helper.New(helper.Descriptor{
		Key:      key,
		Kind:     kind,
		Optional: optional,
		Origin:   "test",
	}, nil), index)
}

func TestDescribeHelper(t *testing.T) {
	assert.Equal(t, `builder helper "emit" (core)`,
		DescribeHelper(helper.Descriptor{Key: "emit", Kind: helper.KindBuilder, Origin: "core"}))
	assert.Equal(t, `fragment helper "ir"`,
		DescribeHelper(helper.Descriptor{Key: "ir", Kind: helper.KindFragment}))
}

func TestMissingDependencyAlsoMarksUnused(t *testing.T) {
	d := New()
	e := entry(helper.KindBuilder, "writer", 0, false)

	d.MissingDependency(e, "schema")

	require.Equal(t, 2, d.Len())
	missing := d.OfKind(KindMissingDependency)
	require.Len(t, missing, 1)
	assert.Equal(t, "schema", missing[0].Dependency)
	assert.Equal(t, "builder:writer#0", missing[0].EntryID)

	unused := d.OfKind(KindUnusedHelper)
	require.Len(t, unused, 1)
	assert.Contains(t, unused[0].Message, `dependency "schema" is not registered`)
}

func TestReviewUnusedHelpersKeepsSpecificReason(t *testing.T) {
	d := New()
	ran := entry(helper.KindFragment, "ran", 0, false)
	cyclic := entry(helper.KindFragment, "cyclic", 1, false)
	idle := entry(helper.KindFragment, "idle", 2, true)
	other := entry(helper.KindBuilder, "other", 0, false)

	d.Unused(cyclic, "dependency cycle")
	d.ReviewUnusedHelpers(
		[]helper.Entry{ran, cyclic, idle, other},
		map[string]struct{}{ran.ID: {}},
		helper.KindFragment,
	)

	unused := d.OfKind(KindUnusedHelper)
	require.Len(t, unused, 2)
	assert.Equal(t, CodeUnresolved, unused[0].Code)
	assert.Contains(t, unused[0].Message, "dependency cycle")
	assert.Equal(t, CodeNeverExecuted, unused[1].Code)
	assert.Equal(t, idle.ID, unused[1].EntryID)

	// Reviewing again adds nothing.
	d.ReviewUnusedHelpers([]helper.Entry{idle}, nil, helper.KindFragment)
	assert.Len(t, d.OfKind(KindUnusedHelper), 2)
}

func TestUnusedErrorSkipsOptional(t *testing.T) {
	d := New()
	d.Unused(entry(helper.KindBuilder, "opt", 0, true), "skipped")
	require.NoError(t, d.UnusedError(helper.KindBuilder))

	d.Unused(entry(helper.KindBuilder, "req", 1, false), "skipped")
	err := d.UnusedError(helper.KindBuilder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{`builder helper "req" (test)`}, ve.Details)
	require.NoError(t, d.UnusedError(helper.KindFragment))
}

func TestConflictAndString(t *testing.T) {
	d := New()
	a := helper.Descriptor{Key: "emit", Kind: helper.KindBuilder, Mode: helper.ModeOverride, Origin: "a"}
	b := helper.Descriptor{Key: "emit", Kind: helper.KindBuilder, Mode: helper.ModeOverride, Origin: "b"}

	diag := d.Conflict(a, b)

	assert.Equal(t, KindConflict, diag.Kind)
	assert.Equal(t, "conflict", diag.Kind.String())
	assert.Equal(t, []helper.Descriptor{a, b}, diag.Helpers)
	assert.Contains(t, diag.String(), "[builder] emit: [override_conflict]")
}

func TestMerge(t *testing.T) {
	a, b := New(), New()
	e := entry(helper.KindFragment, "x", 0, false)
	b.Unused(e, "reason")

	a.Merge(b)
	a.Merge(nil)
	a.ReviewUnusedHelpers([]helper.Entry{e}, nil, helper.KindFragment)

	assert.Equal(t, 1, a.Len())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "missing-dependency", KindMissingDependency.String())
	assert.Equal(t, "unused-helper", KindUnusedHelper.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
