package rollback

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegen-pipeline/internal/async"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) action(name string, err error) Action {
	return func() async.Result[struct{}] {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()

		return async.Error[struct{}](err)
	}
}

func (r *recorder) deferred(name string, err error) Action {
	return func() async.Result[struct{}] {
		return async.Go(func() (struct{}, error) {
			r.mu.Lock()
			r.calls = append(r.calls, name)
			r.mu.Unlock()

			return struct{}{}, err
		})
	}
}

func TestRunReverseOrder(t *testing.T) {
	rec := &recorder{}
	entries := []Entry{
		{Key: "a", Run: rec.action("a", nil)},
		{Key: "b", Run: rec.action("b", nil)},
		{Key: "c", Run: rec.action("c", nil)},
	}

	res := Run(entries, Options{Source: SourceHelper})

	assert.False(t, res.Deferred())
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"c", "b", "a"}, rec.calls)
}

func TestRunIsolatesFailures(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("middle failed")

	var failures []Failure

	entries := []Entry{
		{Key: "first", Run: rec.action("first", nil)},
		{Key: "middle", Label: "undo middle", Run: rec.action("middle", boom)},
		{Key: "third", Run: rec.action("third", nil)},
	}

	err := Run(entries, Options{
		Source:  SourceExtension,
		OnError: func(f Failure) { failures = append(failures, f) },
	}).Err()

	require.NoError(t, err)
	assert.Equal(t, []string{"third", "middle", "first"}, rec.calls)

	require.Len(t, failures, 1)
	assert.Equal(t, SourceExtension, failures[0].Source)
	assert.Equal(t, "middle", failures[0].Entry.Key)
	assert.Equal(t, "undo middle", failures[0].Entry.Label)
	assert.ErrorIs(t, failures[0].Err, boom)
	assert.Equal(t, "middle failed", failures[0].Metadata.Message)
	assert.Equal(t, "*errors.errorString", failures[0].Metadata.Name)
}

func TestRunMixedDeferred(t *testing.T) {
	rec := &recorder{}

	var failures []Failure

	entries := []Entry{
		{Key: "a", Run: rec.action("a", nil)},
		{Key: "b", Run: rec.deferred("b", errors.New("deferred failure"))},
		{Key: "c", Run: rec.action("c", nil)},
		{Key: "nil"},
	}

	res := Run(entries, Options{OnError: func(f Failure) { failures = append(failures, f) }})

	assert.True(t, res.Deferred())
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"c", "b", "a"}, rec.calls)
	require.Len(t, failures, 1)
	assert.Equal(t, "b", failures[0].Entry.Key)
}

func TestRunCapturesPanics(t *testing.T) {
	var failures []Failure

	entries := []Entry{
		{Key: "ok"},
		{Key: "panics", Run: func() async.Result[struct{}] { panic("undo exploded") }},
	}

	require.NoError(t, Run(entries, Options{OnError: func(f Failure) { failures = append(failures, f) }}).Err())
	require.Len(t, failures, 1)
	assert.NotEmpty(t, failures[0].Metadata.Stack)
	assert.Contains(t, failures[0].Metadata.Message, "undo exploded")
}

func TestMetadataCause(t *testing.T) {
	root := errors.New("root")
	md := Metadata(errors.Join(root))

	assert.Nil(t, md.Cause)

	wrapped := Metadata(wrapErr{root})
	assert.Equal(t, root, wrapped.Cause)
	assert.Equal(t, ErrorMetadata{}, Metadata(nil))
}

type wrapErr struct{ err error }

func (w wrapErr) Error() string { return "wrapped: " + w.err.Error() }
func (w wrapErr) Unwrap() error { return w.err }
