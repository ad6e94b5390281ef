package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/pipeline"
	"codegen-pipeline/internal/rollback"
)

type nopContext struct{}

func (nopContext) Reporter() pipeline.Reporter { return nopReporter{} }

type nopReporter struct{}

func (nopReporter) Warn(string, ...any) {}

func factories() pipeline.Factories {
	return pipeline.Factories{
		CreateContext:         func(any) pipeline.Context { return nopContext{} },
		CreateFragmentState:   func(pipeline.StateInput) any { return nil },
		CreateFragmentArgs:    func(pipeline.FragmentArgsInput) any { return nil },
		FinalizeFragmentState: func(pipeline.FinalizeInput) (any, error) { return "artifact", nil },
		CreateBuilderArgs:     func(pipeline.BuilderArgsInput) any { return nil },
	}
}

func TestHooksRecordEvents(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := New(reg)
	h := c.Hooks()

	h.OnStep(pipeline.StepEvent{Step: helper.Step{Kind: helper.KindFragment}})
	h.OnStep(pipeline.StepEvent{Step: helper.Step{Kind: helper.KindFragment}})
	h.OnStep(pipeline.StepEvent{Step: helper.Step{Kind: helper.KindBuilder}})
	h.OnRollbackError(pipeline.RollbackEvent{Failure: rollback.Failure{Source: rollback.SourceExtension}})
	h.OnRunFinish(pipeline.RunEvent{Duration: 5 * time.Millisecond})
	h.OnRunFinish(pipeline.RunEvent{Deferred: true, Err: errors.New("boom")})

	assert.InDelta(t, 2, testutil.ToFloat64(c.Steps.WithLabelValues("fragment")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Steps.WithLabelValues("builder")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.RollbackFailures.WithLabelValues("extension")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Runs.WithLabelValues(StatusOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Runs.WithLabelValues(StatusError)), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(c.RunDuration))

	problems, err := testutil.GatherAndLint(reg)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestPipelineFeedsCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	p, err := pipeline.New(factories(), pipeline.WithHooks(c.Hooks()))
	require.NoError(t, err)

	noop := func(any, helper.Next) async.Result[helper.Outcome] { return async.Value(helper.Outcome{}) }
	require.NoError(t, p.Use(helper.New(helper.Descriptor{Key: "f1", Kind: helper.KindFragment}, noop)))
	require.NoError(t, p.Use(helper.New(helper.Descriptor{Key: "b1", Kind: helper.KindBuilder}, noop)))

	require.NoError(t, p.Run(nil).Err())

	assert.InDelta(t, 1, testutil.ToFloat64(c.Steps.WithLabelValues("fragment")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Steps.WithLabelValues("builder")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Runs.WithLabelValues(StatusOK)), 0)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	assert.Contains(t, buf.String(), "codegen_pipeline_runs_total{status=\"ok\"} 1")
}
