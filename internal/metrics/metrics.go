package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"codegen-pipeline/internal/pipeline"
)

const namespace = "codegen_pipeline"

// Run outcome label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector holds the pipeline metrics.
type Collector struct {
	Steps            *prometheus.CounterVec
	RollbackFailures *prometheus.CounterVec
	Runs             *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
}

// New registers the pipeline metrics with reg. A nil reg registers with the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Collector{
		Steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "helper_steps_total",
				Help:      "Number of helpers started, by kind",
			},
			[]string{"kind"},
		),
		RollbackFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollback_failures_total",
				Help:      "Number of rollback actions that failed, by source",
			},
			[]string{"source"},
		),
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Number of completed pipeline runs, by status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"completion"},
		),
	}
}

// Hooks returns observer hooks that update the collector.
func (c *Collector) Hooks() pipeline.Hooks {
	return pipeline.Hooks{
		OnStep: func(e pipeline.StepEvent) {
			c.Steps.WithLabelValues(string(e.Step.Kind)).Inc()
		},
		OnRollbackError: func(e pipeline.RollbackEvent) {
			c.RollbackFailures.WithLabelValues(e.Failure.Source.String()).Inc()
		},
		OnRunFinish: func(e pipeline.RunEvent) {
			status := StatusOK
			if e.Err != nil {
				status = StatusError
			}

			completion := "immediate"
			if e.Deferred {
				completion = "deferred"
			}

			c.Runs.WithLabelValues(status).Inc()
			c.RunDuration.WithLabelValues(completion).Observe(e.Duration.Seconds())
		},
	}
}

// WriteText writes every metric family gathered from g in the Prometheus
// text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}

	return nil
}
