// Package metrics exposes Prometheus collectors for optimizer trials.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/descentbench/internal/trial"
)

const Prefix = "descentbench_"

// OutcomeFailed labels trials that ended with an error. Other outcomes are
// trial.StopReason values.
const OutcomeFailed = "failed"

type Metrics struct {
	registry        *prometheus.Registry
	steps           *prometheus.CounterVec
	trials          *prometheus.CounterVec
	finalLoss       *prometheus.GaugeVec
	trialDuration   *prometheus.HistogramVec
	checkpoints     prometheus.Counter
	checkpointFails prometheus.Counter
	activeJobs      prometheus.Gauge
}

// New registers all collectors on a fresh registry, so several instances
// can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: Prefix + "steps_total",
			Help: "Number of optimizer steps taken grouped by trial",
		}, []string{"trial"}),
		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: Prefix + "trials_total",
			Help: "Number of finished trials grouped by optimizer kind and outcome",
		}, []string{"optimizer", "outcome"}),
		finalLoss: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: Prefix + "trial_final_loss",
			Help: "Loss at the end of the most recent trial with this name",
		}, []string{"trial"}),
		trialDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    Prefix + "trial_duration_seconds",
			Help:    "Wall time of finished trials grouped by optimizer kind",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"optimizer"}),
		checkpoints: factory.NewCounter(prometheus.CounterOpts{
			Name: Prefix + "checkpoints_written_total",
			Help: "Number of checkpoints persisted",
		}),
		checkpointFails: factory.NewCounter(prometheus.CounterOpts{
			Name: Prefix + "checkpoint_errors_total",
			Help: "Number of checkpoints that could not be persisted",
		}),
		activeJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: Prefix + "active_jobs",
			Help: "Number of comparison jobs currently running",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveProgress counts one step. It is safe to pass as a trial progress
// callback.
func (m *Metrics) ObserveProgress(p trial.Progress) {
	m.steps.WithLabelValues(p.Trial).Inc()
}

func (m *Metrics) ObserveResult(r *trial.Result) {
	kind := string(r.Kind)
	m.trials.WithLabelValues(kind, string(r.Stopped)).Inc()
	m.trialDuration.WithLabelValues(kind).Observe(r.Elapsed.Seconds())
	m.finalLoss.WithLabelValues(r.Name).Set(r.FinalLoss)
}

func (m *Metrics) RecordTrialFailure(kind string) {
	m.trials.WithLabelValues(kind, OutcomeFailed).Inc()
}

func (m *Metrics) RecordCheckpoint(err error) {
	if err != nil {
		m.checkpointFails.Inc()
		return
	}
	m.checkpoints.Inc()
}

func (m *Metrics) JobStarted()  { m.activeJobs.Inc() }
func (m *Metrics) JobFinished() { m.activeJobs.Dec() }
