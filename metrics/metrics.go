// Package metrics counts what a run did: steps, inference calls and slide
// batches. A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/richinex/govsummary/model"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Recorder holds the run metrics on a private registry.
type Recorder struct {
	registry     *prometheus.Registry
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	inference    *prometheus.CounterVec
	slideBatches *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govsummary_steps_total",
				Help: "Total number of attempted plan steps by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "govsummary_step_duration_seconds",
				Help:    "Duration of plan steps by action",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"action"},
		),
		inference: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govsummary_inference_calls_total",
				Help: "Total number of provider calls by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		slideBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govsummary_slide_batches_total",
				Help: "Total number of slide scoring batches by outcome",
			},
			[]string{"outcome"},
		),
	}

	r.registry.MustRegister(
		r.steps,
		r.stepDuration,
		r.inference,
		r.slideBatches,
	)
	return r
}

func outcome(ok bool) string {
	if ok {
		return outcomeSuccess
	}
	return outcomeFailure
}

// ObserveStep records one attempted step.
func (r *Recorder) ObserveStep(action model.ActionType, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(string(action), outcome(success)).Inc()
	r.stepDuration.WithLabelValues(string(action)).Observe(duration.Seconds())
}

// ObserveInference records one provider call.
func (r *Recorder) ObserveInference(kind string, err error) {
	if r == nil {
		return
	}
	r.inference.WithLabelValues(kind, outcome(err == nil)).Inc()
}

// ObserveSlideBatch records one slide scoring batch.
func (r *Recorder) ObserveSlideBatch(err error) {
	if r == nil {
		return
	}
	r.slideBatches.WithLabelValues(outcome(err == nil)).Inc()
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteToTextfile writes the metrics in the node exporter textfile format.
func (r *Recorder) WriteToTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
