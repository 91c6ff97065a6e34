// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package metrics exports controller activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GermanBionicSystems/epaperframe/picframe"
)

const namespace = "epaperframe"

// Recorder implements picframe.Observer.
type Recorder struct {
	reg       *prom.Registry
	attempts  *prom.CounterVec
	duration  *prom.HistogramVec
	exhausted prom.Counter
	phase     *prom.GaugeVec
}

var _ picframe.Observer = &Recorder{}

// NewRecorder registers the metrics on reg, or on a private registry when
// reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		attempts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "update_attempts_total",
			Help:      "Update attempts by outcome and failure reason",
		}, []string{"outcome", "reason"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "update_attempt_duration_seconds",
			Help:      "Duration of update attempts, fetch and render included",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		exhausted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "retries_exhausted_total",
			Help:      "Wake cycles abandoned after the retry ceiling",
		}),
		phase: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "power_phase",
			Help:      "1 for the current power phase, 0 otherwise",
		}, []string{"phase"}),
	}
	reg.MustRegister(r.attempts, r.duration, r.exhausted, r.phase)
	return r
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prom.Registry {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveAttempt implements picframe.Observer.
func (r *Recorder) ObserveAttempt(out picframe.Outcome, took time.Duration) {
	outcome := out.Status.String()
	r.attempts.WithLabelValues(outcome, Reason(out.Err)).Inc()
	r.duration.WithLabelValues(outcome).Observe(took.Seconds())
}

// ObserveRetriesExhausted implements picframe.Observer.
func (r *Recorder) ObserveRetriesExhausted() {
	r.exhausted.Inc()
}

// ObservePhase implements picframe.Observer.
func (r *Recorder) ObservePhase(p picframe.Phase) {
	for _, q := range []picframe.Phase{picframe.Booting, picframe.Active, picframe.PreparingToSleep, picframe.Asleep} {
		v := 0.
		if q == p {
			v = 1
		}
		r.phase.WithLabelValues(q.String()).Set(v)
	}
}

// Reason maps an attempt error to a low cardinality label.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, picframe.ErrNoURLConfigured):
		return "no_url"
	case errors.Is(err, picframe.ErrFetch):
		return "fetch"
	case errors.Is(err, picframe.ErrEmptyBody):
		return "empty_body"
	case errors.Is(err, picframe.ErrDisplayInit):
		return "display_init"
	case errors.Is(err, picframe.ErrRender):
		return "render"
	default:
		return "other"
	}
}
