// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records checker activity in a private Prometheus registry
// and writes it as a node-exporter textfile after a run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Document outcomes.
const (
	OutcomeClean  = "clean"
	OutcomeWarned = "warned"
	OutcomeFailed = "failed"
)

// Recorder holds the checker's metrics. A nil *Recorder is valid and records
// nothing, so callers never need to guard calls.
type Recorder struct {
	registry *prometheus.Registry

	documents      *prometheus.CounterVec
	dropped        prometheus.Counter
	contextsLoaded *prometheus.CounterVec
	duration       prometheus.Histogram
}

// New returns a Recorder with every metric registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldcheck",
			Name:      "documents_checked_total",
			Help:      "Documents checked, by outcome.",
		}, []string{"outcome"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ldcheck",
			Name:      "properties_dropped_total",
			Help:      "Distinct keys per document that did not expand to an absolute IRI or keyword.",
		}),
		contextsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldcheck",
			Name:      "contexts_loaded_total",
			Help:      "Context documents loaded, by source.",
		}, []string{"source"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ldcheck",
			Name:      "check_duration_seconds",
			Help:      "Time spent checking one document.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	r.registry.MustRegister(r.documents, r.dropped, r.contextsLoaded, r.duration)
	return r
}

// ObserveDocument records one checked document.
func (r *Recorder) ObserveDocument(outcome string, dropped int, d time.Duration) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(outcome).Inc()
	r.dropped.Add(float64(dropped))
	r.duration.Observe(d.Seconds())
}

// ContextLoaded records a context document served from source (bundled,
// file, cache or remote).
func (r *Recorder) ContextLoaded(source string) {
	if r == nil {
		return
	}
	r.contextsLoaded.WithLabelValues(source).Inc()
}

// DocumentsChecked returns the document counter for outcome.
func (r *Recorder) DocumentsChecked(outcome string) prometheus.Counter {
	return r.documents.WithLabelValues(outcome)
}

// PropertiesDropped returns the dropped-property counter.
func (r *Recorder) PropertiesDropped() prometheus.Counter {
	return r.dropped
}

// ContextsLoaded returns the loaded-context counter for source.
func (r *Recorder) ContextsLoaded(source string) prometheus.Counter {
	return r.contextsLoaded.WithLabelValues(source)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is written atomically so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
