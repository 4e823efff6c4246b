// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the viewer's Prometheus metrics. It implements
// plugin.FailureRecorder and layer.Recorder.
type Metrics struct {
	InstantiationFailures *prometheus.CounterVec
	CoverageGaps          prometheus.Counter
	MergeAbandoned        prometheus.Counter
	LayersResolved        prometheus.Counter
	LayerUpdates          *prometheus.CounterVec
}

// NewMetrics creates and registers the viewer metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InstantiationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldviewer_instantiation_failures_total",
				Help: "Total number of plugin instantiation failures by kind",
			},
			[]string{"kind"},
		),
		CoverageGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worldviewer_coverage_gaps_total",
			Help: "Total number of facet types with no matching renderer",
		}),
		MergeAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worldviewer_merge_abandoned_total",
			Help: "Total number of stored layer configurations that could not be applied",
		}),
		LayersResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worldviewer_layers_resolved_total",
			Help: "Total number of default layers created",
		}),
		LayerUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldviewer_layer_updates_total",
				Help: "Total number of layer configuration requests by status",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(m.InstantiationFailures)
	reg.MustRegister(m.CoverageGaps)
	reg.MustRegister(m.MergeAbandoned)
	reg.MustRegister(m.LayersResolved)
	reg.MustRegister(m.LayerUpdates)

	return m
}

// RecordInstantiationFailure counts a failed plugin instantiation.
func (m *Metrics) RecordInstantiationFailure(kind string) {
	m.InstantiationFailures.WithLabelValues(kind).Inc()
}

// RecordCoverageGap counts a facet type without renderer.
func (m *Metrics) RecordCoverageGap() {
	m.CoverageGaps.Inc()
}

// RecordLayersResolved counts created default layers.
func (m *Metrics) RecordLayersResolved(n int) {
	m.LayersResolved.Add(float64(n))
}

// RecordMergeAbandoned counts an abandoned settings merge.
func (m *Metrics) RecordMergeAbandoned() {
	m.MergeAbandoned.Inc()
}
