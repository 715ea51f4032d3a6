/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the persistence controller.
type Metrics struct {
	config MetricsConfig

	// Store metrics
	storesLoaded *prometheus.CounterVec
	loadFailures *prometheus.CounterVec
	loadDuration prometheus.Histogram

	// Context metrics
	saves          *prometheus.CounterVec
	objectsChanged *prometheus.CounterVec
	operations     *prometheus.HistogramVec

	// Notification metrics
	changeEvents *prometheus.CounterVec

	// Cloud metrics
	cloudPushed *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		storesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stores_loaded_total",
				Help:      "Total number of stores loaded",
			},
			[]string{"kind"},
		),
		loadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_load_failures_total",
				Help:      "Total number of stores that failed to load",
			},
			[]string{"kind"},
		),
		loadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_load_duration_seconds",
				Help:      "Duration of loading every configured store",
				Buckets:   buckets,
			},
		),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Total number of committed saves",
			},
			[]string{"context"},
		),
		objectsChanged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_changed_total",
				Help:      "Total number of objects inserted, updated or deleted",
			},
			[]string{"change"},
		),
		operations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of units of work performed on a context",
				Buckets:   buckets,
			},
			[]string{"context", "status"},
		),
		changeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "change_events_total",
				Help:      "Total number of change events queued to subscribers",
			},
			[]string{"type"},
		),
		cloudPushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cloud_changes_pushed_total",
				Help:      "Total number of changes pushed to a cloud container",
			},
			[]string{"container"},
		),
	}

	registry.MustRegister(
		m.storesLoaded,
		m.loadFailures,
		m.loadDuration,
		m.saves,
		m.objectsChanged,
		m.operations,
		m.changeEvents,
		m.cloudPushed,
	)

	return m
}

// Enabled reports whether m records anything
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// RecordStoreLoaded counts a loaded store
func (m *Metrics) RecordStoreLoaded(kind string) {
	if !m.Enabled() {
		return
	}
	m.storesLoaded.WithLabelValues(kind).Inc()
}

// RecordStoreLoadFailure counts a store that failed to load
func (m *Metrics) RecordStoreLoadFailure(kind string) {
	if !m.Enabled() {
		return
	}
	m.loadFailures.WithLabelValues(kind).Inc()
}

// ObserveLoad records how long loading every store took
func (m *Metrics) ObserveLoad(duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.loadDuration.Observe(duration.Seconds())
}

// RecordSave counts a committed save and its object changes
func (m *Metrics) RecordSave(context string, inserted, updated, deleted int) {
	if !m.Enabled() {
		return
	}
	m.saves.WithLabelValues(context).Inc()
	m.objectsChanged.WithLabelValues("inserted").Add(float64(inserted))
	m.objectsChanged.WithLabelValues("updated").Add(float64(updated))
	m.objectsChanged.WithLabelValues("deleted").Add(float64(deleted))
}

// ObserveOperation records the duration of a unit of work
func (m *Metrics) ObserveOperation(context, status string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.operations.WithLabelValues(context, status).Observe(duration.Seconds())
}

// RecordChangeEvent counts a change event queued for a subscriber of typeName
func (m *Metrics) RecordChangeEvent(typeName string) {
	if !m.Enabled() {
		return
	}
	m.changeEvents.WithLabelValues(typeName).Inc()
}

// RecordCloudPush counts changes pushed to a cloud container
func (m *Metrics) RecordCloudPush(container string, n int) {
	if !m.Enabled() {
		return
	}
	m.cloudPushed.WithLabelValues(container).Add(float64(n))
}

// Registry returns the registry holding the collectors, nil when disabled
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the metrics
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
