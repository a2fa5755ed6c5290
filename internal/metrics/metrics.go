// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics exposes the daemon's Prometheus counters and
// histograms: items put/dropped per producer (a dedup hit counts as a
// drop), batches drained,
// classifier fallback vs LLM-success counts, classify duration, per-sink
// failure counters, and HTTP request counts/durations.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type registry struct {
	once sync.Once

	itemsPut     *prometheus.CounterVec
	itemsDropped *prometheus.CounterVec

	batchesDrained prometheus.Counter

	classifyFallbacks prometheus.Counter
	classifySuccesses prometheus.Counter
	classifyDuration  prometheus.Histogram

	sinkFailures *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var reg registry

func (r *registry) init() {
	r.once.Do(func() {
		r.itemsPut = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soul_agent_items_put_total",
			Help: "Ingest items successfully enqueued, by producer source.",
		}, []string{"source"})

		r.itemsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soul_agent_items_dropped_total",
			Help: "Ingest items dropped (dedup or backpressure), by producer source.",
		}, []string{"source"})

		r.batchesDrained = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soul_agent_batches_drained_total",
			Help: "Batches drained from the ingest queue by the pipeline consumer.",
		})

		r.classifyFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soul_agent_classify_fallback_total",
			Help: "Items classified via the rule-based fallback instead of the LLM.",
		})

		r.classifySuccesses = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soul_agent_classify_llm_success_total",
			Help: "Items classified successfully via the LLM.",
		})

		buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		r.classifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "soul_agent_classify_duration_seconds",
			Help:    "Duration of a single Classify call, including LLM round-trip.",
			Buckets: buckets,
		})

		r.sinkFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soul_agent_sink_failures_total",
			Help: "Pipeline side-effect failures, by sink (daily_log, vault, todo_create, todo_activity).",
		}, []string{"sink"})

		r.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soul_agent_http_requests_total",
			Help: "HTTP requests handled, by path and status class.",
		}, []string{"path", "status"})

		r.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "soul_agent_http_duration_seconds",
			Help:    "HTTP handler duration, by path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"})

		prometheus.MustRegister(
			r.itemsPut, r.itemsDropped, r.batchesDrained,
			r.classifyFallbacks, r.classifySuccesses, r.classifyDuration,
			r.sinkFailures, r.httpRequests, r.httpDuration,
		)
	})
}

// ItemPut records one item successfully enqueued from source.
func ItemPut(source string) {
	reg.init()
	reg.itemsPut.WithLabelValues(source).Inc()
}

// ItemDropped records one item rejected by the queue (dedup or backpressure).
func ItemDropped(source string) {
	reg.init()
	reg.itemsDropped.WithLabelValues(source).Inc()
}

// BatchDrained records one batch drained by the pipeline consumer.
func BatchDrained() {
	reg.init()
	reg.batchesDrained.Inc()
}

// ClassifyFallback records one item that fell back to rule-based classification.
func ClassifyFallback() {
	reg.init()
	reg.classifyFallbacks.Inc()
}

// ClassifySuccess records one item classified successfully via the LLM.
func ClassifySuccess() {
	reg.init()
	reg.classifySuccesses.Inc()
}

// ObserveClassifyDuration records the wall-clock duration of a Classify call.
func ObserveClassifyDuration(seconds float64) {
	reg.init()
	reg.classifyDuration.Observe(seconds)
}

// SinkFailure records one pipeline side-effect failure for the named sink.
func SinkFailure(sink string) {
	reg.init()
	reg.sinkFailures.WithLabelValues(sink).Inc()
}

// ObserveHTTP records one HTTP request's outcome and duration.
func ObserveHTTP(path, statusClass string, seconds float64) {
	reg.init()
	reg.httpRequests.WithLabelValues(path, statusClass).Inc()
	reg.httpDuration.WithLabelValues(path).Observe(seconds)
}

// Handler returns the Prometheus exposition-format HTTP handler for GET /metrics.
func Handler() http.Handler {
	reg.init()
	return promhttp.Handler()
}
