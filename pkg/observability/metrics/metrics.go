// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus metrics for indexing, chat and HTTP
// traffic on a private registry.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leseb/ragchat/pkg/core/qaindex"
)

const namespace = "ragchat"

// compile-time check
var _ qaindex.Sink = (*Recorder)(nil)

// Recorder owns the registry and every metric the server exports. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	qaEvents      *prometheus.CounterVec
	chunksIndexed prometheus.Counter
	chatRequests  *prometheus.CounterVec
	chatDuration  prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		qaEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qa_index_events_total",
			Help:      "Q&A index synchronization events by kind.",
		}, []string{"kind"}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_chunks_indexed_total",
			Help:      "Document chunks written to the vector store.",
		}),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by outcome.",
		}, []string{"outcome"}),
		chatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_request_duration_seconds",
			Help:      "End-to-end chat latency including retrieval and generation.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.qaEvents,
		r.chunksIndexed,
		r.chatRequests,
		r.chatDuration,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// Report counts a Q&A index event.
func (r *Recorder) Report(_ context.Context, ev qaindex.Event) {
	if r == nil {
		return
	}
	r.qaEvents.WithLabelValues(string(ev.Kind)).Inc()
}

// ChunksIndexed counts document chunks added to the index.
func (r *Recorder) ChunksIndexed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.chunksIndexed.Add(float64(n))
}

// ObserveChat records a chat request. outcome is "ok" or "error".
func (r *Recorder) ObserveChat(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.chatRequests.WithLabelValues(outcome).Inc()
	r.chatDuration.Observe(d.Seconds())
}

// ObserveHTTP records a served HTTP request.
func (r *Recorder) ObserveHTTP(method, route string, code int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
