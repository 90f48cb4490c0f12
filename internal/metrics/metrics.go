// Package metrics exposes Prometheus instruments for the pipeline. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	calls     *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	chunks    *prometheus.CounterVec
	jobs      *prometheus.CounterVec
	cache     *prometheus.CounterVec
	exports   *prometheus.CounterVec
	queueSize prometheus.GaugeFunc
}

// New registers every instrument on a private registry. queueDepth may be nil.
func New(queueDepth func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docquiz",
			Name:      "capability_calls_total",
			Help:      "Remote capability calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docquiz",
			Name:      "capability_call_seconds",
			Help:      "Latency of remote capability calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"op"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docquiz",
			Name:      "chunks_total",
			Help:      "Processed chunks by operation and final result.",
		}, []string{"op", "result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docquiz",
			Name:      "jobs_total",
			Help:      "Finished jobs by terminal status.",
		}, []string{"status"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docquiz",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups.",
		}, []string{"result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docquiz",
			Name:      "exports_total",
			Help:      "Rendered artifacts by format and result.",
		}, []string{"format", "result"}),
	}
	reg.MustRegister(m.calls, m.latency, m.chunks, m.jobs, m.cache, m.exports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if queueDepth != nil {
		m.queueSize = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "docquiz",
			Name:      "job_queue_depth",
			Help:      "Jobs waiting for a worker.",
		}, func() float64 { return float64(queueDepth()) })
		reg.MustRegister(m.queueSize)
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall records one capability attempt.
func (m *Metrics) ObserveCall(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.calls.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(d.Seconds())
}

// ChunkDone records the final result of one chunk.
func (m *Metrics) ChunkDone(op string, failed bool) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "failed"
	}
	m.chunks.WithLabelValues(op, result).Inc()
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *Metrics) Export(format string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.exports.WithLabelValues(format, result).Inc()
}
