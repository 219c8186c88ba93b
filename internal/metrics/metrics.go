package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	SamplesIngested *prometheus.CounterVec
	SamplesRejected *prometheus.CounterVec
	Duplicates      prometheus.Counter
	Reprocesses     *prometheus.CounterVec
	ReprocessTime   prometheus.Histogram
	LookupFailures  prometheus.Counter
	BlockCache      *prometheus.CounterVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SamplesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "samples_ingested_total",
			Help:      "Samples that passed validation.",
		}, []string{"source"}),
		SamplesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "samples_rejected_total",
			Help:      "Samples discarded by validation.",
		}, []string{"source"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "samples_duplicate_total",
			Help:      "Samples skipped because their key was already pending.",
		}),
		Reprocesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "reprocess_total",
			Help:      "Day reprocess passes by outcome.",
		}, []string{"status"}),
		ReprocessTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timeline",
			Name:      "reprocess_duration_seconds",
			Help:      "Wall time of a day reprocess pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		LookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "place_lookup_failures_total",
			Help:      "Place lookups that failed or timed out.",
		}),
		BlockCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "block_cache_requests_total",
			Help:      "Block cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.SamplesIngested, m.SamplesRejected, m.Duplicates,
		m.Reprocesses, m.ReprocessTime, m.LookupFailures, m.BlockCache,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
