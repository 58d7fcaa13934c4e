// Package metrics defines the Prometheus collectors for training runs and the
// segmentation service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "morfessor"

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SegmentRequestsTotal *prometheus.CounterVec
	SegmentLatency       *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter

	TrainingEpochsTotal *prometheus.CounterVec
	CompoundsProcessed  *prometheus.CounterVec
	ModelCost           prometheus.Gauge
	LexiconSize         prometheus.Gauge
	CorpusWeight        prometheus.Gauge
	ModelSavesTotal     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),
		SegmentRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "segment_requests_total",
				Help:      "Total words segmented by result (ok, cached, error).",
			},
			[]string{"result"},
		),
		SegmentLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "segment_latency_seconds",
				Help:      "Per-word segmentation latency in seconds.",
				Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of segmentation cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of segmentation cache misses.",
			},
		),
		TrainingEpochsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "training_epochs_total",
				Help:      "Training epochs completed by mode (batch, online).",
			},
			[]string{"mode"},
		),
		CompoundsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compounds_processed_total",
				Help:      "Compounds optimised by mode.",
			},
			[]string{"mode"},
		),
		ModelCost: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "model_cost",
				Help:      "Total description length of the model after the last epoch.",
			},
		),
		LexiconSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "lexicon_size",
				Help:      "Number of real constructions in the lexicon.",
			},
		),
		CorpusWeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "corpus_weight",
				Help:      "Current weight of the corpus cost.",
			},
		),
		ModelSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_saves_total",
				Help:      "Model persistence operations by backend and status.",
			},
			[]string{"backend", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SegmentRequestsTotal,
		m.SegmentLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.TrainingEpochsTotal,
		m.CompoundsProcessed,
		m.ModelCost,
		m.LexiconSize,
		m.CorpusWeight,
		m.ModelSavesTotal,
	)

	return m
}

// ObserveEpoch records the state of the model after a training epoch.
// compounds is the number of compounds optimised during the epoch.
func (m *Metrics) ObserveEpoch(mode string, cost, corpusWeight float64, lexiconSize, compounds int) {
	m.TrainingEpochsTotal.WithLabelValues(mode).Inc()
	m.CompoundsProcessed.WithLabelValues(mode).Add(float64(compounds))
	m.ModelCost.Set(cost)
	m.CorpusWeight.Set(corpusWeight)
	m.LexiconSize.Set(float64(lexiconSize))
}

// Handler returns the Prometheus scrape HTTP handler for the default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a scrape handler for a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
