// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "live_transcription"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsClosed  prometheus.Counter
	SessionsAborted prometheus.Counter
	SessionDuration prometheus.Histogram

	// Chunk metrics
	ChunksReceived     prometheus.Counter
	ChunkBytesReceived prometheus.Counter
	ChunksRejected     *prometheus.CounterVec

	// Window metrics
	WindowsScheduled prometheus.Counter
	WindowBytes      prometheus.Histogram

	// Inference metrics
	InferenceLatency *prometheus.HistogramVec
	InferenceErrors  *prometheus.CounterVec

	// Reconciliation metrics
	DeltasEmitted   prometheus.Counter
	Discontinuities prometheus.Counter
	EventsDropped   prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions opened",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently open or flushing",
		}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of sessions closed with a final transcript",
		}),
		SessionsAborted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_aborted_total",
			Help:      "Total number of sessions aborted before completion",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Session lifetime from open to close in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		ChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_received_total",
			Help:      "Total audio chunks accepted into session buffers",
		}),
		ChunkBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_bytes_received_total",
			Help:      "Total audio bytes accepted into session buffers",
		}),
		ChunksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_rejected_total",
			Help:      "Total audio chunks rejected",
		}, []string{"reason"}),

		WindowsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_scheduled_total",
			Help:      "Total inference windows scheduled",
		}),
		WindowBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_bytes",
			Help:      "Size of scheduled inference windows in bytes",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 10),
		}),

		InferenceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_latency_seconds",
			Help:      "Inference backend latency per window in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),
		InferenceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_errors_total",
			Help:      "Total inference errors",
		}, []string{"provider", "error_type"}),

		DeltasEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deltas_emitted_total",
			Help:      "Total non-empty transcript deltas emitted",
		}),
		Discontinuities: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discontinuities_total",
			Help:      "Total window merges that found no plausible overlap",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total session events dropped on slow consumers",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionOpened records a new session being opened.
func (m *Metrics) RecordSessionOpened() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnded records a session reaching a terminal state.
func (m *Metrics) RecordSessionEnded(aborted bool, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	if aborted {
		m.SessionsAborted.Inc()
	} else {
		m.SessionsClosed.Inc()
	}
}

// RecordChunkAccepted records an accepted audio chunk.
func (m *Metrics) RecordChunkAccepted(bytes int) {
	m.ChunksReceived.Inc()
	m.ChunkBytesReceived.Add(float64(bytes))
}

// RecordChunkRejected records a rejected audio chunk.
func (m *Metrics) RecordChunkRejected(reason string) {
	m.ChunksRejected.WithLabelValues(reason).Inc()
}

// RecordWindow records a scheduled inference window.
func (m *Metrics) RecordWindow(bytes int64) {
	m.WindowsScheduled.Inc()
	m.WindowBytes.Observe(float64(bytes))
}

// RecordInference records one inference call's outcome.
func (m *Metrics) RecordInference(provider string, err error, errorType string, latencySeconds float64) {
	m.InferenceLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.InferenceErrors.WithLabelValues(provider, errorType).Inc()
	}
}

// RecordDelta records an emitted transcript delta.
func (m *Metrics) RecordDelta(discontinuity bool) {
	m.DeltasEmitted.Inc()
	if discontinuity {
		m.Discontinuities.Inc()
	}
}

// RecordEventDropped records a session event dropped on a slow consumer.
func (m *Metrics) RecordEventDropped() {
	m.EventsDropped.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
