// Package metrics provides Prometheus metrics collection for the question
// difficulty service. It defines the prediction, model and HTTP metrics exposed
// via the Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "question_difficulty"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	Predictions        *prometheus.CounterVec // Successful predictions by predicted difficulty
	PredictionFailures prometheus.Counter     // Predictions that failed inside the pipeline
	InvalidRequests    prometheus.Counter     // Requests rejected before prediction
	ModelUnavailable   prometheus.Counter     // Requests rejected because no model is loaded
	PredictionLatency  prometheus.Histogram   // Pipeline latency in seconds

	// Model metrics
	ModelLoaded prometheus.Gauge // 1 when an artifact is loaded
	ModelAge    prometheus.Gauge // Seconds since the loaded artifact was trained

	// Question bank metrics
	QuestionsCreated   prometheus.Counter
	SubmissionsCreated prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec   // Requests by route, method and status code
	HTTPDuration *prometheus.HistogramVec // Request duration by route

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered

	gatherer prometheus.Gatherer
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	m := &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of successful difficulty predictions",
		}, []string{"difficulty"}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_failures_total",
			Help:      "Total number of predictions that failed with an internal error",
		}),
		InvalidRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_requests_total",
			Help:      "Total number of prediction requests rejected as invalid",
		}),
		ModelUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_unavailable_total",
			Help:      "Total number of prediction requests rejected because no model is loaded",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_latency_seconds",
			Help:      "Pipeline prediction latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		ModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "Whether a difficulty model is loaded (1) or not (0)",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_age_seconds",
			Help:      "Seconds between training of the loaded model and its loading",
		}),
		QuestionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_created_total",
			Help:      "Total number of questions added to the question bank",
		}),
		SubmissionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_created_total",
			Help:      "Total number of answer submissions",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"route"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors encountered",
		}),
	}

	if g, ok := registerer.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// GetErrorRate returns failed predictions over all attempted predictions, or 0
// if nothing has been predicted yet.
func (m *Metrics) GetErrorRate() float64 {
	if m.gatherer == nil {
		return 0
	}

	metricFamilies, err := m.gatherer.Gather()
	if err != nil {
		return 0
	}

	var succeeded, failed float64
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case namespace + "_predictions_total":
			for _, metric := range mf.GetMetric() {
				succeeded += metric.GetCounter().GetValue()
			}
		case namespace + "_prediction_failures_total":
			for _, metric := range mf.GetMetric() {
				failed += metric.GetCounter().GetValue()
			}
		}
	}

	if succeeded+failed == 0 {
		return 0
	}
	return failed / (succeeded + failed)
}
