package metrics

import (
	"testing"

	"question-difficulty/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ ml.MetricsInterface = (*MetricsWrapper)(nil)

func TestNewWrapper(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_Predictions(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.PredictionsInc(3)
	wrapper.PredictionsInc(3)
	wrapper.PredictionsInc(1)

	if v := testutil.ToFloat64(metrics.Predictions.WithLabelValues("3")); v != 2 {
		t.Errorf("Expected 2 predictions of difficulty 3, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.Predictions.WithLabelValues("1")); v != 1 {
		t.Errorf("Expected 1 prediction of difficulty 1, got %f", v)
	}
}

func TestMetricsWrapper_Failures(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.PredictionFailuresInc()
	wrapper.InvalidRequestsInc()
	wrapper.InvalidRequestsInc()
	wrapper.ModelUnavailableInc()

	if v := testutil.ToFloat64(metrics.PredictionFailures); v != 1 {
		t.Errorf("Expected 1 failure, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.ErrorsTotal); v != 1 {
		t.Errorf("Expected failures to count as errors, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.InvalidRequests); v != 2 {
		t.Errorf("Expected 2 invalid requests, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.ModelUnavailable); v != 1 {
		t.Errorf("Expected 1 unavailable rejection, got %f", v)
	}
}

func TestMetricsWrapper_ModelGauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.ModelLoadedSet(true)
	if v := testutil.ToFloat64(metrics.ModelLoaded); v != 1 {
		t.Errorf("Expected model_loaded 1, got %f", v)
	}
	wrapper.ModelLoadedSet(false)
	if v := testutil.ToFloat64(metrics.ModelLoaded); v != 0 {
		t.Errorf("Expected model_loaded 0, got %f", v)
	}

	wrapper.ModelAgeSet(3600)
	if v := testutil.ToFloat64(metrics.ModelAge); v != 3600 {
		t.Errorf("Expected model age 3600, got %f", v)
	}
}

func TestMetricsWrapper_Latency(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.PredictionLatencyObserve(0.002)
	wrapper.PredictionLatencyObserve(0.004)

	if n := testutil.CollectAndCount(metrics.PredictionLatency); n != 1 {
		t.Errorf("Expected one latency series, got %d", n)
	}
}

func TestMetrics_ErrorRate(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if rate := metrics.GetErrorRate(); rate != 0 {
		t.Errorf("Expected 0 error rate without predictions, got %f", rate)
	}

	wrapper.PredictionsInc(1)
	wrapper.PredictionsInc(2)
	wrapper.PredictionsInc(3)
	wrapper.PredictionFailuresInc()

	if rate := metrics.GetErrorRate(); rate != 0.25 {
		t.Errorf("Expected error rate 0.25, got %f", rate)
	}
}

func TestMetrics_CustomRegistriesAreIsolated(t *testing.T) {
	first := NewWithRegistry(prometheus.NewRegistry())
	second := NewWithRegistry(prometheus.NewRegistry())

	NewWrapper(first).InvalidRequestsInc()

	if v := testutil.ToFloat64(second.InvalidRequests); v != 0 {
		t.Errorf("Expected isolated registry, got %f", v)
	}
}
