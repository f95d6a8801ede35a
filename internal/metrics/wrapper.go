package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interface the prediction service uses
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc(label int) {
	w.m.Predictions.WithLabelValues(strconv.Itoa(label)).Inc()
}

func (w *MetricsWrapper) PredictionFailuresInc() {
	w.m.PredictionFailures.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) InvalidRequestsInc() {
	w.m.InvalidRequests.Inc()
}

func (w *MetricsWrapper) ModelUnavailableInc() {
	w.m.ModelUnavailable.Inc()
}

func (w *MetricsWrapper) PredictionLatencyObserve(v float64) {
	w.m.PredictionLatency.Observe(v)
}

func (w *MetricsWrapper) ModelLoadedSet(loaded bool) {
	if loaded {
		w.m.ModelLoaded.Set(1)
		return
	}
	w.m.ModelLoaded.Set(0)
}

func (w *MetricsWrapper) ModelAgeSet(v float64) {
	w.m.ModelAge.Set(v)
}
