package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu              sync.Mutex
	predictions     int
	labels          map[int]int
	failures        int
	invalidRequests int
	unavailable     int
	latencySum      float64
	latencyCount    int
	modelLoaded     bool
	modelAge        float64
}

func (m *MockMetrics) PredictionsInc(label int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
	if m.labels == nil {
		m.labels = make(map[int]int)
	}
	m.labels[label]++
}

func (m *MockMetrics) PredictionFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) InvalidRequestsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidRequests++
}

func (m *MockMetrics) ModelUnavailableInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable++
}

func (m *MockMetrics) PredictionLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyCount++
}

func (m *MockMetrics) ModelLoadedSet(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLoaded = v
}

func (m *MockMetrics) ModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}
