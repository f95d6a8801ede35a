package ml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"question-difficulty/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTransformer struct {
	calls int
	inner Transformer
}

func (c *countingTransformer) Transform(docs []string) []features.Vector {
	c.calls++
	if c.inner == nil {
		return make([]features.Vector, len(docs))
	}
	return c.inner.Transform(docs)
}

type stubClassifier struct {
	labels []int
	err    error
	panics bool
}

func (s *stubClassifier) Classify(vectors []features.Vector) ([]int, error) {
	if s.panics {
		panic("index out of range")
	}
	return s.labels, s.err
}

func savedModel(t *testing.T) string {
	t.Helper()
	p := trainedPipeline(t)
	path := filepath.Join(t.TempDir(), "pipeline.qdpa")
	require.NoError(t, SaveArtifact(path, p, ArtifactMetadata{
		Version:   "test",
		TrainedAt: time.Now().Add(-time.Hour),
		Labels:    p.Labels(),
	}))
	return path
}

func TestService_LoadsArtifact(t *testing.T) {
	metrics := &MockMetrics{}
	svc := NewService(savedModel(t), metrics)

	require.True(t, svc.Available())
	assert.NoError(t, svc.LoadError())
	assert.True(t, metrics.modelLoaded)
	assert.Greater(t, metrics.modelAge, 0.0)

	meta, ok := svc.Metadata()
	require.True(t, ok)
	assert.Equal(t, "test", meta.Version)
	assert.Equal(t, []int{1, 3}, meta.Labels)

	label, err := svc.Predict(context.Background(), "Essay: evaluate the legacy of the cold war")
	require.NoError(t, err)
	assert.Equal(t, 3, label)
	assert.Equal(t, 1, metrics.predictions)
	assert.Equal(t, 1, metrics.labels[3])
	assert.Equal(t, 1, metrics.latencyCount)
}

func TestService_MissingArtifact(t *testing.T) {
	metrics := &MockMetrics{}
	svc := NewService(filepath.Join(t.TempDir(), "absent.qdpa"), metrics)

	assert.False(t, svc.Available())
	assert.ErrorIs(t, svc.LoadError(), ErrArtifactLoad)
	assert.ErrorIs(t, svc.LoadError(), os.ErrNotExist)
	assert.False(t, metrics.modelLoaded)

	_, ok := svc.Metadata()
	assert.False(t, ok)

	for _, text := range []string{"Essay: discuss", "anything", ""} {
		_, err := svc.Predict(context.Background(), text)
		assert.ErrorIs(t, err, ErrModelNotLoaded)
	}
	assert.Equal(t, 3, metrics.unavailable)
	assert.Zero(t, metrics.predictions)
}

func TestService_CorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.qdpa")
	require.NoError(t, os.WriteFile(path, []byte("QDPA\x00\x01garbage"), 0o600))

	svc := NewService(path, nil)
	assert.False(t, svc.Available())
	assert.ErrorIs(t, svc.LoadError(), ErrArtifactLoad)

	_, err := svc.Predict(context.Background(), "Essay: discuss")
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestService_EmptyTextNeverReachesPipeline(t *testing.T) {
	transformer := &countingTransformer{}
	classifier := &stubClassifier{labels: []int{2}}
	metrics := &MockMetrics{}
	svc := NewServiceFromStages(transformer, classifier, ArtifactMetadata{}, metrics)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.Predict(context.Background(), text)
		assert.ErrorIs(t, err, ErrInvalidRequest)

		var invalid *InvalidRequestError
		assert.ErrorAs(t, err, &invalid)
	}

	assert.Zero(t, transformer.calls)
	assert.Equal(t, 3, metrics.invalidRequests)
}

func TestService_StagesRunOncePerRequest(t *testing.T) {
	transformer := &countingTransformer{}
	svc := NewServiceFromStages(transformer, &stubClassifier{labels: []int{2}}, ArtifactMetadata{}, nil)

	got, err := svc.PredictDifficulty(context.Background(), "balance the equation")
	require.NoError(t, err)
	assert.Equal(t, &DifficultyPrediction{QuestionText: "balance the equation", PredictedDifficulty: 2}, got)
	assert.Equal(t, 1, transformer.calls)
}

func TestService_InternalFaults(t *testing.T) {
	tests := []struct {
		name       string
		classifier *stubClassifier
	}{
		{"classifier error", &stubClassifier{err: errors.New("boom")}},
		{"classifier panic", &stubClassifier{panics: true}},
		{"wrong result count", &stubClassifier{labels: []int{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &MockMetrics{}
			svc := NewServiceFromStages(&countingTransformer{}, tt.classifier, ArtifactMetadata{}, metrics)

			_, err := svc.Predict(context.Background(), "integrate by parts")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInternalPrediction)
			assert.NotErrorIs(t, err, ErrModelNotLoaded)
			assert.Equal(t, 1, metrics.failures)
		})
	}
}

func TestService_CanceledContext(t *testing.T) {
	svc := NewServiceFromStages(&countingTransformer{}, &stubClassifier{labels: []int{1}}, ArtifactMetadata{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Predict(ctx, "integrate by parts")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_Idempotent(t *testing.T) {
	svc := NewService(savedModel(t), nil)
	require.True(t, svc.Available())

	text := "Multiple choice: select the largest ocean"
	first, err := svc.Predict(context.Background(), text)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Predict(context.Background(), text)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, first, r)
	}
	assert.Equal(t, 1, first)
}

func TestService_NilSafety(t *testing.T) {
	var svc *Service
	assert.False(t, svc.Available())
	assert.Equal(t, "", svc.ModelPath())

	_, err := svc.Predict(context.Background(), "text")
	assert.ErrorIs(t, err, ErrModelNotLoaded)

	partial := NewServiceFromStages(nil, &stubClassifier{}, ArtifactMetadata{}, nil)
	assert.False(t, partial.Available())
	_, err = partial.Predict(context.Background(), "text")
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestService_NilStagesInsideInterfaces(t *testing.T) {
	var pipeline *Pipeline
	var transformer *countingTransformer
	var classifier *stubClassifier

	tests := []struct {
		name string
		svc  *Service
	}{
		{"nil pipeline as both stages", NewServiceFromStages(pipeline, pipeline, ArtifactMetadata{}, nil)},
		{"nil transformer pointer", NewServiceFromStages(transformer, &stubClassifier{labels: []int{1}}, ArtifactMetadata{}, nil)},
		{"nil classifier pointer", NewServiceFromStages(&countingTransformer{}, classifier, ArtifactMetadata{}, nil)},
		{"nil pipeline", NewServiceFromPipeline(nil, ArtifactMetadata{}, nil)},
		{"unfitted pipeline", NewServiceFromPipeline(&Pipeline{}, ArtifactMetadata{}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &MockMetrics{}
			tt.svc.metrics = metrics

			assert.False(t, tt.svc.Available())
			assert.ErrorIs(t, tt.svc.LoadError(), ErrNotFitted)

			_, err := tt.svc.Predict(context.Background(), "Write an essay")
			assert.ErrorIs(t, err, ErrModelNotLoaded)
			assert.Equal(t, 1, metrics.unavailable)
			assert.Zero(t, metrics.failures)
		})
	}
}
