package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the service
type MetricsInterface interface {
	PredictionsInc(label int)
	PredictionFailuresInc()
	InvalidRequestsInc()
	ModelUnavailableInc()
	PredictionLatencyObserve(float64)
	ModelLoadedSet(bool)
	ModelAgeSet(float64)
}

// DifficultyPrediction is the result returned to API callers.
type DifficultyPrediction struct {
	QuestionText        string `json:"question_text"`
	PredictedDifficulty int    `json:"predicted_difficulty"`
}

// Service serves predictions from a pipeline loaded once at construction.
// A Service whose artifact could not be loaded stays usable: every
// prediction fails with ErrModelNotLoaded.
type Service struct {
	transformer Transformer
	classifier  Classifier
	metadata    ArtifactMetadata
	modelPath   string
	loadErr     error
	loadedAt    time.Time
	metrics     MetricsInterface
}

// NewService loads the artifact at path. It never fails: a missing or corrupt
// artifact is logged and leaves the service unavailable.
func NewService(path string, metrics MetricsInterface) *Service {
	s := &Service{modelPath: path, metrics: metrics}

	artifact, err := LoadArtifact(path)
	if err != nil {
		s.loadErr = err
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("model_path", path).Msg("Model artifact not found, predictions will be rejected")
		} else {
			log.Error().Err(err).Str("model_path", path).Msg("Failed to load model artifact, predictions will be rejected")
		}
		if metrics != nil {
			metrics.ModelLoadedSet(false)
		}
		return s
	}

	s.transformer = artifact.Pipeline
	s.classifier = artifact.Pipeline
	s.metadata = artifact.Metadata
	s.loadedAt = time.Now()

	log.Info().
		Str("model_path", path).
		Str("version", artifact.Metadata.Version).
		Ints("labels", artifact.Metadata.Labels).
		Int("vocabulary_size", artifact.Pipeline.Vectorizer.NumFeatures()).
		Msg("Difficulty model loaded successfully")

	if metrics != nil {
		metrics.ModelLoadedSet(true)
		if !artifact.Metadata.TrainedAt.IsZero() {
			metrics.ModelAgeSet(time.Since(artifact.Metadata.TrainedAt).Seconds())
		}
	}
	return s
}

// NewServiceFromPipeline wraps an in-memory pipeline, e.g. one just trained.
// A nil or unfitted pipeline yields an unavailable service.
func NewServiceFromPipeline(p *Pipeline, meta ArtifactMetadata, metrics MetricsInterface) *Service {
	if p == nil || p.validate() != nil {
		return NewServiceFromStages(nil, nil, meta, metrics)
	}
	return NewServiceFromStages(p, p, meta, metrics)
}

// NewServiceFromStages builds a service from independent transform and
// classify stages. A stage that is nil, including a nil pointer stored in the
// interface, leaves the service unavailable.
func NewServiceFromStages(t Transformer, c Classifier, meta ArtifactMetadata, metrics MetricsInterface) *Service {
	s := &Service{
		transformer: t,
		classifier:  c,
		metadata:    meta,
		loadedAt:    time.Now(),
		metrics:     metrics,
	}
	if isNil(t) || isNil(c) {
		s.transformer, s.classifier = nil, nil
		s.loadErr = ErrNotFitted
	}
	if metrics != nil {
		metrics.ModelLoadedSet(s.Available())
	}
	return s
}

// Available reports whether a pipeline is loaded.
func (s *Service) Available() bool {
	return s != nil && s.transformer != nil && s.classifier != nil
}

// LoadError returns why the pipeline is unavailable, or nil.
func (s *Service) LoadError() error {
	if s == nil {
		return ErrModelNotLoaded
	}
	return s.loadErr
}

// Metadata returns the metadata of the loaded artifact.
func (s *Service) Metadata() (ArtifactMetadata, bool) {
	if !s.Available() {
		return ArtifactMetadata{}, false
	}
	return s.metadata, true
}

// ModelPath returns the artifact path the service was created from.
func (s *Service) ModelPath() string {
	if s == nil {
		return ""
	}
	return s.modelPath
}

// Predict returns the difficulty label for a single question text.
func (s *Service) Predict(ctx context.Context, text string) (label int, err error) {
	if !s.Available() {
		if s != nil && s.metrics != nil {
			s.metrics.ModelUnavailableInc()
		}
		return 0, ErrModelNotLoaded
	}

	if strings.TrimSpace(text) == "" {
		if s.metrics != nil {
			s.metrics.InvalidRequestsInc()
		}
		return 0, &InvalidRequestError{Reason: "missing question_text"}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &InternalPredictionError{Cause: fmt.Errorf("panic: %v", r)}
		}
		if s.metrics != nil {
			s.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
			if err != nil {
				s.metrics.PredictionFailuresInc()
			} else {
				s.metrics.PredictionsInc(label)
			}
		}
		if err != nil {
			log.Error().Err(err).Int("text_len", len(text)).Msg("Prediction failed")
		}
	}()

	// the vectorizer works on document batches, never bare strings
	vectors := s.transformer.Transform([]string{text})
	labels, err := s.classifier.Classify(vectors)
	if err != nil {
		return 0, &InternalPredictionError{Cause: err}
	}
	if len(labels) != 1 {
		return 0, &InternalPredictionError{Cause: fmt.Errorf("expected 1 prediction, got %d", len(labels))}
	}

	log.Debug().
		Int("text_len", len(text)).
		Int("prediction", labels[0]).
		Msg("Prediction successful")

	return labels[0], nil
}

// PredictDifficulty predicts and echoes the question text back.
func (s *Service) PredictDifficulty(ctx context.Context, text string) (*DifficultyPrediction, error) {
	label, err := s.Predict(ctx, text)
	if err != nil {
		return nil, err
	}
	return &DifficultyPrediction{QuestionText: text, PredictedDifficulty: label}, nil
}

func isNil(stage interface{}) bool {
	if stage == nil {
		return true
	}
	v := reflect.ValueOf(stage)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
