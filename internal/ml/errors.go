package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotLoaded is returned by every prediction when no artifact could be loaded at startup.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrInvalidRequest marks caller errors such as missing or empty input text.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrArtifactLoad marks a missing, unreadable or corrupt artifact.
	ErrArtifactLoad = errors.New("artifact load failed")
	// ErrInternalPrediction marks unexpected faults while vectorizing or classifying.
	ErrInternalPrediction = errors.New("internal prediction error")
	// ErrNotFitted is returned when a pipeline stage is used before training.
	ErrNotFitted = errors.New("model is not fitted")
)

// ArtifactLoadError describes why the artifact at Path could not be loaded.
type ArtifactLoadError struct {
	Path string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

func (e *ArtifactLoadError) Is(target error) bool { return target == ErrArtifactLoad }

// InvalidRequestError is a request the service refuses before touching the pipeline.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

// InternalPredictionError wraps an unexpected fault raised during prediction.
type InternalPredictionError struct {
	Cause error
}

func (e *InternalPredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Cause)
}

func (e *InternalPredictionError) Unwrap() error { return e.Cause }

func (e *InternalPredictionError) Is(target error) bool { return target == ErrInternalPrediction }
