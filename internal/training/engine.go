package training

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"question-difficulty/internal/cfg"
	"question-difficulty/internal/ml"

	"github.com/rs/zerolog/log"
)

// Engine runs one training pass over the loaded dataset
type Engine struct {
	config  *cfg.Settings
	data    *DataLoader
	manager *ml.ModelManager
	results *Results
	now     func() time.Time
}

// Results holds everything a training run produced
type Results struct {
	Pipeline    *ml.Pipeline
	Metadata    ml.ArtifactMetadata
	Report      Report
	Train       []Example
	Test        []Example
	Predictions []int
	ModelPath   string
	Version     string
	StartTime   time.Time
	EndTime     time.Time
}

// NewEngine creates a new training engine
func NewEngine(config *cfg.Settings, data *DataLoader) *Engine {
	return &Engine{
		config: config,
		data:   data,
		now:    time.Now,
	}
}

// WithModelManager makes Run record the saved artifact as a new model version.
func (e *Engine) WithModelManager(mm *ml.ModelManager) *Engine {
	e.manager = mm
	return e
}

// Run splits, fits on the train partition, evaluates on the test partition and
// saves the artifact when a model path is configured.
func (e *Engine) Run() (*Results, error) {
	start := e.now()
	examples := e.data.Examples()

	log.Info().
		Str("dataset", e.config.DatasetPath).
		Int("examples", len(examples)).
		Float64("test_size", e.config.TestSize).
		Int64("seed", e.config.SplitSeed).
		Msg("Starting training")

	train, test, err := StratifiedSplit(examples, e.config.TestSize, e.config.SplitSeed)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("train", len(train)).
		Int("test", len(test)).
		Interface("label_counts", e.data.LabelCounts()).
		Msg("Dataset split")

	trainTexts, trainLabels := unzip(train)
	pipeline, err := ml.Fit(trainTexts, trainLabels)
	if err != nil {
		return nil, fmt.Errorf("failed to fit pipeline: %w", err)
	}

	testTexts, testLabels := unzip(test)
	predictions, err := pipeline.Predict(testTexts)
	if err != nil {
		return nil, fmt.Errorf("failed to predict test set: %w", err)
	}

	report, err := Evaluate(testLabels, predictions)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate: %w", err)
	}

	results := &Results{
		Pipeline:    pipeline,
		Report:      report,
		Train:       train,
		Test:        test,
		Predictions: predictions,
		ModelPath:   e.config.ModelPath,
		StartTime:   start,
		Version:     start.UTC().Format("20060102-150405"),
		Metadata: ml.ArtifactMetadata{
			TrainedAt:    start.UTC(),
			DatasetPath:  e.config.DatasetPath,
			TrainingRows: len(train),
			TestRows:     len(test),
			Accuracy:     report.Accuracy,
			Labels:       pipeline.Labels(),
			Vocabulary:   pipeline.Vectorizer.NumFeatures(),
		},
	}

	log.Info().
		Float64("accuracy", report.Accuracy).
		Float64("macro_f1", report.MacroAvg.F1).
		Int("vocabulary_size", results.Metadata.Vocabulary).
		Msg("Model evaluated")

	if e.config.ModelPath != "" {
		if err := e.save(results); err != nil {
			return nil, err
		}
	}

	results.EndTime = e.now()
	e.results = results
	return results, nil
}

// GetResults returns the results of the last successful run
func (e *Engine) GetResults() *Results {
	return e.results
}

// save writes the artifact. With a model manager the artifact goes to its own
// versioned file, is recorded and activated, and then published to ModelPath;
// nothing is recorded unless the versioned file was written.
func (e *Engine) save(results *Results) error {
	if e.manager == nil {
		results.Metadata.Version = results.Version
		if err := ml.SaveArtifact(e.config.ModelPath, results.Pipeline, results.Metadata); err != nil {
			return fmt.Errorf("failed to save artifact: %w", err)
		}
		e.logSaved(e.config.ModelPath, results.Version)
		return nil
	}

	version := e.manager.NewVersion(results.StartTime)
	versionPath := e.manager.VersionPath(version)
	results.Version = version
	results.Metadata.Version = version

	if err := ml.SaveArtifact(versionPath, results.Pipeline, results.Metadata); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	err := e.manager.AddVersion(version, versionPath, ml.ModelMetrics{
		Accuracy:        results.Report.Accuracy,
		MacroPrecision:  results.Report.MacroAvg.Precision,
		MacroRecall:     results.Report.MacroAvg.Recall,
		MacroF1:         results.Report.MacroAvg.F1,
		TrainingSamples: len(results.Train),
		TestSamples:     len(results.Test),
	})
	if err != nil {
		os.Remove(versionPath)
		return fmt.Errorf("failed to record model version: %w", err)
	}

	if err := e.manager.ActivateVersion(version); err != nil {
		return fmt.Errorf("failed to activate model version: %w", err)
	}
	if err := e.manager.Publish(e.config.ModelPath); err != nil {
		return err
	}
	e.logSaved(versionPath, version)
	return nil
}

func (e *Engine) logSaved(path, version string) {
	abs, _ := filepath.Abs(path)
	log.Info().
		Str("path", abs).
		Str("serving_path", e.config.ModelPath).
		Str("version", version).
		Msg("Model pipeline saved")
}

func unzip(examples []Example) ([]string, []int) {
	texts := make([]string, len(examples))
	labels := make([]int, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
		labels[i] = ex.Label
	}
	return texts, labels
}
