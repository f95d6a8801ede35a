package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"question-difficulty/internal/cfg"
	"question-difficulty/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var essayTopics = []string{
	"the french revolution", "photosynthesis in plants", "climate change policy",
	"the water cycle", "roman empire decline", "renewable energy sources",
	"shakespeare tragedies", "cell division", "world war causes", "supply and demand",
	"plate tectonics", "human digestion", "the cold war", "machine learning ethics",
	"ancient egyptian culture", "volcanic eruptions", "immigration history",
	"probability theory", "ocean currents", "medieval castles",
}

// essays are labeled 3 and multiple choice questions 1, over the same topics
func essayLoader() *DataLoader {
	dl := NewDataLoader()
	for _, topic := range essayTopics {
		dl.examples = append(dl.examples,
			Example{Text: fmt.Sprintf("Essay prompt: write about %s", topic), Label: 3},
			Example{Text: fmt.Sprintf("Multiple choice: pick facts about %s", topic), Label: 1},
		)
	}
	return dl
}

func testSettings(modelPath string) *cfg.Settings {
	return &cfg.Settings{
		DatasetPath: "memory",
		TestSize:    0.2,
		SplitSeed:   42,
		ModelPath:   modelPath,
	}
}

func TestEngine_ScenarioTwo(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "pipeline.qdpa")
	engine := NewEngine(testSettings(modelPath), essayLoader())

	results, err := engine.Run()
	require.NoError(t, err)
	assert.Same(t, results, engine.GetResults())

	assert.Len(t, results.Test, 8)
	assert.Len(t, results.Train, 32)
	assert.GreaterOrEqual(t, results.Report.Accuracy, 0.75)
	assert.Equal(t, []int{1, 3}, results.Metadata.Labels)
	assert.Equal(t, 32, results.Metadata.TrainingRows)

	svc := ml.NewService(modelPath, nil)
	require.True(t, svc.Available())
	meta, _ := svc.Metadata()
	assert.Equal(t, results.Version, meta.Version)

	got, err := svc.Predict(context.Background(), "Essay prompt: write about the industrial age")
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestEngine_ScenarioOne(t *testing.T) {
	dl := NewDataLoader()
	dl.examples = scenarioOneExamples()
	settings := testSettings("")
	settings.TestSize = 0.5

	results, err := NewEngine(settings, dl).Run()
	require.NoError(t, err)
	assert.Len(t, results.Train, 2)
	assert.Len(t, results.Test, 2)
	assert.Len(t, results.Predictions, 2)
}

func TestEngine_InsufficientData(t *testing.T) {
	dl := NewDataLoader()
	dl.examples = []Example{{Text: "lonely question", Label: 1}, {Text: "another", Label: 2}}

	_, err := NewEngine(testSettings(""), dl).Run()
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEngine_RecordsModelVersions(t *testing.T) {
	dir := t.TempDir()
	mm, err := ml.NewModelManager(dir)
	require.NoError(t, err)

	modelPath := filepath.Join(dir, "pipeline.qdpa")
	results, err := NewEngine(testSettings(modelPath), essayLoader()).WithModelManager(mm).Run()
	require.NoError(t, err)

	current := mm.GetCurrentVersion()
	require.NotNil(t, current)
	assert.Equal(t, results.Version, current.Version)
	assert.Equal(t, mm.VersionPath(results.Version), current.Path)
	assert.Equal(t, results.Report.Accuracy, current.Metrics.Accuracy)
	assert.Equal(t, 8, current.Metrics.TestSamples)

	for _, path := range []string{modelPath, current.Path} {
		artifact, err := ml.LoadArtifact(path)
		require.NoError(t, err)
		assert.Equal(t, results.Version, artifact.Metadata.Version)
	}
}

func TestEngine_RollbackRestoresEarlierArtifact(t *testing.T) {
	dir := t.TempDir()
	mm, err := ml.NewModelManager(dir)
	require.NoError(t, err)
	modelPath := filepath.Join(dir, "pipeline.qdpa")
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	runAt := func() *Results {
		e := NewEngine(testSettings(modelPath), essayLoader()).WithModelManager(mm)
		e.now = func() time.Time { return at }
		results, err := e.Run()
		require.NoError(t, err)
		return results
	}
	first := runAt()
	second := runAt()
	require.NotEqual(t, first.Version, second.Version)

	artifact, err := ml.LoadArtifact(modelPath)
	require.NoError(t, err)
	assert.Equal(t, second.Version, artifact.Metadata.Version)

	require.NoError(t, mm.Rollback())
	require.NoError(t, mm.Publish(modelPath))

	assert.Equal(t, first.Version, mm.GetCurrentVersion().Version)
	artifact, err = ml.LoadArtifact(modelPath)
	require.NoError(t, err)
	assert.Equal(t, first.Version, artifact.Metadata.Version)
}

func TestEngine_FailedSaveRecordsNothing(t *testing.T) {
	dir := t.TempDir()
	mm, err := ml.NewModelManager(dir)
	require.NoError(t, err)
	modelPath := filepath.Join(dir, "pipeline.qdpa")
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	// a non-empty directory where the versioned artifact should go
	blocked := mm.VersionPath(mm.NewVersion(at))
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "occupied"), 0o755))

	e := NewEngine(testSettings(modelPath), essayLoader()).WithModelManager(mm)
	e.now = func() time.Time { return at }
	_, err = e.Run()
	require.Error(t, err)

	assert.Empty(t, mm.ListVersions())
	assert.Nil(t, mm.GetCurrentVersion())
	_, err = os.Stat(modelPath)
	assert.True(t, os.IsNotExist(err), "nothing published")

	reloaded, err := ml.NewModelManager(dir)
	require.NoError(t, err)
	assert.Empty(t, reloaded.ListVersions())
}

func TestEngine_Deterministic(t *testing.T) {
	first, err := NewEngine(testSettings(""), essayLoader()).Run()
	require.NoError(t, err)
	second, err := NewEngine(testSettings(""), essayLoader()).Run()
	require.NoError(t, err)

	assert.Equal(t, first.Test, second.Test)
	assert.Equal(t, first.Predictions, second.Predictions)
	assert.Equal(t, first.Report, second.Report)
}
