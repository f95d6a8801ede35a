package ml

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	versionsFileName = "model_versions.json"
	artifactExt      = ".qdpa"
)

// ModelVersion is one trained artifact recorded by the manager
type ModelVersion struct {
	Version   string       `json:"version"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"created_at"`
	Metrics   ModelMetrics `json:"metrics"`
	IsActive  bool         `json:"is_active"`
}

// ModelMetrics contains held-out evaluation results for a model
type ModelMetrics struct {
	Accuracy        float64 `json:"accuracy"`
	MacroPrecision  float64 `json:"macro_precision"`
	MacroRecall     float64 `json:"macro_recall"`
	MacroF1         float64 `json:"macro_f1"`
	TrainingSamples int     `json:"training_samples"`
	TestSamples     int     `json:"test_samples"`
}

// ModelManager keeps a history of trained artifacts next to the model file
// so an earlier one can be re-activated.
type ModelManager struct {
	modelsDir    string
	versionsFile string
	versions     []ModelVersion
	currentModel *ModelVersion
	now          func() time.Time
}

// NewModelManager creates a manager rooted at modelsDir
func NewModelManager(modelsDir string) (*ModelManager, error) {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}

	mm := &ModelManager{
		modelsDir:    modelsDir,
		versionsFile: filepath.Join(modelsDir, versionsFileName),
		versions:     make([]ModelVersion, 0),
		now:          time.Now,
	}

	if err := mm.loadVersions(); err != nil {
		log.Warn().Err(err).Str("file", mm.versionsFile).Msg("Failed to load model versions, starting fresh")
		mm.versions = make([]ModelVersion, 0)
		mm.currentModel = nil
	}

	return mm, nil
}

// NewVersion returns an unused version id for a model trained at t.
func (mm *ModelManager) NewVersion(t time.Time) string {
	base := t.UTC().Format("20060102-150405")
	version := base
	for n := 1; mm.find(version) >= 0; n++ {
		version = fmt.Sprintf("%s-%d", base, n)
	}
	return version
}

// VersionPath is where the artifact of version is kept.
func (mm *ModelManager) VersionPath(version string) string {
	return filepath.Join(mm.modelsDir, version+artifactExt)
}

// AddVersion records an artifact already written for version. The new
// version is not active until ActivateVersion is called.
func (mm *ModelManager) AddVersion(version, modelPath string, metrics ModelMetrics) error {
	if mm.find(version) >= 0 {
		return fmt.Errorf("version %s already recorded", version)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("artifact for version %s: %w", version, err)
	}

	// prepended so versions created within the same clock tick stay newest first
	mm.versions = append([]ModelVersion{{
		Version:   version,
		Path:      modelPath,
		CreatedAt: mm.now(),
		Metrics:   metrics,
	}}, mm.versions...)
	mm.sortVersions()

	return mm.saveVersions()
}

// ActivateVersion marks version as the one being served
func (mm *ModelManager) ActivateVersion(version string) error {
	if mm.find(version) < 0 {
		return fmt.Errorf("version %s not found", version)
	}

	mm.currentModel = nil
	for i := range mm.versions {
		mm.versions[i].IsActive = mm.versions[i].Version == version
		if mm.versions[i].IsActive {
			mm.currentModel = &mm.versions[i]
		}
	}

	return mm.saveVersions()
}

// Rollback activates the version trained before the active one
func (mm *ModelManager) Rollback() error {
	if len(mm.versions) < 2 {
		return fmt.Errorf("no previous version available for rollback")
	}

	currentIdx := -1
	for i, v := range mm.versions {
		if v.IsActive {
			currentIdx = i
			break
		}
	}
	if currentIdx == -1 {
		return fmt.Errorf("no active version found")
	}

	// versions are newest first
	if currentIdx+1 < len(mm.versions) {
		return mm.ActivateVersion(mm.versions[currentIdx+1].Version)
	}
	return fmt.Errorf("no previous version available")
}

// Publish copies the artifact of the active version to target, replacing
// whatever is there. The server loads target.
func (mm *ModelManager) Publish(target string) error {
	if mm.currentModel == nil {
		return fmt.Errorf("no active version to publish")
	}
	src := mm.currentModel.Path
	if err := copyFileAtomic(src, target); err != nil {
		return fmt.Errorf("publish version %s: %w", mm.currentModel.Version, err)
	}
	log.Info().
		Str("version", mm.currentModel.Version).
		Str("source", src).
		Str("target", target).
		Msg("Model version published")
	return nil
}

// GetCurrentVersion returns the active version, or nil
func (mm *ModelManager) GetCurrentVersion() *ModelVersion {
	return mm.currentModel
}

// ListVersions returns all versions, newest first
func (mm *ModelManager) ListVersions() []ModelVersion {
	out := make([]ModelVersion, len(mm.versions))
	copy(out, mm.versions)
	return out
}

func (mm *ModelManager) find(version string) int {
	for i, v := range mm.versions {
		if v.Version == version {
			return i
		}
	}
	return -1
}

func (mm *ModelManager) sortVersions() {
	active := ""
	if mm.currentModel != nil {
		active = mm.currentModel.Version
	}
	sort.SliceStable(mm.versions, func(i, j int) bool {
		return mm.versions[i].CreatedAt.After(mm.versions[j].CreatedAt)
	})
	// sorting moves elements, so re-point the active entry
	mm.currentModel = nil
	if i := mm.find(active); i >= 0 {
		mm.currentModel = &mm.versions[i]
	}
}

func (mm *ModelManager) loadVersions() error {
	data, err := os.ReadFile(mm.versionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := json.Unmarshal(data, &mm.versions); err != nil {
		return err
	}

	for i := range mm.versions {
		if mm.versions[i].IsActive {
			mm.currentModel = &mm.versions[i]
			break
		}
	}
	mm.sortVersions()
	return nil
}

func (mm *ModelManager) saveVersions() error {
	data, err := json.MarshalIndent(mm.versions, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(mm.versionsFile, data, 0o600)
}

func copyFileAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
