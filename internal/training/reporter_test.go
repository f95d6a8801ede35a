package training

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_GenerateReport(t *testing.T) {
	results, err := NewEngine(testSettings(""), essayLoader()).Run()
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, NewReporter(results, out).GenerateReport())

	data, err := os.ReadFile(filepath.Join(out, "training_report.json"))
	require.NoError(t, err)
	var report struct {
		Summary struct {
			TrainingRows int     `json:"training_rows"`
			TestRows     int     `json:"test_rows"`
			Accuracy     float64 `json:"accuracy"`
		} `json:"summary"`
		Classification Report `json:"classification_report"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 32, report.Summary.TrainingRows)
	assert.Equal(t, 8, report.Summary.TestRows)
	assert.Equal(t, results.Report.Accuracy, report.Summary.Accuracy)
	assert.Equal(t, []int{1, 3}, report.Classification.Labels)

	f, err := os.Open(filepath.Join(out, "predictions.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 9)
	assert.Equal(t, []string{"question_text", "true_label", "predicted_label", "correct"}, records[0])
}

func TestReporter_PrintSummary(t *testing.T) {
	results, err := NewEngine(testSettings(""), essayLoader()).Run()
	require.NoError(t, err)

	var buf bytes.Buffer
	NewReporter(results, "").PrintSummary(&buf)

	out := buf.String()
	assert.Contains(t, out, "Model Accuracy:")
	assert.Contains(t, out, "Classification Report:")
	assert.Contains(t, out, "precision")
	assert.Contains(t, out, "macro avg")
	assert.Contains(t, out, "weighted avg")
	assert.NotContains(t, out, "Model pipeline saved")
}
