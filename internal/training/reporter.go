package training

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
)

// Reporter renders training results
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a new reporter writing files under outputPath
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes the JSON report and the test-set predictions
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateJSONReport(); err != nil {
		return err
	}

	if err := r.generatePredictionLog(); err != nil {
		return err
	}

	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "training_report.json")

	report := map[string]interface{}{
		"summary": map[string]interface{}{
			"version":         r.results.Version,
			"dataset_path":    r.results.Metadata.DatasetPath,
			"model_path":      r.results.ModelPath,
			"training_rows":   len(r.results.Train),
			"test_rows":       len(r.results.Test),
			"vocabulary_size": r.results.Metadata.Vocabulary,
			"accuracy":        r.results.Report.Accuracy,
			"duration_ms":     r.results.EndTime.Sub(r.results.StartTime).Milliseconds(),
		},
		"classification_report": r.results.Report,
		"generated_at":          time.Now().UTC(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

func (r *Reporter) generatePredictionLog() error {
	csvPath := filepath.Join(r.outputPath, "predictions.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create prediction log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"question_text", "true_label", "predicted_label", "correct"}); err != nil {
		return err
	}
	for i, ex := range r.results.Test {
		pred := r.results.Predictions[i]
		record := []string{
			ex.Text,
			strconv.Itoa(ex.Label),
			strconv.Itoa(pred),
			strconv.FormatBool(ex.Label == pred),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write prediction log: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Prediction log generated")
	return nil
}

// PrintSummary writes accuracy and a per-label classification table to w
func (r *Reporter) PrintSummary(w io.Writer) {
	rep := r.results.Report

	fmt.Fprintln(w, "\n=== TRAINING RESULTS ===")
	fmt.Fprintf(w, "Training rows: %d\n", len(r.results.Train))
	fmt.Fprintf(w, "Test rows: %d\n", len(r.results.Test))
	fmt.Fprintf(w, "Vocabulary size: %d\n", r.results.Metadata.Vocabulary)
	fmt.Fprintf(w, "Model Accuracy: %.4f\n\n", rep.Accuracy)

	fmt.Fprintln(w, "Classification Report:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tprecision\trecall\tf1-score\tsupport\t")
	for _, m := range rep.Classes {
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.2f\t%d\t\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintln(tw, "\t\t\t\t\t")
	fmt.Fprintf(tw, "accuracy\t\t\t%.2f\t%d\t\n", rep.Accuracy, len(r.results.Test))
	fmt.Fprintf(tw, "macro avg\t%.2f\t%.2f\t%.2f\t%d\t\n", rep.MacroAvg.Precision, rep.MacroAvg.Recall, rep.MacroAvg.F1, rep.MacroAvg.Support)
	fmt.Fprintf(tw, "weighted avg\t%.2f\t%.2f\t%.2f\t%d\t\n", rep.WeightedAvg.Precision, rep.WeightedAvg.Recall, rep.WeightedAvg.F1, rep.WeightedAvg.Support)
	tw.Flush()

	if r.results.ModelPath != "" {
		fmt.Fprintf(w, "\nModel pipeline saved to %s (version %s)\n", r.results.ModelPath, r.results.Version)
	}
	fmt.Fprintln(w, "========================")
}
