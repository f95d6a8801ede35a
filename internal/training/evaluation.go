package training

import (
	"fmt"
	"sort"
)

// ClassMetrics holds precision, recall and F1 for one label.
type ClassMetrics struct {
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Averages aggregates per-label metrics.
type Averages struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report is a classification report over a test set. Precision, recall and F1
// are 0 wherever their denominator is 0.
type Report struct {
	Accuracy    float64        `json:"accuracy"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    Averages       `json:"macro_avg"`
	WeightedAvg Averages       `json:"weighted_avg"`
	// Confusion[i][j] counts examples of Labels[i] predicted as Labels[j].
	Labels    []int   `json:"labels"`
	Confusion [][]int `json:"confusion_matrix"`
}

// Evaluate compares true and predicted labels. Labels that appear only among
// the predictions are reported with zero support.
func Evaluate(yTrue, yPred []int) (Report, error) {
	if len(yTrue) != len(yPred) {
		return Report{}, fmt.Errorf("got %d true labels and %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Report{}, fmt.Errorf("nothing to evaluate")
	}

	seen := make(map[int]bool)
	for i := range yTrue {
		seen[yTrue[i]] = true
		seen[yPred[i]] = true
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	confusion := make([][]int, len(labels))
	for i := range confusion {
		confusion[i] = make([]int, len(labels))
	}
	correct := 0
	for i := range yTrue {
		confusion[pos[yTrue[i]]][pos[yPred[i]]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	report := Report{
		Accuracy:  float64(correct) / float64(len(yTrue)),
		Classes:   make([]ClassMetrics, len(labels)),
		Labels:    labels,
		Confusion: confusion,
	}

	total := len(yTrue)
	for c, l := range labels {
		tp := confusion[c][c]
		predicted, support := 0, 0
		for k := range labels {
			predicted += confusion[k][c]
			support += confusion[c][k]
		}

		m := ClassMetrics{
			Label:     l,
			Precision: safeDiv(float64(tp), float64(predicted)),
			Recall:    safeDiv(float64(tp), float64(support)),
			Support:   support,
		}
		m.F1 = safeDiv(2*m.Precision*m.Recall, m.Precision+m.Recall)
		report.Classes[c] = m

		report.MacroAvg.Precision += m.Precision / float64(len(labels))
		report.MacroAvg.Recall += m.Recall / float64(len(labels))
		report.MacroAvg.F1 += m.F1 / float64(len(labels))

		w := float64(support) / float64(total)
		report.WeightedAvg.Precision += m.Precision * w
		report.WeightedAvg.Recall += m.Recall * w
		report.WeightedAvg.F1 += m.F1 * w
	}
	report.MacroAvg.Support = total
	report.WeightedAvg.Support = total

	return report, nil
}

// Class returns the metrics for label.
func (r Report) Class(label int) (ClassMetrics, bool) {
	for _, m := range r.Classes {
		if m.Label == label {
			return m, true
		}
	}
	return ClassMetrics{}, false
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
