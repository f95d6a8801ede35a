package ml

import (
	"fmt"
	"math"
	"sort"

	"question-difficulty/internal/features"
)

// MultinomialNB is a multinomial-event-model naive Bayes classifier over
// sparse token counts, with additive (Laplace) smoothing.
type MultinomialNB struct {
	Alpha float64

	// Fitted state. Rows of FeatureLogProb follow Classes.
	Classes        []int
	ClassCounts    []float64
	ClassLogPrior  []float64
	FeatureCounts  [][]float64
	FeatureLogProb [][]float64
	NumFeatures    int
}

// NewMultinomialNB returns an unfitted classifier with alpha = 1.
func NewMultinomialNB() *MultinomialNB {
	return &MultinomialNB{Alpha: 1.0}
}

// Fit estimates class priors and per-class token probabilities.
// numFeatures is the vocabulary size the vectors were produced with.
func (nb *MultinomialNB) Fit(vectors []features.Vector, labels []int, numFeatures int) error {
	if len(vectors) != len(labels) {
		return fmt.Errorf("got %d vectors and %d labels", len(vectors), len(labels))
	}
	if len(vectors) == 0 {
		return fmt.Errorf("no training examples")
	}
	if numFeatures <= 0 {
		return fmt.Errorf("number of features must be positive, got %d", numFeatures)
	}
	if nb.Alpha <= 0 {
		nb.Alpha = 1.0
	}

	classIdx := make(map[int]int)
	for _, y := range labels {
		classIdx[y] = 0
	}
	classes := make([]int, 0, len(classIdx))
	for y := range classIdx {
		classes = append(classes, y)
	}
	sort.Ints(classes)
	for i, y := range classes {
		classIdx[y] = i
	}

	classCounts := make([]float64, len(classes))
	featureCounts := make([][]float64, len(classes))
	for i := range featureCounts {
		featureCounts[i] = make([]float64, numFeatures)
	}

	for i, v := range vectors {
		c := classIdx[labels[i]]
		classCounts[c]++
		for j, idx := range v.Indices {
			if idx < 0 || idx >= numFeatures {
				return fmt.Errorf("feature index %d out of range [0,%d)", idx, numFeatures)
			}
			featureCounts[c][idx] += v.Counts[j]
		}
	}

	total := float64(len(vectors))
	logPrior := make([]float64, len(classes))
	logProb := make([][]float64, len(classes))
	for c := range classes {
		logPrior[c] = math.Log(classCounts[c] / total)

		var rowTotal float64
		for _, n := range featureCounts[c] {
			rowTotal += n + nb.Alpha
		}
		denom := math.Log(rowTotal)

		logProb[c] = make([]float64, numFeatures)
		for f, n := range featureCounts[c] {
			logProb[c][f] = math.Log(n+nb.Alpha) - denom
		}
	}

	nb.Classes = classes
	nb.ClassCounts = classCounts
	nb.ClassLogPrior = logPrior
	nb.FeatureCounts = featureCounts
	nb.FeatureLogProb = logProb
	nb.NumFeatures = numFeatures
	return nil
}

// JointLogLikelihood returns the unnormalized log posterior of each class for v.
func (nb *MultinomialNB) JointLogLikelihood(v features.Vector) []float64 {
	jll := make([]float64, len(nb.Classes))
	for c := range nb.Classes {
		score := nb.ClassLogPrior[c]
		for j, idx := range v.Indices {
			if idx < nb.NumFeatures {
				score += v.Counts[j] * nb.FeatureLogProb[c][idx]
			}
		}
		jll[c] = score
	}
	return jll
}

// Classify returns the most probable label for each vector.
// Ties go to the smallest label.
func (nb *MultinomialNB) Classify(vectors []features.Vector) ([]int, error) {
	if len(nb.Classes) == 0 {
		return nil, ErrNotFitted
	}

	out := make([]int, len(vectors))
	for i, v := range vectors {
		jll := nb.JointLogLikelihood(v)
		best := 0
		for c := 1; c < len(jll); c++ {
			if jll[c] > jll[best] {
				best = c
			}
		}
		out[i] = nb.Classes[best]
	}
	return out, nil
}

// Probabilities returns normalized class probabilities for v, ordered like Classes.
func (nb *MultinomialNB) Probabilities(v features.Vector) []float64 {
	jll := nb.JointLogLikelihood(v)
	if len(jll) == 0 {
		return nil
	}

	max := jll[0]
	for _, s := range jll[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	probs := make([]float64, len(jll))
	for i, s := range jll {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
