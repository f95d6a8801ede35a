// Package ml provides the question difficulty classifier: a two-stage pipeline
// of n-gram count features followed by a multinomial naive Bayes model, the
// on-disk artifact it is shipped in, and the inference service that serves it.
//
// Training happens offline through the training package. The serving process
// loads one artifact at startup into a Service and never mutates it, so
// predictions can run concurrently without locking.
package ml

import (
	"fmt"

	"question-difficulty/internal/features"
)

// Transformer turns a batch of raw documents into feature vectors.
type Transformer interface {
	Transform(docs []string) []features.Vector
}

// Classifier assigns a label to each feature vector.
type Classifier interface {
	Classify(vectors []features.Vector) ([]int, error)
}

var (
	_ Transformer = (*features.CountVectorizer)(nil)
	_ Classifier  = (*MultinomialNB)(nil)
)

// Pipeline is a fitted vectorizer and classifier pair.
type Pipeline struct {
	Vectorizer *features.CountVectorizer
	Model      *MultinomialNB
}

// Fit trains a new pipeline on docs and their labels. The vocabulary is
// built from docs only.
func Fit(docs []string, labels []int) (*Pipeline, error) {
	if len(docs) != len(labels) {
		return nil, fmt.Errorf("got %d documents and %d labels", len(docs), len(labels))
	}

	vectorizer := features.NewCountVectorizer()
	vectors, err := vectorizer.FitTransform(docs)
	if err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}

	model := NewMultinomialNB()
	if err := model.Fit(vectors, labels, vectorizer.NumFeatures()); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	return &Pipeline{Vectorizer: vectorizer, Model: model}, nil
}

func (p *Pipeline) Transform(docs []string) []features.Vector {
	return p.Vectorizer.Transform(docs)
}

func (p *Pipeline) Classify(vectors []features.Vector) ([]int, error) {
	return p.Model.Classify(vectors)
}

// Predict runs both stages over a batch of documents.
func (p *Pipeline) Predict(docs []string) ([]int, error) {
	if p == nil || p.Vectorizer == nil || p.Model == nil {
		return nil, ErrNotFitted
	}
	return p.Classify(p.Transform(docs))
}

// Labels returns the label set seen at training time.
func (p *Pipeline) Labels() []int {
	out := make([]int, len(p.Model.Classes))
	copy(out, p.Model.Classes)
	return out
}

func (p *Pipeline) validate() error {
	if p.Vectorizer == nil || p.Model == nil {
		return ErrNotFitted
	}
	if len(p.Model.Classes) == 0 {
		return fmt.Errorf("classifier has no classes")
	}
	if p.Vectorizer.NumFeatures() != p.Model.NumFeatures {
		return fmt.Errorf("vocabulary has %d features but classifier expects %d",
			p.Vectorizer.NumFeatures(), p.Model.NumFeatures)
	}
	if len(p.Model.FeatureLogProb) != len(p.Model.Classes) || len(p.Model.ClassLogPrior) != len(p.Model.Classes) {
		return fmt.Errorf("classifier parameters do not match its %d classes", len(p.Model.Classes))
	}
	for c, row := range p.Model.FeatureLogProb {
		if len(row) != p.Model.NumFeatures {
			return fmt.Errorf("class %d has %d feature weights, expected %d", p.Model.Classes[c], len(row), p.Model.NumFeatures)
		}
	}
	return nil
}
