package features

import (
	"errors"
	"sort"
)

var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words or no tokens")

// Vector is a sparse token-count vector. Indices are strictly increasing.
type Vector struct {
	Indices []int
	Counts  []float64
}

// Len returns the number of non-zero entries.
func (v Vector) Len() int {
	return len(v.Indices)
}

// Total returns the sum of all counts.
func (v Vector) Total() float64 {
	var sum float64
	for _, c := range v.Counts {
		sum += c
	}
	return sum
}

// CountVectorizer maps documents to n-gram count vectors over a vocabulary
// learned from training documents. Fields are exported so the fitted state can
// be serialized; it must not be mutated after Fit.
type CountVectorizer struct {
	NgramMin   int
	NgramMax   int
	StopWords  map[string]bool
	Vocabulary map[string]int
}

// NewCountVectorizer returns an unfitted vectorizer for unigrams and bigrams
// with English stop words removed.
func NewCountVectorizer() *CountVectorizer {
	return NewCountVectorizerWith(1, 2, EnglishStopWords)
}

func NewCountVectorizerWith(ngramMin, ngramMax int, stopWords []string) *CountVectorizer {
	sw := make(map[string]bool, len(stopWords))
	for _, w := range stopWords {
		sw[w] = true
	}
	return &CountVectorizer{
		NgramMin:  ngramMin,
		NgramMax:  ngramMax,
		StopWords: sw,
	}
}

// Analyze returns the n-grams of a single document after lowercasing,
// tokenizing and stop-word removal.
func (cv *CountVectorizer) Analyze(doc string) []string {
	tokens := Tokenize(doc)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !cv.StopWords[tok] {
			kept = append(kept, tok)
		}
	}
	return Ngrams(kept, cv.NgramMin, cv.NgramMax)
}

// Fit learns the vocabulary from docs. Feature indices follow the
// lexicographic order of the n-grams.
func (cv *CountVectorizer) Fit(docs []string) error {
	seen := make(map[string]struct{})
	for _, doc := range docs {
		for _, gram := range cv.Analyze(doc) {
			seen[gram] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}
	cv.Vocabulary = vocab
	return nil
}

// FitTransform fits the vocabulary on docs and transforms them.
func (cv *CountVectorizer) FitTransform(docs []string) ([]Vector, error) {
	if err := cv.Fit(docs); err != nil {
		return nil, err
	}
	return cv.Transform(docs), nil
}

// Transform counts vocabulary n-grams in each document. N-grams outside the
// fitted vocabulary are ignored.
func (cv *CountVectorizer) Transform(docs []string) []Vector {
	vectors := make([]Vector, len(docs))
	for i, doc := range docs {
		counts := make(map[int]float64)
		for _, gram := range cv.Analyze(doc) {
			if idx, ok := cv.Vocabulary[gram]; ok {
				counts[idx]++
			}
		}

		indices := make([]int, 0, len(counts))
		for idx := range counts {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		values := make([]float64, len(indices))
		for j, idx := range indices {
			values[j] = counts[idx]
		}
		vectors[i] = Vector{Indices: indices, Counts: values}
	}
	return vectors
}

// NumFeatures returns the vocabulary size.
func (cv *CountVectorizer) NumFeatures() int {
	return len(cv.Vocabulary)
}

// FeatureNames returns the vocabulary terms ordered by feature index.
func (cv *CountVectorizer) FeatureNames() []string {
	names := make([]string, len(cv.Vocabulary))
	for term, idx := range cv.Vocabulary {
		names[idx] = term
	}
	return names
}
