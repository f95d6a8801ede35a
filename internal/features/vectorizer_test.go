package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases", "Prove The Theorem", []string{"prove", "the", "theorem"}},
		{"drops single characters", "a b cd e", []string{"cd"}},
		{"splits on punctuation", "x^2+y^2, solve-for: y", []string{"solve", "for"}},
		{"keeps digits and underscores", "step_1 of 10 steps", []string{"step_1", "of", "10", "steps"}},
		{"unicode letters", "Résumé für Übung", []string{"résumé", "für", "übung"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestNgrams(t *testing.T) {
	tokens := []string{"derive", "integral", "parts"}

	assert.Equal(t, []string{"derive", "integral", "parts"}, Ngrams(tokens, 1, 1))
	assert.Equal(t,
		[]string{"derive", "integral", "parts", "derive integral", "integral parts"},
		Ngrams(tokens, 1, 2))
	assert.Equal(t, []string{"derive integral", "integral parts"}, Ngrams(tokens, 2, 2))
	assert.Empty(t, Ngrams(nil, 1, 2))
}

func TestCountVectorizer_AnalyzeRemovesStopWordsBeforeBigrams(t *testing.T) {
	cv := NewCountVectorizer()
	grams := cv.Analyze("Derive the integral using integration by parts")

	assert.Equal(t, []string{
		"derive", "integral", "using", "integration", "parts",
		"derive integral", "integral using", "using integration", "integration parts",
	}, grams)
}

func TestCountVectorizer_FitBuildsSortedVocabulary(t *testing.T) {
	cv := NewCountVectorizer()
	require.NoError(t, cv.Fit([]string{"simplify the fraction", "easy addition problem"}))

	assert.Equal(t, []string{
		"addition", "addition problem", "easy", "easy addition",
		"fraction", "problem", "simplify", "simplify fraction",
	}, cv.FeatureNames())
	assert.Equal(t, 8, cv.NumFeatures())
}

func TestCountVectorizer_TransformUsesFrozenVocabulary(t *testing.T) {
	cv := NewCountVectorizer()
	require.NoError(t, cv.Fit([]string{"essay essay question"}))
	vocabBefore := cv.NumFeatures()

	vectors := cv.Transform([]string{"essay about history", "multiple choice", ""})
	require.Len(t, vectors, 3)

	// "history" and "essay history" are unseen and dropped
	assert.Equal(t, []int{cv.Vocabulary["essay"]}, vectors[0].Indices)
	assert.Equal(t, []float64{1}, vectors[0].Counts)
	assert.Equal(t, 0, vectors[1].Len())
	assert.Equal(t, 0, vectors[2].Len())
	assert.Equal(t, vocabBefore, cv.NumFeatures())
}

func TestCountVectorizer_TransformCounts(t *testing.T) {
	cv := NewCountVectorizer()
	vectors, err := cv.FitTransform([]string{"essay essay question"})
	require.NoError(t, err)

	v := vectors[0]
	for i := 1; i < len(v.Indices); i++ {
		assert.Less(t, v.Indices[i-1], v.Indices[i])
	}
	// essay x2, question, "essay essay", "essay question"
	assert.Equal(t, 5.0, v.Total())
	assert.Equal(t, 4, v.Len())
}

func TestCountVectorizer_EmptyVocabulary(t *testing.T) {
	cv := NewCountVectorizer()
	err := cv.Fit([]string{"the and of", ""})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}
