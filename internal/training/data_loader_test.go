package training

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"question-difficulty/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromCSV(t *testing.T) {
	path := writeFile(t, "questions.csv", "id,question_text,question_type,difficulty_level\n"+
		"1,easy addition problem,short answer,1\n"+
		"2,\"derive the integral, using integration by parts\",essay,3\n"+
		"\n"+
		"3,,essay,2.0\n")

	dl := NewDataLoader()
	require.NoError(t, dl.LoadFromCSV(path))

	assert.Equal(t, []Example{
		{Text: "easy addition problem", Label: 1},
		{Text: "derive the integral, using integration by parts", Label: 3},
		{Text: "", Label: 2},
	}, dl.Examples())
	assert.Equal(t, 3, dl.GetDataCount())
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, dl.LabelCounts())
}

func TestLoadFromCSV_CustomColumns(t *testing.T) {
	path := writeFile(t, "custom.csv", "\ufefftext;level\n")
	// semicolons are not separators, so the header is a single column
	dl := NewDataLoader()
	dl.TextColumn, dl.LabelColumn = "text", "level"
	assert.ErrorIs(t, dl.LoadFromCSV(path), ErrDatasetFormat)

	path = writeFile(t, "custom.csv", "\ufefftext,level\nprove the theorem by induction,3\n")
	dl = NewDataLoader()
	dl.TextColumn, dl.LabelColumn = "text", "level"
	require.NoError(t, dl.LoadFromCSV(path))
	assert.Equal(t, []Example{{Text: "prove the theorem by induction", Label: 3}}, dl.Examples())
}

func TestLoadFromCSV_FormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		row     int
		column  string
	}{
		{"missing label column", "question_text,level\nsimplify the fraction,1\n", 0, "difficulty_level"},
		{"missing text column", "text,difficulty_level\nsimplify the fraction,1\n", 0, "question_text"},
		{"non numeric label", "question_text,difficulty_level\nsimplify,1\nprove,hard\n", 3, "difficulty_level"},
		{"fractional label", "question_text,difficulty_level\nsimplify,1.5\n", 2, "difficulty_level"},
		{"empty label", "question_text,difficulty_level\nsimplify,\n", 2, "difficulty_level"},
		{"short row", "question_text,difficulty_level\nsimplify\n", 2, "difficulty_level"},
		{"empty file", "", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", tt.content)
			err := NewDataLoader().LoadFromCSV(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDatasetFormat)

			var formatErr *DatasetFormatError
			require.True(t, errors.As(err, &formatErr))
			assert.Equal(t, tt.row, formatErr.Row)
			assert.Equal(t, tt.column, formatErr.Column)
		})
	}
}

func TestLoadFromCSV_MissingFile(t *testing.T) {
	err := NewDataLoader().LoadFromCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFromXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"question_text", "difficulty_level"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"simplify the fraction", 1}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"prove the theorem by induction", 3}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	dl := NewDataLoader()
	require.NoError(t, dl.Load(path))
	assert.Equal(t, []Example{
		{Text: "simplify the fraction", Label: 1},
		{Text: "prove the theorem by induction", Label: 3},
	}, dl.Examples())
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	err := NewDataLoader().Load("dataset.parquet")
	assert.ErrorIs(t, err, ErrDatasetFormat)
}

func TestLoadFromStore(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.CreateQuestion(storage.Question{QuestionText: "simplify the fraction", QuestionType: "short answer", DifficultyLevel: 1})
	require.NoError(t, err)
	_, err = store.CreateQuestion(storage.Question{QuestionText: "prove the theorem by induction", QuestionType: "essay", DifficultyLevel: 3})
	require.NoError(t, err)

	dl := NewDataLoader()
	require.NoError(t, dl.LoadFromStore(store))
	assert.Equal(t, []Example{
		{Text: "simplify the fraction", Label: 1},
		{Text: "prove the theorem by induction", Label: 3},
	}, dl.Examples())
}

type failingSource struct{}

func (failingSource) ListQuestions() ([]storage.Question, error) {
	return nil, errors.New("database closed")
}

func TestLoadFromStore_Error(t *testing.T) {
	assert.Error(t, NewDataLoader().LoadFromStore(failingSource{}))
}
