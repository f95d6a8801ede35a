// Package training builds the difficulty pipeline offline: it loads labeled
// questions, splits them with label stratification, fits and evaluates the
// pipeline and writes the artifact the server loads.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"question-difficulty/internal/common"
	"question-difficulty/internal/storage"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Example is one labeled question.
type Example struct {
	Text  string
	Label int
}

// QuestionSource lists stored questions.
type QuestionSource interface {
	ListQuestions() ([]storage.Question, error)
}

// DataLoader reads labeled examples from tabular files or the question bank
type DataLoader struct {
	TextColumn  string
	LabelColumn string
	examples    []Example
}

// NewDataLoader creates a loader for the default column names
func NewDataLoader() *DataLoader {
	return &DataLoader{
		TextColumn:  common.DefaultTextColumn,
		LabelColumn: common.DefaultLabelColumn,
		examples:    make([]Example, 0),
	}
}

// Load picks the reader from the file extension.
func (dl *DataLoader) Load(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return dl.LoadFromXLSX(path)
	case ".csv", ".txt", "":
		return dl.LoadFromCSV(path)
	default:
		return &DatasetFormatError{Source: path, Reason: "unsupported file extension " + filepath.Ext(path)}
	}
}

// LoadFromCSV loads examples from a CSV file with a header row
func (dl *DataLoader) LoadFromCSV(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &DatasetFormatError{Source: path, Reason: "file is empty"}
		}
		return &DatasetFormatError{Source: path, Row: 1, Reason: err.Error()}
	}

	cols, err := dl.columns(path, header)
	if err != nil {
		return err
	}

	loaded := make([]Example, 0)
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &DatasetFormatError{Source: path, Row: row, Reason: err.Error()}
		}

		ex, skip, err := cols.parse(path, row, record)
		if err != nil {
			return err
		}
		if !skip {
			loaded = append(loaded, ex)
		}
	}

	dl.examples = append(dl.examples, loaded...)
	log.Info().
		Str("file", path).
		Int("examples", len(loaded)).
		Msg("CSV dataset loaded successfully")
	return nil
}

// LoadFromXLSX loads examples from the first sheet of a workbook
func (dl *DataLoader) LoadFromXLSX(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &DatasetFormatError{Source: path, Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &DatasetFormatError{Source: path, Reason: "sheet is empty"}
	}

	cols, err := dl.columns(path, rows[0])
	if err != nil {
		return err
	}

	loaded := make([]Example, 0, len(rows)-1)
	for i, record := range rows[1:] {
		ex, skip, err := cols.parse(path, i+2, record)
		if err != nil {
			return err
		}
		if !skip {
			loaded = append(loaded, ex)
		}
	}

	dl.examples = append(dl.examples, loaded...)
	log.Info().
		Str("file", path).
		Str("sheet", sheets[0]).
		Int("examples", len(loaded)).
		Msg("Excel dataset loaded successfully")
	return nil
}

// LoadFromStore loads every question in the bank with its difficulty level
func (dl *DataLoader) LoadFromStore(store QuestionSource) error {
	questions, err := store.ListQuestions()
	if err != nil {
		return fmt.Errorf("failed to list questions: %w", err)
	}

	for _, q := range questions {
		dl.examples = append(dl.examples, Example{Text: q.QuestionText, Label: q.DifficultyLevel})
	}

	log.Info().
		Int("examples", len(questions)).
		Msg("Question bank loaded successfully")
	return nil
}

// Examples returns the loaded examples in file order
func (dl *DataLoader) Examples() []Example {
	return dl.examples
}

// GetDataCount returns the number of loaded examples
func (dl *DataLoader) GetDataCount() int {
	return len(dl.examples)
}

// LabelCounts returns the number of examples per label
func (dl *DataLoader) LabelCounts() map[int]int {
	counts := make(map[int]int)
	for _, ex := range dl.examples {
		counts[ex.Label]++
	}
	return counts
}

type columnIndex struct {
	text, label         int
	textName, labelName string
}

func (dl *DataLoader) columns(source string, header []string) (columnIndex, error) {
	indices := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, dup := indices[col]; !dup {
			indices[col] = i
		}
	}

	ci := columnIndex{textName: dl.TextColumn, labelName: dl.LabelColumn}
	var ok bool
	if ci.text, ok = indices[dl.TextColumn]; !ok {
		return ci, &DatasetFormatError{Source: source, Column: dl.TextColumn, Reason: "column missing from header"}
	}
	if ci.label, ok = indices[dl.LabelColumn]; !ok {
		return ci, &DatasetFormatError{Source: source, Column: dl.LabelColumn, Reason: "column missing from header"}
	}
	return ci, nil
}

// parse turns one record into an example. Fully blank records are skipped;
// a missing text becomes the empty string.
func (ci columnIndex) parse(source string, row int, record []string) (Example, bool, error) {
	blank := true
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			blank = false
			break
		}
	}
	if blank {
		return Example{}, true, nil
	}

	var text, rawLabel string
	if ci.text < len(record) {
		text = record[ci.text]
	}
	if ci.label < len(record) {
		rawLabel = strings.TrimSpace(record[ci.label])
	}

	label, err := parseLabel(rawLabel)
	if err != nil {
		return Example{}, false, &DatasetFormatError{Source: source, Row: row, Column: ci.labelName, Reason: err.Error()}
	}
	return Example{Text: text, Label: label}, false, nil
}

// parseLabel accepts integers and integral floats such as "3.0".
func parseLabel(raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing label")
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("label %q is not an integer", raw)
	}
	return int(f), nil
}

func sortedLabels(counts map[int]int) []int {
	labels := make([]int, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}
