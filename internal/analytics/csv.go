package analytics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadSubmissionsCSV reads submissions from a CSV file with question_id,
// student_id and score columns. An empty score is an ungraded submission.
func LoadSubmissionsCSV(path string) ([]Submission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open submissions file: %w", err)
	}
	defer f.Close()
	return ReadSubmissions(f)
}

// ReadSubmissions parses submissions CSV from r.
func ReadSubmissions(r io.Reader) ([]Submission, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("submissions file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{"question_id", "student_id", "score"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		if i := cols[name]; i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	out := make([]Submission, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		qid, err := strconv.ParseUint(field(record, "question_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid question_id: %w", line, err)
		}

		sub := Submission{QuestionID: qid, StudentID: field(record, "student_id")}
		if raw := field(record, "score"); raw != "" {
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid score: %w", line, err)
			}
			sub.Score = &score
		}
		out = append(out, sub)
	}
	return out, nil
}
