package training

import (
	"errors"
	"fmt"
)

var (
	// ErrDatasetFormat marks a dataset that is missing columns or holds unreadable labels.
	ErrDatasetFormat = errors.New("dataset format error")
	// ErrInsufficientData marks a dataset too small to stratify.
	ErrInsufficientData = errors.New("insufficient data")
)

// DatasetFormatError describes a malformed dataset. Row is 1-based and counts
// the header, zero when the problem is not tied to a row.
type DatasetFormatError struct {
	Source string
	Row    int
	Column string
	Reason string
}

func (e *DatasetFormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("dataset %s: row %d, column %q: %s", e.Source, e.Row, e.Column, e.Reason)
	}
	if e.Column != "" {
		return fmt.Sprintf("dataset %s: column %q: %s", e.Source, e.Column, e.Reason)
	}
	return fmt.Sprintf("dataset %s: %s", e.Source, e.Reason)
}

func (e *DatasetFormatError) Is(target error) bool { return target == ErrDatasetFormat }

// InsufficientDataError reports why a stratified split is impossible.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data for stratified split: " + e.Reason
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }
