// Package analytics aggregates answer submissions: average score and attempts
// per question, average score per student and the high-scoring submissions.
package analytics

import (
	"sort"

	"question-difficulty/internal/storage"

	"github.com/montanaflynn/stats"
)

// Submission is the part of an answer submission the aggregates need. A nil
// Score is an ungraded attempt.
type Submission struct {
	QuestionID uint64   `json:"question_id"`
	StudentID  string   `json:"student_id"`
	Score      *float64 `json:"score"`
}

// QuestionStat aggregates the submissions of one question.
type QuestionStat struct {
	QuestionID   uint64   `json:"question_id"`
	AverageScore *float64 `json:"average_score"`
	Attempts     int      `json:"num_attempts"`
}

// StudentStat aggregates the submissions of one student.
type StudentStat struct {
	StudentID    string   `json:"student_id"`
	AverageScore *float64 `json:"average_student_score"`
	Submissions  int      `json:"submissions"`
}

// Summary holds every aggregate.
type Summary struct {
	Total      int            `json:"total_submissions"`
	Threshold  float64        `json:"high_score_threshold"`
	Questions  []QuestionStat `json:"questions"`
	Students   []StudentStat  `json:"students"`
	HighScores []Submission   `json:"high_scores"`
}

// Summarize computes the aggregates. Questions are ordered by id, students by
// average score descending with ungraded students last. Submissions without a
// score count as attempts but not towards averages. HighScores keeps the input
// order of submissions scoring strictly above threshold.
func Summarize(submissions []Submission, threshold float64) Summary {
	summary := Summary{
		Total:      len(submissions),
		Threshold:  threshold,
		Questions:  make([]QuestionStat, 0),
		Students:   make([]StudentStat, 0),
		HighScores: make([]Submission, 0),
	}

	questionScores := make(map[uint64]stats.Float64Data)
	questionAttempts := make(map[uint64]int)
	studentScores := make(map[string]stats.Float64Data)
	studentCounts := make(map[string]int)

	for _, s := range submissions {
		questionAttempts[s.QuestionID]++
		studentCounts[s.StudentID]++
		if s.Score == nil {
			continue
		}
		questionScores[s.QuestionID] = append(questionScores[s.QuestionID], *s.Score)
		studentScores[s.StudentID] = append(studentScores[s.StudentID], *s.Score)
		if *s.Score > threshold {
			summary.HighScores = append(summary.HighScores, s)
		}
	}

	for qid, attempts := range questionAttempts {
		summary.Questions = append(summary.Questions, QuestionStat{
			QuestionID:   qid,
			AverageScore: mean(questionScores[qid]),
			Attempts:     attempts,
		})
	}
	sort.Slice(summary.Questions, func(i, j int) bool {
		return summary.Questions[i].QuestionID < summary.Questions[j].QuestionID
	})

	for sid, n := range studentCounts {
		summary.Students = append(summary.Students, StudentStat{
			StudentID:    sid,
			AverageScore: mean(studentScores[sid]),
			Submissions:  n,
		})
	}
	sort.Slice(summary.Students, func(i, j int) bool {
		a, b := summary.Students[i], summary.Students[j]
		switch {
		case a.AverageScore == nil && b.AverageScore == nil:
			return a.StudentID < b.StudentID
		case a.AverageScore == nil:
			return false
		case b.AverageScore == nil:
			return true
		case *a.AverageScore != *b.AverageScore:
			return *a.AverageScore > *b.AverageScore
		default:
			return a.StudentID < b.StudentID
		}
	})

	return summary
}

// FromStorage converts stored submissions.
func FromStorage(subs []storage.Submission) []Submission {
	out := make([]Submission, len(subs))
	for i, s := range subs {
		out[i] = Submission{QuestionID: s.QuestionID, StudentID: s.StudentIdentifier, Score: s.Score}
	}
	return out
}

func mean(data stats.Float64Data) *float64 {
	if len(data) == 0 {
		return nil
	}
	m, err := stats.Mean(data)
	if err != nil {
		return nil
	}
	return &m
}
