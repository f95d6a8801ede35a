package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// DefaultDifficulty is assigned to questions created without a level.
const DefaultDifficulty = 1

// Question is an assessment item. DifficultyLevel is 1 easy, 2 medium, 3 hard.
type Question struct {
	ID              uint64    `json:"id"`
	QuestionText    string    `json:"question_text"`
	QuestionType    string    `json:"question_type"`
	DifficultyLevel int       `json:"difficulty_level"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Submission is a student's answer to a question. Score stays nil until graded.
type Submission struct {
	ID                uint64    `json:"id"`
	QuestionID        uint64    `json:"question_id"`
	StudentIdentifier string    `json:"student_identifier"`
	AnswerText        string    `json:"answer_text"`
	Score             *float64  `json:"score"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// PredictionRecord is a difficulty prediction served for a question text.
type PredictionRecord struct {
	ID                  uint64    `json:"id"`
	QuestionText        string    `json:"question_text"`
	PredictedDifficulty int       `json:"predicted_difficulty"`
	ModelVersion        string    `json:"model_version,omitempty"`
	RequestID           string    `json:"request_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// CreateQuestion stores q and returns it with its id and timestamps set.
func (s *Store) CreateQuestion(q Question) (Question, error) {
	if q.DifficultyLevel == 0 {
		q.DifficultyLevel = DefaultDifficulty
	}
	now := s.now()
	q.CreatedAt, q.UpdatedAt = now, now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return insert(tx.Bucket([]byte(questionsBucket)), func(id uint64) any {
			q.ID = id
			return q
		})
	})
	if err != nil {
		return Question{}, fmt.Errorf("store question: %w", err)
	}
	return q, nil
}

// GetQuestion returns the question with id, or ErrQuestionNotFound.
func (s *Store) GetQuestion(id uint64) (Question, error) {
	var q Question
	err := s.db.View(func(tx *bbolt.Tx) error {
		found, err := get(tx.Bucket([]byte(questionsBucket)), id, &q)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %d", ErrQuestionNotFound, id)
		}
		return nil
	})
	return q, err
}

// ListQuestions returns all questions in creation order.
func (s *Store) ListQuestions() ([]Question, error) {
	return list[Question](s, questionsBucket, nil)
}

// CreateSubmission stores an answer for an existing question.
func (s *Store) CreateSubmission(sub Submission) (Submission, error) {
	sub.SubmittedAt = s.now()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(questionsBucket)).Get(itob(sub.QuestionID)) == nil {
			return fmt.Errorf("%w: %d", ErrQuestionNotFound, sub.QuestionID)
		}
		return insert(tx.Bucket([]byte(submissionsBucket)), func(id uint64) any {
			sub.ID = id
			return sub
		})
	})
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ScoreSubmission records a grade for a submission.
func (s *Store) ScoreSubmission(id uint64, score float64) (Submission, error) {
	var sub Submission
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(submissionsBucket))
		found, err := get(b, id, &sub)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %d", ErrSubmissionNotFound, id)
		}

		sub.Score = &score
		data, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("marshal submission: %w", err)
		}
		return b.Put(itob(id), data)
	})
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ListSubmissions returns submissions in arrival order. A zero questionID
// returns all of them.
func (s *Store) ListSubmissions(questionID uint64) ([]Submission, error) {
	var keep func(*Submission) bool
	if questionID != 0 {
		keep = func(sub *Submission) bool { return sub.QuestionID == questionID }
	}
	return list(s, submissionsBucket, keep)
}

// StorePrediction records a served prediction.
func (s *Store) StorePrediction(rec PredictionRecord) (PredictionRecord, error) {
	rec.CreatedAt = s.now()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return insert(tx.Bucket([]byte(predictionsBucket)), func(id uint64) any {
			rec.ID = id
			return rec
		})
	})
	if err != nil {
		return PredictionRecord{}, fmt.Errorf("store prediction: %w", err)
	}
	return rec, nil
}

// ListPredictions returns the most recent predictions, newest first. A
// non-positive limit returns all of them.
func (s *Store) ListPredictions(limit int) ([]PredictionRecord, error) {
	all, err := list[PredictionRecord](s, predictionsBucket, nil)
	if err != nil {
		return nil, err
	}

	out := make([]PredictionRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}
