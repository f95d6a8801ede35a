package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"question-difficulty/internal/analytics"
	"question-difficulty/internal/common"
	"question-difficulty/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// PredictionRequest is the body of a prediction request
type PredictionRequest struct {
	QuestionText string `json:"question_text"`
}

// QuestionRequest is the body of a question creation request
type QuestionRequest struct {
	QuestionText    string `json:"question_text"`
	QuestionType    string `json:"question_type"`
	DifficultyLevel *int   `json:"difficulty_level"`
}

// SubmissionRequest is the body of an answer submission
type SubmissionRequest struct {
	QuestionID        uint64 `json:"question_id"`
	StudentIdentifier string `json:"student_identifier"`
	AnswerText        string `json:"answer_text"`
}

// ScoreRequest grades a submission
type ScoreRequest struct {
	Score *float64 `json:"score"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes.", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, common.ErrMsgInvalidJSON)
		return false
	}
	return true
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if !s.service.Available() {
		writePredictionError(w, s.checkAvailable(r.Context()))
		return
	}

	var req PredictionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.service.PredictDifficulty(ctx, req.QuestionText)
	if err != nil {
		writePredictionError(w, err)
		return
	}

	requestID := RequestIDFromContext(r.Context())
	s.recordPrediction(result.QuestionText, result.PredictedDifficulty, requestID)
	s.feed.Publish(PredictionEvent{
		Type:                eventPrediction,
		QuestionText:        result.QuestionText,
		PredictedDifficulty: &result.PredictedDifficulty,
		RequestID:           requestID,
		Timestamp:           time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, result)
}

// checkAvailable runs a prediction that is rejected by the unavailable
// service, so the rejection is counted like any other.
func (s *Server) checkAvailable(ctx context.Context) error {
	_, err := s.service.Predict(ctx, "")
	return err
}

func (s *Server) recordPrediction(text string, difficulty int, requestID string) {
	if s.store == nil {
		return
	}
	meta, _ := s.service.Metadata()
	_, err := s.store.StorePrediction(storage.PredictionRecord{
		QuestionText:        text,
		PredictedDifficulty: difficulty,
		ModelVersion:        meta.Version,
		RequestID:           requestID,
	})
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("failed to record prediction")
	}
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "Question bank is not configured.")
		return false
	}
	return true
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	questions, err := s.store.ListQuestions()
	if err != nil {
		log.Error().Err(err).Msg("failed to list questions")
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	var req QuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.QuestionText) == "" || strings.TrimSpace(req.QuestionType) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Missing question_text or question_type")
		return
	}

	q := storage.Question{QuestionText: req.QuestionText, QuestionType: req.QuestionType}
	if req.DifficultyLevel != nil {
		if *req.DifficultyLevel < 1 {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "difficulty_level must be positive")
			return
		}
		q.DifficultyLevel = *req.DifficultyLevel
	}

	created, err := s.store.CreateQuestion(q)
	if err != nil {
		log.Error().Err(err).Msg("failed to create question")
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.QuestionsCreated.Inc()
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	var req SubmissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QuestionID == 0 || req.StudentIdentifier == "" || req.AnswerText == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Missing question_id, student_identifier, or answer_text")
		return
	}

	sub, err := s.store.CreateSubmission(storage.Submission{
		QuestionID:        req.QuestionID,
		StudentIdentifier: req.StudentIdentifier,
		AnswerText:        req.AnswerText,
	})
	if errors.Is(err, storage.ErrQuestionNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "Question not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to create submission")
		writeError(w, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred: "+err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.SubmissionsCreated.Inc()
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleScoreSubmission(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid submission id")
		return
	}

	var req ScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Missing score")
		return
	}

	sub, err := s.store.ScoreSubmission(id, *req.Score)
	if errors.Is(err, storage.ErrSubmissionNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "Submission not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	records, err := s.store.ListPredictions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	threshold := s.highScoreLimit
	if threshold == 0 {
		threshold = common.DefaultHighScoreLimit
	}
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "threshold must be a number")
			return
		}
		threshold = v
	}

	subs, err := s.store.ListSubmissions(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(analytics.FromStorage(subs), threshold))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":        "ok",
		"model_loaded":  s.service.Available(),
		"store_enabled": s.store != nil,
		"feed_clients":  s.feed.Clients(),
		"uptime":        time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.metrics != nil {
		health["error_rate"] = s.metrics.GetErrorRate()
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.service.Available() {
		writeError(w, http.StatusServiceUnavailable, CodeModelNotLoaded, common.ErrMsgModelNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	meta, ok := s.service.Metadata()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, CodeModelNotLoaded, common.ErrMsgModelNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model_path":      s.service.ModelPath(),
		"version":         meta.Version,
		"trained_at":      meta.TrainedAt,
		"dataset_path":    meta.DatasetPath,
		"training_rows":   meta.TrainingRows,
		"test_rows":       meta.TestRows,
		"accuracy":        meta.Accuracy,
		"labels":          meta.Labels,
		"vocabulary_size": meta.Vocabulary,
	})
}
