package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"question-difficulty/internal/common"
	"question-difficulty/internal/ml"

	"github.com/rs/zerolog/log"
)

// Error codes returned in the "code" field of error payloads
const (
	CodeModelNotLoaded   = "MODEL_NOT_LOADED"
	CodeMissingText      = "MISSING_TEXT"
	CodeInvalidJSON      = "INVALID_JSON"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodePredictionFailed = "PREDICTION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writePredictionError maps the prediction error taxonomy onto HTTP responses.
func writePredictionError(w http.ResponseWriter, err error) {
	var internal *ml.InternalPredictionError
	switch {
	case errors.Is(err, ml.ErrModelNotLoaded):
		writeError(w, http.StatusServiceUnavailable, CodeModelNotLoaded, common.ErrMsgModelNotLoaded)
	case errors.Is(err, ml.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, CodeMissingText, common.ErrMsgMissingText)
	case errors.As(err, &internal):
		writeError(w, http.StatusInternalServerError, CodePredictionFailed,
			fmt.Sprintf("%s: %v", common.ErrMsgPredictionFailed, internal.Cause))
	default:
		writeError(w, http.StatusInternalServerError, CodePredictionFailed,
			fmt.Sprintf("%s: %v", common.ErrMsgPredictionFailed, err))
	}
}
