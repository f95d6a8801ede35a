package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictDifficulty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/predict_difficulty/", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"question_text":        body["question_text"],
			"predicted_difficulty": 3,
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	got, err := c.PredictDifficulty(context.Background(), "Write an essay")
	require.NoError(t, err)
	assert.Equal(t, "Write an essay", got.QuestionText)
	assert.Equal(t, 3, got.PredictedDifficulty)
}

func TestPredictDifficulty_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
		noModel bool
	}{
		{"missing text", http.StatusBadRequest, `{"error":"Missing question_text in request body.","code":"MISSING_TEXT"}`, "MISSING_TEXT", "Missing question_text in request body.", false},
		{"no model", http.StatusServiceUnavailable, `{"error":"Model not loaded. Check server logs.","code":"MODEL_NOT_LOADED"}`, "MODEL_NOT_LOADED", "Model not loaded. Check server logs.", true},
		{"plain text body", http.StatusBadGateway, `upstream down`, "", "upstream down", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.code != "" {
					w.Header().Set("Content-Type", "application/json")
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).PredictDifficulty(context.Background(), "x")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.noModel, errors.Is(err, ErrModelNotLoaded))
		})
	}
}

func TestHealthAndModelInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"ok","model_loaded":true,"uptime":"1m0s","error_rate":0.25}`))
		case "/model/info":
			w.Write([]byte(`{"version":"20240101-000000","accuracy":0.9,"labels":[1,2,3],"vocabulary_size":120}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 0)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.ModelLoaded)
	assert.Equal(t, 0.25, h.ErrorRate)

	info, err := c.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20240101-000000", info.Version)
	assert.Equal(t, []int{1, 2, 3}, info.Labels)
	assert.Equal(t, 120, info.VocabularySize)
}

func TestCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, time.Second).PredictDifficulty(ctx, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
