// Package client is a small HTTP client for the difficulty API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrModelNotLoaded is returned when the server has no model to predict with.
var ErrModelNotLoaded = errors.New("server has no model loaded")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("difficulty api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("difficulty api: status %d %s: %s", e.Status, e.Code, e.Message)
}

// Is lets callers match a 503 with errors.Is(err, ErrModelNotLoaded).
func (e *APIError) Is(target error) bool {
	return target == ErrModelNotLoaded && e.Code == "MODEL_NOT_LOADED"
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Prediction is the response of the prediction endpoint.
type Prediction struct {
	QuestionText        string `json:"question_text"`
	PredictedDifficulty int    `json:"predicted_difficulty"`
}

// Health is the response of the health endpoint.
type Health struct {
	Status      string  `json:"status"`
	ModelLoaded bool    `json:"model_loaded"`
	Uptime      string  `json:"uptime"`
	ErrorRate   float64 `json:"error_rate"`
}

// ModelInfo describes the model the server is serving.
type ModelInfo struct {
	ModelPath      string    `json:"model_path"`
	Version        string    `json:"version"`
	TrainedAt      time.Time `json:"trained_at"`
	TrainingRows   int       `json:"training_rows"`
	TestRows       int       `json:"test_rows"`
	Accuracy       float64   `json:"accuracy"`
	Labels         []int     `json:"labels"`
	VocabularySize int       `json:"vocabulary_size"`
}

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimSuffix(base, "/"), rest: r}
}

// PredictDifficulty asks the server for the difficulty of text.
func (c *Client) PredictDifficulty(ctx context.Context, text string) (*Prediction, error) {
	out := &Prediction{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"question_text": text}).
		SetResult(out).
		SetError(&errorBody{}).
		Post(c.base + "/api/predict_difficulty/")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return out, nil
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	out := &Health{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&errorBody{}).
		Get(c.base + "/health")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return out, nil
}

// ModelInfo returns metadata of the served model.
func (c *Client) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	out := &ModelInfo{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&errorBody{}).
		Get(c.base + "/model/info")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return out, nil
}

func apiError(resp *resty.Response) error {
	if !resp.IsError() && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}
	e := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		e.Code = body.Code
		e.Message = body.Error
	} else {
		e.Message = strings.TrimSpace(resp.String())
	}
	return e
}
