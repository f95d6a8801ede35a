// Package api exposes the difficulty service over HTTP: the prediction
// endpoint, the question bank endpoints, submission analytics, health probes,
// Prometheus metrics and a WebSocket feed of served predictions.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"question-difficulty/internal/metrics"
	"question-difficulty/internal/ml"
	"question-difficulty/internal/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// QuestionStore is the question bank used by the API.
type QuestionStore interface {
	CreateQuestion(q storage.Question) (storage.Question, error)
	ListQuestions() ([]storage.Question, error)
	CreateSubmission(sub storage.Submission) (storage.Submission, error)
	ScoreSubmission(id uint64, score float64) (storage.Submission, error)
	ListSubmissions(questionID uint64) ([]storage.Submission, error)
	StorePrediction(rec storage.PredictionRecord) (storage.PredictionRecord, error)
	ListPredictions(limit int) ([]storage.PredictionRecord, error)
}

// Options configures a Server. Service is required; everything else is optional.
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	Service        *ml.Service
	Store          QuestionStore
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	HighScoreLimit float64
}

// Server provides the HTTP API
type Server struct {
	service        *ml.Service
	store          QuestionStore
	metrics        *metrics.Metrics
	feed           *Feed
	router         *mux.Router
	server         *http.Server
	requestTimeout time.Duration
	highScoreLimit float64
	startedAt      time.Time
}

// NewServer wires routes and middleware around the prediction service
func NewServer(opts Options) *Server {
	s := &Server{
		service:        opts.Service,
		store:          opts.Store,
		metrics:        opts.Metrics,
		feed:           NewFeed(),
		requestTimeout: opts.RequestTimeout,
		highScoreLimit: opts.HighScoreLimit,
		startedAt:      time.Now(),
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = 5 * time.Second
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed,
			fmt.Sprintf("Method %s is not allowed for this endpoint.", req.Method))
	})
	r.Use(requestIDMiddleware, s.recoveryMiddleware, s.loggingMiddleware)

	handle(r, "/api/predict_difficulty/", s.handlePredict, http.MethodPost)
	handle(r, "/api/questions/", s.handleListQuestions, http.MethodGet)
	handle(r, "/api/questions/", s.handleCreateQuestion, http.MethodPost)
	handle(r, "/api/submit_answer/", s.handleSubmitAnswer, http.MethodPost)
	handle(r, "/api/submissions/{id:[0-9]+}/score/", s.handleScoreSubmission, http.MethodPost)
	handle(r, "/api/predictions/", s.handleListPredictions, http.MethodGet)
	handle(r, "/api/analytics/", s.handleAnalytics, http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/model/info", s.handleModelInfo).Methods(http.MethodGet)
	r.Handle("/ws/predictions", s.feed).Methods(http.MethodGet)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.router = r
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.requestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// handle registers path both with and without its trailing slash.
func handle(r *mux.Router, path string, h http.HandlerFunc, method string) {
	r.HandleFunc(path, h).Methods(method)
	if trimmed := strings.TrimSuffix(path, "/"); trimmed != path {
		r.HandleFunc(trimmed, h).Methods(method)
	}
}

// Handler returns the root handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Feed returns the prediction feed.
func (s *Server) Feed() *Feed {
	return s.feed
}

// Start serves in the background and returns immediately. Listen errors
// other than a clean shutdown are sent on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go s.feed.Run()
	go func() {
		log.Info().
			Str("address", s.server.Addr).
			Bool("model_loaded", s.service.Available()).
			Msg("Starting difficulty API server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.feed.Stop()
	return s.server.Shutdown(ctx)
}
