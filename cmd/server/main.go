package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"question-difficulty/internal/api"
	"question-difficulty/internal/cfg"
	"question-difficulty/internal/common"
	"question-difficulty/internal/metrics"
	"question-difficulty/internal/ml"
	"question-difficulty/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	cfg.ConfigureLogger(c.LogLevel, c.LogFormat)

	m := metrics.New()

	// the artifact is read once here; a missing one leaves the service unavailable
	service := ml.NewService(c.ModelPath, metrics.NewWrapper(m))

	opts := api.Options{
		Addr:           c.Addr(),
		RequestTimeout: c.RequestTimeout,
		Service:        service,
		Metrics:        m,
		Gatherer:       prometheus.DefaultGatherer,
		HighScoreLimit: common.DefaultHighScoreLimit,
	}
	if store := initializeStorage(c); store != nil {
		defer store.Close()
		opts.Store = store
	}

	server := api.NewServer(opts)
	errCh := server.Start()

	waitForShutdown(server, errCh)
}

// initializeStorage opens the question bank if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		log.Info().Msg("DATA_PATH not set, question bank endpoints disabled")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without question bank")
		return nil
	}
	return store
}

func waitForShutdown(server *api.Server, errCh <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}

	log.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return
	}
	log.Info().Msg("server stopped")
}
