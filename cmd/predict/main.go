package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"question-difficulty/internal/client"
	"question-difficulty/internal/common"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		serverURL = flag.String("server", "", "Base URL of the difficulty API; defaults to SERVER_URL")
		timeout   = flag.Duration("timeout", 5*time.Second, "Request timeout")
		health    = flag.Bool("health", false, "Print the server health report and exit")
		logLevel  = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	base := *serverURL
	if base == "" {
		base = os.Getenv(common.EnvServerURL)
	}
	if base == "" {
		base = common.DefaultServerURL
	}

	c := client.New(base, *timeout)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *health {
		h, err := c.Health(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("server", base).Msg("health check failed")
		}
		printJSON(h)
		return
	}

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: predict [flags] <question text>")
		os.Exit(2)
	}

	p, err := c.PredictDifficulty(ctx, text)
	if errors.Is(err, client.ErrModelNotLoaded) {
		log.Fatal().Str("server", base).Msg("server has no model loaded; train one with cmd/train and restart it")
	}
	if err != nil {
		log.Fatal().Err(err).Str("server", base).Msg("prediction failed")
	}
	printJSON(p)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
