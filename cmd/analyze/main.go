package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"question-difficulty/internal/analytics"
	"question-difficulty/internal/common"
	"question-difficulty/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		csvPath   = flag.String("csv", "", "Submissions CSV with question_id, student_id and score columns")
		dbPath    = flag.String("db", "", "Read submissions from the question bank in this data directory")
		threshold = flag.Float64("threshold", common.DefaultHighScoreLimit, "Scores strictly above this are listed as high scores")
		logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var subs []analytics.Submission
	switch {
	case *csvPath != "" && *dbPath != "":
		log.Fatal().Msg("use either -csv or -db, not both")
	case *csvPath != "":
		subs, err = analytics.LoadSubmissionsCSV(*csvPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load submissions")
		}
	case *dbPath != "":
		store, err := storage.New(*dbPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open question bank")
		}
		stored, err := store.ListSubmissions(0)
		store.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list submissions")
		}
		subs = analytics.FromStorage(stored)
	default:
		fmt.Fprintln(os.Stderr, "usage: analyze -csv submissions.csv | -db data")
		os.Exit(2)
	}

	printSummary(analytics.Summarize(subs, *threshold))
}

func printSummary(s analytics.Summary) {
	fmt.Printf("Total submissions: %d\n\n", s.Total)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "question_id\taverage_score\tnum_attempts")
	for _, q := range s.Questions {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", q.QuestionID, score(q.AverageScore), q.Attempts)
	}
	tw.Flush()
	fmt.Println()

	tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "student_id\taverage_student_score\tsubmissions")
	for _, st := range s.Students {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", st.StudentID, score(st.AverageScore), st.Submissions)
	}
	tw.Flush()

	fmt.Printf("\nSubmissions scoring above %.1f:\n", s.Threshold)
	tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "question_id\tstudent_id\tscore")
	for _, h := range s.HighScores {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", h.QuestionID, h.StudentID, score(h.Score))
	}
	tw.Flush()
}

func score(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%.2f", *v)
}
