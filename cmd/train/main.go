package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"question-difficulty/internal/cfg"
	"question-difficulty/internal/ml"
	"question-difficulty/internal/storage"
	"question-difficulty/internal/training"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// versionsDir holds one artifact per training run, next to the serving artifact
const versionsDir = "versions"

type options struct {
	dataPath    string
	outputPath  string
	testSize    float64
	seed        int64
	reportDir   string
	logLevel    string
	textColumn  string
	labelColumn string
	dbPath      string

	listVersions bool
	rollback     bool
	activate     string

	set map[string]bool
}

func parseOptions(args []string) (*options, error) {
	o := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.StringVar(&o.dataPath, "data", "", "Dataset file (.csv or .xlsx); defaults to DATASET_PATH")
	fs.StringVar(&o.outputPath, "output", "", "Serving artifact path; defaults to MODEL_PATH")
	fs.Float64Var(&o.testSize, "test-size", 0, "Fraction of examples held out for evaluation")
	fs.Int64Var(&o.seed, "seed", 0, "Split seed")
	fs.StringVar(&o.reportDir, "report", "", "Directory for training_report.json and predictions.csv")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&o.textColumn, "text-column", "", "Name of the question text column")
	fs.StringVar(&o.labelColumn, "label-column", "", "Name of the difficulty label column")
	fs.StringVar(&o.dbPath, "db", "", "Train from the question bank in this data directory instead of a file")
	fs.BoolVar(&o.listVersions, "versions", false, "List recorded model versions and exit")
	fs.BoolVar(&o.rollback, "rollback", false, "Re-activate the version before the active one and publish it")
	fs.StringVar(&o.activate, "activate", "", "Activate and publish the given version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.rollback && o.activate != "" {
		return nil, fmt.Errorf("-rollback and -activate are mutually exclusive")
	}
	return o, nil
}

// apply overrides config with the flags given on the command line and
// validates the result.
func (o *options) apply(config *cfg.Settings) error {
	if o.set["data"] {
		config.DatasetPath = o.dataPath
	}
	if o.set["output"] {
		config.ModelPath = o.outputPath
	}
	if o.set["test-size"] {
		config.TestSize = o.testSize
	}
	if o.set["seed"] {
		config.SplitSeed = o.seed
	}
	if o.set["report"] {
		config.ReportDir = o.reportDir
	}
	if o.set["text-column"] {
		config.TextColumn = o.textColumn
	}
	if o.set["label-column"] {
		config.LabelColumn = o.labelColumn
	}
	return config.Validate()
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := opts.apply(&config); err != nil {
		log.Fatal().Err(err).Msg("Invalid options")
	}

	manager, err := ml.NewModelManager(filepath.Join(filepath.Dir(config.ModelPath), versionsDir))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open model registry")
	}

	switch {
	case opts.listVersions:
		printVersions(manager.ListVersions())
		return
	case opts.rollback:
		if err := manager.Rollback(); err != nil {
			log.Fatal().Err(err).Msg("Rollback failed")
		}
		publish(manager, config.ModelPath)
		return
	case opts.activate != "":
		if err := manager.ActivateVersion(opts.activate); err != nil {
			log.Fatal().Err(err).Msg("Activation failed")
		}
		publish(manager, config.ModelPath)
		return
	}

	loader := training.NewDataLoader()
	loader.TextColumn = config.TextColumn
	loader.LabelColumn = config.LabelColumn

	if opts.dbPath != "" {
		store, err := storage.New(opts.dbPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open question bank")
		}
		config.DatasetPath = store.Path()
		err = loader.LoadFromStore(store)
		store.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load questions")
		}
	} else if err := loader.Load(config.DatasetPath); err != nil {
		log.Fatal().Err(err).Str("dataset", config.DatasetPath).Msg("Failed to load dataset")
	}

	engine := training.NewEngine(&config, loader).WithModelManager(manager)
	results, err := engine.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}

	reporter := training.NewReporter(results, config.ReportDir)
	if config.ReportDir != "" {
		if err := reporter.GenerateReport(); err != nil {
			log.Error().Err(err).Msg("Failed to generate reports")
		}
	}

	reporter.PrintSummary(os.Stdout)
}

func publish(manager *ml.ModelManager, target string) {
	if err := manager.Publish(target); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish model")
	}
	fmt.Printf("Serving version %s from %s; restart the server to load it\n",
		manager.GetCurrentVersion().Version, target)
}

func printVersions(versions []ml.ModelVersion) {
	if len(versions) == 0 {
		fmt.Println("No model versions recorded")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "version\tactive\taccuracy\tmacro_f1\ttrain\ttest\tcreated")
	for _, v := range versions {
		active := ""
		if v.IsActive {
			active = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%d\t%d\t%s\n", v.Version, active,
			v.Metrics.Accuracy, v.Metrics.MacroF1, v.Metrics.TrainingSamples, v.Metrics.TestSamples,
			v.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}
