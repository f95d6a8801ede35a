package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"question-difficulty/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	// Training
	DatasetPath string
	TextColumn  string
	LabelColumn string
	TestSize    float64
	SplitSeed   int64
	ReportDir   string

	// Inference
	ModelPath      string
	DataPath       string
	ListenHost     string
	Port           int
	RequestTimeout time.Duration

	LogLevel  string
	LogFormat string
}

type ConfigFile struct {
	Training struct {
		DatasetPath string  `yaml:"datasetPath"`
		TextColumn  string  `yaml:"textColumn"`
		LabelColumn string  `yaml:"labelColumn"`
		TestSize    float64 `yaml:"testSize"`
		SplitSeed   int64   `yaml:"splitSeed"`
		ReportDir   string  `yaml:"reportDir"`
	} `yaml:"training"`

	ML struct {
		ModelPath string `yaml:"modelPath"`
	} `yaml:"ml"`

	Server struct {
		Host           string `yaml:"host"`
		Port           int    `yaml:"port"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"server"`

	System struct {
		DataPath  string `yaml:"dataPath"`
		LogLevel  string `yaml:"logLevel"`
		LogFormat string `yaml:"logFormat"`
	} `yaml:"system"`
}

// Load reads settings from CONFIG_FILE when set, otherwise from the environment.
// A .env file in the working directory is applied first if one exists; variables
// already present in the environment win.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to read .env file: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		timeout = 5 * time.Second
	}

	settings := Settings{
		DatasetPath:    getEnvOrDefault(common.EnvDatasetPath, orDefault(config.Training.DatasetPath, common.DefaultDatasetPath)),
		TextColumn:     getEnvOrDefault(common.EnvTextColumn, orDefault(config.Training.TextColumn, common.DefaultTextColumn)),
		LabelColumn:    getEnvOrDefault(common.EnvLabelColumn, orDefault(config.Training.LabelColumn, common.DefaultLabelColumn)),
		TestSize:       getFloatFromEnvOrConfig(common.EnvTestSize, config.Training.TestSize, common.DefaultTestSize),
		SplitSeed:      getInt64FromEnvOrConfig(common.EnvSplitSeed, config.Training.SplitSeed, common.DefaultSplitSeed),
		ReportDir:      getEnvOrDefault(common.EnvReportDir, config.Training.ReportDir),
		ModelPath:      getEnvOrDefault(common.EnvModelPath, orDefault(config.ML.ModelPath, common.DefaultModelPath)),
		DataPath:       getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ListenHost:     getEnvOrDefault(common.EnvListenHost, orDefault(config.Server.Host, common.DefaultListenHost)),
		Port:           getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		RequestTimeout: getDurationOrDefault(common.EnvRequestTimeout, timeout),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:      getEnvOrDefault(common.EnvLogFormat, orDefault(config.System.LogFormat, common.DefaultLogFormat)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DatasetPath:    getEnvOrDefault(common.EnvDatasetPath, common.DefaultDatasetPath),
		TextColumn:     getEnvOrDefault(common.EnvTextColumn, common.DefaultTextColumn),
		LabelColumn:    getEnvOrDefault(common.EnvLabelColumn, common.DefaultLabelColumn),
		TestSize:       getFloatOrDefault(common.EnvTestSize, common.DefaultTestSize),
		SplitSeed:      int64(getIntOrDefault(common.EnvSplitSeed, common.DefaultSplitSeed)),
		ReportDir:      os.Getenv(common.EnvReportDir), // optional
		ModelPath:      getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		DataPath:       os.Getenv(common.EnvDataPath), // optional
		ListenHost:     getEnvOrDefault(common.EnvListenHost, common.DefaultListenHost),
		Port:           getIntOrDefault(common.EnvPort, common.DefaultPort),
		RequestTimeout: getDurationOrDefault(common.EnvRequestTimeout, 5*time.Second),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:      getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Addr returns the listen address of the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.ListenHost, s.Port)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getInt64FromEnvOrConfig(key string, configValue, defaultValue int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getFloatOrDefault(key, defaultValue)
}

// Validate re-checks settings, e.g. after command line overrides.
func (s *Settings) Validate() error {
	if err := validateSettings(s); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.TextColumn == "" || settings.LabelColumn == "" {
		return fmt.Errorf("text and label column names are required")
	}
	if settings.TextColumn == settings.LabelColumn {
		return fmt.Errorf("text and label columns must differ, both are %q", settings.TextColumn)
	}

	if settings.TestSize < common.MinTestSize || settings.TestSize > common.MaxTestSize {
		return fmt.Errorf("test size must be between %.2f and %.2f, got %f", common.MinTestSize, common.MaxTestSize, settings.TestSize)
	}
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}
	if settings.RequestTimeout < 100*time.Millisecond || settings.RequestTimeout > time.Minute {
		return fmt.Errorf("request timeout must be between 100ms and 1m, got %v", settings.RequestTimeout)
	}

	switch settings.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", settings.LogFormat)
	}

	return nil
}
