package common

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvModelPath      = "MODEL_PATH"
	EnvDataPath       = "DATA_PATH"
	EnvDatasetPath    = "DATASET_PATH"
	EnvTextColumn     = "TEXT_COLUMN"
	EnvLabelColumn    = "LABEL_COLUMN"
	EnvTestSize       = "TEST_SIZE"
	EnvSplitSeed      = "SPLIT_SEED"
	EnvReportDir      = "REPORT_DIR"
	EnvListenHost     = "LISTEN_HOST"
	EnvPort           = "PORT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvServerURL      = "SERVER_URL"
)

// Configuration defaults
const (
	DefaultDatasetPath    = "question_difficulty_dataset.csv"
	DefaultModelPath      = "difficulty_prediction_pipeline.qdpa"
	DefaultTextColumn     = "question_text"
	DefaultLabelColumn    = "difficulty_level"
	DefaultTestSize       = 0.2
	DefaultSplitSeed      = 42
	DefaultListenHost     = "0.0.0.0"
	DefaultPort           = 8000
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultServerURL      = "http://localhost:8000"
	DefaultHighScoreLimit = 90.0
)

// Prediction error messages returned to API callers
const (
	ErrMsgModelNotLoaded   = "Model not loaded. Check server logs."
	ErrMsgMissingText      = "Missing question_text in request body."
	ErrMsgInvalidJSON      = "Invalid JSON data in request body."
	ErrMsgPredictionFailed = "An error occurred during prediction"
)

// Validation constants
const (
	MinTestSize = 0.05
	MaxTestSize = 0.95
	MinPort     = 1024
	MaxPort     = 65535
)
