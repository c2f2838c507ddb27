package config

const (
	defaultBind                = "127.0.0.1:8380"
	defaultStoragePath         = "docflow-state"
	defaultAIHost              = "http://localhost:11434/v1"
	defaultExtractionModel     = "qwen2.5:7b"
	defaultOCREndpoint         = "http://localhost:9500"
	defaultMaxConcurrency      = 8
	defaultStageAttempts       = 3
	defaultRetryBaseDelayMS    = 500
	defaultStageTimeoutSeconds = 120
	defaultStaleAfterMinutes   = 30
	defaultPageRangeSize       = 10
	defaultRangeWorkers        = 4
	defaultSchemaName          = "invoice"
	defaultLogLevel            = "info"
)

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Server:  Server{Bind: defaultBind},
		Storage: Storage{Path: defaultStoragePath},
		AI: AI{
			Host:            defaultAIHost,
			ExtractionModel: defaultExtractionModel,
			OCREndpoint:     defaultOCREndpoint,
		},
		Pipeline: Pipeline{
			MaxConcurrency:      defaultMaxConcurrency,
			StageAttempts:       defaultStageAttempts,
			RetryBaseDelayMS:    defaultRetryBaseDelayMS,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
			StaleAfterMinutes:   defaultStaleAfterMinutes,
			PageRangeSize:       defaultPageRangeSize,
			RangeWorkers:        defaultRangeWorkers,
			SchemaName:          defaultSchemaName,
		},
		Logging: Logging{Level: defaultLogLevel},
	}
}
