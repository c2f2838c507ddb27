package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains the HTTP gateway bind configuration.
type Server struct {
	Bind string `toml:"bind"`
}

// Storage contains the document record store configuration.
type Storage struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

// ObjectStore contains the S3-compatible object storage configuration.
// When Endpoint is empty the daemon falls back to an in-memory store,
// which only makes sense for local experimentation.
type ObjectStore struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// AI contains the stage executor service configuration.
type AI struct {
	Host            string `toml:"host"`
	ExtractionModel string `toml:"extraction_model"`
	EvaluationModel string `toml:"evaluation_model"`
	SummaryModel    string `toml:"summary_model"`
	OCREndpoint     string `toml:"ocr_endpoint"`
	OCRKey          string `toml:"ocr_key"`
	// Mock replaces every executor with deterministic doubles. For local
	// runs without AI services.
	Mock bool `toml:"mock"`
}

// Pipeline contains the orchestration tuning knobs.
type Pipeline struct {
	MaxConcurrency      int    `toml:"max_concurrency"`
	StageAttempts       int    `toml:"stage_attempts"`
	RetryBaseDelayMS    int    `toml:"retry_base_delay_ms"`
	StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
	StaleAfterMinutes   int    `toml:"stale_after_minutes"`
	PageRangeSize       int    `toml:"page_range_size"`
	RangeWorkers        int    `toml:"range_workers"`
	SchemaName          string `toml:"schema_name"`
	SchemaDir           string `toml:"schema_dir"`
}

// Workflow contains the external workflow engine mirror configuration.
// Disabled when WorkflowID is empty.
type Workflow struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	WorkflowID string `toml:"workflow_id"`
	ActionName string `toml:"action_name"`
}

// Logging contains log output configuration.
type Logging struct {
	Level string `toml:"level"`
}

// Config is the full daemon configuration.
type Config struct {
	Server      Server      `toml:"server"`
	Storage     Storage     `toml:"storage"`
	ObjectStore ObjectStore `toml:"object_store"`
	AI          AI          `toml:"ai"`
	Pipeline    Pipeline    `toml:"pipeline"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// Load parses the configuration file at path, layered over defaults. A
// missing file is not an error when path is empty; a named path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RetryBaseDelay returns the configured base retry delay.
func (p Pipeline) RetryBaseDelay() time.Duration {
	return time.Duration(p.RetryBaseDelayMS) * time.Millisecond
}

// StageTimeout returns the configured per-stage attempt timeout.
func (p Pipeline) StageTimeout() time.Duration {
	return time.Duration(p.StageTimeoutSeconds) * time.Second
}

// StaleAfter returns the staleness threshold for startup recovery.
func (p Pipeline) StaleAfter() time.Duration {
	return time.Duration(p.StaleAfterMinutes) * time.Minute
}

// WorkflowSyncEnabled reports whether an external workflow mirror is
// configured.
func (c *Config) WorkflowSyncEnabled() bool {
	return c.Workflow.WorkflowID != ""
}
