package config

import (
	"fmt"
	"log/slog"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Bind == "" {
		return fmt.Errorf("server.bind is required")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	p := c.Pipeline
	if p.MaxConcurrency <= 0 {
		return fmt.Errorf("pipeline.max_concurrency must be positive, got %d", p.MaxConcurrency)
	}
	if p.StageAttempts <= 0 {
		return fmt.Errorf("pipeline.stage_attempts must be positive, got %d", p.StageAttempts)
	}
	if p.RetryBaseDelayMS <= 0 {
		return fmt.Errorf("pipeline.retry_base_delay_ms must be positive, got %d", p.RetryBaseDelayMS)
	}
	if p.StageTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.stage_timeout_seconds must be positive, got %d", p.StageTimeoutSeconds)
	}
	if p.StaleAfterMinutes <= 0 {
		return fmt.Errorf("pipeline.stale_after_minutes must be positive, got %d", p.StaleAfterMinutes)
	}
	if p.PageRangeSize <= 0 {
		return fmt.Errorf("pipeline.page_range_size must be positive, got %d", p.PageRangeSize)
	}
	if p.RangeWorkers <= 0 {
		return fmt.Errorf("pipeline.range_workers must be positive, got %d", p.RangeWorkers)
	}
	if p.SchemaName == "" {
		return fmt.Errorf("pipeline.schema_name is required")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.WorkflowID == "" {
		return nil
	}
	if c.Workflow.BaseURL == "" {
		return fmt.Errorf("workflow.base_url is required when workflow.workflow_id is set")
	}
	if c.Workflow.ActionName == "" {
		return fmt.Errorf("workflow.action_name is required when workflow.workflow_id is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	return nil
}
