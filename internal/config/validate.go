package config

import (
	"errors"
	"fmt"

	"loom/internal/jobs"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.WorkerConcurrency <= 0 {
		return errors.New("workflow.worker_concurrency must be positive")
	}
	if c.Workflow.StageTimeout <= 0 {
		return errors.New("workflow.stage_timeout must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("retry.max_attempts must be positive")
	}
	if c.Retry.BackoffBase <= 0 {
		return errors.New("retry.backoff_base_seconds must be positive")
	}
	if c.Retry.BackoffMaxWait < c.Retry.BackoffBase {
		return errors.New("retry.backoff_max_seconds must be at least retry.backoff_base_seconds")
	}
	return nil
}

func (c *Config) validateStages() error {
	for stage := range c.Stages.Commands {
		if _, ok := jobs.ParseType(stage); !ok {
			return fmt.Errorf("stages.commands: unknown stage %q", stage)
		}
	}
	return nil
}
