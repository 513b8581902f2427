package main

import (
	"fmt"
	"log/slog"

	"loom/internal/config"
	"loom/internal/extproc"
	"loom/internal/jobs"
	"loom/internal/logging"
	"loom/internal/worker"
)

type processorRegistrar interface {
	Register(jobs.Type, worker.ProcessorFunc) error
}

// registerProcessors binds one external-command runner per configured stage.
// Review jobs never get a processor; they wait for a human decision.
func registerProcessors(reg processorRegistrar, cfg *config.Config, logger *slog.Logger) error {
	if reg == nil || cfg == nil {
		return fmt.Errorf("registrar and config are required")
	}

	registered := 0
	for _, jobType := range jobs.AllTypes() {
		if jobType == jobs.TypeReview {
			continue
		}
		command, ok := cfg.StageCommand(string(jobType))
		if !ok {
			continue
		}
		runner, err := extproc.New(command)
		if err != nil {
			return fmt.Errorf("stage %s: %w", jobType, err)
		}
		if err := reg.Register(jobType, runner.Processor()); err != nil {
			return fmt.Errorf("stage %s: %w", jobType, err)
		}
		registered++
		if logger != nil {
			logger.Debug("stage processor registered",
				logging.String(logging.FieldJobType, string(jobType)),
				logging.String("command", command),
			)
		}
	}
	if registered == 0 {
		return fmt.Errorf("no stage commands configured; nothing to process")
	}
	return nil
}
