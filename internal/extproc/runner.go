package extproc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"loom/internal/queue"
	"loom/internal/retry"
	"loom/internal/services"
	"loom/internal/worker"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, command string, stdin []byte) ([]byte, error)
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithRetryOptions overrides the retry behaviour for external calls.
func WithRetryOptions(opts retry.Options) Option {
	return func(r *Runner) {
		r.retryOpts = opts
	}
}

// Runner adapts a configured external command into a worker processor. The
// job's payload envelope is written to the command's stdin; the command's
// stdout must be a JSON document and becomes the job result.
type Runner struct {
	command   string
	exec      Executor
	retryOpts retry.Options
}

// New constructs a runner for the given shell-free command line.
func New(command string, opts ...Option) (*Runner, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("external command required")
	}
	runner := &Runner{
		command:   command,
		exec:      commandExecutor{},
		retryOpts: retry.Options{Retryable: retry.IsRetryable},
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Processor returns the worker processor backed by this command.
func (r *Runner) Processor() worker.ProcessorFunc {
	return func(ctx context.Context, job *queue.Job) ([]byte, error) {
		stage := string(job.Type)
		result, err := retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
			return r.runOnce(ctx, job.Payload)
		}, r.retryOpts)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, stage, "run", r.command, err)
		}
		return result, nil
	}
}

func (r *Runner) runOnce(ctx context.Context, payload []byte) ([]byte, error) {
	output, err := r.exec.Run(ctx, r.command, payload)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: command output is not valid JSON", services.ErrValidation)
	}
	return trimmed, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, command string, stdin []byte) ([]byte, error) {
	parts := strings.Fields(command)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return nil, fmt.Errorf("run %q: %w", command, err)
		}
		return nil, fmt.Errorf("run %q: %s: %w", command, detail, err)
	}
	return stdout.Bytes(), nil
}
