package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/orchestrator"
)

// Daemon runs the orchestrator as a background service and enforces
// single-instance execution with a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	orch   *orchestrator.Orchestrator

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// DefaultLockPath returns the lock file location the daemon uses for the
// given configuration.
func DefaultLockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "loomd.lock")
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || orch == nil {
		return nil, errors.New("daemon requires config and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := DefaultLockPath(cfg)
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		orch:     orch,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the worker loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another loomd instance holds %s", d.lockPath)
	}

	if err := d.orch.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock_file", d.lockPath))
	return nil
}

// Stop shuts the orchestrator down and releases the instance lock. Safe to
// call on every exit path.
func (d *Daemon) Stop() error {
	if !d.running.Swap(false) {
		return nil
	}
	err := d.orch.Shutdown()
	if unlockErr := d.lock.Unlock(); unlockErr != nil && err == nil {
		err = fmt.Errorf("release lock: %w", unlockErr)
	}
	d.logger.Info("daemon stopped")
	return err
}

// LockPath returns the daemon's single-instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
