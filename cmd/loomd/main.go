package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/logging"
	"loom/internal/orchestrator"
	"loom/internal/queue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	orch := orchestrator.New(cfg, store, logger)
	if err := registerProcessors(orch, cfg, logger); err != nil {
		logger.Error("register processors", logging.Error(err))
		_ = orch.Shutdown()
		return
	}

	d, err := daemon.New(cfg, orch, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = orch.Shutdown()
		return
	}
	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		_ = orch.Shutdown()
		return
	}

	<-ctx.Done()
	if err := d.Stop(); err != nil {
		logger.Error("daemon stop", logging.Error(err))
	}
	logger.Info("loomd shutting down")
}
