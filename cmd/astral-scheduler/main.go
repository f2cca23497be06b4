package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/app/scheduler"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/config"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env, os.Stdout)

	log.Info("starting notification scheduler", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := scheduler.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("scheduler stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("scheduler stopped gracefully")
}
