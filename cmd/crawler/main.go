package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vision-crawler/internal/di"
	"vision-crawler/internal/infrastructure/env"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "\nERROR: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envService := env.NewEnvService()

	cfg, err := di.LoadConfig(envService)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer container.Close()

	container.Logger.Info("Session started",
		"app_env", envService.AppEnv(),
		"env_files", envService.LoadedFiles(),
		"headless", cfg.Browser.Headless,
		"metrics_addr", cfg.MetricsAddr,
	)

	go func() {
		if err := container.ServeMetrics(ctx); err != nil {
			container.Logger.Error("Metrics listener failed", "error", err)
		}
	}()

	if err := container.Session.Run(ctx); err != nil {
		container.Logger.Error("Session failed", "error", err)
		return err
	}

	container.Logger.Info("Session finished")
	return nil
}
