package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"canteen/config"
	"canteen/internal/adapter/repository"
	"canteen/utils/logger"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(false, cfg.LogLevel)

	pool, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{MaxConns: 2, MinConns: 1})
	if err != nil {
		return err
	}
	defer pool.Close()

	command := "up"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	log.InfoContext(ctx, "running migrations", "command", command)
	if err := repository.Migrate(ctx, pool, command, args...); err != nil {
		slog.ErrorContext(ctx, "migration failed", "error", err)
		return err
	}
	return nil
}
