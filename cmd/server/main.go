// Package main implements the entry point for the TeamTask API server,
// which manages team tasks and delivers notifications over WebSocket and
// email.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/teamtask-api/internal/config"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/platform/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("server exited with error: %v", err)
		os.Exit(1)
	}
}

// run loads configuration, connects to the database, applies pending
// migrations and serves until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"email_enabled", cfg.Email.Enabled)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	l.Info("Database connection established")

	if err := postgres.Migrate(ctx, db, "up", l); err != nil {
		_ = db.Close()
		return err
	}

	app, err := newApplication(ctx, cfg, l, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
