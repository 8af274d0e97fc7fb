package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/teamtask-api/internal/config"
	"github.com/phrazzld/teamtask-api/internal/events"
	"github.com/phrazzld/teamtask-api/internal/platform/mailer"
	"github.com/phrazzld/teamtask-api/internal/platform/postgres"
	"github.com/phrazzld/teamtask-api/internal/realtime"
	"github.com/phrazzld/teamtask-api/internal/redact"
	"github.com/phrazzld/teamtask-api/internal/service"
	"github.com/phrazzld/teamtask-api/internal/service/auth"
	"github.com/phrazzld/teamtask-api/internal/store"
	"github.com/phrazzld/teamtask-api/internal/worker"
)

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore         store.UserStore
	taskStore         store.TaskStore
	teamStore         store.TeamStore
	notificationStore store.NotificationStore

	jwtService          auth.JWTService
	taskService         service.TaskService
	teamService         service.TeamService
	notificationService service.NotificationService

	eventEmitter *events.InMemoryEventEmitter
	hub          *realtime.Hub
	pool         *worker.Pool
	mailer       mailer.Sender
}

// newApplication creates the application with every dependency initialized
// and the delivery pool started. db must already be connected and migrated.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.teamStore = postgres.NewPostgresTeamStore(db, logger)
	app.notificationStore = postgres.NewPostgresNotificationStore(db, logger)
	txRunner := postgres.NewTxRunner(db, cfg.Database.TxRetries, logger)

	app.hub = realtime.NewHub(logger)

	app.pool = worker.NewPool(worker.ConfigFrom(cfg.Delivery), logger)
	app.pool.SetErrorHandler(func(job worker.Job, err error) {
		logger.Warn("notification delivery failed", slog.String("job", job.Name()), redact.ErrorAttr(err))
	})
	app.pool.Start()

	app.mailer, err = setupMailer(cfg.Email, logger)
	if err != nil {
		app.cleanup(ctx)
		return nil, err
	}

	app.notificationService, err = service.NewNotificationService(service.NotificationDeps{
		Notifications: app.notificationStore,
		Users:         app.userStore,
		Realtime:      app.hub,
		Email:         app.mailer,
		Jobs:          app.pool,
	}, logger)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to create notification service: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(service.NewNotificationEventHandler(app.notificationService, logger))

	app.taskService, err = service.NewTaskService(app.taskStore, app.userStore, app.eventEmitter, logger)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.teamService, err = service.NewTeamService(txRunner, app.teamStore, app.userStore, logger)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to create team service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupMailer returns the SMTP sender when email is enabled. Otherwise
// messages are only logged.
func setupMailer(cfg config.EmailConfig, logger *slog.Logger) (mailer.Sender, error) {
	if !cfg.Enabled {
		logger.Info("email delivery disabled, messages will be logged")
		return mailer.NewLogSender(logger), nil
	}
	sender, err := mailer.NewSMTPSender(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SMTP sender: %w", err)
	}
	logger.Info("SMTP email delivery enabled", "host", cfg.Host, "port", cfg.Port)
	return sender, nil
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases resources in reverse order of creation. Queued deliveries
// are drained before connections are closed.
func (app *application) cleanup(ctx context.Context) {
	if app.pool != nil {
		if err := app.pool.Stop(ctx); err != nil {
			app.logger.Error("Error stopping delivery pool", "error", err)
		}
	}

	if app.hub != nil {
		if err := app.hub.Close(); err != nil {
			app.logger.Warn("Error closing websocket connections", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
}
