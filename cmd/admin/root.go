package main

import (
	"context"
	"fmt"

	"github.com/phrazzld/teamtask-api/internal/config"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/platform/postgres"
	"github.com/phrazzld/teamtask-api/internal/service"
	"github.com/phrazzld/teamtask-api/internal/service/auth"
	"github.com/spf13/cobra"
)

// backend is what the subcommands operate on.
type backend struct {
	users   service.UserService
	jwt     auth.JWTService
	migrate func(ctx context.Context, command string) error
	close   func() error
}

// opener builds a backend from the config file at path, or from the
// environment when path is empty.
type opener func(ctx context.Context, path string) (*backend, error)

// backendRunner wraps a subcommand body so it runs against an opened backend.
type backendRunner func(fn func(cmd *cobra.Command, args []string, b *backend) error) func(*cobra.Command, []string) error

// openPostgres is the production opener.
func openPostgres(ctx context.Context, path string) (*backend, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	tx := postgres.NewTxRunner(db, cfg.Database.TxRetries, log)
	return &backend{
		users: service.NewUserService(postgres.NewPostgresUserStore(db, log), tx, log),
		jwt:   jwtService,
		migrate: func(ctx context.Context, command string) error {
			return postgres.Migrate(ctx, db, command, log)
		},
		close: db.Close,
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newRootCommand assembles the command tree. Every subcommand opens the
// backend through open and closes it when done.
func newRootCommand(open opener) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "teamtask-admin",
		Short:         "Operator tooling for the TeamTask API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a YAML config file (defaults to "+config.ConfigFileEnv+" and the environment)")

	var withBackend backendRunner = func(fn func(*cobra.Command, []string, *backend) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			b, err := open(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := b.close(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: failed to close database:", err)
				}
			}()
			return fn(cmd, args, b)
		}
	}

	root.AddCommand(
		newMigrateCommand(withBackend),
		newUserCommand(withBackend),
		newTokenCommand(withBackend),
	)
	return root
}
