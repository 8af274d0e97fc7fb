package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(run backendRunner) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [" + strings.Join(postgres.MigrationCommands, "|") + "]",
		Short:     "Run database migrations",
		Long:      "Apply, roll back or inspect the embedded schema migrations. Defaults to up.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: run(func(cmd *cobra.Command, args []string, b *backend) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			if err := b.migrate(cmd.Context(), command); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", command)
			return nil
		}),
	}
}

func newUserCommand(run backendRunner) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var (
		name string
		role string
	)
	createCmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, b *backend) error {
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			user, err := b.users.CreateUser(cmd.Context(), name, args[0], parsed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s, %s)\n", user.ID, user.Email, user.Role)
			return nil
		}),
	}
	createCmd.Flags().StringVar(&name, "name", "", "full name of the user")
	createCmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "role: user, manager or admin")
	_ = createCmd.MarkFlagRequired("name")

	deleteCmd := &cobra.Command{
		Use:   "delete <user-id|email>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, b *backend) error {
			user, err := lookupUser(cmd, b, args[0])
			if err != nil {
				return err
			}
			if err := b.users.DeleteUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", user.ID)
			return nil
		}),
	}

	userCmd.AddCommand(createCmd, deleteCmd)
	return userCmd
}

func newTokenCommand(run backendRunner) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	mintCmd := &cobra.Command{
		Use:   "mint <user-id|email>",
		Short: "Mint an access token for an existing user",
		Long:  "Mint prints a bearer token carrying the user's current role.",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, b *backend) error {
			user, err := lookupUser(cmd, b, args[0])
			if err != nil {
				return err
			}
			token, err := b.jwt.GenerateToken(cmd.Context(), user.ID, user.Role)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		}),
	}

	tokenCmd.AddCommand(mintCmd)
	return tokenCmd
}

// lookupUser resolves ref as a user ID, or as an email when it does not parse.
func lookupUser(cmd *cobra.Command, b *backend, ref string) (*domain.User, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return b.users.GetUser(cmd.Context(), id)
	}
	return b.users.GetUserByEmail(cmd.Context(), ref)
}
