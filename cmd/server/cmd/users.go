package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
	"github.com/Togather-Foundation/gatherings/internal/validation"
)

const commandTimeout = 30 * time.Second

func newUsersCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var input users.RegisterInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Create a user account directly in the configured store.

The password may be given with --password or the GATHERINGS_PASSWORD
environment variable.

Examples:
  server users create --username alice --email alice@example.com --password 'correct horse'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input.Password == "" {
				input.Password = os.Getenv("GATHERINGS_PASSWORD")
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			repo, closeRepo, err := openRepository(ctx, cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			defer closeRepo()

			user, err := users.NewService(repo.Users(), zerolog.Nop()).Register(ctx, input)
			if err != nil {
				return describeUserError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&input.Username, "username", "", "username (required)")
	create.Flags().StringVar(&input.Password, "password", "", "password (min 8 characters)")
	create.Flags().StringVar(&input.Email, "email", "", "email address")
	create.Flags().StringVar(&input.FullName, "full-name", "", "display name")
	_ = create.MarkFlagRequired("username")
	cmd.AddCommand(create)

	return cmd
}

func newTokenCommand(root *rootOptions) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an existing user",
		Long: `Issue a signed access token for an existing user without a password,
for local testing and operations.

Examples:
  TOKEN=$(server token --username alice)
  curl -H "Authorization: Bearer $TOKEN" localhost:8080/api/v1/users/me`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			repo, closeRepo, err := openRepository(ctx, cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			defer closeRepo()

			user, err := users.NewService(repo.Users(), zerolog.Nop()).GetByUsername(ctx, username)
			if err != nil {
				return describeUserError(err)
			}
			token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer).Generate(user.ID, user.Username)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func describeUserError(err error) error {
	var verr *validation.Error
	switch {
	case errors.Is(err, users.ErrNotFound):
		return fmt.Errorf("no such user")
	case errors.As(err, &verr):
		return fmt.Errorf("invalid input: %w", err)
	default:
		return err
	}
}
