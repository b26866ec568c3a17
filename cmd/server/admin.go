package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/vulntracker/internal/validation"
)

func newTokensCmd(e *env, configPath *string) *cobra.Command {
	tokens := &cobra.Command{
		Use:   "tokens",
		Short: "Manage refresh tokens",
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired refresh tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := openApp(cmd.Context(), e, *configPath)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)

			count, err := a.Sessions().PurgeExpired(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to purge tokens: %w", err)
			}
			e.io.Printf("Purged %d expired token(s)\n", count)
			return nil
		},
	}

	var userID string
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke all refresh tokens of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}

			a, logger, err := openApp(cmd.Context(), e, *configPath)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)

			count, err := a.Sessions().LogoutAll(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to revoke tokens: %w", err)
			}
			e.io.Printf("Revoked %d token(s) for user %s\n", count, userID)
			return nil
		},
	}
	revoke.Flags().StringVar(&userID, "user", "", "user ID")

	tokens.AddCommand(purge, revoke)
	return tokens
}

func newUserCmd(e *env, configPath *string) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = e.io.ReadInput("Email: "); err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
			}
			if err := validation.ValidateEmail(email); err != nil {
				return fmt.Errorf("invalid email: %w", err)
			}

			password, err := e.io.ReadPassword("Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if err := validation.ValidatePassword(password); err != nil {
				return fmt.Errorf("invalid password: %w", err)
			}
			confirm, err := e.io.ReadPassword("Confirm password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if confirm != password {
				return errors.New("passwords do not match")
			}

			a, logger, err := openApp(cmd.Context(), e, *configPath)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)

			u, err := a.Sessions().Register(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			e.io.Printf("Created user %s (%s)\n", u.ID, u.Email)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "user email")

	user.AddCommand(create)
	return user
}

type closer interface {
	Close() error
}

func closeApp(a closer, logger *slog.Logger) {
	if err := a.Close(); err != nil {
		logger.Error("Failed to close storage", slog.Any("error", err))
	}
}
