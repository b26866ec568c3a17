package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/vulntracker/internal/iocli"
	"github.com/iudanet/vulntracker/internal/server/app"
	"github.com/iudanet/vulntracker/internal/server/config"
)

// env окружение команд; в тестах подменяются потоки
type env struct {
	io        iocli.IO
	logOutput io.Writer
}

func newEnv() *env {
	return &env{io: iocli.NewStdio(), logOutput: os.Stderr}
}

func newRootCmd(e *env) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "vulntracker",
		Short:         "Security findings tracker server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(
		newServeCmd(e, &configPath),
		newTokensCmd(e, &configPath),
		newUserCmd(e, &configPath),
		newVersionCmd(e),
	)

	return root
}

// openApp загружает конфигурацию и собирает приложение
func openApp(ctx context.Context, e *env, configPath string) (*app.App, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := app.NewLogger(e.logOutput, cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(ctx, cfg, logger, Version)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			e.io.Printf("VulnTracker Server\n")
			e.io.Printf("Version:    %s\n", Version)
			e.io.Printf("Build Date: %s\n", BuildDate)
			e.io.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

func newServeCmd(e *env, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := openApp(cmd.Context(), e, *configPath)
			if err != nil {
				return err
			}

			logger.Info("VulnTracker server starting",
				slog.String("version", Version),
				slog.String("commit", GitCommit))

			if err := a.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		},
	}
}
