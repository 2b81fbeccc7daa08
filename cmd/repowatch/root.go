package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/repowatch/internal/app"
	"github.com/nhle/repowatch/internal/logging"
	"github.com/nhle/repowatch/internal/model"
)

// cliContext carries what the root command resolved for its subcommands.
type cliContext struct {
	configPath string
	cfg        *model.AppConfig
	logger     *slog.Logger
}

// open builds the application container from the loaded configuration.
func (c *cliContext) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.cfg, c.configPath, c.logger, app.Options{})
}

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	cc := &cliContext{}

	rootCmd := &cobra.Command{
		Use:           "repowatch",
		Short:         "Watch GitHub repositories for new issues, pull requests, runs and releases",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(cc.configPath)
			if err != nil {
				return err
			}
			cc.cfg = cfg
			cc.logger = logging.New(cfg.Log)
			slog.SetDefault(cc.logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cc.configPath, "config", model.DefaultConfigPath(), "Path to the configuration file")

	rootCmd.AddCommand(
		runCommand(cc),
		pollCommand(cc),
		statusCommand(cc),
		ackCommand(cc),
		cadenceCommand(cc),
		alertsCommand(cc),
		loginCommand(cc),
	)

	return rootCmd
}

// parseRepo validates an "owner/name" repository full name.
func parseRepo(s string) (string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("repository must be owner/name, got %q", s)
	}
	return owner + "/" + name, nil
}
