package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/repowatch/internal/credential"
	"github.com/nhle/repowatch/internal/source/github"
)

func loginCommand(cc *cliContext) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a GitHub token in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().
							Title("GitHub token").
							Description("A personal access token with repo read access").
							EchoMode(huh.EchoModePassword).
							Value(&token).
							Validate(validateRequired("Token")),
					),
				)
				if err := form.Run(); err != nil {
					return fmt.Errorf("reading token: %w", err)
				}
			}
			token = strings.TrimSpace(token)

			ctx := cmd.Context()
			login, err := github.NewAdapter(cc.cfg.GitHub.BaseURL, token).Login(ctx)
			if err != nil {
				return err
			}

			if err := credential.Set(credential.TokenKey, token); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", login)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token to store instead of prompting")
	return cmd
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
