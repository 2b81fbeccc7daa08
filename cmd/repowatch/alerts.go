package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/repowatch/internal/model"
)

func alertsCommand(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage which repository categories are watched",
	}

	cmd.AddCommand(
		alertsToggleCommand(cc, "enable", true),
		alertsToggleCommand(cc, "disable", false),
		alertsListCommand(cc),
	)
	return cmd
}

func alertsToggleCommand(cc *cliContext, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <owner/name> <category>...",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " categories for a repository",
		Long: "Categories: " + categoryNames() + ". " +
			"Changes take effect on the next poll cycle.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := parseRepo(args[0])
			if err != nil {
				return err
			}
			cats, err := parseCategories(args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			login, err := a.Login(ctx)
			if err != nil {
				return err
			}

			st, err := a.State.Load(ctx, login)
			if err != nil {
				return err
			}
			applyAlerts(st.Alerts, repo, cats, enabled)
			if err := a.State.SaveAlerts(ctx, login, st.Alerts); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", repo, describeEnabled(st.Alerts.Enabled(repo)))
			return nil
		},
	}
}

func alertsListCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List watched repositories and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			login, err := a.Login(ctx)
			if err != nil {
				return err
			}

			st, err := a.State.Load(ctx, login)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if st.Alerts.IsEmpty() {
				fmt.Fprintln(out, "No alerts configured.")
				return nil
			}
			for _, repo := range st.Alerts.Repositories() {
				fmt.Fprintf(out, "%s: %s\n", repo, describeEnabled(st.Alerts.Enabled(repo)))
			}
			return nil
		},
	}
}

func applyAlerts(alerts model.AlertConfig, repo string, cats []model.Category, enabled bool) {
	for _, c := range cats {
		alerts.Set(repo, c, enabled)
	}
}

func parseCategories(args []string) ([]model.Category, error) {
	cats := make([]model.Category, 0, len(args))
	for _, a := range args {
		c, err := model.ParseCategory(a)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, nil
}

func categoryNames() string {
	all := model.AllCategories()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func describeEnabled(cats []model.Category) string {
	if len(cats) == 0 {
		return "not watched"
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
