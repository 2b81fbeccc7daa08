package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/repowatch/internal/model"
)

func ackCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <owner/name> <category>",
		Short: "Acknowledge every notification of one repository category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := parseRepo(args[0])
			if err != nil {
				return err
			}
			c, err := model.ParseCategory(args[1])
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

			badge, err := a.Poller.ClearCategory(ctx, login, repo, c)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if badge.Count == 0 {
				fmt.Fprintln(out, "All caught up.")
			} else {
				fmt.Fprintf(out, "Cleared %s for %s; %s remaining.\n", c, repo, badge.Text)
			}
			return nil
		},
	}
}
