package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func pollCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run a single poll cycle now",
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

			res, err := a.Poller.RunCycle(ctx, login)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintln(out, "No repositories have alerts enabled; nothing to poll.")
				return nil
			}

			fmt.Fprintf(out, "Fetched %d categories, %d new markers, %d failures.\n",
				res.Fetched, res.NewMarkers, len(res.FetchErrs))
			for _, e := range res.FetchErrs {
				fmt.Fprintf(out, "  %v\n", e)
			}
			if res.Badge.Count > 0 {
				fmt.Fprintf(out, "Badge: %s\n", res.Badge.Text)
			}
			return nil
		},
	}
}
