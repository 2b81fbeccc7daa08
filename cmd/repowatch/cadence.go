package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/repowatch/internal/model"
)

func cadenceCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cadence <minutes>",
		Short: "Set the poll interval",
		Long: "Persist a new poll interval. A running `repowatch run` applies it " +
			"after receiving SIGHUP; the next cycle starts one full interval later.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := parseCadence(args[0])
			if err != nil {
				return err
			}

			cc.cfg.Poll.IntervalMin = minutes
			if err := model.SaveConfig(cc.configPath, cc.cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Poll interval set to %d minutes.\n", minutes)
			return nil
		},
	}
}

func parseCadence(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("cadence must be a whole number of minutes >= 1, got %q", s)
	}
	return n, nil
}
