package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/notify"
	"github.com/nhle/repowatch/internal/theme"
)

func statusCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show unacknowledged notifications",
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

			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(login, st.Alerts, st.Notifications))
			return nil
		},
	}
}

// renderStatus formats the notification backlog of login.
func renderStatus(login string, alerts model.AlertConfig, notifs model.Notifications) string {
	badge := notify.BadgeFor(notify.Summarize(notifs))

	header := theme.HeaderStyle.Render("repowatch · " + login)
	if badge.Count > 0 {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, " ", theme.BadgeStyle(badge.Color).Render(badge.Text))
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")

	if alerts.IsEmpty() {
		b.WriteString(theme.HelpStyle.Render("No alerts configured. Try: repowatch alerts enable owner/name issues"))
		b.WriteString("\n")
	}

	if len(notifs) == 0 {
		b.WriteString(theme.HelpStyle.Render("Nothing new."))
		return b.String()
	}

	repos := make([]string, 0, len(notifs))
	for repo := range notifs {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	var body strings.Builder
	for i, repo := range repos {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(theme.RepoStyle.Render(repo))
		for _, c := range model.AllCategories() {
			ids, ok := notifs[repo][c]
			if !ok || len(ids) == 0 {
				continue
			}
			body.WriteString("\n")
			body.WriteString(theme.CategoryStyle(c).Render(fmt.Sprintf("%s (%d): %s", c.Label(), len(ids), joinIDs(ids))))
		}
	}

	b.WriteString(theme.PanelStyle.Render(body.String()))
	return b.String()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "#" + strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " ")
}
