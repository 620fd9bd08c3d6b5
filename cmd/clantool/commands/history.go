package commands

import (
	"fmt"
	"strconv"

	"clantool/internal/components/db"
	"clantool/internal/history"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	logLimit    int
	searchLimit int
)

func init() {
	logsCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of entries to show.")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Number of matches to show.")
	rootCmd.AddCommand(historyCmd, changesCmd, membersCmd, logsCmd, searchCmd)
}

func parseID(arg string) (int32, error) {
	id, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid member id %q: %w", arg, err)
	}
	return int32(id), nil
}

func formatOptional(date *string) string {
	if date == nil {
		return "-"
	}
	return *date
}

func describeCause(p history.Period) string {
	if p.To == nil {
		return ""
	}
	if p.Cause == nil {
		return "pending"
	}
	if p.Cause.Kicked {
		return "kicked: " + p.Cause.Reason
	}
	return "left: " + p.Cause.Reason
}

func printPeriods(cmd *cobra.Command, periods []history.Period) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"Nr", "Member", "Name", "From", "To", "Cause"})
	for _, p := range periods {
		var to *string
		if p.To != nil {
			formatted := db.FormatDate(*p.To)
			to = &formatted
		}
		t.AppendRow(table.Row{
			p.Nr,
			p.ID,
			p.Name,
			db.FormatDate(p.From),
			formatOptional(to),
			describeCause(p),
		})
	}
	t.Render()
}

var historyCmd = &cobra.Command{
	Use:   "history <member id>",
	Short: "Shows the membership and trial periods of a member.",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		svc, err := a.history()
		if err != nil {
			return err
		}

		periods, err := svc.Memberships(cmd.Context(), id)
		if err != nil {
			return err
		}
		printPeriods(cmd, periods)

		trials, err := svc.Trials(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(trials) == 0 {
			return nil
		}
		t := newTable(cmd)
		t.AppendHeader(table.Row{"Trial from", "Trial to"})
		for _, trial := range trials {
			to := "-"
			if trial.To != nil {
				to = db.FormatDate(*trial.To)
			}
			t.AppendRow(table.Row{db.FormatDate(trial.From), to})
		}
		t.Render()
		return nil
	}),
}

var changesCmd = &cobra.Command{
	Use:   "changes <yyyy-mm-dd>",
	Short: "Shows the joins and leaves since a date.",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		since, err := db.ParseDate(args[0])
		if err != nil {
			return err
		}
		svc, err := a.history()
		if err != nil {
			return err
		}
		periods, err := svc.Changes(cmd.Context(), since)
		if err != nil {
			return err
		}
		printPeriods(cmd, periods)
		return nil
	}),
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Shows the current members.",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		svc, err := a.history()
		if err != nil {
			return err
		}
		periods, err := svc.Open(cmd.Context())
		if err != nil {
			return err
		}
		printPeriods(cmd, periods)
		return nil
	}),
}

var logsCmd = &cobra.Command{
	Use:   "logs [-n <limit>]",
	Short: "Shows the newest entries of the history audit log.",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		svc, err := a.history()
		if err != nil {
			return err
		}
		logs, err := svc.Logs(cmd.Context(), logLimit)
		if err != nil {
			return err
		}
		t := newTable(cmd)
		t.AppendHeader(table.Row{"Date", "Message"})
		for _, l := range logs {
			t.AppendRow(table.Row{l.Date, l.Msg})
		}
		t.Render()
		return nil
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Finds members by any name they were seen with.",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		svc, err := a.history()
		if err != nil {
			return err
		}
		matches, err := svc.Search(cmd.Context(), args[0], searchLimit)
		if err != nil {
			return err
		}
		t := newTable(cmd)
		t.AppendHeader(table.Row{"Member", "Name", "Last seen", "Similarity"})
		for _, m := range matches {
			t.AppendRow(table.Row{m.ID, m.Name, m.LastSeen, fmt.Sprintf("%.2f", m.Similarity)})
		}
		t.Render()
		return nil
	}),
}
