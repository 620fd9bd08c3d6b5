package commands

import (
	"fmt"
	"os"

	"clantool/internal/extract"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	parseCmd.AddCommand(parseRosterCmd, parseProfileCmd, parseClanCmd)
	rootCmd.AddCommand(parseCmd, lookupCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parses saved payloads offline, useful when the upstream format changes.",
}

var parseRosterCmd = &cobra.Command{
	Use:   "roster <file>",
	Short: "Parses a roster JSON payload.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		members, total, err := extract.ParseRoster(raw)
		if err != nil {
			return err
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"ID", "Name", "Exp", "Contribution"})
		for _, m := range members {
			t.AppendRow(table.Row{m.ID, m.Name, m.Exp, m.Contribution})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d members", len(members)), fmt.Sprintf("total count %d", total), ""})
		t.Render()
		return nil
	},
}

var parseProfileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Parses a profile JSON payload.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		name, ok, err := extract.ParseProfileName(raw)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "account does not exist")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var parseClanCmd = &cobra.Command{
	Use:   "clan <file>",
	Short: "Parses a clan page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		stats, err := extract.ParseClanStats(raw)
		if err != nil {
			return err
		}
		t := newTable(cmd)
		t.AppendHeader(table.Row{"Members", "Wins", "Losses", "Draws"})
		t.AppendRow(table.Row{stats.Members, stats.Wins, stats.Losses, stats.Draws})
		t.Render()
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <member id>",
	Short: "Resolves the current name of an account.",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		name, ok, err := a.crawler.LookupName(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("account %d does not exist", id)
		}
		svc, err := a.history()
		if err != nil {
			return err
		}
		err = svc.RecordName(cmd.Context(), id, name)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	}),
}
