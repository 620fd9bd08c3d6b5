package commands

import (
	"fmt"

	"clantool/internal/reconcile"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var crawlAll bool

func init() {
	crawlCmd.Flags().BoolVar(&crawlAll, "all", false, "Crawl every configured clan instead of --clan.")
	rootCmd.AddCommand(crawlCmd)
}

func printResults(cmd *cobra.Command, results []reconcile.Result) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"Clan", "Observed", "Joins", "Leaves", "Members", "Skipped"})
	for _, res := range results {
		t.AppendRow(table.Row{
			res.Clan,
			res.ObservedAt.Format("2006-01-02 15:04"),
			res.Count(reconcile.EventJoin),
			res.Count(reconcile.EventLeave),
			res.Count(reconcile.EventJoin) + res.Count(reconcile.EventContinue),
			res.Skipped,
		})
	}
	t.Render()
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--all]",
	Short: "Fetches the current roster once and records the changes.",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if crawlAll {
			results, err := a.crawler.CrawlAll(cmd.Context())
			printResults(cmd, results)
			return err
		}

		id, _, err := a.clan()
		if err != nil {
			return err
		}
		res, err := a.crawler.Crawl(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("crawl: %w", err)
		}
		printResults(cmd, []reconcile.Result{res})
		return nil
	}),
}
