package commands

import (
	"context"

	"clantool/internal/components/chrono"
	"clantool/internal/components/telemetry"

	"github.com/spf13/cobra"
)

const (
	report_crawl_all = "daemon.crawl-all"
	report_otel      = "daemon.otel"
)

func init() {
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Crawls every configured clan on the configured schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()

		otel, err := telemetry.Setup(ctx, "clantool", a.cfg.Telemetry)
		if err != nil {
			return err
		}
		defer func() {
			err := otel.Shutdown(context.Background())
			if err != nil {
				a.tel.ReportWarning(report_otel, err)
			}
		}()
		telemetry.InstrumentPerfStats(ctx, a.tel)

		for _, clan := range a.reconciler.Clans() {
			w, _ := a.reconciler.Writer(clan)
			reason, halted, err := w.Halted(ctx)
			if err != nil {
				return err
			}
			if halted {
				a.tel.ReportWarning(report_crawl_all, clan, "halted", reason)
			}
		}

		cron := chrono.NewStandardCron(a.time, a.tel)
		defer cron.Stop()

		err = cron.Cron(a.cfg.Schedule, func() {
			results, err := a.crawler.CrawlAll(ctx)
			if err != nil {
				a.tel.ReportBroken(report_crawl_all, err)
			}
			a.tel.ReportCount(report_crawl_all, int64(len(results)))
		})
		if err != nil {
			return err
		}

		a.tel.ReportDebug("daemon started", telemetry.KV{Key: "schedule", Value: a.cfg.Schedule})
		<-ctx.Done()
		return nil
	}),
}
