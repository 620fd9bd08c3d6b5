package commands

import (
	"fmt"

	"clantool/internal/components/db"
	"clantool/internal/reconcile"

	"github.com/spf13/cobra"
)

var trialDate string

func init() {
	trialCmd.PersistentFlags().StringVar(&trialDate, "date", "", "Day of the change (yyyy-mm-dd), defaults to today.")
	trialCmd.AddCommand(trialStartCmd, trialEndCmd)
	rootCmd.AddCommand(trialCmd)
}

var trialCmd = &cobra.Command{
	Use:   "trial",
	Short: "Records the start and end of trial periods, the roster does not show them.",
}

func runTrial(kind reconcile.EventKind, verb string) func(*cobra.Command, []string) error {
	return withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		day := db.FormatDate(a.time.Now())
		if trialDate != "" {
			day = trialDate
		}
		date, err := db.ParseDate(day)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", day, err)
		}

		w, err := a.writer()
		if err != nil {
			return err
		}
		err = w.ApplyEvents(cmd.Context(), []reconcile.Event{{Kind: kind, ID: id, Date: date}})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "trial of member %d %s on %s\n", id, verb, day)
		return nil
	})
}

var trialStartCmd = &cobra.Command{
	Use:   "start <member id> [--date <yyyy-mm-dd>]",
	Short: "Opens a trial period for a member.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrial(reconcile.EventTrialStart, "started"),
}

var trialEndCmd = &cobra.Command{
	Use:   "end <member id> [--date <yyyy-mm-dd>]",
	Short: "Closes the open trial period of a member.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrial(reconcile.EventTrialEnd, "ended"),
}
