package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	causeKicked bool
	causeReason string
)

func init() {
	causeCmd.Flags().BoolVar(&causeKicked, "kicked", false, "The member was kicked instead of leaving.")
	causeCmd.Flags().StringVar(&causeReason, "reason", "", "Free text reason.")
	rootCmd.AddCommand(causeCmd, resumeCmd, verifyCmd, settingCmd)
}

var causeCmd = &cobra.Command{
	Use:   "cause <period nr> [--kicked] [--reason <text>]",
	Short: "Records why a closed membership period ended.",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		nr, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid period nr %q: %w", args[0], err)
		}
		svc, err := a.history()
		if err != nil {
			return err
		}
		return svc.SetCause(cmd.Context(), nr, causeKicked, causeReason)
	}),
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Checks the stored history of a clan for invariant violations.",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		w, err := a.writer()
		if err != nil {
			return err
		}
		reason, halted, err := w.Halted(cmd.Context())
		if err != nil {
			return err
		}
		if halted {
			fmt.Fprintf(cmd.OutOrStdout(), "clan %d is halted: %s\n", w.Clan(), reason)
		}
		err = w.Verify(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "clan %d: history ok\n", w.Clan())
		return nil
	}),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Allows automatic writes again after the history of a halted clan was corrected.",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		w, err := a.writer()
		if err != nil {
			return err
		}
		err = w.Resume(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "clan %d resumed\n", w.Clan())
		return nil
	}),
}

var settingCmd = &cobra.Command{
	Use:   "setting <key> [value]",
	Short: "Reads a setting, or writes it when a value is given.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		svc, err := a.history()
		if err != nil {
			return err
		}
		if len(args) == 2 {
			return svc.SetSetting(cmd.Context(), args[0], args[1])
		}
		value, err := svc.Setting(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	}),
}
