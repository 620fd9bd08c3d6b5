package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	clanFlag   int32
)

var rootCmd = &cobra.Command{
	Use:           "clantool",
	Short:         "clantool tracks clan rosters and keeps the membership history of every member.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file, defaults to $CLANTOOL_CONFIG or config.json5.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().Int32Var(&clanFlag, "clan", 0, "Clan to operate on, defaults to the first configured one.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
