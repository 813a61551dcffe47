package main

import (
	"github.com/spf13/cobra"

	"github.com/ErzenXz/huly-selfhost/internal/ui"
	"github.com/ErzenXz/huly-selfhost/internal/updater"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the recorded source has upstream changes",
	Long: `Check compares the checkout of the last source build with its upstream.

Exit status:
  0   up to date
  2   no build snapshot
  3   snapshot unreadable, or the source is a local path
  4   the recorded checkout is missing
  10  an update is available`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		status, err := updater.Check(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		printer.Info("current  %s", ui.IDString("%s", status.Current.Short()))
		printer.Info("upstream %s", ui.IDString("%s", status.Target.Short()))
		if status.UpToDate() {
			printer.Success("up to date")
			return nil
		}
		printer.Warn("update available; run hulyctl update")
		return &updater.ExitError{Code: status.ExitCode()}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
