package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ErzenXz/huly-selfhost/internal/updater"
)

var forceUpdate bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Rebuild from the recorded source and restart the services",
	Long: `Update re-runs the source build with the parameters of the last build, then
restarts the compose project. Only one update runs at a time; --force removes
a stale lock left by an interrupted run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, registry, err := loadConfig()
		if err != nil {
			return err
		}
		p, runner, err := newPipeline(cfg, registry)
		if err != nil {
			return err
		}

		report, err := updater.New(cfg, p, runner, printer).Update(cmd.Context(), forceUpdate)
		if report != nil {
			report.Print(os.Stdout)
		}
		if err != nil {
			return err
		}
		printer.Success("update complete")
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&forceUpdate, "force", false, "remove an existing update lock first")
	rootCmd.AddCommand(updateCmd)
}
