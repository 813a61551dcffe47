package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ErzenXz/huly-selfhost/internal/orchestrator"
	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
)

var (
	fromSource bool
	redeploy   buildFlags
)

var redeployCmd = &cobra.Command{
	Use:   "redeploy",
	Short: "Bring the compose project up, optionally rebuilding from source first",
	Long: `Redeploy starts the compose project with the image overrides applied. With
--from-source it first runs a source build (all build flags apply) and then
recreates the services whose images were rebuilt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if !fromSource {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return orchestrator.NewCompose(cfg, toolrun.NewExec(os.Stdout, os.Stderr)).Up(ctx, false)
		}

		report, cfg, err := runBuild(ctx, &redeploy)
		if err != nil {
			return err
		}

		var built []overrides.Entry
		for _, b := range report.Built {
			built = append(built, overrides.Entry{Key: b.EnvKey, Value: b.Tag})
		}

		compose := orchestrator.NewCompose(cfg, toolrun.NewExec(os.Stdout, os.Stderr))
		using, err := compose.ServicesUsing(ctx, built)
		if err != nil {
			return err
		}
		var recreate []string
		for _, entry := range built {
			recreate = append(recreate, using[entry.Key]...)
		}

		printer.Step("Redeploying")
		if len(recreate) == 0 {
			return compose.Up(ctx, false)
		}
		return compose.Up(ctx, true, recreate...)
	},
}

func init() {
	redeployCmd.Flags().BoolVar(&fromSource, "from-source", false, "build images from source before redeploying")
	redeploy.register(redeployCmd)
	redeployCmd.MarkFlagsMutuallyExclusive("repo", "path")
	rootCmd.AddCommand(redeployCmd)
}
