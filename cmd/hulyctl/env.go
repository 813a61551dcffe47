package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/filesystems"
	"github.com/ErzenXz/huly-selfhost/internal/orchestrator"
	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the active image overrides and the compose services using them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		entries, err := overrides.Read(cfg.OverrideFile)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("No image overrides in %s; every service uses its default image\n", cfg.OverrideFile)
			return nil
		}

		fmt.Printf("Image overrides from: %s\n\n", cfg.OverrideFile)
		using := composeServices(cmd, cfg, entries)

		table := &ui.Table{Headers: []string{"variable", "image", "compose services"}}
		for _, entry := range entries {
			names := strings.Join(using[entry.Key], ", ")
			if names == "" {
				names = ui.FaintString("-")
			}
			table.Append(entry.Key, entry.Value, names)
		}
		table.Print(os.Stdout)
		return nil
	},
}

// composeServices maps overrides to compose services when a compose file is
// present. Problems loading it are reported, not fatal.
func composeServices(cmd *cobra.Command, cfg config.Config, entries []overrides.Entry) map[string][]string {
	if !filesystems.IsFile(filesystems.NewLocalFS(), cfg.ComposeFile) {
		return nil
	}
	using, err := orchestrator.NewCompose(cfg, toolrun.NewExec(os.Stdout, os.Stderr)).ServicesUsing(cmd.Context(), entries)
	if err != nil {
		printer.Warn("%v", err)
		return nil
	}
	return using
}

func init() {
	rootCmd.AddCommand(envCmd)
}
