package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/discovery"
	"github.com/ErzenXz/huly-selfhost/internal/filesystems"
	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/recipe"
	"github.com/ErzenXz/huly-selfhost/internal/services"
	"github.com/ErzenXz/huly-selfhost/internal/state"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [source-path]",
	Short: "Show where each service would be built from, without building",
	Long: `Discover locates every service's build context in a platform source tree and
shows what its recipe requires and which image override is currently active.
Without a path, the tree of the last build is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, registry, err := loadConfig()
		if err != nil {
			return err
		}

		sourcePath := ""
		if len(args) > 0 {
			sourcePath = args[0]
		}
		sourcePath, err = discoverRoot(cfg, sourcePath)
		if err != nil {
			return err
		}

		fmt.Printf("Discovering services in: %s\n", sourcePath)
		return runServiceDiscovery(cfg, registry, sourcePath)
	},
}

// discoverRoot picks the tree to inspect: the argument, the snapshot's
// source, or the managed clone.
func discoverRoot(cfg config.Config, arg string) (string, error) {
	if arg != "" {
		// a file path means its directory
		if stat, err := os.Stat(arg); err == nil && !stat.IsDir() {
			arg = filepath.Dir(arg)
		}
		return filepath.Abs(arg)
	}
	snapshot, err := state.Load(cfg.StateFile)
	if err == nil && snapshot.PlatformDir != "" {
		return snapshot.PlatformDir, nil
	}
	if err != nil && !errors.Is(err, state.ErrNoSnapshot) {
		return "", err
	}
	return cfg.SourceDir, nil
}

func runServiceDiscovery(cfg config.Config, registry *services.Registry, root string) error {
	if !filesystems.IsDir(filesystems.NewLocalFS(), root) {
		return fmt.Errorf("source tree %s does not exist", root)
	}
	entries, err := overrides.Read(cfg.OverrideFile)
	if err != nil {
		return err
	}

	locator := discovery.NewLocator(filesystems.NewLocalFS(), root)
	table := &ui.Table{Headers: []string{"service", "context", "found by", "requires", "override"}}
	found := 0
	for _, spec := range registry.All() {
		override, ok := overrides.Lookup(entries, spec.EnvKey)
		if !ok {
			override = ui.FaintString("default")
		}

		loc, err := locator.Locate(spec)
		if err != nil {
			table.Append(spec.Name, ui.WarningString("not found"), "-", "-", override)
			continue
		}
		found++

		requires := "?"
		if r, err := recipe.ParseFile(loc.Recipe); err == nil {
			requires = r.Requirements().String()
		}
		rel, err := filepath.Rel(root, loc.Dir)
		if err != nil {
			rel = loc.Dir
		}
		table.Append(spec.Name, rel, string(loc.Method), requires, override)
	}

	fmt.Printf("Located %d of %d services:\n", found, len(registry.All()))
	table.Print(os.Stdout)
	return nil
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
