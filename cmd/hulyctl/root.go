package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/engine"
	"github.com/ErzenXz/huly-selfhost/internal/pipeline"
	"github.com/ErzenXz/huly-selfhost/internal/services"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
	"github.com/ErzenXz/huly-selfhost/internal/updater"
)

var (
	cfgFile string
	noColor bool
	v       = config.New()
	printer = ui.Stdio()
)

var rootCmd = &cobra.Command{
	Use:   "hulyctl",
	Short: "Build and run a self-hosted Huly deployment from source",
	Long: `hulyctl builds Huly service images from a platform source tree and points the
deployment at them:
1. Acquire - Clone, fetch or reuse the platform source
2. Build - Install and build the workspace
3. Resolve - Locate each service and produce the artifacts its recipe needs
4. Image - Assemble a minimal build context and build the image
5. Override - Record the image in .images.conf for compose`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColor()
		}
	},
}

// Execute runs the command line and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *updater.ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return exitErr.Code
	}
	printer.Fail("%v", err)

	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "deployment config file (default is huly.conf in the deploy directory)")
	rootCmd.PersistentFlags().String("deploy-dir", ".", "deployment directory holding compose.yml and huly.conf")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	cobra.CheckErr(v.BindPFlag(config.KeyDeployDir, rootCmd.PersistentFlags().Lookup("deploy-dir")))
}

func initConfig() {
	path, err := config.ReadFile(v, cfgFile)
	cobra.CheckErr(err)
	if path != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", path)
	}
}

// loadConfig resolves the configuration and service registry for a command.
func loadConfig() (config.Config, *services.Registry, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	registry, err := cfg.Services()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, registry, nil
}

// newPipeline wires the build pipeline to the real tools.
func newPipeline(cfg config.Config, registry *services.Registry) (*pipeline.Pipeline, toolrun.Runner, error) {
	runner := toolrun.NewExec(os.Stdout, os.Stderr)
	builder, err := engine.New(cfg.ContainerEngine, cfg.EngineMode, runner, os.Stdout)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(cfg, registry, runner, builder, printer), runner, nil
}
