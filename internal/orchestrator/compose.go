// Package orchestrator drives the running deployment: the compose project on a
// single host, or deployments in a kubernetes namespace.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/types"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
)

// Compose is the compose project of a deployment directory.
type Compose struct {
	runner toolrun.Runner
	binary string

	File        string
	ProjectName string
	Dir         string
	// EnvFiles are passed to compose in order; later files win.
	EnvFiles []string
}

// NewCompose describes the project configured in cfg. huly.conf and the
// override file are used as env files when they exist.
func NewCompose(cfg config.Config, runner toolrun.Runner) *Compose {
	c := &Compose{
		runner:      runner,
		binary:      cfg.ContainerEngine,
		File:        cfg.ComposeFile,
		ProjectName: cfg.ProjectName,
		Dir:         cfg.DeployDir,
	}
	for _, file := range []string{filepath.Join(cfg.DeployDir, config.FileName), cfg.OverrideFile} {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.EnvFiles = append(c.EnvFiles, file)
		}
	}
	return c
}

// Project loads the compose file with the env files applied, the way
// `docker compose` itself would interpolate it.
func (c *Compose) Project(ctx context.Context) (*types.Project, error) {
	options, err := cli.NewProjectOptions(
		[]string{c.File},
		cli.WithWorkingDirectory(c.Dir),
		cli.WithOsEnv,
		cli.WithEnvFiles(c.EnvFiles...),
		cli.WithDotEnv,
		cli.WithName(c.ProjectName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project options: %w", err)
	}

	project, err := options.LoadProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load compose project: %w", err)
	}
	return project, nil
}

// ServicesUsing maps each override to the compose services whose resolved
// image is the override's value. Overrides no service uses map to nothing.
func (c *Compose) ServicesUsing(ctx context.Context, entries []overrides.Entry) (map[string][]string, error) {
	project, err := c.Project(ctx)
	if err != nil {
		return nil, err
	}

	using := make(map[string][]string, len(entries))
	for _, entry := range entries {
		for name, service := range project.Services {
			if service.Image == entry.Value {
				using[entry.Key] = append(using[entry.Key], name)
			}
		}
		slices.Sort(using[entry.Key])
	}
	return using, nil
}

// Up starts the project detached. With services given, only those are
// (re)created.
func (c *Compose) Up(ctx context.Context, forceRecreate bool, services ...string) error {
	args := c.baseArgs()
	args = append(args, "up", "-d")
	if forceRecreate {
		args = append(args, "--force-recreate")
	}
	args = append(args, services...)

	if err := c.runner.Run(ctx, toolrun.Command(c.Dir, c.binary, args...)); err != nil {
		return fmt.Errorf("compose up: %w", err)
	}
	return nil
}

func (c *Compose) baseArgs() []string {
	args := []string{"compose"}
	if c.ProjectName != "" {
		args = append(args, "-p", c.ProjectName)
	}
	args = append(args, "-f", c.File)
	for _, file := range c.EnvFiles {
		args = append(args, "--env-file", file)
	}
	return args
}
