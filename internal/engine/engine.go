// Package engine builds container images from assembled contexts, either by
// shelling out to a docker-compatible CLI or through the Docker Engine API.
package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
)

// Request is one image build.
type Request struct {
	Service    string
	ContextDir string
	RecipePath string
	Tag        string
	// NoCache disables the layer cache and pulls base images afresh.
	NoCache bool
}

// Builder builds images.
type Builder interface {
	Name() string
	Build(ctx context.Context, req Request) error
}

// Engine binaries and build modes.
const (
	Docker = "docker"
	Podman = "podman"

	ModeCLI = "cli"
	ModeAPI = "api"
)

// New picks a builder for the configured engine and mode. API mode speaks
// the Docker Engine API and so only applies to docker.
func New(binary, mode string, runner toolrun.Runner, out io.Writer) (Builder, error) {
	if binary == "" {
		binary = Docker
	}
	switch mode {
	case "", ModeCLI:
		return NewCLI(binary, runner), nil
	case ModeAPI:
		if binary != Docker {
			return nil, fmt.Errorf("engine mode %q requires %s, not %s", ModeAPI, Docker, binary)
		}
		client, err := Client()
		if err != nil {
			return nil, fmt.Errorf("docker client: %w", err)
		}
		return NewAPI(client, out), nil
	}
	return nil, fmt.Errorf("unknown engine mode %q (want %s or %s)", mode, ModeCLI, ModeAPI)
}

// CLI runs `<binary> build`.
type CLI struct {
	binary string
	runner toolrun.Runner
}

func NewCLI(binary string, runner toolrun.Runner) *CLI {
	return &CLI{binary: binary, runner: runner}
}

func (c *CLI) Name() string { return c.binary }

func (c *CLI) Build(ctx context.Context, req Request) error {
	args := []string{"build"}
	if req.NoCache {
		args = append(args, "--no-cache", "--pull")
	}
	args = append(args, "-t", req.Tag, "-f", req.RecipePath, req.ContextDir)

	if err := c.runner.Run(ctx, toolrun.Command(req.ContextDir, c.binary, args...)); err != nil {
		return fmt.Errorf("build %s: %w", req.Tag, err)
	}
	return nil
}
