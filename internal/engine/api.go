package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/term"
)

var (
	sharedClient *client.Client
	clientOnce   sync.Once
	clientErr    error
)

// Client returns a process-wide Docker client. Callers must not Close it.
func Client() (*client.Client, error) {
	clientOnce.Do(func() {
		opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
		if os.Getenv("DOCKER_HOST") == "" {
			if sock := findSocket(); sock != "" {
				opts = append(opts, client.WithHost("unix://"+sock))
			}
		}
		sharedClient, clientErr = client.NewClientWithOpts(opts...)
	})
	return sharedClient, clientErr
}

func findSocket() string {
	candidates := []string{"/var/run/docker.sock"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".docker", "run", "docker.sock"),
			filepath.Join(home, ".colima", "default", "docker.sock"),
		)
	}
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		candidates = append(candidates, filepath.Join(runtime, "docker.sock"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ImageBuilder is the part of the Docker client API mode needs.
type ImageBuilder interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
}

// API builds through the Docker Engine API and renders the daemon's progress
// stream the way the docker CLI does.
type API struct {
	client ImageBuilder
	out    io.Writer
}

func NewAPI(client ImageBuilder, out io.Writer) *API {
	return &API{client: client, out: out}
}

func (a *API) Name() string { return "docker api" }

func (a *API) Build(ctx context.Context, req Request) error {
	recipe, err := filepath.Rel(req.ContextDir, req.RecipePath)
	if err != nil {
		return fmt.Errorf("recipe %s outside context: %w", req.RecipePath, err)
	}

	buildContext, err := archive.TarWithOptions(req.ContextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("archive context %s: %w", req.ContextDir, err)
	}
	defer buildContext.Close()

	response, err := a.client.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:        []string{req.Tag},
		Dockerfile:  filepath.ToSlash(recipe),
		NoCache:     req.NoCache,
		PullParent:  req.NoCache,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return fmt.Errorf("image build request for %s: %w", req.Tag, err)
	}
	defer response.Body.Close()

	fd, isTerminal := term.GetFdInfo(a.out)
	if err := jsonmessage.DisplayJSONMessagesStream(response.Body, a.out, fd, isTerminal, nil); err != nil {
		var jerr *jsonmessage.JSONError
		if errors.As(err, &jerr) {
			return fmt.Errorf("build %s: %s", req.Tag, jerr.Message)
		}
		return fmt.Errorf("build %s: reading progress stream: %w", req.Tag, err)
	}
	return nil
}
