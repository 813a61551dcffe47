package engine

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"

	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
)

func TestCLIBuild(t *testing.T) {
	tests := []struct {
		binary  string
		noCache bool
		want    string
	}{
		{Docker, false, "docker build -t huly/front:local-1 -f /ctx/front/Dockerfile /ctx/front"},
		{Podman, true, "podman build --no-cache --pull -t huly/front:local-1 -f /ctx/front/Dockerfile /ctx/front"},
	}

	for _, tt := range tests {
		rec := toolrun.NewRecorder()
		b, err := New(tt.binary, ModeCLI, rec, io.Discard)
		if err != nil {
			t.Fatal(err)
		}
		err = b.Build(context.Background(), Request{
			Service:    "front",
			ContextDir: "/ctx/front",
			RecipePath: "/ctx/front/Dockerfile",
			Tag:        "huly/front:local-1",
			NoCache:    tt.noCache,
		})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if got := rec.Lines(); !slices.Equal(got, []string{tt.want}) {
			t.Errorf("expected %q, got %v", tt.want, got)
		}
	}
}

func TestNewRejectsBadModes(t *testing.T) {
	if _, err := New(Podman, ModeAPI, toolrun.NewRecorder(), io.Discard); err == nil {
		t.Error("expected podman in api mode to be rejected")
	}
	if _, err := New(Docker, "buildkitd", toolrun.NewRecorder(), io.Discard); err == nil {
		t.Error("expected unknown mode to be rejected")
	}
}

type fakeDaemon struct {
	options types.ImageBuildOptions
	files   []string
	stream  string
}

func (f *fakeDaemon) ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	f.options = options
	tr := tar.NewReader(buildContext)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.ImageBuildResponse{}, err
		}
		f.files = append(f.files, hdr.Name)
	}
	return types.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(f.stream))}, nil
}

func contextDir(t *testing.T) string {
	dir := t.TempDir()
	for _, name := range []string{"Dockerfile", "bundle/bundle.js"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestAPIBuild(t *testing.T) {
	dir := contextDir(t)
	daemon := &fakeDaemon{stream: `{"stream":"Step 1/2 : FROM node:20\n"}` + "\n" + `{"stream":"Successfully built abc\n"}` + "\n"}
	var out bytes.Buffer

	err := NewAPI(daemon, &out).Build(context.Background(), Request{
		ContextDir: dir,
		RecipePath: filepath.Join(dir, "Dockerfile"),
		Tag:        "registry.local/huly/account:local-1",
		NoCache:    true,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if daemon.options.Dockerfile != "Dockerfile" || !daemon.options.NoCache || !daemon.options.PullParent {
		t.Errorf("unexpected options %+v", daemon.options)
	}
	if !slices.Equal(daemon.options.Tags, []string{"registry.local/huly/account:local-1"}) {
		t.Errorf("unexpected tags %v", daemon.options.Tags)
	}
	if !slices.Contains(daemon.files, "bundle/bundle.js") {
		t.Errorf("context tar is missing the bundle: %v", daemon.files)
	}
	if !strings.Contains(out.String(), "Successfully built abc") {
		t.Errorf("progress not rendered: %q", out.String())
	}
}

func TestAPIBuildReportsDaemonError(t *testing.T) {
	dir := contextDir(t)
	daemon := &fakeDaemon{stream: `{"errorDetail":{"message":"COPY failed: no bundle"},"error":"COPY failed: no bundle"}` + "\n"}

	err := NewAPI(daemon, io.Discard).Build(context.Background(), Request{
		ContextDir: dir,
		RecipePath: filepath.Join(dir, "Dockerfile"),
		Tag:        "huly/account:local-1",
	})
	if err == nil || !strings.Contains(err.Error(), "COPY failed") {
		t.Fatalf("expected daemon error, got %v", err)
	}
}
