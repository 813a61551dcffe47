package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
)

const composeFile = `services:
  front:
    image: ${IMAGE_FRONT:-hardcoreeng/front:${HULY_VERSION}}
  front-preview:
    image: ${IMAGE_FRONT:-hardcoreeng/front:${HULY_VERSION}}
  account:
    image: ${IMAGE_ACCOUNT:-hardcoreeng/account:${HULY_VERSION}}
  mongodb:
    image: mongo:7
`

func deployment(t *testing.T, overrideLines string) config.Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"compose.yml":         composeFile,
		config.FileName:       "HULY_VERSION=v0.6.500\n",
		overrides.DefaultFile: overrideLines,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return config.Config{
		DeployDir:       dir,
		ComposeFile:     filepath.Join(dir, "compose.yml"),
		OverrideFile:    filepath.Join(dir, overrides.DefaultFile),
		ProjectName:     "huly",
		ContainerEngine: "docker",
	}
}

func TestComposeUp(t *testing.T) {
	cfg := deployment(t, "IMAGE_FRONT=huly/front:local-1\n")
	rec := toolrun.NewRecorder()
	compose := NewCompose(cfg, rec)

	if err := compose.Up(context.Background(), true, "front"); err != nil {
		t.Fatalf("up: %v", err)
	}

	want := []string{
		"compose", "-p", "huly", "-f", cfg.ComposeFile,
		"--env-file", filepath.Join(cfg.DeployDir, config.FileName),
		"--env-file", cfg.OverrideFile,
		"up", "-d", "--force-recreate", "front",
	}
	calls := rec.Calls()
	if len(calls) != 1 || calls[0].Name != "docker" || !reflect.DeepEqual(calls[0].Args, want) {
		t.Errorf("unexpected invocation %v", rec.Lines())
	}
}

func TestComposeUpWithoutOverrides(t *testing.T) {
	cfg := deployment(t, "")
	if err := os.Remove(cfg.OverrideFile); err != nil {
		t.Fatal(err)
	}
	rec := toolrun.NewRecorder()

	if err := NewCompose(cfg, rec).Up(context.Background(), false); err != nil {
		t.Fatalf("up: %v", err)
	}
	line := rec.Lines()[0]
	if strings.Contains(line, overrides.DefaultFile) || strings.Contains(line, "--force-recreate") {
		t.Errorf("unexpected invocation %s", line)
	}
	if !strings.HasSuffix(line, "up -d") {
		t.Errorf("expected plain up, got %s", line)
	}
}

func TestComposeUpFailure(t *testing.T) {
	cfg := deployment(t, "")
	rec := toolrun.NewRecorder().Fail("docker compose")
	if err := NewCompose(cfg, rec).Up(context.Background(), false); err == nil {
		t.Fatal("expected error")
	}
}

func TestServicesUsing(t *testing.T) {
	cfg := deployment(t, "IMAGE_FRONT=huly/front:local-1\nIMAGE_KVS=huly/kvs:local-1\n")
	entries, err := overrides.Read(cfg.OverrideFile)
	if err != nil {
		t.Fatal(err)
	}

	using, err := NewCompose(cfg, toolrun.NewRecorder()).ServicesUsing(context.Background(), entries)
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	if got := using["IMAGE_FRONT"]; !reflect.DeepEqual(got, []string{"front", "front-preview"}) {
		t.Errorf("unexpected services for IMAGE_FRONT: %v", got)
	}
	if got := using["IMAGE_KVS"]; len(got) != 0 {
		t.Errorf("IMAGE_KVS is used by no service, got %v", got)
	}
}

func TestProjectUsesDefaultsWithoutOverrides(t *testing.T) {
	cfg := deployment(t, "")
	project, err := NewCompose(cfg, toolrun.NewRecorder()).Project(context.Background())
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if got := project.Services["account"].Image; got != "hardcoreeng/account:v0.6.500" {
		t.Errorf("unexpected image %s", got)
	}
}
