package workspace

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
)

func TestDetect(t *testing.T) {
	tests := map[string]Kind{
		"":                    None,
		"rush.json":           Rush,
		"pnpm-workspace.yaml": PNPM,
	}
	for manifest, want := range tests {
		root := t.TempDir()
		if manifest != "" {
			if err := os.WriteFile(filepath.Join(root, manifest), []byte("{}"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		if got := Detect(root); got != want {
			t.Errorf("%q: expected %q, got %q", manifest, want, got)
		}
	}
}

func TestBuildWithoutManifestIsNoop(t *testing.T) {
	rec := toolrun.NewRecorder()
	tool, ok := NewBuilder(rec, ui.Discard()).Build(context.Background(), t.TempDir())
	if tool != nil || ok {
		t.Errorf("expected no tool, got %v (%v)", tool, ok)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("expected no commands, got %v", rec.Lines())
	}
}

func TestRushBuildPurgesBeforeInstall(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "rush.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := toolrun.NewRecorder()
	b := NewBuilder(rec, ui.Discard())
	b.FrontPackage = "@hcengineering/pod-front"
	tool, ok := b.Build(context.Background(), root)
	if tool == nil || !ok {
		t.Fatalf("expected successful rush build")
	}

	want := []string{"rush purge", "rush install", "rush build --to @hcengineering/pod-front", "rush build"}
	if got := rec.Lines(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBuildFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "rush.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := toolrun.NewRecorder().Fail("rush build")
	tool, ok := NewBuilder(rec, ui.Discard()).Build(context.Background(), root)
	if tool == nil {
		t.Fatal("tool should still be returned for targeted retries")
	}
	if ok {
		t.Error("expected build to be reported as failed")
	}
}

func TestRushBundleFallsBackToPackage(t *testing.T) {
	rec := toolrun.NewRecorder().Fail("rush bundle")
	tool := &rushTool{root: "/src", runner: rec}
	if err := tool.Bundle(context.Background()); err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if !rec.Ran("rush package") {
		t.Errorf("expected rush package fallback, got %v", rec.Lines())
	}
}

func TestPNPMCommands(t *testing.T) {
	rec := toolrun.NewRecorder()
	tool := &pnpmTool{root: "/src", runner: rec}
	ctx := context.Background()

	_ = tool.Install(ctx)
	_ = tool.BuildTo(ctx, "@hcengineering/pod-account")
	_ = tool.RunScript(ctx, "/src/pods/account", "bundle")

	calls := rec.Calls()
	if calls[1].Line() != "pnpm --filter @hcengineering/pod-account... --if-present run build" || calls[1].Dir != "/src" {
		t.Errorf("unexpected targeted build %+v", calls[1])
	}
	if calls[2].Dir != "/src/pods/account" {
		t.Errorf("script must run in package dir, got %s", calls[2].Dir)
	}
}
