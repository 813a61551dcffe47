package toolrun

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
)

func TestRecorderHooks(t *testing.T) {
	var hooked []string
	rec := NewRecorder().
		On("pnpm run bundle", func(cmd Cmd) error {
			hooked = append(hooked, cmd.Dir)
			return nil
		}).
		Fail("pnpm run build").
		Missing("corepack")

	ctx := context.Background()
	if err := rec.Run(ctx, Command("/src", "pnpm", "run", "bundle")); err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if err := rec.Run(ctx, Command("/src", "pnpm", "run", "build")); err == nil {
		t.Fatal("expected build to fail")
	}
	// prefix matching respects word boundaries
	if err := rec.Run(ctx, Command("/src", "pnpm", "run", "buildx")); err != nil {
		t.Fatalf("buildx: %v", err)
	}
	if err := rec.Run(ctx, Command("/src", "corepack", "enable")); !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if len(hooked) != 1 || hooked[0] != "/src" {
		t.Errorf("unexpected hook calls %v", hooked)
	}
	if Available(rec, "corepack") || !Available(rec, "git") {
		t.Error("unexpected tool availability")
	}
	if !rec.Ran("pnpm run") || rec.Ran("npm") {
		t.Errorf("unexpected Ran results for %v", rec.Lines())
	}
	if len(rec.Calls()) != 4 {
		t.Errorf("expected 4 calls, got %d", len(rec.Calls()))
	}
}

func TestRecorderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRecorder().Run(ctx, Command("", "git", "fetch")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecStreamsOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var stdout bytes.Buffer
	runner := NewExec(&stdout, &stdout)
	err := runner.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo $GREETING"}, Env: []string{"GREETING=hello"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "hello\n" {
		t.Errorf("unexpected output %q", stdout.String())
	}

	if err := runner.Run(context.Background(), Command("", "sh", "-c", "exit 3")); err == nil {
		t.Error("expected non-zero exit to be an error")
	}
}
