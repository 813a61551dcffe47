package assemble

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ErzenXz/huly-selfhost/internal/recipe"
	"github.com/ErzenXz/huly-selfhost/internal/services"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func input(t *testing.T, name, sourceDir, dockerfile string) Input {
	t.Helper()
	spec, _ := services.Default().Get(name)
	r, err := recipe.Parse([]byte(dockerfile))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return Input{Service: spec, SourceDir: sourceDir, Recipe: r, Required: r.Requirements()}
}

func TestAssembleStartsFromEmptyContext(t *testing.T) {
	base := t.TempDir()
	src := t.TempDir()
	writeFile(t, filepath.Join(base, services.Account, "stale.txt"), "old run")

	in := input(t, services.Account, src, "FROM node:20\nCMD [\"node\"]\n")
	ctx, err := NewAssembler(base).Assemble(in)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if exists(filepath.Join(ctx.Dir, "stale.txt")) {
		t.Error("previous run's content leaked into the context")
	}

	ignore, err := os.ReadFile(filepath.Join(ctx.Dir, ".dockerignore"))
	if err != nil || len(ignore) != 0 {
		t.Errorf("expected empty .dockerignore, got %q (%v)", ignore, err)
	}
}

func TestAssembleCopiesOnlyWhatTheRecipeNeeds(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "bundle", "bundle.js"), "bundle")
	writeFile(t, filepath.Join(src, "bundle", "model.json"), "{}")
	writeFile(t, filepath.Join(src, "lib", "index.js"), "lib")
	writeFile(t, filepath.Join(src, "package.json"), `{"name":"svc"}`)
	writeFile(t, filepath.Join(src, "pnpm-lock.yaml"), "")
	writeFile(t, filepath.Join(src, "config", "default.json"), "{}")
	writeFile(t, filepath.Join(src, "config", "node_modules", "junk.js"), "")
	writeFile(t, filepath.Join(src, "src", "index.ts"), "source")
	writeFile(t, filepath.Join(src, "node_modules", "dep", "index.js"), "")

	dockerfile := "FROM node:20\nCOPY bundle/bundle.js bundle/model.json ./\nCOPY config/ ./config/\nCOPY package.json ./\nCMD [\"node\", \"bundle.js\"]\n"
	ctx, err := NewAssembler(t.TempDir()).Assemble(input(t, services.Transactor, src, dockerfile))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	for _, rel := range []string{"Dockerfile", "bundle/bundle.js", "bundle/model.json", "package.json", "pnpm-lock.yaml", "config/default.json"} {
		if !exists(filepath.Join(ctx.Dir, rel)) {
			t.Errorf("missing %s", rel)
		}
	}
	for _, rel := range []string{"lib", "dist", "src", "node_modules", "config/node_modules"} {
		if exists(filepath.Join(ctx.Dir, rel)) {
			t.Errorf("unexpected %s in context", rel)
		}
	}

	recipeOut, _ := os.ReadFile(ctx.RecipePath)
	if string(recipeOut) != dockerfile {
		t.Errorf("non-front recipe must be unchanged, got:\n%s", recipeOut)
	}
}

func TestAssembleSubstitutesDistInOrder(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "build", "index.html"), "build")
	writeFile(t, filepath.Join(src, "lib", "index.html"), "lib")

	ctx, err := NewAssembler(t.TempDir()).Assemble(input(t, services.Print, src, "FROM nginx\nCOPY dist /usr/share/nginx/html\n"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(ctx.Dir, "dist", "index.html"))
	if err != nil || string(data) != "lib" {
		t.Errorf("expected lib to stand in for dist, got %q (%v)", data, err)
	}
	if exists(filepath.Join(ctx.Dir, "lib")) {
		t.Error("lib copied although the recipe does not need it")
	}
}

func TestAssembleFrontServesStaticAssets(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "bundle", "bundle.js"), "console.log('front')")

	dockerfile := "FROM node:20-alpine\nWORKDIR /app\nCOPY bundle/bundle.js ./bundle/\n\nEXPOSE 8080\nCMD [\"node\", \"bundle/bundle.js\"]\n"
	ctx, err := NewAssembler(t.TempDir()).Assemble(input(t, services.Front, src, dockerfile))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	page, err := os.ReadFile(filepath.Join(ctx.Dir, "dist", "index.html"))
	if err != nil || !strings.Contains(string(page), "/bundle/bundle.js") {
		t.Fatalf("expected synthesized entry page, got %q (%v)", page, err)
	}
	if !exists(filepath.Join(ctx.Dir, "dist", "bundle", "bundle.js")) {
		t.Error("bundle not injected under dist")
	}
	if ctx.Placement != recipe.PlacedAfter {
		t.Errorf("expected placement after the bundle copy, got %q", ctx.Placement)
	}

	want := "FROM node:20-alpine\nWORKDIR /app\nCOPY bundle/bundle.js ./bundle/\nCOPY dist/ ./dist/\n\nEXPOSE 8080\nCMD [\"node\", \"bundle/bundle.js\"]\n"
	got, _ := os.ReadFile(ctx.RecipePath)
	if string(got) != want {
		t.Errorf("unexpected recipe:\n%s", got)
	}
}

func TestAssembleFrontKeepsExistingDistCopy(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "dist", "index.html"), "<html></html>")

	dockerfile := "FROM nginx\nCOPY ./dist/ /usr/share/nginx/html/\n"
	ctx, err := NewAssembler(t.TempDir()).Assemble(input(t, services.Front, src, dockerfile))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if ctx.Placement != "" {
		t.Errorf("recipe already copies dist, got placement %q", ctx.Placement)
	}
	got, _ := os.ReadFile(ctx.RecipePath)
	if string(got) != dockerfile {
		t.Errorf("recipe changed:\n%s", got)
	}
}
