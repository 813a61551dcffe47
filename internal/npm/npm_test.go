package npm

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
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

func TestDetect(t *testing.T) {
	tests := []struct {
		lockfiles []string
		want      Manager
	}{
		{nil, NPM},
		{[]string{"package-lock.json"}, NPM},
		{[]string{"yarn.lock"}, Yarn},
		{[]string{"yarn.lock", "pnpm-lock.yaml"}, PNPM},
	}

	for _, tt := range tests {
		dir := t.TempDir()
		for _, name := range tt.lockfiles {
			writeFile(t, filepath.Join(dir, name), "")
		}
		if got := Detect(dir); got != tt.want {
			t.Errorf("lockfiles %v: expected %s, got %s", tt.lockfiles, tt.want, got)
		}
	}
}

func TestLoadPackage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{
  "name": "@hcengineering/pod-front",
  "packageManager": "pnpm@8.15.4+sha512.0bd3a9be",
  "scripts": {"compile": "tsc", "bundle": "webpack", "test": "jest"}
}`)

	pkg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pkg.Name != "@hcengineering/pod-front" {
		t.Errorf("unexpected name %q", pkg.Name)
	}
	if got := pkg.AvailableScripts(); !slices.Equal(got, []string{"bundle", "compile"}) {
		t.Errorf("unexpected scripts %v", got)
	}

	m, version, ok := pkg.Pinned()
	if !ok || m != PNPM || version != "8.15.4" {
		t.Errorf("unexpected pin %s@%s (%v)", m, version, ok)
	}
}

func TestLoadMissingAndBroken(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
	writeFile(t, filepath.Join(dir, "package.json"), "{")
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestRunArgs(t *testing.T) {
	if got := RunArgs(Yarn, "build"); !slices.Equal(got, []string{"build"}) {
		t.Errorf("yarn: %v", got)
	}
	if got := RunArgs(PNPM, "build"); !slices.Equal(got, []string{"run", "build"}) {
		t.Errorf("pnpm: %v", got)
	}
}
