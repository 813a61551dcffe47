// Package workspace drives monorepo workspace tools (rush, pnpm workspaces)
// across a whole source tree or a single package of it.
package workspace

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
)

// Kind identifies the workspace manifest found at a source root.
type Kind string

const (
	None Kind = ""
	Rush Kind = "rush"
	PNPM Kind = "pnpm"
)

var manifests = []struct {
	file string
	kind Kind
}{
	{"rush.json", Rush},
	{"pnpm-workspace.yaml", PNPM},
}

// Detect reports which workspace manifest, if any, root carries.
func Detect(root string) Kind {
	for _, m := range manifests {
		if info, err := os.Stat(filepath.Join(root, m.file)); err == nil && !info.IsDir() {
			return m.kind
		}
	}
	return None
}

// Tool runs workspace operations for one source tree.
type Tool interface {
	Kind() Kind
	// Install installs dependencies for the whole tree, clearing stale state first.
	Install(ctx context.Context) error
	// BuildAll builds every package in the tree.
	BuildAll(ctx context.Context) error
	// BuildTo builds one package and everything it depends on.
	BuildTo(ctx context.Context, pkg string) error
	// RunScript runs a package-local script in dir.
	RunScript(ctx context.Context, dir, script string) error
	// Bundle runs the workspace-wide bundle/package step.
	Bundle(ctx context.Context) error
}

// Open returns the tool for root's workspace manifest, or nil when root is a
// bare checkout.
func Open(root string, runner toolrun.Runner) Tool {
	switch Detect(root) {
	case Rush:
		return &rushTool{root: root, runner: runner}
	case PNPM:
		return &pnpmTool{root: root, runner: runner}
	}
	return nil
}

// Builder performs the tree-wide install and build that precedes the
// per-service resolution.
type Builder struct {
	runner  toolrun.Runner
	printer *ui.Printer
	// FrontPackage, when set, is built before the full build so dependent
	// scripts find warm front-end assets.
	FrontPackage string
}

func NewBuilder(runner toolrun.Runner, printer *ui.Printer) *Builder {
	return &Builder{runner: runner, printer: printer}
}

// Build installs and builds the workspace at root. Failures are reported but
// not returned as fatal: per-service resolution retries targeted builds.
// It returns the tool in use (nil without a manifest) and whether the full
// build succeeded.
func (b *Builder) Build(ctx context.Context, root string) (Tool, bool) {
	tool := Open(root, b.runner)
	if tool == nil {
		b.printer.Info("no workspace manifest in %s, building packages individually", root)
		return nil, false
	}

	b.printer.Step("Installing %s workspace dependencies", tool.Kind())
	if err := tool.Install(ctx); err != nil {
		b.printer.Warn("workspace install failed: %v", err)
		return tool, false
	}

	if b.FrontPackage != "" {
		if err := tool.BuildTo(ctx, b.FrontPackage); err != nil {
			b.printer.Warn("prebuild of %s failed: %v", b.FrontPackage, err)
		}
	}

	b.printer.Step("Building %s workspace", tool.Kind())
	if err := tool.BuildAll(ctx); err != nil {
		b.printer.Warn("workspace build failed: %v", err)
		return tool, false
	}
	return tool, true
}
