package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ErzenXz/huly-selfhost/internal/filesystems"
	"github.com/ErzenXz/huly-selfhost/internal/npm"
	"github.com/ErzenXz/huly-selfhost/internal/recipe"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
	"github.com/ErzenXz/huly-selfhost/internal/workspace"
)

var searchSkips = []string{"node_modules", ".git", ".rush"}

// workspaceTargetStep builds the context's package through the workspace
// tool, then runs its own bundle or build script.
type workspaceTargetStep struct {
	tool workspace.Tool
}

func (s *workspaceTargetStep) Name() string { return "workspace target build" }

func (s *workspaceTargetStep) Run(ctx context.Context, t *Target) Outcome {
	if s.tool == nil || t.Package == nil || t.Package.Name == "" {
		return Outcome{}
	}

	var errs []error
	if err := s.tool.BuildTo(ctx, t.Package.Name); err != nil {
		errs = append(errs, err)
	}
	for _, script := range []string{"bundle", "build"} {
		if !t.Missing().Any() {
			break
		}
		if !t.Package.HasScript(script) {
			continue
		}
		err := s.tool.RunScript(ctx, t.Dir, script)
		if err == nil {
			break
		}
		errs = append(errs, err)
	}
	return Outcome{Ran: true, Detail: "built " + t.Package.Name, Err: errors.Join(errs...)}
}

// workspaceBundleStep runs the workspace-wide bundle for front-end contexts,
// whose assets are often produced by a repository-level step.
type workspaceBundleStep struct {
	tool workspace.Tool
}

func (s *workspaceBundleStep) Name() string { return "workspace bundle" }

func (s *workspaceBundleStep) Run(ctx context.Context, t *Target) Outcome {
	if s.tool == nil || !isFrontContext(t) {
		return Outcome{}
	}
	err := s.tool.Bundle(ctx)
	return Outcome{Ran: true, Detail: "ran workspace bundle", Err: err}
}

func isFrontContext(t *Target) bool {
	return t.Service.IsFront() || strings.Contains(strings.ToLower(filepath.Base(t.Dir)), "front")
}

// packageManagerStep installs and builds the context directly with the
// package manager its lockfile names.
type packageManagerStep struct {
	runner  toolrun.Runner
	printer *ui.Printer
}

func (s *packageManagerStep) Name() string { return "package manager build" }

func (s *packageManagerStep) Run(ctx context.Context, t *Target) Outcome {
	if t.Package == nil {
		return Outcome{}
	}

	manager := npm.Detect(t.Dir)
	if manager == npm.NPM && t.SourceRoot != "" {
		manager = npm.Detect(t.SourceRoot)
	}

	if pinned, version, ok := t.Package.Pinned(); ok && toolrun.Available(s.runner, "corepack") {
		spec := fmt.Sprintf("%s@%s", pinned, version)
		if err := s.runner.Run(ctx, toolrun.Command(t.Dir, "corepack", "prepare", spec, "--activate")); err != nil {
			s.printer.Warn("corepack prepare %s failed: %v", spec, err)
		}
	}

	var errs []error
	if err := s.runner.Run(ctx, toolrun.Command(t.Dir, string(manager), "install")); err != nil {
		errs = append(errs, err)
	}

	scripts := t.Package.AvailableScripts()
	if len(scripts) == 0 {
		errs = append(errs, fmt.Errorf("%s defines none of %s", t.Package.Name, strings.Join(npm.BuildScripts, ", ")))
	}
	for _, script := range scripts {
		if !t.Missing().Any() {
			break
		}
		if err := s.runner.Run(ctx, toolrun.Command(t.Dir, string(manager), npm.RunArgs(manager, script)...)); err != nil {
			errs = append(errs, err)
		}
	}

	return Outcome{Ran: true, Detail: fmt.Sprintf("%s install and build", manager), Err: errors.Join(errs...)}
}

// searchStep looks for already built bundle and model files elsewhere in the
// context, and for model files in other service contexts.
type searchStep struct{}

func (s *searchStep) Name() string { return "filesystem search" }

func (s *searchStep) Run(ctx context.Context, t *Target) Outcome {
	missing := t.Missing()
	if !missing.Bundle && !missing.ModelJSON {
		return Outcome{}
	}

	local := filesystems.NewLocalFS()
	var found []string
	var errs []error

	if missing.Bundle {
		dst := t.path(recipe.BundleFile)
		src, err := filesystems.FindFile(local, t.Dir, filepath.Base(recipe.BundleFile), func(path string) bool {
			return path != dst
		}, searchSkips...)
		if err != nil {
			errs = append(errs, err)
		}
		if src != "" {
			if err := filesystems.CopyFile(src, dst); err != nil {
				errs = append(errs, err)
			} else {
				found = append(found, src)
				if _, err := os.Stat(src + ".map"); err == nil {
					if err := filesystems.CopyFile(src+".map", t.path(recipe.BundleMap)); err != nil {
						errs = append(errs, err)
					}
				}
			}
		}
	}

	if missing.ModelJSON {
		dst := t.path(recipe.ModelFile)
		src, err := filesystems.FindFile(local, t.Dir, filepath.Base(recipe.ModelFile), func(path string) bool {
			return path != dst && isOutputDir(filepath.Base(filepath.Dir(path)))
		}, searchSkips...)
		if err != nil {
			errs = append(errs, err)
		}
		if src == "" {
			for _, dir := range t.ModelDirs {
				candidate := filepath.Join(dir, filepath.FromSlash(recipe.ModelFile))
				if candidate != dst && filesystems.IsFile(local, candidate) {
					src = candidate
					break
				}
			}
		}
		if src != "" {
			if err := filesystems.CopyFile(src, dst); err != nil {
				errs = append(errs, err)
			} else {
				found = append(found, src)
			}
		}
	}

	detail := "nothing found"
	if len(found) > 0 {
		detail = "reused " + strings.Join(found, ", ")
	}
	return Outcome{Ran: true, Detail: detail, Err: errors.Join(errs...)}
}

func isOutputDir(name string) bool {
	return slices.Contains([]string{recipe.BundleDir, recipe.DistDir, recipe.LibDir, recipe.BuildDir, recipe.OutDir}, name)
}

// substituteStep treats lib and dist as interchangeable, and accepts build or
// out as a dist.
type substituteStep struct{}

func (s *substituteStep) Name() string { return "directory substitution" }

func (s *substituteStep) Run(ctx context.Context, t *Target) Outcome {
	missing := t.Missing()
	if !missing.Lib && !missing.Dist {
		return Outcome{}
	}

	local := filesystems.NewLocalFS()
	var done []string
	var errs []error

	copyFirst := func(dst string, candidates ...string) {
		for _, name := range candidates {
			src := t.path(name)
			if !filesystems.IsDir(local, src) {
				continue
			}
			if err := filesystems.CopyDir(src, t.path(dst)); err != nil {
				errs = append(errs, fmt.Errorf("copy %s to %s: %w", name, dst, err))
				return
			}
			done = append(done, name+" -> "+dst)
			return
		}
	}

	if missing.Lib {
		copyFirst(recipe.LibDir, recipe.DistDir)
	}
	if missing.Dist {
		copyFirst(recipe.DistDir, recipe.LibDir, recipe.BuildDir, recipe.OutDir)
	}

	if len(done) == 0 && len(errs) == 0 {
		return Outcome{}
	}
	return Outcome{Ran: true, Detail: strings.Join(done, ", "), Err: errors.Join(errs...)}
}

// synthesizeStep writes a minimal entry page into dist when a bundle exists
// but no entry page does.
type synthesizeStep struct{}

func (s *synthesizeStep) Name() string { return "entry page synthesis" }

func (s *synthesizeStep) Run(ctx context.Context, t *Target) Outcome {
	local := filesystems.NewLocalFS()
	if !t.Required.Dist || filesystems.IsFile(local, t.path(recipe.DistIndex)) || !filesystems.IsFile(local, t.path(recipe.BundleFile)) {
		return Outcome{}
	}
	err := WriteIndex(t.path(recipe.DistDir))
	return Outcome{Ran: true, Detail: "synthesized " + recipe.DistIndex, Err: err}
}
