// Package assemble builds minimal per-service container build contexts that
// hold only the recipe and the artifacts it copies.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ErzenXz/huly-selfhost/internal/artifacts"
	"github.com/ErzenXz/huly-selfhost/internal/discovery"
	"github.com/ErzenXz/huly-selfhost/internal/filesystems"
	"github.com/ErzenXz/huly-selfhost/internal/npm"
	"github.com/ErzenXz/huly-selfhost/internal/recipe"
	"github.com/ErzenXz/huly-selfhost/internal/services"
)

// distCandidates are accepted as the distributable directory, best first.
var distCandidates = []string{recipe.DistDir, recipe.LibDir, recipe.BuildDir, recipe.OutDir}

// Input describes one service's resolved source context.
type Input struct {
	Service   services.Spec
	SourceDir string
	Recipe    *recipe.Recipe
	Required  recipe.Requirements
}

// Context is an assembled build context ready for the engine.
type Context struct {
	Dir        string
	RecipePath string
	// Placement is set when the recipe was rewritten to copy dist.
	Placement recipe.Placement
	Files     []string // top-level entries, for narration
}

// Assembler creates contexts under a base directory, one per service.
type Assembler struct {
	baseDir string
}

func NewAssembler(baseDir string) *Assembler {
	return &Assembler{baseDir: baseDir}
}

// Dir is the context directory used for service.
func (a *Assembler) Dir(service string) string {
	return filepath.Join(a.baseDir, service)
}

// Assemble recreates the service's context directory from scratch.
func (a *Assembler) Assemble(in Input) (*Context, error) {
	dir := a.Dir(in.Service.Name)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear context %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create context %s: %w", dir, err)
	}

	local := filesystems.NewLocalFS()
	src := func(rel string) string { return filepath.Join(in.SourceDir, filepath.FromSlash(rel)) }
	dst := func(rel string) string { return filepath.Join(dir, filepath.FromSlash(rel)) }

	for _, rel := range []string{recipe.BundleFile, recipe.BundleMap, recipe.ModelFile} {
		if filesystems.IsFile(local, src(rel)) {
			if err := filesystems.CopyFile(src(rel), dst(rel)); err != nil {
				return nil, fmt.Errorf("copy %s: %w", rel, err)
			}
		}
	}

	if in.Required.Dist || in.Service.IsFront() {
		for _, name := range distCandidates {
			if filesystems.IsDir(local, src(name)) {
				if err := filesystems.CopyDir(src(name), dst(recipe.DistDir)); err != nil {
					return nil, fmt.Errorf("copy %s as dist: %w", name, err)
				}
				break
			}
		}
	}

	if in.Required.Lib && filesystems.IsDir(local, src(recipe.LibDir)) {
		if err := filesystems.CopyDir(src(recipe.LibDir), dst(recipe.LibDir)); err != nil {
			return nil, fmt.Errorf("copy lib: %w", err)
		}
	}

	for _, name := range npm.Manifests {
		if filesystems.IsFile(local, src(name)) {
			if err := filesystems.CopyFile(src(name), dst(name)); err != nil {
				return nil, fmt.Errorf("copy %s: %w", name, err)
			}
		}
	}

	if err := copyExtraSources(in, dir); err != nil {
		return nil, err
	}

	// the source tree's ignore rules were written for the whole repository
	if err := os.WriteFile(dst(recipe.IgnoreMarker), nil, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", recipe.IgnoreMarker, err)
	}

	out := &Context{Dir: dir, RecipePath: dst(discovery.RecipeName)}

	if in.Service.IsFront() {
		placement, err := prepareFront(in.Recipe, dir)
		if err != nil {
			return nil, err
		}
		out.Placement = placement
	}

	if err := os.WriteFile(out.RecipePath, in.Recipe.Render(), 0o644); err != nil {
		return nil, fmt.Errorf("write recipe: %w", err)
	}

	for entry, err := range local.ReadDir(dir) {
		if err == nil {
			out.Files = append(out.Files, entry.Name())
		}
	}
	return out, nil
}

// prepareFront makes sure a front image serves its static assets: the entry
// page exists, the bundle is reachable under dist and the recipe copies dist.
func prepareFront(r *recipe.Recipe, dir string) (recipe.Placement, error) {
	local := filesystems.NewLocalFS()
	distDir := filepath.Join(dir, recipe.DistDir)
	bundleDir := filepath.Join(dir, recipe.BundleDir)
	index := filepath.Join(dir, filepath.FromSlash(recipe.DistIndex))

	hasBundle := filesystems.IsFile(local, filepath.Join(dir, filepath.FromSlash(recipe.BundleFile)))
	if hasBundle && !filesystems.IsFile(local, index) {
		if err := artifacts.WriteIndex(distDir); err != nil {
			return "", fmt.Errorf("write entry page: %w", err)
		}
	}

	if hasBundle && filesystems.IsDir(local, distDir) {
		if err := filesystems.CopyDir(bundleDir, filepath.Join(dir, filepath.FromSlash(recipe.DistBundle))); err != nil {
			return "", fmt.Errorf("inject bundle into dist: %w", err)
		}
	}

	if !filesystems.IsFile(local, index) || r.CopiesPath(recipe.DistDir) {
		return "", nil
	}

	inst, err := recipe.NewInstruction("COPY dist/ ./dist/")
	if err != nil {
		return "", err
	}
	return r.Place(inst, recipe.IsArtifactCopy, recipe.IsEntry), nil
}

// copyExtraSources brings along whatever else the recipe copies from its
// context, e.g. configuration directories.
func copyExtraSources(in Input, dir string) error {
	for _, source := range in.Recipe.Sources() {
		if !isExtraSource(source) {
			continue
		}
		matches := []string{filepath.Join(in.SourceDir, filepath.FromSlash(source))}
		if strings.ContainsAny(source, "*?[") {
			var err error
			if matches, err = filepath.Glob(matches[0]); err != nil {
				continue
			}
		}
		for _, match := range matches {
			if _, err := os.Lstat(match); err != nil {
				continue
			}
			rel, err := filepath.Rel(in.SourceDir, match)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			target := filepath.Join(dir, rel)
			if _, err := os.Lstat(target); err == nil {
				continue
			}
			if err := filesystems.Copy(match, target, "node_modules"); err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
		}
	}
	return nil
}

func isExtraSource(source string) bool {
	switch {
	case source == "" || source == "." || strings.Contains(source, "://"):
		return false
	case filepath.IsAbs(source) || strings.HasPrefix(source, ".."):
		return false
	case strings.HasPrefix(source, "$"):
		return false
	}
	head, _, _ := strings.Cut(source, "/")
	switch head {
	case recipe.BundleDir, recipe.LibDir, recipe.DistDir, "node_modules", discovery.RecipeName, recipe.IgnoreMarker:
		return false
	}
	return true
}
