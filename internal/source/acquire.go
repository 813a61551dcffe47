// Package source resolves the platform source tree the images are built from:
// a managed clone of a remote repository or a user-owned local checkout.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
)

var (
	ErrNoSource     = errors.New("one of --repo or --path is required")
	ErrBothSources  = errors.New("--repo and --path are mutually exclusive")
	ErrPathNotFound = errors.New("source path does not exist")
)

// Options selects the source tree.
type Options struct {
	Repo string // remote repository URL
	Path string // local checkout
	Ref  string // revision to check out, remote mode only
	// CloneDir is where remote repositories are cloned and kept between runs.
	CloneDir string
}

// Validate reports configuration errors before anything touches disk.
func (o Options) Validate() error {
	switch {
	case o.Repo != "" && o.Path != "":
		return ErrBothSources
	case o.Repo == "" && o.Path == "":
		return ErrNoSource
	case o.Repo != "" && o.CloneDir == "":
		return errors.New("no clone directory configured for remote sources")
	}
	return nil
}

// Tree is a resolved source tree.
type Tree struct {
	Dir    string // absolute path
	Remote bool
}

// Acquirer produces source trees using the git CLI, so that credential
// helpers and submodule configuration behave exactly as they do for users.
type Acquirer struct {
	runner  toolrun.Runner
	printer *ui.Printer
}

func NewAcquirer(runner toolrun.Runner, printer *ui.Printer) *Acquirer {
	return &Acquirer{runner: runner, printer: printer}
}

// Acquire resolves opts to a source tree. Every failure is fatal to a run.
func (a *Acquirer) Acquire(ctx context.Context, opts Options) (Tree, error) {
	if err := opts.Validate(); err != nil {
		return Tree{}, err
	}
	if opts.Path != "" {
		return a.local(opts)
	}
	return a.remote(ctx, opts)
}

func (a *Acquirer) local(opts Options) (Tree, error) {
	dir, err := filepath.Abs(opts.Path)
	if err != nil {
		return Tree{}, fmt.Errorf("resolve %s: %w", opts.Path, err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Tree{}, fmt.Errorf("%s: %w", dir, ErrPathNotFound)
	}
	if opts.Ref != "" {
		a.printer.Warn("ignoring ref %s for local source %s; check it out yourself", opts.Ref, dir)
	}
	a.printer.Info("using local source %s", dir)
	return Tree{Dir: dir}, nil
}

func (a *Acquirer) remote(ctx context.Context, opts Options) (Tree, error) {
	dir, err := filepath.Abs(opts.CloneDir)
	if err != nil {
		return Tree{}, fmt.Errorf("resolve %s: %w", opts.CloneDir, err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		a.printer.Info("fetching %s into %s", opts.Repo, dir)
		if err := a.git(ctx, dir, "fetch", "--all", "--tags", "--prune"); err != nil {
			return Tree{}, fmt.Errorf("fetch source: %w", err)
		}
	} else {
		a.printer.Info("cloning %s into %s", opts.Repo, dir)
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return Tree{}, fmt.Errorf("create clone parent: %w", err)
		}
		if err := a.git(ctx, "", "clone", opts.Repo, dir); err != nil {
			return Tree{}, fmt.Errorf("clone source: %w", err)
		}
	}

	if err := a.syncSubmodules(ctx, dir); err != nil {
		return Tree{}, err
	}

	if opts.Ref != "" {
		a.printer.Info("checking out %s", opts.Ref)
		if err := a.git(ctx, dir, "checkout", opts.Ref); err != nil {
			return Tree{}, fmt.Errorf("checkout %s: %w", opts.Ref, err)
		}
		// detached tags and diverged branches cannot fast-forward; the
		// checkout already gave us the requested revision
		if err := a.git(ctx, dir, "pull", "--ff-only"); err != nil {
			a.printer.Warn("fast-forward of %s failed, keeping checked out revision: %v", opts.Ref, err)
		}
		if err := a.syncSubmodules(ctx, dir); err != nil {
			return Tree{}, err
		}
	}

	return Tree{Dir: dir, Remote: true}, nil
}

func (a *Acquirer) syncSubmodules(ctx context.Context, dir string) error {
	if err := a.git(ctx, dir, "submodule", "sync", "--recursive"); err != nil {
		return fmt.Errorf("sync submodules: %w", err)
	}
	if err := a.git(ctx, dir, "submodule", "update", "--init", "--recursive"); err != nil {
		return fmt.Errorf("update submodules: %w", err)
	}
	return nil
}

func (a *Acquirer) git(ctx context.Context, dir string, args ...string) error {
	return a.runner.Run(ctx, toolrun.Command(dir, "git", args...))
}
