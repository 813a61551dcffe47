// Package artifacts produces the build outputs a service recipe copies into
// its image: the compiled bundle, the lib and dist directories and the
// generated model file. Production is a best-effort cascade; success is
// judged only by what exists on disk afterwards.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ErzenXz/huly-selfhost/internal/filesystems"
	"github.com/ErzenXz/huly-selfhost/internal/npm"
	"github.com/ErzenXz/huly-selfhost/internal/recipe"
	"github.com/ErzenXz/huly-selfhost/internal/services"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
	"github.com/ErzenXz/huly-selfhost/internal/workspace"
)

// ErrUnresolved means a required artifact is still missing after every step.
var ErrUnresolved = errors.New("required artifacts missing")

// Target is one service build context awaiting artifacts.
type Target struct {
	Service    services.Spec
	Dir        string // build context directory
	SourceRoot string
	Required   recipe.Requirements
	Package    *npm.Package // nil when the context has no package.json
	// ModelDirs are other service contexts whose bundle/model.json may be
	// reused when this context cannot produce its own.
	ModelDirs []string
}

// NewTarget prepares a target for the context at dir.
func NewTarget(spec services.Spec, dir, sourceRoot string, required recipe.Requirements) *Target {
	t := &Target{Service: spec, Dir: dir, SourceRoot: sourceRoot, Required: required}
	if pkg, err := npm.Load(dir); err == nil {
		t.Package = pkg
	}
	return t
}

func (t *Target) path(rel string) string {
	return filepath.Join(t.Dir, filepath.FromSlash(rel))
}

// Missing returns the required artifacts not present on disk.
func (t *Target) Missing() recipe.Requirements {
	local := filesystems.NewLocalFS()
	return recipe.Requirements{
		Bundle:    t.Required.Bundle && !filesystems.IsFile(local, t.path(recipe.BundleFile)),
		ModelJSON: t.Required.ModelJSON && !filesystems.IsFile(local, t.path(recipe.ModelFile)),
		Lib:       t.Required.Lib && !filesystems.IsDir(local, t.path(recipe.LibDir)),
		Dist:      t.Required.Dist && !filesystems.IsDir(local, t.path(recipe.DistDir)),
	}
}

// Outcome is what one step of the cascade did.
type Outcome struct {
	Step   string
	Ran    bool // false when the step did not apply to the target
	Detail string
	Err    error
}

// Step is one strategy for producing missing artifacts. Steps swallow nothing:
// tool failures are reported in the outcome, and the resolver decides what to
// do next from the filesystem.
type Step interface {
	Name() string
	Run(ctx context.Context, t *Target) Outcome
}

// Result summarizes a resolution.
type Result struct {
	Outcomes []Outcome
	Missing  recipe.Requirements
}

// Resolver runs the cascade of steps for each target.
type Resolver struct {
	steps []Step
	// finish runs after the cascade whether or not anything was missing.
	finish  []Step
	printer *ui.Printer
}

// NewResolver builds the standard cascade. tool may be nil for trees without
// a workspace manifest.
func NewResolver(runner toolrun.Runner, tool workspace.Tool, printer *ui.Printer) *Resolver {
	r := NewResolverWithSteps(printer,
		&workspaceTargetStep{tool: tool},
		&workspaceBundleStep{tool: tool},
		&packageManagerStep{runner: runner, printer: printer},
		&searchStep{},
		&substituteStep{},
	)
	r.finish = []Step{&synthesizeStep{}}
	return r
}

// NewResolverWithSteps creates a resolver running steps in order.
func NewResolverWithSteps(printer *ui.Printer, steps ...Step) *Resolver {
	return &Resolver{steps: steps, printer: printer}
}

// Resolve runs steps until nothing required is missing, then the finishing
// steps. It fails with ErrUnresolved when the cascade is exhausted first.
func (r *Resolver) Resolve(ctx context.Context, t *Target) (Result, error) {
	var result Result

	if !t.Required.Any() {
		return result, nil
	}

	missing := t.Missing()
	for _, step := range r.steps {
		if !missing.Any() {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Outcomes = append(result.Outcomes, r.run(ctx, step, t))
		missing = t.Missing()
	}
	for _, step := range r.finish {
		if outcome := r.run(ctx, step, t); outcome.Ran {
			result.Outcomes = append(result.Outcomes, outcome)
		}
	}
	missing = t.Missing()

	result.Missing = missing
	if missing.Any() {
		return result, fmt.Errorf("%s needs %s: %w", t.Service.Name, missing, ErrUnresolved)
	}
	return result, nil
}

func (r *Resolver) run(ctx context.Context, step Step, t *Target) Outcome {
	outcome := step.Run(ctx, t)
	outcome.Step = step.Name()
	switch {
	case !outcome.Ran:
	case outcome.Err != nil:
		r.printer.Warn("%s: %s step failed: %v", t.Service.Name, outcome.Step, outcome.Err)
	case outcome.Detail != "":
		r.printer.Info("%s: %s", outcome.Step, outcome.Detail)
	}
	return outcome
}
