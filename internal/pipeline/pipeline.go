// Package pipeline runs a source build end to end: acquire the tree, record
// the snapshot, build the workspace, then locate, resolve, assemble and build
// every selected service, writing an override for each image produced.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ErzenXz/huly-selfhost/internal/artifacts"
	"github.com/ErzenXz/huly-selfhost/internal/assemble"
	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/discovery"
	"github.com/ErzenXz/huly-selfhost/internal/engine"
	"github.com/ErzenXz/huly-selfhost/internal/filesystems"
	"github.com/ErzenXz/huly-selfhost/internal/npm"
	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/recipe"
	"github.com/ErzenXz/huly-selfhost/internal/services"
	"github.com/ErzenXz/huly-selfhost/internal/source"
	"github.com/ErzenXz/huly-selfhost/internal/state"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
	"github.com/ErzenXz/huly-selfhost/internal/workspace"
)

// ErrIncomplete is returned in strict mode when any service was skipped.
var ErrIncomplete = errors.New("not every service was built")

// Options are the per-invocation build parameters.
type Options struct {
	Repo      string
	Path      string
	Ref       string
	Registry  string // overrides the configured registry prefix when set
	NoCache   bool
	TagSuffix string
	// FrontDist is a prebuilt front-end distributable copied into the front
	// context before resolution.
	FrontDist string
	Services  []string // empty means all enabled services
	Strict    bool
}

// Pipeline holds the collaborators of a build run.
type Pipeline struct {
	cfg      config.Config
	registry *services.Registry
	runner   toolrun.Runner
	builder  engine.Builder
	printer  *ui.Printer

	// Now is the clock the default tag suffix is taken from.
	Now func() time.Time
}

func New(cfg config.Config, registry *services.Registry, runner toolrun.Runner, builder engine.Builder, printer *ui.Printer) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		runner:   runner,
		builder:  builder,
		printer:  printer,
		Now:      time.Now,
	}
}

// TagSuffix formats t as the default build tag suffix. Suffixes sort in
// chronological order.
func TagSuffix(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s-%09d", t.Format("20060102150405"), t.Nanosecond())
}

// Tag is the image reference built for service.
func Tag(registryPrefix, service, suffix string) string {
	repository := "huly/" + service
	if registryPrefix != "" {
		repository = registryPrefix + "/" + repository
	}
	return repository + ":local-" + suffix
}

// Run executes the build. Configuration and acquisition errors abort the run
// before the override file is touched; per-service failures only skip that
// service and are listed in the report.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	specs, err := p.registry.Select(opts.Services)
	if err != nil {
		return nil, err
	}

	acquirer := source.NewAcquirer(p.runner, p.printer)
	sourceOpts := source.Options{Repo: opts.Repo, Path: opts.Path, Ref: opts.Ref, CloneDir: p.cfg.SourceDir}
	if err := sourceOpts.Validate(); err != nil {
		return nil, err
	}

	p.printer.Step("Resolving source")
	tree, err := acquirer.Acquire(ctx, sourceOpts)
	if err != nil {
		return nil, err
	}

	registryPrefix := p.cfg.Registry
	if opts.Registry != "" {
		registryPrefix = opts.Registry
	}

	snapshot := state.Snapshot{RegistryPrefix: registryPrefix, PlatformDir: tree.Dir}
	if tree.Remote {
		snapshot.Repo = opts.Repo
		snapshot.Ref = opts.Ref
	} else {
		snapshot.Path = tree.Dir
	}
	if err := state.Save(p.cfg.StateFile, snapshot); err != nil {
		return nil, err
	}

	writer, err := overrides.Reset(p.cfg.OverrideFile)
	if err != nil {
		return nil, err
	}

	suffix := opts.TagSuffix
	if suffix == "" {
		suffix = TagSuffix(p.Now())
	}

	report := &Report{SourceDir: tree.Dir, TagSuffix: suffix, OverrideFile: writer.Path()}

	wsBuilder := workspace.NewBuilder(p.runner, p.printer)
	if front, ok := p.registry.Get(services.Front); ok {
		wsBuilder.FrontPackage = packageName(filepath.Join(tree.Dir, filepath.FromSlash(front.Preset)))
	}
	tool, _ := wsBuilder.Build(ctx, tree.Dir)

	run := &serviceRun{
		Pipeline:  p,
		opts:      opts,
		root:      tree.Dir,
		suffix:    suffix,
		prefix:    registryPrefix,
		locator:   discovery.NewLocator(filesystems.NewLocalFS(), tree.Dir),
		resolver:  artifacts.NewResolver(p.runner, tool, p.printer),
		assembler: assemble.NewAssembler(p.cfg.BuildContextDir),
		writer:    writer,
		modelDirs: p.modelDirs(tree.Dir),
	}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p.printer.Step("Building %s", ui.IDString("%s", spec.Name))
		built, err := run.build(ctx, spec)
		if err != nil {
			p.printer.Warn("skipping %s: %v", spec.Name, err)
			report.Skipped = append(report.Skipped, Skipped{Service: spec.Name, Reason: err.Error()})
			continue
		}
		p.printer.Success("%s -> %s", spec.Name, built.Tag)
		report.Built = append(report.Built, built)
	}

	if opts.Strict && len(report.Skipped) > 0 {
		return report, fmt.Errorf("%d skipped: %w", len(report.Skipped), ErrIncomplete)
	}
	return report, nil
}

// modelDirs lists the preset contexts of every known service, where a
// generated model file may already exist.
func (p *Pipeline) modelDirs(root string) []string {
	local := filesystems.NewLocalFS()
	var dirs []string
	for _, name := range p.registry.Names() {
		spec, _ := p.registry.Get(name)
		dir := filepath.Join(root, filepath.FromSlash(spec.Preset))
		if spec.Preset != "" && filesystems.IsDir(local, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func packageName(dir string) string {
	pkg, err := npm.Load(dir)
	if err != nil {
		return ""
	}
	return pkg.Name
}

type serviceRun struct {
	*Pipeline
	opts      Options
	root      string
	suffix    string
	prefix    string
	locator   *discovery.Locator
	resolver  *artifacts.Resolver
	assembler *assemble.Assembler
	writer    *overrides.Writer
	modelDirs []string
}

func (r *serviceRun) build(ctx context.Context, spec services.Spec) (Built, error) {
	loc, err := r.locator.Locate(spec)
	if err != nil {
		return Built{}, err
	}
	r.printer.Info("context %s (%s)", loc.Dir, loc.Method)

	rc, err := recipe.ParseFile(loc.Recipe)
	if err != nil {
		return Built{}, err
	}
	required := rc.Requirements()
	r.printer.Info("requires %s", required)

	if spec.IsFront() && r.opts.FrontDist != "" {
		dist := filepath.Join(loc.Dir, recipe.DistDir)
		if err := os.RemoveAll(dist); err != nil {
			return Built{}, err
		}
		if err := filesystems.CopyDir(r.opts.FrontDist, dist); err != nil {
			return Built{}, fmt.Errorf("copy front dist %s: %w", r.opts.FrontDist, err)
		}
	}

	target := artifacts.NewTarget(spec, loc.Dir, r.root, required)
	target.ModelDirs = r.modelDirs
	if _, err := r.resolver.Resolve(ctx, target); err != nil {
		return Built{}, err
	}

	assembled, err := r.assembler.Assemble(assemble.Input{
		Service:   spec,
		SourceDir: loc.Dir,
		Recipe:    rc,
		Required:  required,
	})
	if err != nil {
		return Built{}, err
	}
	if assembled.Placement != "" {
		r.printer.Info("recipe rewritten to copy dist (%s)", assembled.Placement)
	}

	tag := Tag(r.prefix, spec.Name, r.suffix)
	err = r.builder.Build(ctx, engine.Request{
		Service:    spec.Name,
		ContextDir: assembled.Dir,
		RecipePath: assembled.RecipePath,
		Tag:        tag,
		NoCache:    r.opts.NoCache,
	})
	if err != nil {
		return Built{}, err
	}

	if err := r.writer.Append(spec.EnvKey, tag); err != nil {
		return Built{}, err
	}
	return Built{Service: spec.Name, Tag: tag, Context: assembled.Dir, EnvKey: spec.EnvKey}, nil
}
