package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/orchestrator"
	"github.com/ErzenXz/huly-selfhost/internal/pipeline"
	"github.com/ErzenXz/huly-selfhost/internal/state"
	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
)

// Updater rebuilds from the snapshot and restarts the compose project.
type Updater struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	runner   toolrun.Runner
	printer  *ui.Printer
}

func New(cfg config.Config, p *pipeline.Pipeline, runner toolrun.Runner, printer *ui.Printer) *Updater {
	return &Updater{cfg: cfg, pipeline: p, runner: runner, printer: printer}
}

// Update holds the lock for the whole run and releases it on every return
// path, including cancellation.
func (u *Updater) Update(ctx context.Context, force bool) (report *pipeline.Report, err error) {
	lock, err := AcquireLock(u.cfg.LockDir, force)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}()

	snapshot, err := state.Load(u.cfg.StateFile)
	if errors.Is(err, state.ErrNoSnapshot) {
		return nil, &ExitError{Code: ExitNoSnapshot, Err: fmt.Errorf("no build snapshot at %s; run a source build first", u.cfg.StateFile)}
	}
	if err != nil {
		return nil, err
	}

	u.printer.Step("Rebuilding from %s", describe(snapshot))
	report, err = u.pipeline.Run(ctx, pipeline.Options{
		Repo:     snapshot.Repo,
		Path:     snapshot.Path,
		Ref:      snapshot.Ref,
		Registry: snapshot.RegistryPrefix,
	})
	if err != nil {
		return report, err
	}

	u.printer.Step("Restarting services")
	// compose recreates every service whose image changed
	if err := orchestrator.NewCompose(u.cfg, u.runner).Up(ctx, false); err != nil {
		return report, err
	}
	return report, nil
}

func describe(s state.Snapshot) string {
	where := s.Repo
	if s.Local() {
		where = s.Path
	}
	if s.Ref != "" {
		return where + "@" + s.Ref
	}
	return where
}
