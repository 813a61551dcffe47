// Package updater re-enters the build pipeline from the recorded snapshot:
// Check reports whether upstream moved, Update rebuilds and restarts under a
// lock.
package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/source"
	"github.com/ErzenXz/huly-selfhost/internal/state"
)

// Exit statuses of the check command.
const (
	ExitUpToDate        = 0
	ExitNoSnapshot      = 2
	ExitNotCheckable    = 3 // snapshot unreadable or a local-path source
	ExitMissingCheckout = 4
	ExitUpdateAvailable = 10
)

// ExitError carries a distinct process exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func (e *ExitError) ExitCode() int { return e.Code }

// Status is the result of a completed check.
type Status struct {
	Snapshot state.Snapshot
	Current  source.Revision
	Target   source.Revision
}

func (s Status) UpToDate() bool {
	return s.Current.Hash == s.Target.Hash
}

// ExitCode is 0 when up to date and ExitUpdateAvailable otherwise.
func (s Status) ExitCode() int {
	if s.UpToDate() {
		return ExitUpToDate
	}
	return ExitUpdateAvailable
}

// Check compares the recorded checkout with its upstream: the recorded ref
// if any, else the remote default branch. Failures that prevent a check are
// returned as *ExitError.
func Check(ctx context.Context, cfg config.Config) (Status, error) {
	snapshot, err := state.Load(cfg.StateFile)
	if errors.Is(err, state.ErrNoSnapshot) {
		return Status{}, &ExitError{Code: ExitNoSnapshot, Err: fmt.Errorf("no build snapshot at %s; run a source build first", cfg.StateFile)}
	}
	if err != nil {
		return Status{}, &ExitError{Code: ExitNotCheckable, Err: err}
	}
	if snapshot.Local() {
		return Status{}, &ExitError{Code: ExitNotCheckable, Err: fmt.Errorf("source %s is a local path; update it yourself", snapshot.Path)}
	}

	dir := snapshot.PlatformDir
	if dir == "" {
		dir = cfg.SourceDir
	}
	current, err := source.Inspect(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Status{}, &ExitError{Code: ExitMissingCheckout, Err: fmt.Errorf("no checkout at %s", dir)}
	}
	if err != nil {
		return Status{}, err
	}

	target, err := source.Upstream(ctx, dir, snapshot.Ref)
	if err != nil {
		return Status{}, err
	}
	return Status{Snapshot: snapshot, Current: current, Target: target}, nil
}
