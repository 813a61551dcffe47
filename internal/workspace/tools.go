package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErzenXz/huly-selfhost/internal/toolrun"
)

type rushTool struct {
	root   string
	runner toolrun.Runner
}

func (r *rushTool) Kind() Kind { return Rush }

func (r *rushTool) Install(ctx context.Context) error {
	// rush install against a stale common/temp fails in confusing ways
	if err := r.rush(ctx, "purge"); err != nil {
		return err
	}
	return r.rush(ctx, "install")
}

func (r *rushTool) BuildAll(ctx context.Context) error {
	return r.rush(ctx, "build")
}

func (r *rushTool) BuildTo(ctx context.Context, pkg string) error {
	return r.rush(ctx, "build", "--to", pkg)
}

func (r *rushTool) RunScript(ctx context.Context, dir, script string) error {
	return r.runner.Run(ctx, toolrun.Command(dir, "rushx", script))
}

func (r *rushTool) Bundle(ctx context.Context) error {
	err := r.rush(ctx, "bundle")
	if err == nil {
		return nil
	}
	if perr := r.rush(ctx, "package"); perr != nil {
		return errors.Join(err, perr)
	}
	return nil
}

func (r *rushTool) rush(ctx context.Context, args ...string) error {
	if err := r.runner.Run(ctx, toolrun.Command(r.root, "rush", args...)); err != nil {
		return fmt.Errorf("rush %s: %w", args[0], err)
	}
	return nil
}

type pnpmTool struct {
	root   string
	runner toolrun.Runner
}

func (p *pnpmTool) Kind() Kind { return PNPM }

func (p *pnpmTool) Install(ctx context.Context) error {
	return p.pnpm(ctx, p.root, "install")
}

func (p *pnpmTool) BuildAll(ctx context.Context) error {
	return p.pnpm(ctx, p.root, "-r", "--if-present", "run", "build")
}

func (p *pnpmTool) BuildTo(ctx context.Context, pkg string) error {
	return p.pnpm(ctx, p.root, "--filter", pkg+"...", "--if-present", "run", "build")
}

func (p *pnpmTool) RunScript(ctx context.Context, dir, script string) error {
	return p.pnpm(ctx, dir, "run", script)
}

func (p *pnpmTool) Bundle(ctx context.Context) error {
	return p.pnpm(ctx, p.root, "-r", "--if-present", "run", "bundle")
}

func (p *pnpmTool) pnpm(ctx context.Context, dir string, args ...string) error {
	if err := p.runner.Run(ctx, toolrun.Command(dir, "pnpm", args...)); err != nil {
		return fmt.Errorf("pnpm: %w", err)
	}
	return nil
}
