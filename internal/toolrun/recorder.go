package toolrun

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Hook simulates a tool: it may create files and returns the tool's error.
type Hook func(cmd Cmd) error

type hook struct {
	prefix string
	fn     Hook
}

// Recorder is a Runner that records invocations instead of executing them.
// Commands without a matching hook succeed without side effects.
type Recorder struct {
	mu      sync.Mutex
	calls   []Cmd
	hooks   []hook
	missing map[string]bool
}

func NewRecorder() *Recorder {
	return &Recorder{missing: make(map[string]bool)}
}

// On registers fn for commands whose line starts with prefix, e.g.
// "pnpm run bundle". The first registered match wins.
func (r *Recorder) On(prefix string, fn Hook) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook{prefix: prefix, fn: fn})
	return r
}

// Fail makes commands starting with prefix exit with an error.
func (r *Recorder) Fail(prefix string) *Recorder {
	return r.On(prefix, func(cmd Cmd) error {
		return fmt.Errorf("%s: exit status 1", cmd.Line())
	})
}

// Missing makes LookPath report the tools as not installed.
func (r *Recorder) Missing(names ...string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.missing[name] = true
	}
	return r
}

func (r *Recorder) Run(ctx context.Context, cmd Cmd) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	var fn Hook
	line := cmd.Line()
	for _, h := range r.hooks {
		if line == h.prefix || strings.HasPrefix(line, h.prefix+" ") {
			fn = h.fn
			break
		}
	}
	missing := r.missing[cmd.Name]
	r.mu.Unlock()

	if missing {
		return fmt.Errorf("%s: %w", line, exec.ErrNotFound)
	}
	if fn != nil {
		return fn(cmd)
	}
	return nil
}

func (r *Recorder) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

// Calls returns every recorded invocation in order.
func (r *Recorder) Calls() []Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Cmd{}, r.calls...)
}

// Lines returns the recorded invocations rendered with Cmd.Line.
func (r *Recorder) Lines() []string {
	var lines []string
	for _, cmd := range r.Calls() {
		lines = append(lines, cmd.Line())
	}
	return lines
}

// Ran reports whether a command starting with prefix was invoked.
func (r *Recorder) Ran(prefix string) bool {
	for _, line := range r.Lines() {
		if line == prefix || strings.HasPrefix(line, prefix+" ") {
			return true
		}
	}
	return false
}
