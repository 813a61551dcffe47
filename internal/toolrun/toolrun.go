// Package toolrun runs the external tools the pipeline drives: git, the
// workspace and package managers, the container engine and compose.
package toolrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Cmd is one external tool invocation.
type Cmd struct {
	Dir  string
	Name string
	Args []string
	Env  []string // extra KEY=value pairs on top of the process environment
}

// Command builds a Cmd running name with args in dir.
func Command(dir, name string, args ...string) Cmd {
	return Cmd{Dir: dir, Name: name, Args: args}
}

// Line renders the command as it would be typed.
func (c Cmd) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes external tools.
type Runner interface {
	// Run blocks until the tool exits; a non-zero exit is an error.
	Run(ctx context.Context, cmd Cmd) error
	// LookPath reports where a tool lives, failing when it is not installed.
	LookPath(name string) (string, error)
}

// Exec runs tools as child processes, streaming their output.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewExec(stdout, stderr io.Writer) *Exec {
	return &Exec{Stdout: stdout, Stderr: stderr}
}

func (e *Exec) Run(ctx context.Context, cmd Cmd) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Line(), err)
	}
	return nil
}

func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Available reports whether a tool is installed.
func Available(r Runner, name string) bool {
	_, err := r.LookPath(name)
	return err == nil
}
