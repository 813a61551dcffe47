// Package ui narrates pipeline progress for humans.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

type Formatter func(format string, a ...interface{}) string

var (
	StepString    Formatter = color.New(color.Bold).Add(color.FgHiBlue).SprintfFunc()
	SuccessString Formatter = color.GreenString
	FailureString Formatter = color.RedString
	WarningString Formatter = color.YellowString
	IDString      Formatter = color.HiCyanString
	FaintString   Formatter = color.New(color.FgHiBlack).SprintfFunc()
)

// Printer writes progress lines. Informational output goes to Out, warnings
// and failures to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

func NewPrinter(out, err io.Writer) *Printer {
	return &Printer{Out: out, Err: err}
}

// Stdio returns a printer on the process's standard streams.
func Stdio() *Printer {
	return NewPrinter(os.Stdout, os.Stderr)
}

// Discard returns a printer that drops everything.
func Discard() *Printer {
	return NewPrinter(io.Discard, io.Discard)
}

// DisableColor turns colour off for every printer in the process.
func DisableColor() {
	color.NoColor = true
}

func (p *Printer) Step(format string, a ...interface{}) {
	fmt.Fprintf(p.Out, "%s %s\n", StepString("==>"), fmt.Sprintf(format, a...))
}

func (p *Printer) Info(format string, a ...interface{}) {
	fmt.Fprintf(p.Out, "    %s\n", fmt.Sprintf(format, a...))
}

func (p *Printer) Success(format string, a ...interface{}) {
	fmt.Fprintf(p.Out, "%s %s\n", SuccessString("✓"), fmt.Sprintf(format, a...))
}

func (p *Printer) Warn(format string, a ...interface{}) {
	fmt.Fprintf(p.Err, "%s %s\n", WarningString("warning:"), fmt.Sprintf(format, a...))
}

func (p *Printer) Fail(format string, a ...interface{}) {
	fmt.Fprintf(p.Err, "%s %s\n", FailureString("✗"), fmt.Sprintf(format, a...))
}
