package pipeline

import (
	"io"

	"github.com/ErzenXz/huly-selfhost/internal/ui"
)

// Built is a service whose image was produced.
type Built struct {
	Service string
	EnvKey  string
	Tag     string
	Context string
}

// Skipped is a service left on its default image, with the reason.
type Skipped struct {
	Service string
	Reason  string
}

// Report is the outcome of a pipeline run.
type Report struct {
	SourceDir    string
	TagSuffix    string
	OverrideFile string
	Built        []Built
	Skipped      []Skipped
}

// BuiltServices returns the names of the services that got an image.
func (r *Report) BuiltServices() []string {
	names := make([]string, len(r.Built))
	for i, b := range r.Built {
		names[i] = b.Service
	}
	return names
}

// Print writes a summary table of the run.
func (r *Report) Print(w io.Writer) {
	table := &ui.Table{Headers: []string{"service", "result", "detail"}}
	for _, b := range r.Built {
		table.Append(b.Service, ui.SuccessString("built"), b.Tag)
	}
	for _, s := range r.Skipped {
		table.Append(s.Service, ui.WarningString("skipped"), s.Reason)
	}
	table.Print(w)
}
