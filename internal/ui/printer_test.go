package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrinterRoutesStreams(t *testing.T) {
	DisableColor()
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut)

	p.Step("building %s", "front")
	p.Info("context %s", "/tmp/ctx")
	p.Success("built")
	p.Warn("skipping %s", "kvs")
	p.Fail("failed")

	if want := "==> building front\n    context /tmp/ctx\n✓ built\n"; out.String() != want {
		t.Errorf("unexpected stdout %q", out.String())
	}
	if want := "warning: skipping kvs\n✗ failed\n"; errOut.String() != want {
		t.Errorf("unexpected stderr %q", errOut.String())
	}
}

func TestTablePrint(t *testing.T) {
	var buf bytes.Buffer
	table := &Table{Headers: []string{"service", "context"}}
	table.Append("front", "pods/front")
	table.Append("transactor", "pods/server")
	table.Print(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "SERVICE") || !strings.Contains(lines[2], "pods/server") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}
