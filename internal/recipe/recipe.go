// Package recipe models a container build recipe (Dockerfile) as an ordered
// list of instructions that can be inspected and rewritten without touching
// the text of lines it does not own.
package recipe

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// Instruction is one parsed recipe instruction together with the source lines
// it was parsed from.
type Instruction struct {
	Command string   // lowercase keyword, e.g. "copy"
	Flags   []string // e.g. "--from=builder"
	Args    []string
	Line    int // 1-based start line, 0 for inserted instructions

	raw      []string // instruction lines including continuations
	trailing []string // blank and comment lines up to the next instruction
}

// Flag returns the value of --name=value, if present.
func (i Instruction) Flag(name string) (string, bool) {
	prefix := "--" + name + "="
	for _, flag := range i.Flags {
		if strings.HasPrefix(flag, prefix) {
			return strings.TrimPrefix(flag, prefix), true
		}
		if flag == "--"+name {
			return "", true
		}
	}
	return "", false
}

// IsCopy reports whether the instruction copies from the build context. Copies
// from other stages (--from) do not read the context.
func (i Instruction) IsCopy() bool {
	if i.Command != "copy" && i.Command != "add" {
		return false
	}
	_, staged := i.Flag("from")
	return !staged
}

// Sources returns the context paths a copy instruction reads, normalized to
// slash form without a leading "./".
func (i Instruction) Sources() []string {
	if !i.IsCopy() || len(i.Args) < 2 {
		return nil
	}
	sources := make([]string, 0, len(i.Args)-1)
	for _, arg := range i.Args[:len(i.Args)-1] {
		sources = append(sources, normalize(arg))
	}
	return sources
}

func (i Instruction) String() string {
	if len(i.raw) > 0 {
		return strings.Join(i.raw, "\n")
	}
	return strings.TrimSpace(strings.ToUpper(i.Command) + " " + strings.Join(append(append([]string{}, i.Flags...), i.Args...), " "))
}

// Recipe is a parsed Dockerfile.
type Recipe struct {
	header       []string
	Instructions []Instruction
}

// ParseFile reads and parses the recipe at path.
func ParseFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}

// Parse builds a Recipe from Dockerfile source.
func Parse(data []byte) (*Recipe, error) {
	result, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	lines := splitLines(data)
	r := &Recipe{}

	children := result.AST.Children
	if len(children) == 0 {
		r.header = lines
		return r, nil
	}

	r.header = slice(lines, 0, children[0].StartLine-1)

	for idx, node := range children {
		end := len(lines)
		if idx+1 < len(children) {
			end = children[idx+1].StartLine - 1
		}
		body := slice(lines, node.StartLine-1, end)
		raw, trailing := splitTrailing(body)

		inst := Instruction{
			Command:  strings.ToLower(node.Value),
			Flags:    append([]string{}, node.Flags...),
			Line:     node.StartLine,
			raw:      raw,
			trailing: trailing,
		}
		for n := node.Next; n != nil; n = n.Next {
			inst.Args = append(inst.Args, n.Value)
		}
		r.Instructions = append(r.Instructions, inst)
	}

	return r, nil
}

// NewInstruction parses a single instruction line, e.g. "COPY dist/ ./dist/".
func NewInstruction(text string) (Instruction, error) {
	parsed, err := Parse([]byte(text + "\n"))
	if err != nil {
		return Instruction{}, err
	}
	if len(parsed.Instructions) != 1 {
		return Instruction{}, fmt.Errorf("expected one instruction in %q, got %d", text, len(parsed.Instructions))
	}
	inst := parsed.Instructions[0]
	inst.Line = 0
	inst.trailing = nil
	return inst, nil
}

// CopiesPath reports whether any context copy reads dir or something inside it.
func (r *Recipe) CopiesPath(dir string) bool {
	dir = normalize(dir)
	for _, inst := range r.Instructions {
		for _, src := range inst.Sources() {
			if src == dir || strings.HasPrefix(src, dir+"/") {
				return true
			}
		}
	}
	return false
}

// Sources lists every distinct context path read by copy instructions, in
// recipe order.
func (r *Recipe) Sources() []string {
	var out []string
	seen := make(map[string]bool)
	for _, inst := range r.Instructions {
		for _, src := range inst.Sources() {
			if !seen[src] {
				seen[src] = true
				out = append(out, src)
			}
		}
	}
	return out
}

// Index returns the position of the first instruction satisfying match, or -1.
func (r *Recipe) Index(match func(Instruction) bool) int {
	for i, inst := range r.Instructions {
		if match(inst) {
			return i
		}
	}
	return -1
}

// LastIndex returns the position of the last instruction satisfying match, or -1.
func (r *Recipe) LastIndex(match func(Instruction) bool) int {
	for i := len(r.Instructions) - 1; i >= 0; i-- {
		if match(r.Instructions[i]) {
			return i
		}
	}
	return -1
}

// InsertAfter places inst immediately after position i. Comments and blank
// lines that followed i now follow inst.
func (r *Recipe) InsertAfter(i int, inst Instruction) {
	inst.trailing, r.Instructions[i].trailing = r.Instructions[i].trailing, nil
	r.Instructions = slices.Insert(r.Instructions, i+1, inst)
}

// InsertBefore places inst immediately before position i.
func (r *Recipe) InsertBefore(i int, inst Instruction) {
	r.Instructions = slices.Insert(r.Instructions, i, inst)
}

// Append adds inst at the end of the recipe.
func (r *Recipe) Append(inst Instruction) {
	r.Instructions = append(r.Instructions, inst)
}

// Placement reports where Place put an instruction.
type Placement string

const (
	PlacedAfter    Placement = "after"
	PlacedBefore   Placement = "before"
	PlacedAppended Placement = "appended"
)

// Place inserts inst after the last instruction matching after; failing that,
// before the first instruction matching before; failing both, at the end.
// Either predicate may be nil.
func (r *Recipe) Place(inst Instruction, after, before func(Instruction) bool) Placement {
	if after != nil {
		if i := r.LastIndex(after); i >= 0 {
			r.InsertAfter(i, inst)
			return PlacedAfter
		}
	}
	if before != nil {
		if i := r.Index(before); i >= 0 {
			r.InsertBefore(i, inst)
			return PlacedBefore
		}
	}
	r.Append(inst)
	return PlacedAppended
}

// IsEntry matches the instructions that define the process an image runs.
func IsEntry(inst Instruction) bool {
	return inst.Command == "cmd" || inst.Command == "entrypoint"
}

// Render returns the recipe source. Lines of untouched instructions are
// reproduced exactly.
func (r *Recipe) Render() []byte {
	var buf bytes.Buffer
	write := func(lines []string) {
		for _, line := range lines {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}

	write(r.header)
	for _, inst := range r.Instructions {
		if len(inst.raw) > 0 {
			write(inst.raw)
		} else {
			write([]string{inst.String()})
		}
		write(inst.trailing)
	}
	return buf.Bytes()
}

func normalize(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return strings.TrimSuffix(p, "/")
}

func splitLines(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func slice(lines []string, from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return nil
	}
	return append([]string{}, lines[from:to]...)
}

// splitTrailing separates an instruction's own lines from the blank and
// comment lines that come after it.
func splitTrailing(body []string) (raw, trailing []string) {
	end := len(body)
	for end > 1 {
		line := strings.TrimSpace(body[end-1])
		if line != "" && !strings.HasPrefix(line, "#") {
			break
		}
		end--
	}
	return body[:end], body[end:]
}
