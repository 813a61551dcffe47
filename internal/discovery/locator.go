package discovery

import (
	"errors"
	"fmt"

	"github.com/ErzenXz/huly-selfhost/internal/filesystems"
	"github.com/ErzenXz/huly-selfhost/internal/services"
)

// ErrNotFound is returned when no build context matches a service.
var ErrNotFound = errors.New("no build context found")

// Method records how a build context was located.
type Method string

const (
	MethodPreset Method = "preset"
	MethodAlias  Method = "alias"
)

// Location is a resolved build context for one service
type Location struct {
	Service string
	Dir     string
	Recipe  string
	Method  Method
}

// Locator maps services to build contexts inside one source tree. The full
// tree scan only happens the first time a preset path misses.
type Locator struct {
	filesystem filesystems.FileSystem
	root       string
	scanner    *Scanner

	scanned    bool
	candidates []Candidate
}

func NewLocator(filesystem filesystems.FileSystem, root string) *Locator {
	return &Locator{
		filesystem: filesystem,
		root:       root,
		scanner:    NewScanner(),
	}
}

// Locate resolves spec to a build context: the preset path when it carries a
// recipe, otherwise the first alias match over every recipe in the tree.
func (l *Locator) Locate(spec services.Spec) (Location, error) {
	if spec.Preset != "" {
		dir := l.filesystem.Join(l.root, spec.Preset)
		recipe := l.filesystem.Join(dir, RecipeName)
		if filesystems.IsFile(l.filesystem, recipe) {
			return Location{Service: spec.Name, Dir: dir, Recipe: recipe, Method: MethodPreset}, nil
		}
	}

	candidates, err := l.Candidates()
	if err != nil {
		return Location{}, err
	}

	aliases := append([]string{spec.Name}, spec.Aliases...)
	if candidate, ok := Match(l.filesystem, l.root, aliases, candidates); ok {
		return Location{Service: spec.Name, Dir: candidate.Dir, Recipe: candidate.Recipe, Method: MethodAlias}, nil
	}

	return Location{}, fmt.Errorf("%s: %w", spec.Name, ErrNotFound)
}

// Candidates returns (and caches) every recipe directory in the tree.
func (l *Locator) Candidates() ([]Candidate, error) {
	if l.scanned {
		return l.candidates, nil
	}
	candidates, err := l.scanner.Scan(l.filesystem, l.root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", l.root, err)
	}
	l.candidates = candidates
	l.scanned = true
	return candidates, nil
}
