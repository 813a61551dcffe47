package discovery

import (
	"slices"
	"strings"

	"github.com/ErzenXz/huly-selfhost/internal/filesystems"
)

// RecipeName is the container build recipe every build context must carry.
const RecipeName = "Dockerfile"

// Candidate is a directory holding a build recipe
type Candidate struct {
	Dir    string // directory containing the recipe
	Recipe string // full path to the recipe
}

// Detector decides whether a file marks its directory as a build context
type Detector interface {
	Name() string
	Detect(filename, fullPath string, info filesystems.FileInfo) bool
}

// RecipeDetector matches container build recipes by exact file name.
type RecipeDetector struct{}

func (RecipeDetector) Name() string { return "dockerfile" }

func (RecipeDetector) Detect(filename, fullPath string, info filesystems.FileInfo) bool {
	return !info.IsDir() && filename == RecipeName
}

// skippedDirs are never descended into: dependency caches, VCS metadata and
// the workspace tool's scratch space hold recipes that are not services.
var skippedDirs = map[string]bool{
	"node_modules":   true,
	".git":           true,
	".rush":          true,
	".build-context": true,
}

// Scanner walks a tree and collects build context candidates
type Scanner struct {
	detectors []Detector
}

func NewScanner() *Scanner {
	return &Scanner{detectors: []Detector{RecipeDetector{}}}
}

// NewScannerWithDetectors creates a scanner with the provided detectors
func NewScannerWithDetectors(detectors ...Detector) *Scanner {
	return &Scanner{detectors: detectors}
}

// Scan returns every candidate under root in lexical walk order.
func (s *Scanner) Scan(filesystem filesystems.FileSystem, root string) ([]Candidate, error) {
	var candidates []Candidate
	seen := make(map[string]bool)

	err := filesystem.Walk(root, func(path string, info filesystems.FileInfo, err error) error {
		if err != nil {
			// unreadable subtrees are not fatal to discovery
			if info != nil && info.IsDir() {
				return filesystems.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path != root && skipDir(filesystem, path, info.Name()) {
				return filesystems.SkipDir
			}
			return nil
		}

		for _, detector := range s.detectors {
			if detector.Detect(info.Name(), path, info) {
				dir := filesystem.Dir(path)
				if !seen[dir] {
					seen[dir] = true
					candidates = append(candidates, Candidate{Dir: dir, Recipe: path})
				}
				break // first match wins
			}
		}
		return nil
	})

	return candidates, err
}

func skipDir(filesystem filesystems.FileSystem, path, name string) bool {
	if skippedDirs[name] {
		return true
	}
	// rush keeps its install state under common/temp
	if name == "temp" && filesystem.Base(filesystem.Dir(path)) == "common" {
		return true
	}
	return false
}

// Match picks the first candidate whose path (relative to root) names one of
// aliases as a full path segment; failing that, the first whose path merely
// contains an alias. Comparison is case-insensitive. Match has no side
// effects and does not touch the filesystem beyond path arithmetic.
func Match(filesystem filesystems.FileSystem, root string, aliases []string, candidates []Candidate) (Candidate, bool) {
	paths := make([]string, len(candidates))
	for i, candidate := range candidates {
		rel, err := filesystem.Rel(root, candidate.Dir)
		if err != nil {
			rel = candidate.Dir
		}
		paths[i] = "/" + strings.ToLower(strings.ReplaceAll(rel, "\\", "/"))
	}

	needles := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		if alias = strings.ToLower(strings.Trim(alias, "/ ")); alias != "" && !slices.Contains(needles, alias) {
			needles = append(needles, alias)
		}
	}

	for i, path := range paths {
		for _, alias := range needles {
			if strings.Contains(path+"/", "/"+alias+"/") {
				return candidates[i], true
			}
		}
	}

	for i, path := range paths {
		for _, alias := range needles {
			if strings.Contains(path, alias) {
				return candidates[i], true
			}
		}
	}

	return Candidate{}, false
}
