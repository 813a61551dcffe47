// Package npm inspects node package manifests and lockfiles.
package npm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager is a node package manager binary.
type Manager string

const (
	NPM  Manager = "npm"
	PNPM Manager = "pnpm"
	Yarn Manager = "yarn"
)

// Lockfiles recognized in a package directory, in detection order.
var Lockfiles = []string{"pnpm-lock.yaml", "yarn.lock", "package-lock.json", "npm-shrinkwrap.json"}

// Manifests are the files copied alongside a package's artifacts.
var Manifests = append([]string{"package.json"}, Lockfiles...)

// BuildScripts are tried in this order when producing artifacts directly.
var BuildScripts = []string{"bundle", "build", "package", "compile"}

// Package is the subset of package.json the toolchain reads.
type Package struct {
	Dir            string            `json:"-"`
	Name           string            `json:"name"`
	Scripts        map[string]string `json:"scripts"`
	PackageManager string            `json:"packageManager"`
}

// Load reads dir/package.json.
func Load(dir string) (*Package, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, err
	}
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse %s/package.json: %w", dir, err)
	}
	pkg.Dir = dir
	return &pkg, nil
}

// HasScript reports whether the package defines a script.
func (p *Package) HasScript(name string) bool {
	_, ok := p.Scripts[name]
	return ok
}

// AvailableScripts returns the preferred build scripts the package defines.
func (p *Package) AvailableScripts() []string {
	var out []string
	for _, name := range BuildScripts {
		if p.HasScript(name) {
			out = append(out, name)
		}
	}
	return out
}

// Pinned splits the packageManager field ("pnpm@8.15.4") into manager and
// version. ok is false when the field is absent or malformed.
func (p *Package) Pinned() (Manager, string, bool) {
	name, version, found := strings.Cut(p.PackageManager, "@")
	if !found || name == "" || version == "" {
		return "", "", false
	}
	// strip an integrity suffix like "+sha512.abc"
	version, _, _ = strings.Cut(version, "+")
	return Manager(name), version, true
}

// Detect picks a package manager by lockfile: pnpm, then yarn, else npm.
func Detect(dir string) Manager {
	if fileExists(filepath.Join(dir, "pnpm-lock.yaml")) {
		return PNPM
	}
	if fileExists(filepath.Join(dir, "yarn.lock")) {
		return Yarn
	}
	return NPM
}

// RunArgs returns the arguments that run a package script.
func RunArgs(m Manager, script string) []string {
	if m == Yarn {
		return []string{script}
	}
	return []string{"run", script}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
