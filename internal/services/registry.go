// Package services holds the fixed set of Huly services the toolchain knows
// how to build, together with the hints used to locate their build contexts.
package services

import (
	"fmt"
	"slices"
	"strings"
)

// Spec describes one buildable service.
type Spec struct {
	// Name is the service identity, e.g. "front" or "transactor".
	Name string
	// Preset is the build context relative to the source root, tried first.
	Preset string
	// Aliases are directory names that identify the service during discovery.
	Aliases []string
	// EnvKey is the override variable written for the service, e.g. IMAGE_FRONT.
	EnvKey string
	// Disabled services are never built.
	Disabled bool
}

// IsFront reports whether the spec is the front-end service, which gets extra
// treatment for static assets.
func (s Spec) IsFront() bool {
	return s.Name == Front
}

// Names of the known services.
const (
	Front        = "front"
	Account      = "account"
	Transactor   = "transactor"
	Collaborator = "collaborator"
	Workspace    = "workspace"
	Fulltext     = "fulltext"
	Rekoni       = "rekoni"
	Stats        = "stats"
	KVS          = "kvs"
	Print        = "print"
)

var defaults = []Spec{
	{Name: Front, Preset: "pods/front", Aliases: []string{"front", "pod-front"}},
	{Name: Account, Preset: "pods/account", Aliases: []string{"account", "pod-account"}},
	{Name: Transactor, Preset: "pods/server", Aliases: []string{"transactor", "server", "pod-server"}},
	{Name: Collaborator, Preset: "pods/collaborator", Aliases: []string{"collaborator", "pod-collaborator"}},
	{Name: Workspace, Preset: "pods/workspace", Aliases: []string{"workspace", "pod-workspace"}},
	{Name: Fulltext, Preset: "pods/fulltext", Aliases: []string{"fulltext", "pod-fulltext"}},
	{Name: Rekoni, Preset: "services/rekoni", Aliases: []string{"rekoni", "rekoni-service"}},
	{Name: Stats, Preset: "pods/stats", Aliases: []string{"stats", "pod-stats"}},
	{Name: KVS, Preset: "pods/kvs", Aliases: []string{"kvs", "pod-kvs"}},
	{Name: Print, Preset: "services/print/pod-print", Aliases: []string{"print", "pod-print"}},
}

// Registry is an ordered, immutable set of service specs. Iteration order is
// the order in which services are built and written to the override file.
type Registry struct {
	specs []Spec
}

// Default returns the built-in registry.
func Default() *Registry {
	specs := make([]Spec, len(defaults))
	for i, spec := range defaults {
		spec.Aliases = slices.Clone(spec.Aliases)
		spec.EnvKey = EnvKeyFor(spec.Name)
		specs[i] = spec
	}
	return &Registry{specs: specs}
}

// EnvKeyFor derives the override variable name for a service.
func EnvKeyFor(name string) string {
	key := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
	return "IMAGE_" + key
}

// All returns the enabled specs in build order.
func (r *Registry) All() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		if !spec.Disabled {
			out = append(out, spec)
		}
	}
	return out
}

// Get looks a spec up by name, disabled or not.
func (r *Registry) Get(name string) (Spec, bool) {
	for _, spec := range r.specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return Spec{}, false
}

// ByEnvKey finds the spec owning an override variable.
func (r *Registry) ByEnvKey(key string) (Spec, bool) {
	for _, spec := range r.specs {
		if spec.EnvKey == key {
			return spec, true
		}
	}
	return Spec{}, false
}

// Names lists every known service name in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, spec := range r.specs {
		names[i] = spec.Name
	}
	return names
}

// Select returns the enabled specs whose names appear in names, keeping
// registry order. An empty selection means every enabled service.
func (r *Registry) Select(names []string) ([]Spec, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		if _, ok := r.Get(name); !ok {
			return nil, fmt.Errorf("unknown service %q (known: %s)", name, strings.Join(r.Names(), ", "))
		}
		wanted[name] = true
	}

	var out []Spec
	for _, spec := range r.All() {
		if wanted[spec.Name] {
			out = append(out, spec)
		}
	}
	return out, nil
}
