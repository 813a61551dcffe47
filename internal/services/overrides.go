package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Override adjusts one known service. Zero fields leave the default alone.
type Override struct {
	Preset   string   `toml:"preset" yaml:"preset"`
	Aliases  []string `toml:"aliases" yaml:"aliases"`
	EnvKey   string   `toml:"env_key" yaml:"env_key"`
	Disabled bool     `toml:"disabled" yaml:"disabled"`
}

// OverrideFile is the on-disk shape of a registry override file:
//
//	[services.front]
//	preset = "apps/front"
//	aliases = ["web"]
type OverrideFile struct {
	Services map[string]Override `toml:"services" yaml:"services"`
}

// LoadOverrides reads a TOML or YAML override file, chosen by extension.
func LoadOverrides(path string) (*OverrideFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}

	var file OverrideFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported services file %s: want .toml, .yaml or .yml", path)
	}
	return &file, nil
}

// Apply returns a new registry with the overrides merged in. The service set
// itself is fixed: naming an unknown service is an error.
func (r *Registry) Apply(file *OverrideFile) (*Registry, error) {
	if file == nil || len(file.Services) == 0 {
		return r, nil
	}

	specs := make([]Spec, len(r.specs))
	copy(specs, r.specs)

	for name, override := range file.Services {
		idx := -1
		for i := range specs {
			if specs[i].Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("services file: unknown service %q", name)
		}

		spec := specs[idx]
		if override.Preset != "" {
			spec.Preset = filepath.ToSlash(filepath.Clean(override.Preset))
		}
		if len(override.Aliases) > 0 {
			aliases := append([]string{}, spec.Aliases...)
			for _, alias := range override.Aliases {
				if alias = strings.TrimSpace(alias); alias != "" {
					aliases = append(aliases, alias)
				}
			}
			spec.Aliases = aliases
		}
		if override.EnvKey != "" {
			spec.EnvKey = override.EnvKey
		}
		spec.Disabled = override.Disabled
		specs[idx] = spec
	}

	return &Registry{specs: specs}, nil
}
