// Package config loads the deployment configuration shared by every command.
// Values come from flags, HULY_* environment variables and the deployment's
// huly.conf, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ErzenXz/huly-selfhost/internal/services"
)

// FileName is the deployment config file looked up in the deploy directory.
const FileName = "huly.conf"

// EnvPrefix namespaces environment overrides, e.g. HULY_SOURCE_DIR.
const EnvPrefix = "HULY"

// Keys understood in huly.conf and the environment.
const (
	KeyDeployDir       = "deploy_dir"
	KeySourceDir       = "source_dir"
	KeyOverrideFile    = "override_file"
	KeyStateFile       = "state_file"
	KeyLockDir         = "lock_dir"
	KeyBuildContextDir = "build_context_dir"
	KeyContainerEngine = "container_engine"
	KeyEngineMode      = "engine_mode"
	KeyComposeFile     = "compose_file"
	KeyProjectName     = "docker_name"
	KeyKubeNamespace   = "kube_namespace"
	KeyKubeconfig      = "kubeconfig"
	KeyRegistry        = "build_registry"
	KeyServicesFile    = "services_file"
)

// Config is the resolved deployment configuration. Paths are absolute.
type Config struct {
	DeployDir       string
	SourceDir       string // managed clone location for remote sources
	OverrideFile    string
	StateFile       string
	LockDir         string
	BuildContextDir string
	ContainerEngine string
	EngineMode      string
	ComposeFile     string
	ProjectName     string
	KubeNamespace   string
	Kubeconfig      string
	Registry        string
	ServicesFile    string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDeployDir, ".")
	v.SetDefault(KeySourceDir, filepath.Join(".source", "platform"))
	v.SetDefault(KeyOverrideFile, ".images.conf")
	v.SetDefault(KeyStateFile, ".build-source.json")
	v.SetDefault(KeyLockDir, ".update.lock")
	v.SetDefault(KeyBuildContextDir, ".build-context")
	v.SetDefault(KeyContainerEngine, "docker")
	v.SetDefault(KeyEngineMode, "cli")
	v.SetDefault(KeyComposeFile, "compose.yml")
	v.SetDefault(KeyProjectName, "huly")
	v.SetDefault(KeyKubeNamespace, "huly")
	return v
}

// ReadFile merges the deployment config file into v. With an empty path,
// huly.conf in the deploy directory is used if it exists.
func ReadFile(v *viper.Viper, path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(v.GetString(KeyDeployDir), FileName)
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config file: %w", err)
	}

	v.SetConfigFile(path)
	// huly.conf is a dotenv file, whatever its extension
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return path, nil
}

// Load resolves the configuration from v.
func Load(v *viper.Viper) (Config, error) {
	deployDir, err := filepath.Abs(v.GetString(KeyDeployDir))
	if err != nil {
		return Config{}, fmt.Errorf("resolve deploy dir: %w", err)
	}

	resolve := func(key string) string {
		p := v.GetString(key)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(deployDir, p)
	}

	cfg := Config{
		DeployDir:       deployDir,
		SourceDir:       resolve(KeySourceDir),
		OverrideFile:    resolve(KeyOverrideFile),
		StateFile:       resolve(KeyStateFile),
		LockDir:         resolve(KeyLockDir),
		BuildContextDir: resolve(KeyBuildContextDir),
		ContainerEngine: v.GetString(KeyContainerEngine),
		EngineMode:      v.GetString(KeyEngineMode),
		ComposeFile:     resolve(KeyComposeFile),
		ProjectName:     v.GetString(KeyProjectName),
		KubeNamespace:   v.GetString(KeyKubeNamespace),
		Kubeconfig:      v.GetString(KeyKubeconfig),
		Registry:        strings.TrimSuffix(v.GetString(KeyRegistry), "/"),
		ServicesFile:    resolve(KeyServicesFile),
	}

	switch cfg.ContainerEngine {
	case "docker", "podman":
	default:
		return Config{}, fmt.Errorf("%s: unsupported container engine %q", strings.ToUpper(KeyContainerEngine), cfg.ContainerEngine)
	}
	return cfg, nil
}

// Services returns the service registry with any configured overrides applied.
func (c Config) Services() (*services.Registry, error) {
	registry := services.Default()
	if c.ServicesFile == "" {
		return registry, nil
	}
	file, err := services.LoadOverrides(c.ServicesFile)
	if err != nil {
		return nil, err
	}
	return registry.Apply(file)
}
