// Package config loads rapidc settings from defaults, a rapidc.yaml file,
// RAPIDC_ environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/dhamidi/rapidc/catalog"
	"github.com/dhamidi/rapidc/offload"
	"github.com/dhamidi/rapidc/project"
)

const (
	FileName  = "rapidc.yaml"
	EnvPrefix = "RAPIDC_"
)

// sections are the nested key groups; a flag or variable starting with one
// of them addresses a key inside it (runtime-handle -> runtime.handle).
var sections = []string{"runtime", "xml"}

type RuntimeConfig struct {
	Handle    string `koanf:"handle"`
	Accessor  string `koanf:"accessor"`
	Available string `koanf:"available"`
	Execute   string `koanf:"execute"`
	Failure   string `koanf:"failure"`
}

type XMLConfig struct {
	// Verbatim writes element values without escaping markup characters.
	Verbatim bool `koanf:"verbatim"`
}

type Config struct {
	Runtime     RuntimeConfig `koanf:"runtime"`
	XML         XMLConfig     `koanf:"xml"`
	BackupRoot  string        `koanf:"backup_root"`
	Extension   string        `koanf:"extension"`
	LocalPrefix string        `koanf:"local_prefix"`
	Application string        `koanf:"application"`
	Verbose     int           `koanf:"verbose"`

	// File is the configuration file that was read, if any.
	File string `koanf:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"runtime.handle":    offload.DefaultHandleType,
		"runtime.accessor":  offload.DefaultAccessor,
		"runtime.available": offload.DefaultAvailableMethod,
		"runtime.execute":   offload.DefaultExecuteMethod,
		"runtime.failure":   offload.DefaultFailureType,
		"xml.verbatim":      false,
		"backup_root":       "",
		"extension":         project.DefaultExtension,
		"local_prefix":      offload.DefaultLocalPrefix,
		"application":       catalog.DefaultApplicationName,
		"verbose":           0,
	}
}

// Load builds the configuration. Precedence, highest first: flags that were
// set explicitly, RAPIDC_ environment variables, the configuration file,
// defaults. cfgFile names the file explicitly; otherwise rapidc.yaml is
// looked up in the working directory and then in projectDir.
func Load(cfgFile, projectDir string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path, err := findConfigFile(cfgFile, projectDir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// RAPIDC_RUNTIME_HANDLE -> runtime.handle, RAPIDC_BACKUP_ROOT -> backup_root
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return sectionKey(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return sectionKey(strings.ReplaceAll(f.Name, "-", "_")), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path
	if cfg.BackupRoot != "" {
		cfg.BackupRoot = expandHome(cfg.BackupRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// sectionKey turns runtime_handle into runtime.handle. Keys outside a
// section are returned unchanged.
func sectionKey(key string) string {
	for _, s := range sections {
		if rest, ok := strings.CutPrefix(key, s+"_"); ok {
			return s + "." + rest
		}
	}
	return key
}

func findConfigFile(explicit, projectDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}
	if projectDir == "" {
		return "", nil
	}
	if info, err := os.Stat(projectDir); err == nil && !info.IsDir() {
		projectDir = filepath.Dir(projectDir)
	}
	candidate := filepath.Join(projectDir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~"+string(filepath.Separator))
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// OffloadRuntime returns the runtime handle described by c.
func (c *Config) OffloadRuntime() offload.Runtime {
	return offload.Runtime{
		HandleType:      c.Runtime.Handle,
		Accessor:        c.Runtime.Accessor,
		AvailableMethod: c.Runtime.Available,
		ExecuteMethod:   c.Runtime.Execute,
		FailureType:     c.Runtime.Failure,
		LocalPrefix:     c.LocalPrefix,
	}
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("extension %q must start with a dot", c.Extension)
	}
	if err := c.OffloadRuntime().Validate(); err != nil {
		return fmt.Errorf("invalid runtime configuration: %w", err)
	}
	return nil
}

// DriverOptions returns the project driver options for c.
func (c *Config) DriverOptions() []project.Option {
	opts := []project.Option{
		project.WithRuntime(c.OffloadRuntime()),
		project.WithExtension(c.Extension),
		project.WithEncoderOptions(
			catalog.WithApplicationName(c.Application),
			catalog.WithVerbatimValues(c.XML.Verbatim),
		),
	}
	if c.BackupRoot != "" {
		opts = append(opts, project.WithBackupRoot(c.BackupRoot))
	}
	return opts
}
