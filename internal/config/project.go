package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Project represents a semcore.yaml (or semcore.toml) project file.
type Project struct {
	// Name of the project, used as the session name.
	Name string `yaml:"name" toml:"name"`

	// Strict makes override conflicts errors. Otherwise they are warnings.
	Strict bool `yaml:"strict,omitempty" toml:"strict"`

	// Workers bounds the number of files resolved concurrently.
	Workers int `yaml:"workers,omitempty" toml:"workers"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty" toml:"log_level"`

	// Builtins controls the in-memory built-in library. It is enabled
	// unless explicitly disabled.
	Builtins *bool `yaml:"builtins,omitempty" toml:"builtins"`

	// Modules are the compilation units of the project. Dependencies must
	// name other entries of this list.
	Modules []ModuleConfig `yaml:"modules" toml:"modules"`

	// Root is the directory containing the project file. Relative paths
	// are resolved against it. Not read from the file.
	Root string `yaml:"-" toml:"-"`
}

// ModuleConfig describes a single module.
type ModuleConfig struct {
	Name string `yaml:"name" toml:"name"`

	// Platform is "common" for platform-independent modules. A module on
	// another platform that depends on a common module of the same source
	// kind implements it.
	Platform string `yaml:"platform,omitempty" toml:"platform"`

	// SourceKind separates main and test modules.
	SourceKind string `yaml:"source_kind,omitempty" toml:"source_kind"`

	// Sources are glob patterns of declaration files, relative to Root.
	Sources []string `yaml:"sources,omitempty" toml:"sources"`

	// Metadata are glob patterns of compiled metadata streams.
	Metadata []string `yaml:"metadata,omitempty" toml:"metadata"`

	// Store is an optional sqlite metadata store read in addition to
	// Metadata files.
	Store string `yaml:"store,omitempty" toml:"store"`

	Dependencies []string `yaml:"dependencies,omitempty" toml:"dependencies"`

	// Friends see the internal declarations of this module.
	Friends []string `yaml:"friends,omitempty" toml:"friends"`
}

// LoadProject reads and parses a project file. The format is chosen by
// extension.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", path, err)
	}
	p, err := ParseProject(data, path)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		p.Root = abs
	}
	return p, nil
}

// ParseProject parses project file content. The path argument selects the
// format and is used in error messages.
func ParseProject(data []byte, path string) (*Project, error) {
	var p Project
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	p.setDefaults()
	if err := p.validate(path); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindProject searches for a project file starting from dir and walking up
// to parent directories. It returns "" and a nil error when none is found.
func FindProject(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range ProjectFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// BuiltinsEnabled reports whether the built-in library is loaded.
func (p *Project) BuiltinsEnabled() bool {
	return p.Builtins == nil || *p.Builtins
}

// Module returns the module configuration with the given name.
func (p *Project) Module(name string) (*ModuleConfig, bool) {
	for i := range p.Modules {
		if p.Modules[i].Name == name {
			return &p.Modules[i], true
		}
	}
	return nil, false
}

// Resolve makes a project-relative path absolute.
func (p *Project) Resolve(path string) string {
	if filepath.IsAbs(path) || p.Root == "" {
		return path
	}
	return filepath.Join(p.Root, path)
}

// ModuleOrder returns modules sorted so that every module follows its
// dependencies.
func (p *Project) ModuleOrder() ([]*ModuleConfig, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(p.Modules))
	var order []*ModuleConfig
	var visit func(m *ModuleConfig, path []string) error
	visit = func(m *ModuleConfig, path []string) error {
		switch state[m.Name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("module dependency cycle: %s -> %s", strings.Join(path, " -> "), m.Name)
		}
		state[m.Name] = visiting
		for _, dep := range m.Dependencies {
			if dep == m.Name {
				continue
			}
			dm, ok := p.Module(dep)
			if !ok {
				return fmt.Errorf("module %s: unknown dependency %q", m.Name, dep)
			}
			if err := visit(dm, append(path, m.Name)); err != nil {
				return err
			}
		}
		state[m.Name] = done
		order = append(order, m)
		return nil
	}
	for i := range p.Modules {
		if err := visit(&p.Modules[i], nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (p *Project) setDefaults() {
	if p.Workers == 0 {
		p.Workers = DefaultWorkers
	}
	if p.LogLevel == "" {
		p.LogLevel = DefaultLogLevel
	}
	for i := range p.Modules {
		m := &p.Modules[i]
		if m.Platform == "" {
			m.Platform = DefaultPlatform
		}
		if m.SourceKind == "" {
			m.SourceKind = DefaultSource
		}
	}
}

// validate checks the configuration for semantic errors.
func (p *Project) validate(path string) error {
	if len(p.Modules) == 0 {
		return fmt.Errorf("%s: no modules defined", path)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%s: workers must not be negative", path)
	}
	switch p.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s: unknown log_level %q", path, p.LogLevel)
	}

	seen := make(map[string]bool, len(p.Modules))
	for i, m := range p.Modules {
		if m.Name == "" {
			return fmt.Errorf("%s: modules[%d]: name is required", path, i)
		}
		if seen[m.Name] {
			return fmt.Errorf("%s: modules[%d]: duplicate module %q", path, i, m.Name)
		}
		seen[m.Name] = true
		if m.Name == BuiltinsModule {
			return fmt.Errorf("%s: modules[%d]: %q is reserved", path, i, m.Name)
		}
	}
	for i, m := range p.Modules {
		for _, d := range m.Dependencies {
			if !seen[d] {
				return fmt.Errorf("%s: modules[%d] (%s): unknown dependency %q", path, i, m.Name, d)
			}
		}
		for _, f := range m.Friends {
			if !seen[f] {
				return fmt.Errorf("%s: modules[%d] (%s): unknown friend %q", path, i, m.Name, f)
			}
			if f == m.Name {
				return fmt.Errorf("%s: modules[%d] (%s): a module cannot be its own friend", path, i, m.Name)
			}
		}
	}
	if _, err := p.ModuleOrder(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
