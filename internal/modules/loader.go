package modules

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/gobwas/glob"

	"github.com/funvibe/semcore/internal/builtins"
	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/deserialization"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/metastore"
	"github.com/funvibe/semcore/internal/session"
)

// SourceProvider returns the provider of source declarations of a module,
// or nil when the module has none. It is called after the module's
// dependencies are set and before it is initialized.
type SourceProvider func(m *Module, cfg *config.ModuleConfig, comps *deserialization.Components) (descriptors.PackageFragmentProvider, error)

// Graph is a loaded project: the modules in dependency order and the
// deserialization components of each.
type Graph struct {
	Builtins *Module
	Modules  []*Module

	byName     map[string]*Module
	components map[*Module]*deserialization.Components
	stores     []*metastore.Store
}

// Module returns the module configured under name.
func (g *Graph) Module(name string) (*Module, bool) {
	m, ok := g.byName[name]
	return m, ok
}

func (g *Graph) Components(m *Module) *deserialization.Components {
	return g.components[m]
}

// Close releases the metadata stores opened by the loader.
func (g *Graph) Close() error {
	var errs []error
	for _, s := range g.stores {
		errs = append(errs, s.Close())
	}
	g.stores = nil
	return errors.Join(errs...)
}

// Loader builds the module graph of a project.
type Loader struct {
	Project *config.Project
	Session *session.Session

	// Sources contributes source declarations. Optional.
	Sources SourceProvider

	LoadedModules map[string]*Module
}

func NewLoader(s *session.Session, p *config.Project) *Loader {
	return &Loader{
		Project:       p,
		Session:       s,
		LoadedModules: make(map[string]*Module),
	}
}

// Load creates every module, reads its metadata, sets its dependencies and
// initializes it. Modules are processed after their dependencies. A missing
// foundational built-in aborts the load with a *diagnostics.FatalError.
func (l *Loader) Load() (g *Graph, err error) {
	g = &Graph{byName: make(map[string]*Module), components: make(map[*Module]*deserialization.Components)}
	defer func() {
		if err != nil {
			_ = g.Close()
			g = nil
		}
	}()
	defer diagnostics.RecoverFatal(&err)

	order, err := l.Project.ModuleOrder()
	if err != nil {
		return nil, err
	}

	if l.Project.BuiltinsEnabled() {
		g.Builtins = l.loadBuiltins(g)
	}
	for _, cfg := range order {
		m, err := l.loadModule(g, cfg)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", cfg.Name, err)
		}
		g.Modules = append(g.Modules, m)
		g.byName[cfg.Name] = m
		l.LoadedModules[cfg.Name] = m
	}
	return g, nil
}

func (l *Loader) loadBuiltins(g *Graph) *Module {
	m := NewModule(l.Session.Storage, config.BuiltinsModule)
	m.SetDependencies()
	comps := deserialization.NewComponents(l.Session, m, builtins.NewLibrary())
	m.Initialize(comps)
	g.components[m] = comps
	return m
}

func (l *Loader) loadModule(g *Graph, cfg *config.ModuleConfig) (*Module, error) {
	m := NewModule(l.Session.Storage, cfg.Name)
	m.Platform = cfg.Platform
	m.SourceKind = cfg.SourceKind

	var deps []*Module
	if g.Builtins != nil {
		deps = append(deps, g.Builtins)
	}
	for _, name := range cfg.Dependencies {
		if name == cfg.Name {
			continue
		}
		d, ok := g.byName[name]
		if !ok {
			return nil, fmt.Errorf("dependency %s is not loaded", name)
		}
		deps = append(deps, d)
	}
	var friends []*Module
	for _, name := range cfg.Friends {
		if f, ok := g.byName[name]; ok {
			friends = append(friends, f)
		}
	}
	m.SetDependenciesWithFriends(deps, friends)

	finder, err := l.finder(g, cfg)
	if err != nil {
		return nil, err
	}
	comps := deserialization.NewComponents(l.Session, m, finder)
	g.components[m] = comps

	var provider descriptors.PackageFragmentProvider = comps
	if l.Sources != nil {
		src, err := l.Sources(m, cfg, comps)
		if err != nil {
			return nil, err
		}
		if src != nil {
			provider = NewCompositeProvider(src, comps)
		}
	}
	m.Initialize(provider)
	l.Session.Logger.Info("module loaded", "module", cfg.Name, "platform", cfg.Platform,
		"dependencies", len(deps), "packages", len(finder.Packages()))
	return m, nil
}

// finder reads the metadata files matched by the module globs and opens
// its store, if any.
func (l *Loader) finder(g *Graph, cfg *config.ModuleConfig) (metadata.Finder, error) {
	var chain metadata.Chain
	if len(cfg.Metadata) > 0 {
		files, err := MatchFiles(l.Project.Root, cfg.Metadata)
		if err != nil {
			return nil, err
		}
		lib := metadata.NewLibrary(cfg.Name)
		for _, f := range files {
			if err := lib.AddFile(f); err != nil {
				l.Session.Logger.Warn("unreadable metadata file", "module", cfg.Name, "file", f, "error", err)
				l.Session.Report(diagnostics.NewError(diagnostics.ErrM006, diagnostics.Position{File: f}, err.Error()))
			}
		}
		chain = append(chain, lib)
	}
	if cfg.Store != "" {
		s, err := metastore.Open(l.Project.Resolve(cfg.Store), cfg.Name, metastore.WithLogger(l.Session.Logger))
		if err != nil {
			return nil, err
		}
		g.stores = append(g.stores, s)
		chain = append(chain, s)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

// MatchFiles walks root and returns the files whose slash-separated path
// relative to root matches one of the glob patterns, in lexical order.
func MatchFiles(root string, patterns []string) ([]string, error) {
	if root == "" {
		root = "."
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, g := range globs {
			if g.Match(rel) {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}
