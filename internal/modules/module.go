// Package modules links compilation units: each Module owns the package
// fragments of its own content, sees the content of its dependencies and
// answers package and class lookups across them.
package modules

import (
	"fmt"
	"slices"
	"sync"

	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/names"
)

// Module is a ModuleDescriptor. Dependencies are set once and the content
// provider is installed once; lookups require both.
type Module struct {
	name       names.Name
	Platform   string
	SourceKind string

	mu           sync.Mutex
	deps         *dependencies
	provider     descriptors.PackageFragmentProvider
	implementing []*Module

	closure  *lazy.Value[[]*Module]
	packages *lazy.Func[names.FqName, *PackageView]
	content  *lazy.Value[*CompositeProvider]
}

type dependencies struct {
	direct  []*Module
	friends []*Module
}

// NewModule creates a module on the default platform. name is wrapped in
// angle brackets when it is not special already.
func NewModule(s *lazy.Storage, name string) *Module {
	n := names.Name(name)
	if !n.IsSpecial() {
		n = names.Special(name)
	}
	m := &Module{name: n, Platform: config.DefaultPlatform, SourceKind: config.DefaultSource}
	m.closure = lazy.NewValue(s, m.computeClosure).Named(fmt.Sprintf("dependencies of %s", n))
	m.packages = lazy.NewFunc(s, m.computePackage).Named(fmt.Sprintf("packages of %s", n))
	m.content = lazy.NewValue(s, m.computeContent).Named(fmt.Sprintf("content of %s", n))
	return m
}

func (m *Module) Name() names.Name                                         { return m.name }
func (m *Module) ContainingDeclaration() descriptors.DeclarationDescriptor { return nil }
func (m *Module) String() string                                           { return "module " + m.name.String() }

// IsCommon reports whether the module is platform independent.
func (m *Module) IsCommon() bool {
	return m.Platform == config.DefaultPlatform
}

// SetDependencies declares the direct dependencies. A second call panics.
func (m *Module) SetDependencies(deps ...*Module) {
	m.SetDependenciesWithFriends(deps, nil)
}

// SetDependenciesWithFriends declares the direct dependencies and the
// modules whose internals m sees. A platform module becomes an
// implementing module of every common module of its source kind in the
// dependency closure, so its dependencies must be set first.
func (m *Module) SetDependenciesWithFriends(deps, friends []*Module) {
	m.mu.Lock()
	diagnostics.Assert(m.deps == nil, "dependencies of %s were already set", m.name)
	m.deps = &dependencies{direct: slices.Clone(deps), friends: slices.Clone(friends)}
	m.mu.Unlock()

	if m.IsCommon() {
		return
	}
	for _, dep := range m.AllDependencyModules() {
		if dep.IsCommon() && dep.SourceKind == m.SourceKind {
			dep.addImplementing(m)
		}
	}
}

func (m *Module) addImplementing(impl *Module) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.implementing, impl) {
		m.implementing = append(m.implementing, impl)
	}
}

func (m *Module) dependencies() *dependencies {
	m.mu.Lock()
	defer m.mu.Unlock()
	diagnostics.Assert(m.deps != nil, "dependencies of %s were not set", m.name)
	return m.deps
}

// DirectDependencies returns the modules passed to SetDependencies.
func (m *Module) DirectDependencies() []*Module {
	return slices.Clone(m.dependencies().direct)
}

// AllDependencyModules is the transitive closure of the dependencies
// without m itself, in breadth-first order. It is computed on first use and
// panics if a module in the closure has no dependencies set yet.
func (m *Module) AllDependencyModules() []*Module {
	m.dependencies()
	return slices.Clone(m.closure.MustGet())
}

func (m *Module) computeClosure() ([]*Module, error) {
	seen := map[*Module]bool{m: true}
	var out []*Module
	queue := slices.Clone(m.dependencies().direct)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
		d.mu.Lock()
		deps := d.deps
		d.mu.Unlock()
		diagnostics.Assert(deps != nil,
			"dependencies of %s were not set by the time the dependency closure of %s was computed", d.name, m.name)
		queue = append(queue, deps.direct...)
	}
	return out, nil
}

// AllImplementingModules returns the platform modules that declared a
// dependency on this common module.
func (m *Module) AllImplementingModules() []*Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.implementing)
}

// ShouldSeeInternalsOf reports whether internal declarations of target are
// visible from m: target is m, a friend of m, or a common module m
// implements.
func (m *Module) ShouldSeeInternalsOf(target descriptors.ModuleDescriptor) bool {
	t, ok := target.(*Module)
	if !ok {
		return false
	}
	if t == m {
		return true
	}
	if slices.Contains(m.dependencies().friends, t) {
		return true
	}
	return slices.Contains(t.AllImplementingModules(), m)
}

// Initialize installs the provider of the module's own content. A second
// call panics.
func (m *Module) Initialize(provider descriptors.PackageFragmentProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	diagnostics.Assert(m.provider == nil, "attempt to initialize module %s twice", m.name)
	diagnostics.Assert(provider != nil, "module %s initialized with a nil provider", m.name)
	m.provider = provider
}

func (m *Module) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider != nil
}

// ContentProvider returns the provider passed to Initialize.
func (m *Module) ContentProvider() descriptors.PackageFragmentProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	diagnostics.Assert(m.provider != nil, "module %s is not initialized", m.name)
	return m.provider
}

// checkInitialized asserts that m and its dependency closure are
// initialized. It runs on every lookup so that a failure is not cached.
func (m *Module) checkInitialized() {
	diagnostics.Assert(m.IsInitialized(), "module %s was queried before it was initialized", m.name)
	for _, d := range m.AllDependencyModules() {
		diagnostics.Assert(d.IsInitialized(),
			"dependency %s was not initialized by the time contents of %s were queried", d.name, m.name)
	}
}

func (m *Module) computeContent() (*CompositeProvider, error) {
	providers := []descriptors.PackageFragmentProvider{m.ContentProvider()}
	for _, d := range m.AllDependencyModules() {
		providers = append(providers, d.ContentProvider())
	}
	return NewCompositeProvider(providers...), nil
}

// PackageFragmentProvider is the composite provider over m and its
// dependency closure.
func (m *Module) PackageFragmentProvider() *CompositeProvider {
	m.checkInitialized()
	return m.content.MustGet()
}

// Package returns the memoized view of fq across m and its dependencies.
func (m *Module) Package(fq names.FqName) descriptors.PackageViewDescriptor {
	return m.PackageView(fq)
}

func (m *Module) PackageView(fq names.FqName) *PackageView {
	m.checkInitialized()
	return m.packages.MustGet(fq)
}

func (m *Module) computePackage(fq names.FqName) (*PackageView, error) {
	return newPackageView(m, fq), nil
}

// SubPackagesOf lists the direct sub-packages of fq seen from m.
func (m *Module) SubPackagesOf(fq names.FqName) []names.FqName {
	return m.PackageFragmentProvider().SubPackagesOf(fq)
}

// FindClassAcrossModuleDependencies looks the outermost class up in its
// package view and walks nested classes from there.
func (m *Module) FindClassAcrossModuleDependencies(id names.ClassID) descriptors.ClassDescriptor {
	if id.Local {
		return nil
	}
	segments := id.Relative.Segments()
	if len(segments) == 0 {
		return nil
	}
	c, _ := m.PackageView(id.Package).MemberScope().ContributedClassifier(segments[0]).(descriptors.ClassDescriptor)
	for _, n := range segments[1:] {
		if c == nil {
			return nil
		}
		c = c.FindNestedClass(n)
	}
	return c
}
