package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/builtins"
	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/deserialization"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/metastore"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/typesystem"
)

func classEnv(id string, nested ...string) *metadata.Envelope {
	b := metadata.NewTableBuilder()
	cid := names.ParseClassID(id)
	c := metadata.NewClass()
	c.Flags = metadata.ClassFlags{Visibility: descriptors.Public, Modality: descriptors.Final, Kind: descriptors.KindClass}.Encode()
	c.FqName = b.Class(cid)
	for _, n := range nested {
		c.NestedClassNames = append(c.NestedClassNames, b.String(n))
	}
	return metadata.ClassEnvelope(cid, c, b)
}

func newModules(names ...string) []*Module {
	s := lazy.NewStorage("test")
	out := make([]*Module, len(names))
	for i, n := range names {
		out[i] = NewModule(s, n)
	}
	return out
}

func TestModuleNamesAreSpecial(t *testing.T) {
	ms := newModules("app", "<builtins>")
	assert.Equal(t, names.Name("<app>"), ms[0].Name())
	assert.Equal(t, names.Name("<builtins>"), ms[1].Name())
}

func TestSetDependenciesOnce(t *testing.T) {
	ms := newModules("a", "b")
	ms[0].SetDependencies(ms[1])
	assert.PanicsWithError(t, "invariant violation: dependencies of <a> were already set", func() {
		ms[0].SetDependencies(ms[1])
	})
	assert.Panics(t, func() { ms[1].AllDependencyModules() })
}

func TestAllDependencyModulesIsClosure(t *testing.T) {
	ms := newModules("a", "b", "c", "d")
	a, b, c, d := ms[0], ms[1], ms[2], ms[3]
	d.SetDependencies()
	c.SetDependencies(d, c)
	b.SetDependencies(c)
	a.SetDependencies(b, a, c)

	closure := a.AllDependencyModules()
	assert.Equal(t, []*Module{b, c, d}, closure)
	assert.NotContains(t, closure, a)
	assert.Equal(t, closure, a.AllDependencyModules())
	assert.Equal(t, []*Module{b, a, c}, a.DirectDependencies())
}

func TestClosureRequiresDependenciesOfEveryReachableModule(t *testing.T) {
	ms := newModules("p", "c", "d")
	p, c, d := ms[0], ms[1], ms[2]
	p.Platform = "jvm"
	assert.Panics(t, func() { p.SetDependencies(c) })

	ms = newModules("p", "c", "d")
	p, c, d = ms[0], ms[1], ms[2]
	p.Platform = "jvm"
	d.SetDependencies()
	c.SetDependencies(d)
	p.SetDependencies(c)
	assert.Equal(t, []*Module{c, d}, p.AllDependencyModules())
	assert.Equal(t, []*Module{p}, d.AllImplementingModules())
	assert.True(t, p.ShouldSeeInternalsOf(d))
}

func TestImplementingModulesAndInternals(t *testing.T) {
	ms := newModules("common", "jvm", "jvmTest", "other")
	common, jvm, jvmTest, other := ms[0], ms[1], ms[2], ms[3]
	jvm.Platform = "jvm"
	jvmTest.Platform = "jvm"
	jvmTest.SourceKind = "test"

	common.SetDependencies()
	other.SetDependencies()
	jvm.SetDependenciesWithFriends([]*Module{common}, []*Module{other})
	jvmTest.SetDependencies(jvm, common)

	assert.Equal(t, []*Module{jvm}, common.AllImplementingModules())
	assert.True(t, jvm.ShouldSeeInternalsOf(jvm))
	assert.True(t, jvm.ShouldSeeInternalsOf(common))
	assert.True(t, jvm.ShouldSeeInternalsOf(other))
	assert.False(t, common.ShouldSeeInternalsOf(jvm))
	assert.False(t, jvmTest.ShouldSeeInternalsOf(common))
	assert.False(t, other.ShouldSeeInternalsOf(jvm))
}

func TestInitializeOnce(t *testing.T) {
	ms := newModules("a")
	lib := metadata.NewLibrary("a")
	s := session.New(t.Name())
	comps := deserialization.NewComponents(s, ms[0], lib)
	ms[0].Initialize(comps)
	assert.True(t, ms[0].IsInitialized())
	assert.Panics(t, func() { ms[0].Initialize(comps) })
}

func TestPackageRequiresInitializedDependencies(t *testing.T) {
	ms := newModules("a", "b")
	a, b := ms[0], ms[1]
	b.SetDependencies()
	a.SetDependencies(b)
	s := session.New(t.Name())
	a.Initialize(deserialization.NewComponents(s, a, metadata.NewLibrary("a")))

	assert.Panics(t, func() { a.Package(names.RootFqName) })

	b.Initialize(deserialization.NewComponents(s, b, metadata.NewLibrary("b")))
	assert.NotPanics(t, func() { a.Package(names.RootFqName) })
}

// linked returns an application module depending on the built-in module.
// The application library holds demo/Outer with nested Inner.
func linked(t *testing.T) (app, lang *Module) {
	t.Helper()
	s := session.New(t.Name())
	lang = NewModule(s.Storage, config.BuiltinsModule)
	lang.SetDependencies()
	lang.Initialize(deserialization.NewComponents(s, lang, builtins.NewLibrary()))

	lib := metadata.NewLibrary("app")
	lib.Add(classEnv("demo/Outer", "Inner"), "app.smd")
	lib.Add(classEnv("demo/Outer.Inner"), "app.smd")
	app = NewModule(s.Storage, "app")
	app.SetDependencies(lang)
	app.Initialize(deserialization.NewComponents(s, app, lib))
	return app, lang
}

func TestPackageViews(t *testing.T) {
	app, lang := linked(t)

	view := app.PackageView(names.NewFqName("lang"))
	assert.Same(t, view, app.PackageView(names.NewFqName("lang")))
	assert.False(t, view.IsEmpty())
	assert.Len(t, view.Fragments(), 1)
	assert.Equal(t, names.Name("lang"), view.Name())
	assert.Equal(t, app, view.Module())
	assert.Contains(t, view.MemberScope().FunctionNames(), names.Name("println"))
	assert.Contains(t, view.MemberScope().ClassifierNames(), names.Name("Int"))

	assert.Equal(t, []names.FqName{names.NewFqName("demo"), names.NewFqName("lang")}, app.SubPackagesOf(names.RootFqName))
	assert.True(t, app.PackageView(names.NewFqName("nothing.here")).IsEmpty())
	assert.True(t, lang.PackageView(names.NewFqName("demo")).IsEmpty())

	root := app.PackageView(names.RootFqName)
	assert.Equal(t, names.Root, root.Name())
	assert.Nil(t, root.ContainingDeclaration())
	assert.Same(t, root, view.ContainingDeclaration())
}

func TestFindClassAcrossModuleDependencies(t *testing.T) {
	app, lang := linked(t)

	intClass := app.FindClassAcrossModuleDependencies(typesystem.IntID)
	require.NotNil(t, intClass)
	assert.Equal(t, lang, intClass.Module())

	inner := app.FindClassAcrossModuleDependencies(names.ParseClassID("demo/Outer.Inner"))
	require.NotNil(t, inner)
	assert.Equal(t, names.ParseClassID("demo/Outer.Inner"), inner.ClassID())
	assert.Equal(t, app, inner.Module())

	assert.Nil(t, app.FindClassAcrossModuleDependencies(names.ParseClassID("demo/Outer.Missing")))
	assert.Nil(t, app.FindClassAcrossModuleDependencies(names.ParseClassID("demo/Missing.Inner")))
	assert.Nil(t, lang.FindClassAcrossModuleDependencies(names.ParseClassID("demo/Outer")))
}

func writeMetadata(t *testing.T, path string, envs ...*metadata.Envelope) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, metadata.WriteEnvelopes(f, envs...))
	require.NoError(t, f.Close())
}

func TestMatchFiles(t *testing.T) {
	root := t.TempDir()
	writeMetadata(t, filepath.Join(root, "lib", "a.smd"))
	writeMetadata(t, filepath.Join(root, "lib", "nested", "b.smd"))
	writeMetadata(t, filepath.Join(root, "lib", "c.txt"))

	files, err := MatchFiles(root, []string{"lib/**.smd"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "lib", "a.smd"), filepath.Join(root, "lib", "nested", "b.smd")}, files)

	files, err = MatchFiles(root, []string{"lib/*.smd"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "lib", "a.smd")}, files)

	_, err = MatchFiles(root, []string{"lib/[.smd"})
	require.Error(t, err)
}

func TestLoaderBuildsGraph(t *testing.T) {
	root := t.TempDir()
	writeMetadata(t, filepath.Join(root, "common", "lib.smd"), classEnv("shared/Api"))
	writeMetadata(t, filepath.Join(root, "broken.smd"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.smd"), []byte{0xff}, 0o644))

	store, err := metastore.Open(filepath.Join(root, "jvm.db"), "jvm")
	require.NoError(t, err)
	require.NoError(t, store.Import("jvm.smd", []*metadata.Envelope{classEnv("platform/Impl")}))
	require.NoError(t, store.Close())

	project, err := config.ParseProject([]byte(`
name: demo
modules:
  - name: common
    metadata: ["common/*.smd", "broken.smd"]
  - name: jvm
    platform: jvm
    store: jvm.db
    dependencies: [common]
`), "semcore.yaml")
	require.NoError(t, err)
	project.Root = root

	diags := diagnostics.NewCollector()
	s := session.New("demo", session.WithReporter(diags))
	g, err := NewLoader(s, project).Load()
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	common, ok := g.Module("common")
	require.True(t, ok)
	jvm, ok := g.Module("jvm")
	require.True(t, ok)
	assert.Equal(t, []*Module{common, jvm}, g.Modules)
	assert.Equal(t, []*Module{g.Builtins, common}, jvm.AllDependencyModules())
	assert.Equal(t, []*Module{jvm}, common.AllImplementingModules())
	assert.NotNil(t, g.Components(jvm))

	assert.NotNil(t, jvm.FindClassAcrossModuleDependencies(names.ParseClassID("shared/Api")))
	assert.NotNil(t, jvm.FindClassAcrossModuleDependencies(names.ParseClassID("platform/Impl")))
	assert.NotNil(t, jvm.FindClassAcrossModuleDependencies(typesystem.AnyID))
	assert.Nil(t, common.FindClassAcrossModuleDependencies(names.ParseClassID("platform/Impl")))

	require.Len(t, diags.WithCode(diagnostics.ErrM006), 1)
}

func TestLoaderSourceProvider(t *testing.T) {
	project, err := config.ParseProject([]byte("modules:\n  - name: app\n"), "semcore.yaml")
	require.NoError(t, err)
	project.Root = t.TempDir()

	var seen []string
	l := NewLoader(session.New(t.Name()), project)
	l.Sources = func(m *Module, cfg *config.ModuleConfig, _ *deserialization.Components) (descriptors.PackageFragmentProvider, error) {
		seen = append(seen, cfg.Name)
		return nil, nil
	}
	g, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, seen)
	assert.Same(t, g.Modules[0], l.LoadedModules["app"])
}
