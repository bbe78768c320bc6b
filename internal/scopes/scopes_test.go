package scopes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/override"
	"github.com/funvibe/semcore/internal/typesystem"
)

type testModule struct {
	name    names.Name
	classes map[names.ClassID]descriptors.ClassDescriptor
}

func (m *testModule) Name() names.Name                                         { return m.name }
func (m *testModule) ContainingDeclaration() descriptors.DeclarationDescriptor { return nil }
func (m *testModule) ShouldSeeInternalsOf(o descriptors.ModuleDescriptor) bool { return o == m }
func (m *testModule) Package(names.FqName) descriptors.PackageViewDescriptor   { return nil }

func (m *testModule) FindClassAcrossModuleDependencies(id names.ClassID) descriptors.ClassDescriptor {
	return m.classes[id]
}

type fixture struct {
	storage *lazy.Storage
	classes map[names.ClassID]descriptors.ClassDescriptor
	module  *testModule
	diags   *diagnostics.Collector
	policy  override.Policy
}

func newFixture(policy override.Policy) *fixture {
	classes := map[names.ClassID]descriptors.ClassDescriptor{}
	return &fixture{
		storage: lazy.NewStorage("test"),
		classes: classes,
		module:  &testModule{name: "main", classes: classes},
		diags:   diagnostics.NewCollector(),
		policy:  policy,
	}
}

func (f *fixture) classIn(m *testModule, name string, kind descriptors.ClassKind, mod descriptors.Modality, supers ...typesystem.Type) (*descriptors.ClassImpl, *MapScope) {
	c := &descriptors.ClassImpl{
		ID:        names.ParseClassID("demo/" + name),
		InModule:  m,
		ClassKind: kind,
		Mod:       mod,
		Vis:       descriptors.Public,
		Supers:    supers,
	}
	declared := NewMapScope()
	c.Scope = NewClassMemberScope(f.storage, c, declared, Options{Policy: f.policy, Reporter: f.diags})
	f.classes[c.ID] = c
	return c, declared
}

func (f *fixture) class(name string, kind descriptors.ClassKind, mod descriptors.Modality, supers ...typesystem.Type) (*descriptors.ClassImpl, *MapScope) {
	return f.classIn(f.module, name, kind, mod, supers...)
}

func fun(owner descriptors.DeclarationDescriptor, name string, mod descriptors.Modality, vis descriptors.Visibility, ret typesystem.Type, params ...typesystem.Type) *descriptors.FunctionImpl {
	fn := &descriptors.FunctionImpl{Callable: descriptors.Callable{
		Owner:        owner,
		CallableName: names.Name(name),
		Vis:          vis,
		Mod:          mod,
		CallKind:     descriptors.Declaration,
		Returns:      ret,
	}}
	for i, p := range params {
		fn.Params = append(fn.Params, &descriptors.ValueParameterImpl{Owner: fn, ParamName: names.Name(fmt.Sprintf("p%d", i)), Idx: i, ParamType: p})
	}
	return fn
}

var (
	intType    = typesystem.TClass{ID: typesystem.IntID}
	stringType = typesystem.TClass{ID: typesystem.StringID}
	unitType   = typesystem.TClass{ID: typesystem.UnitID}
)

func TestInheritedAbstractMemberBecomesFakeOverride(t *testing.T) {
	f := newFixture(override.Strict)
	a, aScope := f.class("A", descriptors.KindClass, descriptors.Abstract)
	af := fun(a, "f", descriptors.Abstract, descriptors.Public, intType)
	aScope.AddFunction(af)
	b, _ := f.class("B", descriptors.KindClass, descriptors.Final, a.DefaultType())

	fs := b.UnsubstitutedMemberScope().ContributedFunctions("f")
	require.Len(t, fs, 1)
	fake := fs[0]
	assert.Equal(t, descriptors.FakeOverride, fake.Kind())
	assert.Same(t, b, fake.ContainingDeclaration())
	assert.Equal(t, descriptors.Abstract, fake.Modality())
	assert.Equal(t, descriptors.Public, fake.Visibility())
	assert.True(t, typesystem.Equal(intType, fake.ReturnType()))
	require.Len(t, fake.OverriddenDescriptors(), 1)
	assert.Same(t, af, fake.OverriddenDescriptors()[0])

	again := b.UnsubstitutedMemberScope().ContributedFunctions("f")
	assert.Same(t, fake, again[0])
	assert.Equal(t, []names.Name{"f"}, b.UnsubstitutedMemberScope().FunctionNames())

	override.CheckAbstractMembers(b, f.diags)
	require.Len(t, f.diags.WithCode(diagnostics.ErrO003), 1)
}

func TestDeclaredMemberSuppressesFakeOverride(t *testing.T) {
	f := newFixture(override.Strict)
	a, aScope := f.class("A", descriptors.KindClass, descriptors.Abstract)
	af := fun(a, "f", descriptors.Abstract, descriptors.Public, intType)
	aScope.AddFunction(af)
	b, bScope := f.class("B", descriptors.KindClass, descriptors.Final, a.DefaultType())
	bf := fun(b, "f", descriptors.Final, descriptors.Public, intType)
	bf.OverrideModifier = true
	bScope.AddFunction(bf)

	fs := b.UnsubstitutedMemberScope().ContributedFunctions("f")
	require.Len(t, fs, 1)
	assert.Same(t, bf, fs[0])
	assert.Equal(t, descriptors.Declaration, fs[0].Kind())
	require.Len(t, bf.OverriddenDescriptors(), 1)
	assert.Same(t, af, bf.OverriddenDescriptors()[0])

	cs := b.UnsubstitutedMemberScope().(*ClassMemberScope)
	assert.Empty(t, cs.FakeOverrides("f"))

	override.Check(b, f.diags)
	assert.Equal(t, 0, f.diags.Len())
}

func TestFakeOverrideSubstitutesSupertypeArguments(t *testing.T) {
	f := newFixture(override.Strict)
	a, aScope := f.class("A", descriptors.KindInterface, descriptors.Abstract)
	tp := descriptors.NewTypeParameter(a, "T", 0, "demo/A#T", typesystem.Invariant, false, nil)
	a.TypeParams = []descriptors.TypeParameterDescriptor{tp}
	aScope.AddFunction(fun(a, "put", descriptors.Abstract, descriptors.Public, unitType, tp.DefaultType()))

	b, _ := f.class("B", descriptors.KindClass, descriptors.Abstract,
		typesystem.TClass{ID: a.ID, Args: []typesystem.Projection{typesystem.Invariantly(stringType)}})

	fs := b.UnsubstitutedMemberScope().ContributedFunctions("put")
	require.Len(t, fs, 1)
	require.Len(t, fs[0].ValueParameters(), 1)
	assert.True(t, typesystem.Equal(stringType, fs[0].ValueParameters()[0].Type()))
	assert.Same(t, fs[0], fs[0].ValueParameters()[0].ContainingDeclaration())
}

func TestPrivateAndForeignInternalMembersAreNotInherited(t *testing.T) {
	f := newFixture(override.Strict)
	a, aScope := f.class("A", descriptors.KindClass, descriptors.Open)
	aScope.AddFunction(fun(a, "hidden", descriptors.Final, descriptors.Private, unitType))
	aScope.AddFunction(fun(a, "shared", descriptors.Final, descriptors.Internal, unitType))

	b, _ := f.class("B", descriptors.KindClass, descriptors.Final, a.DefaultType())
	assert.Empty(t, b.UnsubstitutedMemberScope().ContributedFunctions("hidden"))
	assert.Len(t, b.UnsubstitutedMemberScope().ContributedFunctions("shared"), 1)

	other := &testModule{name: "other", classes: f.classes}
	c, _ := f.classIn(other, "C", descriptors.KindClass, descriptors.Final, a.DefaultType())
	assert.Empty(t, c.UnsubstitutedMemberScope().ContributedFunctions("shared"))
}

func TestInheritedImplementationsConflict(t *testing.T) {
	for _, tc := range []struct {
		policy   override.Policy
		reported int
		severity diagnostics.Severity
	}{
		{override.Strict, 1, diagnostics.SeverityError},
		{override.Lenient, 1, diagnostics.SeverityWarning},
		{override.Silent, 0, 0},
	} {
		t.Run(tc.policy.String(), func(t *testing.T) {
			f := newFixture(tc.policy)
			i1, s1 := f.class("I1", descriptors.KindInterface, descriptors.Abstract)
			s1.AddFunction(fun(i1, "f", descriptors.Open, descriptors.Public, unitType))
			i2, s2 := f.class("I2", descriptors.KindInterface, descriptors.Abstract)
			s2.AddFunction(fun(i2, "f", descriptors.Open, descriptors.Public, unitType))
			c, _ := f.class("C", descriptors.KindClass, descriptors.Final, i1.DefaultType(), i2.DefaultType())

			fs := c.UnsubstitutedMemberScope().ContributedFunctions("f")
			require.Len(t, fs, 1)
			assert.Equal(t, descriptors.Open, fs[0].Modality())
			assert.Len(t, fs[0].OverriddenDescriptors(), 2)

			got := f.diags.WithCode(diagnostics.ErrO001)
			require.Len(t, got, tc.reported)
			if tc.reported > 0 {
				assert.Equal(t, tc.severity, got[0].Severity)
			}
		})
	}
}

func TestVisibilityTieIsBrokenByRankAndReported(t *testing.T) {
	f := newFixture(override.Strict)
	x, xs := f.class("X", descriptors.KindInterface, descriptors.Abstract)
	xs.AddFunction(fun(x, "f", descriptors.Abstract, descriptors.Protected, unitType))
	y, ys := f.class("Y", descriptors.KindInterface, descriptors.Abstract)
	ys.AddFunction(fun(y, "f", descriptors.Abstract, descriptors.Internal, unitType))
	c, _ := f.class("C", descriptors.KindClass, descriptors.Abstract, x.DefaultType(), y.DefaultType())

	fs := c.UnsubstitutedMemberScope().ContributedFunctions("f")
	require.Len(t, fs, 1)
	assert.Equal(t, descriptors.Internal, fs[0].Visibility())
	assert.Len(t, f.diags.WithCode(diagnostics.ErrO002), 1)
	assert.Empty(t, f.diags.WithCode(diagnostics.ErrO001))
}

func TestReturnTypeMismatchIsAnOverrideConflict(t *testing.T) {
	f := newFixture(override.Strict)
	a, as := f.class("A", descriptors.KindClass, descriptors.Open)
	as.AddFunction(fun(a, "f", descriptors.Open, descriptors.Public, intType))
	b, bs := f.class("B", descriptors.KindClass, descriptors.Final, a.DefaultType())
	bf := fun(b, "f", descriptors.Final, descriptors.Public, stringType)
	bs.AddFunction(bf)

	fs := b.UnsubstitutedMemberScope().ContributedFunctions("f")
	require.Len(t, fs, 1)
	assert.Same(t, bf, fs[0])
	assert.Empty(t, bf.OverriddenDescriptors())
	require.Len(t, f.diags.WithCode(diagnostics.ErrO005), 1)
}

func TestOverloadsAreKeptApart(t *testing.T) {
	f := newFixture(override.Strict)
	a, as := f.class("A", descriptors.KindClass, descriptors.Open)
	as.AddFunction(fun(a, "f", descriptors.Open, descriptors.Public, unitType, intType))
	b, bs := f.class("B", descriptors.KindClass, descriptors.Final, a.DefaultType())
	bs.AddFunction(fun(b, "f", descriptors.Final, descriptors.Public, unitType, stringType))

	fs := b.UnsubstitutedMemberScope().ContributedFunctions("f")
	require.Len(t, fs, 2)
	assert.Equal(t, descriptors.Declaration, fs[0].Kind())
	assert.Equal(t, descriptors.FakeOverride, fs[1].Kind())
}

func TestOverrideChecks(t *testing.T) {
	f := newFixture(override.Strict)
	a, as := f.class("A", descriptors.KindClass, descriptors.Open)
	as.AddFunction(fun(a, "f", descriptors.Open, descriptors.Public, unitType))
	as.AddFunction(fun(a, "h", descriptors.Final, descriptors.Public, unitType))

	b, bs := f.class("B", descriptors.KindClass, descriptors.Final, a.DefaultType())
	bs.AddFunction(fun(b, "f", descriptors.Final, descriptors.Public, unitType))
	g := fun(b, "g", descriptors.Final, descriptors.Public, unitType)
	g.OverrideModifier = true
	bs.AddFunction(g)
	h := fun(b, "h", descriptors.Final, descriptors.Public, unitType)
	h.OverrideModifier = true
	bs.AddFunction(h)
	bs.AddFunction(fun(b, "k", descriptors.Final, descriptors.Public, unitType, intType))
	bs.AddFunction(fun(b, "k", descriptors.Final, descriptors.Public, intType, intType))

	override.Check(b, f.diags)
	assert.Len(t, f.diags.WithCode(diagnostics.ErrO008), 1)
	assert.Len(t, f.diags.WithCode(diagnostics.ErrO007), 1)
	assert.Len(t, f.diags.WithCode(diagnostics.ErrO006), 1)
	assert.Len(t, f.diags.WithCode(diagnostics.ErrR001), 1)
	assert.Empty(t, f.diags.WithCode(diagnostics.ErrO003))
}

func TestChainedScope(t *testing.T) {
	s1, s2 := NewMapScope(), NewMapScope()
	owner := &descriptors.ClassImpl{ID: names.ParseClassID("demo/P")}
	s1.AddFunction(fun(owner, "f", descriptors.Final, descriptors.Public, unitType))
	s2.AddFunction(fun(owner, "f", descriptors.Final, descriptors.Public, intType))
	s2.AddFunction(fun(owner, "g", descriptors.Final, descriptors.Public, intType))
	s2.AddProperty(&descriptors.PropertyImpl{Callable: descriptors.Callable{Owner: owner, CallableName: "size", Returns: intType}})
	first := &descriptors.ClassImpl{ID: names.ParseClassID("demo/K")}
	require.True(t, s1.AddClassifier(first))
	require.True(t, s2.AddClassifier(&descriptors.ClassImpl{ID: names.ParseClassID("demo/K")}))
	require.False(t, s1.AddClassifier(&descriptors.ClassImpl{ID: names.ParseClassID("demo/K")}))

	c := Chained(s1, s2)
	assert.Len(t, c.ContributedFunctions("f"), 2)
	assert.Equal(t, []names.Name{"f", "g"}, c.FunctionNames())
	assert.Equal(t, []names.Name{"size"}, c.PropertyNames())
	assert.Len(t, c.ContributedProperties("size"), 1)
	assert.Same(t, first, c.ContributedClassifier("K"))
	assert.Nil(t, c.ContributedClassifier("Missing"))
	assert.Equal(t, descriptors.EmptyScope, Chained())
}
