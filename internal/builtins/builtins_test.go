package builtins

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/deserialization"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/typesystem"
)

type builtinsModule struct {
	comps *deserialization.Components
}

func (m *builtinsModule) Name() names.Name                                         { return "<builtins>" }
func (m *builtinsModule) ContainingDeclaration() descriptors.DeclarationDescriptor { return nil }
func (m *builtinsModule) Package(names.FqName) descriptors.PackageViewDescriptor   { return nil }

func (m *builtinsModule) ShouldSeeInternalsOf(o descriptors.ModuleDescriptor) bool {
	return o == descriptors.ModuleDescriptor(m)
}

func (m *builtinsModule) FindClassAcrossModuleDependencies(id names.ClassID) descriptors.ClassDescriptor {
	return m.comps.DeserializeClass(id)
}

func load(t *testing.T) (*deserialization.Components, *diagnostics.Collector) {
	t.Helper()
	diags := diagnostics.NewCollector()
	s := session.New(t.Name(), session.WithReporter(diags), session.WithStrict(true))
	m := &builtinsModule{}
	m.comps = deserialization.NewComponents(s, m, NewLibrary())
	return m.comps, diags
}

func TestEnvelopesAreGeneratedOnce(t *testing.T) {
	first, second := Envelopes(), Envelopes()
	require.NotEmpty(t, first)
	assert.Same(t, first[0], second[0])
	for _, env := range first {
		assert.True(t, env.IsCompatible(), env.Name)
	}
}

func TestWriteProducesReadableStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf))
	envs, err := metadata.ReadEnvelopes(&buf)
	require.NoError(t, err)
	assert.Len(t, envs, len(Envelopes()))
}

func TestPrimitivesAreComparable(t *testing.T) {
	comps, diags := load(t)
	intClass := comps.DeserializeClass(typesystem.IntID)
	require.NotNil(t, intClass)

	supers := intClass.TypeConstructor().Supertypes()
	require.Len(t, supers, 1)
	assert.True(t, typesystem.Equal(typesystem.Simple(ComparableID, typesystem.TClass{ID: typesystem.IntID}), supers[0]), "%v", supers[0])

	compareTo := intClass.UnsubstitutedMemberScope().ContributedFunctions("compareTo")
	require.Len(t, compareTo, 1)
	assert.Equal(t, descriptors.Declaration, compareTo[0].Kind())
	require.Len(t, compareTo[0].OverriddenDescriptors(), 1)
	assert.Equal(t, ComparableID, descriptors.ContainingClass(compareTo[0].OverriddenDescriptors()[0]).ClassID())

	equals := intClass.UnsubstitutedMemberScope().ContributedFunctions("equals")
	require.Len(t, equals, 1)
	assert.Equal(t, descriptors.FakeOverride, equals[0].Kind())
	assert.Equal(t, descriptors.Open, equals[0].Modality())
	assert.False(t, diags.HasErrors(), "%v", diags.Diagnostics())
}

func TestEnumIsSelfBounded(t *testing.T) {
	comps, _ := load(t)
	enum := comps.DeserializeClass(typesystem.EnumID)
	require.NotNil(t, enum)
	require.Len(t, enum.DeclaredTypeParameters(), 1)

	e := enum.DeclaredTypeParameters()[0]
	bounds := e.UpperBounds()
	require.Len(t, bounds, 1)
	assert.True(t, typesystem.Equal(typesystem.Simple(typesystem.EnumID, e.DefaultType()), bounds[0]), "%v", bounds[0])
	assert.Equal(t, descriptors.Abstract, enum.Modality())
	assert.Len(t, enum.UnsubstitutedMemberScope().ContributedProperties("ordinal"), 1)
}

func TestFunctionInterfaces(t *testing.T) {
	comps, _ := load(t)
	for _, id := range []names.ClassID{typesystem.FunctionID(2), typesystem.SuspendFunctionID(2)} {
		fn := comps.DeserializeClass(id)
		require.NotNil(t, fn, id.String())
		assert.Equal(t, descriptors.KindInterface, fn.Kind())
		assert.Len(t, fn.DeclaredTypeParameters(), 3)

		invoke := fn.UnsubstitutedMemberScope().ContributedFunctions("invoke")
		require.Len(t, invoke, 1)
		assert.Len(t, invoke[0].ValueParameters(), 2)
		assert.Equal(t, id == typesystem.SuspendFunctionID(2), invoke[0].IsSuspend())
	}
	assert.NotNil(t, comps.DeserializeClass(typesystem.FunctionID(22)))
	assert.Nil(t, comps.DeserializeClass(typesystem.FunctionID(23)))
}

func TestSuspendSupertypeResolvesAgainstBuiltins(t *testing.T) {
	b := unitBuilder{tables: metadata.NewTableBuilder()}
	id := names.ParseClassID("demo/Task")
	c := metadata.NewClass()
	c.Flags = classFlags(descriptors.KindClass, descriptors.Final).Encode()
	c.FqName = b.tables.Class(id)
	st := b.typ(typesystem.FunctionID(0), b.typ(typesystem.UnitID))
	st.Flags = 1
	c.Supertypes = []*metadata.Type{st}

	lib := NewLibrary()
	lib.Add(metadata.ClassEnvelope(id, c, b.tables), "task.smd")
	s := session.New(t.Name())
	m := &builtinsModule{}
	m.comps = deserialization.NewComponents(s, m, lib)

	var supers []typesystem.Type
	require.NotPanics(t, func() { supers = m.comps.DeserializeClass(id).TypeConstructor().Supertypes() })
	require.Len(t, supers, 2)
	assert.Equal(t, typesystem.SuspendFunctionID(0), supers[1].(typesystem.TClass).ID)
}

func TestLangPackageFunctions(t *testing.T) {
	comps, _ := load(t)
	frags := comps.PackageFragments(langPackage)
	require.Len(t, frags, 1)
	scope := frags[0].MemberScope()
	assert.Equal(t, []names.Name{"TODO", "println"}, scope.FunctionNames())
	assert.Contains(t, scope.ClassifierNames(), names.Name("Any"))
	assert.Contains(t, comps.SubPackagesOf(langPackage), coroutinesPackage)
}
