package descriptors

import (
	"testing"

	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVisibilities(t *testing.T) {
	n, ok := CompareVisibilities(Public, Internal)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = CompareVisibilities(Private, Protected)
	assert.True(t, ok)
	assert.Equal(t, -1, n)

	_, ok = CompareVisibilities(Protected, Internal)
	assert.False(t, ok, "protected and internal are incomparable")

	n, ok = CompareVisibilities(Internal, Internal)
	assert.True(t, ok)
	assert.Zero(t, n)

	assert.Greater(t, Internal.Rank(), Protected.Rank())
	assert.True(t, PrivateToThis.IsPrivate())
	assert.False(t, Internal.IsPrivate())
}

func box() (*ClassImpl, *TypeParameterImpl) {
	c := &ClassImpl{ID: names.ParseClassID("demo/Box"), Vis: Public, Mod: Open}
	tp := NewTypeParameter(c, "T", 0, "demo/Box#T", typesystem.Invariant, false, nil)
	c.TypeParams = []TypeParameterDescriptor{tp}
	return c, tp
}

func TestCopyAsFakeOverrideSubstitutesSignature(t *testing.T) {
	boxClass, tp := box()
	put := &FunctionImpl{Operator: true}
	put.Owner = boxClass
	put.CallableName = "put"
	put.Vis = Public
	put.Mod = Open
	put.Returns = typesystem.UnitType()
	put.Params = []ValueParameterDescriptor{&ValueParameterImpl{Owner: put, ParamName: "item", ParamType: tp.DefaultType()}}

	sub := &ClassImpl{ID: names.ParseClassID("demo/StringBox"), Vis: Public}
	subst := typesystem.Subst{"demo/Box#T": typesystem.Simple(typesystem.StringID)}
	fake := put.CopyAsFakeOverride(sub, Open, Public, subst, []CallableMemberDescriptor{put})

	fn, ok := fake.(*FunctionImpl)
	require.True(t, ok)
	assert.Equal(t, FakeOverride, fn.Kind())
	assert.Same(t, sub, fn.ContainingDeclaration())
	assert.True(t, fn.IsOperator())
	require.Len(t, fn.ValueParameters(), 1)
	assert.Equal(t, "lang.String", fn.ValueParameters()[0].Type().String())
	assert.Same(t, fn, fn.ValueParameters()[0].ContainingDeclaration())
	assert.Equal(t, []CallableMemberDescriptor{put}, fn.OverriddenDescriptors())

	// The original is untouched.
	assert.Equal(t, "T", put.ValueParameters()[0].Type().String())
	assert.Equal(t, Declaration, put.Kind())
}

func TestOverriddenDeclarationsUnfoldsFakeOverrides(t *testing.T) {
	a := &ClassImpl{ID: names.ParseClassID("demo/A")}
	b := &ClassImpl{ID: names.ParseClassID("demo/B")}
	c := &ClassImpl{ID: names.ParseClassID("demo/C")}
	d := &ClassImpl{ID: names.ParseClassID("demo/D")}

	f := &FunctionImpl{}
	f.Owner, f.CallableName, f.Returns = a, "f", typesystem.UnitType()
	fb := f.CopyAsFakeOverride(b, Open, Public, nil, []CallableMemberDescriptor{f})
	fc := f.CopyAsFakeOverride(c, Open, Public, nil, []CallableMemberDescriptor{f})
	fd := fb.CopyAsFakeOverride(d, Open, Public, nil, []CallableMemberDescriptor{fb, fc})

	assert.Equal(t, []CallableMemberDescriptor{f}, OverriddenDeclarations(fd))
	assert.ElementsMatch(t, []CallableMemberDescriptor{fb, fc, f}, AllOverriddenDescriptors(fd))
	assert.True(t, Overrides(fd, f))
	assert.False(t, Overrides(f, fd))
	assert.Equal(t, "demo.D.f", FqNameOf(fd).String())
}

func TestTypeParameterDefaults(t *testing.T) {
	_, tp := box()
	assert.Equal(t, []typesystem.Type{typesystem.NullableAnyType()}, tp.UpperBounds())
	assert.Equal(t, typesystem.TParam{Name: "T", Key: "demo/Box#T"}, tp.DefaultType())

	boxClass, _ := box()
	assert.Equal(t, "demo.Box<T>", boxClass.DefaultType().String())
	assert.Empty(t, boxClass.UnsubstitutedMemberScope().FunctionNames())
	assert.Nil(t, boxClass.FindNestedClass("Inner"))
}
