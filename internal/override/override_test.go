package override

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

var owner = &descriptors.ClassImpl{ID: names.ParseClassID("demo/Owner")}

func member(name string, vis descriptors.Visibility, mod descriptors.Modality, ret typesystem.Type, params ...typesystem.Type) *descriptors.FunctionImpl {
	f := &descriptors.FunctionImpl{Callable: descriptors.Callable{
		Owner:        owner,
		CallableName: names.Name(name),
		Vis:          vis,
		Mod:          mod,
		Returns:      ret,
	}}
	for i, p := range params {
		f.Params = append(f.Params, &descriptors.ValueParameterImpl{Owner: f, ParamName: "p", Idx: i, ParamType: p})
	}
	return f
}

func TestMaxVisibility(t *testing.T) {
	unit := typesystem.UnitType()
	for _, tc := range []struct {
		name string
		in   []descriptors.Visibility
		want descriptors.Visibility
		ok   bool
	}{
		{"single", []descriptors.Visibility{descriptors.Protected}, descriptors.Protected, true},
		{"public wins", []descriptors.Visibility{descriptors.Protected, descriptors.Public, descriptors.Internal}, descriptors.Public, true},
		{"tie", []descriptors.Visibility{descriptors.Protected, descriptors.Internal}, descriptors.Internal, false},
		{"tie either order", []descriptors.Visibility{descriptors.Internal, descriptors.Protected}, descriptors.Internal, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var ms []descriptors.CallableMemberDescriptor
			for _, v := range tc.in {
				ms = append(ms, member("f", v, descriptors.Open, unit))
			}
			got, ok := MaxVisibility(ms)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestFakeOverrideModality(t *testing.T) {
	unit := typesystem.UnitType()
	abstract := member("f", descriptors.Public, descriptors.Abstract, unit)
	open := member("f", descriptors.Public, descriptors.Open, unit)
	final := member("f", descriptors.Public, descriptors.Final, unit)

	assert.Equal(t, descriptors.Abstract, FakeOverrideModality([]descriptors.CallableMemberDescriptor{abstract, abstract}))
	assert.Equal(t, descriptors.Open, FakeOverrideModality([]descriptors.CallableMemberDescriptor{abstract, final}))
	assert.Equal(t, descriptors.Open, FakeOverrideModality([]descriptors.CallableMemberDescriptor{open}))
	assert.Equal(t, descriptors.Final, FakeOverrideModality([]descriptors.CallableMemberDescriptor{final}))
}

func TestIsOverridableBy(t *testing.T) {
	e := &Engine{}
	intT, strT := typesystem.TClass{ID: typesystem.IntID}, typesystem.TClass{ID: typesystem.StringID}
	tparam := typesystem.TParam{Name: "T", Key: "demo/Base#T"}
	base := member("f", descriptors.Public, descriptors.Open, intT, tparam)
	super := Inherited{Member: base, Subst: typesystem.Subst{"demo/Base#T": strT}}

	assert.Equal(t, Overridable, e.IsOverridableBy(super, Inherited{Member: member("f", descriptors.Public, descriptors.Final, intT, strT)}))
	assert.Equal(t, Conflict, e.IsOverridableBy(super, Inherited{Member: member("f", descriptors.Public, descriptors.Final, strT, strT)}))
	assert.Equal(t, Incompatible, e.IsOverridableBy(super, Inherited{Member: member("f", descriptors.Public, descriptors.Final, intT, intT)}))
	assert.Equal(t, Incompatible, e.IsOverridableBy(super, Inherited{Member: member("g", descriptors.Public, descriptors.Final, intT, strT)}))
	assert.Equal(t, Incompatible, e.IsOverridableBy(super, Inherited{Member: member("f", descriptors.Public, descriptors.Final, intT)}))

	prop := &descriptors.PropertyImpl{Callable: descriptors.Callable{Owner: owner, CallableName: "f", Returns: intT}}
	assert.Equal(t, Incompatible, e.IsOverridableBy(Inherited{Member: member("f", descriptors.Public, descriptors.Open, intT)}, Inherited{Member: prop}))
}

func TestSignature(t *testing.T) {
	f := member("f", descriptors.Public, descriptors.Open, typesystem.UnitType(), typesystem.TClass{ID: typesystem.IntID})
	assert.Equal(t, "demo.Owner.f(lang.Int): lang.Unit", Signature(f))
}
