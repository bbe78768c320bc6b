package typesystem

import (
	"testing"

	"github.com/funvibe/semcore/internal/names"
	"github.com/stretchr/testify/assert"
)

var (
	listID = names.ParseClassID("demo/List")
	collID = names.ParseClassID("demo/Collection")
	fooID  = names.ParseClassID("demo/Foo")
	barID  = names.ParseClassID("demo/Bar")
)

func hierarchy() ClassInfoFunc {
	e := TParam{Name: "E", Key: "demo/List#E"}
	ce := TParam{Name: "E", Key: "demo/Collection#E"}
	classes := map[names.ClassID]ClassInfo{
		listID: {ParameterKeys: []string{e.Key}, Supertypes: []Type{TClass{ID: collID, Args: []Projection{{Variance: Invariant, Type: e}}}}},
		collID: {ParameterKeys: []string{ce.Key}, Supertypes: []Type{AnyType()}},
		fooID:  {Supertypes: []Type{TClass{ID: barID}}},
		barID:  {Supertypes: []Type{AnyType()}},
	}
	return func(id names.ClassID) (ClassInfo, bool) {
		info, ok := classes[id]
		return info, ok
	}
}

func TestSubstitutionKeepsNullability(t *testing.T) {
	tp := TParam{Name: "T", Key: "demo/Box#T", Nullable: true}
	list := TClass{ID: listID, Args: []Projection{Invariantly(tp)}}
	got := list.Apply(Subst{"demo/Box#T": Simple(StringID)})
	assert.Equal(t, "demo.List<lang.String?>", got.String())
	assert.Equal(t, []TParam{{Name: "T", Key: "demo/Box#T"}}, list.FreeTypeVariables())
}

func TestSubstitutionStopsOnCycles(t *testing.T) {
	a := TParam{Name: "A", Key: "a"}
	b := TParam{Name: "B", Key: "b"}
	got := a.Apply(Subst{"a": b, "b": a})
	assert.Equal(t, a, got)
}

func TestCompose(t *testing.T) {
	a := TParam{Name: "A", Key: "a"}
	b := TParam{Name: "B", Key: "b"}
	s := Subst{"b": Simple(IntID)}.Compose(Subst{"a": b})
	assert.True(t, Equal(Simple(IntID), a.Apply(s)))
}

func TestIsSubtype(t *testing.T) {
	c := NewChecker(hierarchy())
	foo, bar := TClass{ID: fooID}, TClass{ID: barID}

	assert.True(t, c.IsSubtype(foo, bar))
	assert.False(t, c.IsSubtype(bar, foo))
	assert.True(t, c.IsSubtype(foo, AnyType()))
	assert.True(t, c.IsSubtype(NothingType(), foo))
	assert.False(t, c.IsSubtype(WithNullability(foo, true), bar))
	assert.True(t, c.IsSubtype(foo, WithNullability(bar, true)))
	assert.True(t, c.IsSubtype(TError{Reason: "x"}, foo))

	listOfFoo := TClass{ID: listID, Args: []Projection{Invariantly(foo)}}
	collOfFoo := TClass{ID: collID, Args: []Projection{Invariantly(foo)}}
	collOfOutBar := TClass{ID: collID, Args: []Projection{{Variance: Out, Type: bar}}}
	collOfBar := TClass{ID: collID, Args: []Projection{Invariantly(bar)}}
	collOfStar := TClass{ID: collID, Args: []Projection{StarProjection}}

	assert.True(t, c.IsSubtype(listOfFoo, collOfFoo))
	assert.True(t, c.IsSubtype(listOfFoo, collOfOutBar))
	assert.False(t, c.IsSubtype(listOfFoo, collOfBar))
	assert.True(t, c.IsSubtype(listOfFoo, collOfStar))
}

func TestFunctionIDs(t *testing.T) {
	assert.Equal(t, "lang/Function2", FunctionID(2).String())
	assert.Equal(t, "lang/coroutines/SuspendFunction1", SuspendFunctionID(1).String())
	n, ok := FunctionArity(FunctionID(12))
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	_, ok = FunctionArity(AnyID)
	assert.False(t, ok)
	_, ok = FunctionArity(names.ParseClassID("lang/FunctionX"))
	assert.False(t, ok)
}

func TestEqualAndErrors(t *testing.T) {
	a := TClass{ID: listID, Args: []Projection{Invariantly(TError{Reason: "unresolved"})}}
	assert.True(t, ContainsError(a))
	assert.False(t, IsError(a))
	assert.True(t, Equal(a, a))
	assert.False(t, Equal(a, TClass{ID: listID}))
	assert.True(t, EqualAll([]Type{AnyType()}, []Type{TClass{ID: AnyID}}))
	assert.Equal(t, "suspend lang.Function0<lang.Unit>", TClass{ID: FunctionID(0), Args: []Projection{Invariantly(UnitType())}, Suspend: true}.String())
}
