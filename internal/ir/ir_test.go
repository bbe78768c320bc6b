package ir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/typesystem"
)

func pos(line int) diagnostics.Position {
	return diagnostics.Position{File: "test.decl.yaml", Line: line, Column: 1}
}

func userType(n string) *UserTypeRef {
	return &UserTypeRef{Qualifier: []names.Name{names.Name(n)}}
}

func testFunction(s *session.Session) *SimpleFunction {
	tp := TypeParameterBuilder{Session: s, Name: "T", Key: "demo/f#T"}.Build()
	param := ValueParameterBuilder{Session: s, Name: "x", TypeRef: userType("T")}.Build()
	return SimpleFunctionBuilder{
		CallableBuilder: CallableBuilder{
			Source:          pos(1),
			Session:         s,
			CallableID:      names.CallableID{Package: names.NewFqName("demo"), Callable: "f"},
			TypeParameters:  []*TypeParameter{tp},
			ReceiverTypeRef: userType("String"),
			Annotations:     []*Annotation{NewAnnotation(pos(1), userType("Deprecated"))},
		},
		ValueParameters: []*ValueParameter{param},
		Body:            NewBlock(pos(2), NewReturn(pos(2), NewQualifiedAccess(pos(2), nil, "x"))),
	}.Build()
}

func TestPhaseTrackerIsMonotonic(t *testing.T) {
	var tr PhaseTracker
	assert.Equal(t, PhaseRaw, tr.Phase())
	require.NoError(t, tr.Advance(PhaseStatus))
	require.NoError(t, tr.Advance(PhaseStatus))
	assert.Equal(t, PhaseStatus, tr.Phase())

	err := tr.Advance(PhaseDeclarations)
	require.ErrorIs(t, err, ErrPhaseRewind)
	assert.Equal(t, PhaseStatus, tr.Phase())

	assert.PanicsWithError(t, "invariant violation: "+err.Error(), func() {
		tr.ReplaceResolvePhase(PhaseDeclarations)
	})
}

func TestRequirePhase(t *testing.T) {
	s := session.New("t")
	f := testFunction(s)
	assert.Panics(t, func() { RequirePhase(f, PhaseTypes) })
	f.ReplaceResolvePhase(PhaseTypes)
	assert.NotPanics(t, func() { RequirePhase(f, PhaseTypes) })
}

func TestBuilderBindsSymbol(t *testing.T) {
	s := session.New("t")
	f := testFunction(s)
	assert.Same(t, f, f.Symbol().Owner())
	assert.Equal(t, names.Name("f"), f.Name())

	id := names.ParseClassID("demo/Foo")
	c := RegularClassBuilder{Session: s, ClassID: id, Kind: descriptors.KindClass}.Build()
	assert.Same(t, c, c.Symbol().Owner())
	assert.Equal(t, id, c.ClassID())

	var invariant *diagnostics.InvariantError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			invariant = r.(*diagnostics.InvariantError)
		}()
		RegularClassBuilder{Session: s, Symbol: c.Symbol(), ClassID: id}.Build()
	}()
	assert.Contains(t, invariant.Message, "already bound")
}

func TestChildOrder(t *testing.T) {
	s := session.New("t")
	f := testFunction(s)
	f.ReplaceControlFlowGraphReference(&ControlFlowGraphReference{Graph: &ControlFlowGraph{}})

	var kinds []string
	f.AcceptChildren(VisitorFunc(func(e Element, _ any) {
		kinds = append(kinds, fmt.Sprintf("%T", e))
	}), nil)
	assert.Equal(t, []string{
		"*ir.Annotation",
		"*ir.TypeParameter",
		"*ir.UserTypeRef",
		"*ir.ImplicitTypeRef",
		"*ir.ValueParameter",
		"*ir.Block",
		"*ir.ControlFlowGraphReference",
	}, kinds)
}

func TestWalkAndInspect(t *testing.T) {
	s := session.New("t")
	f := testFunction(s)

	var refs []names.Name
	Walk(f, VisitorFunc(func(e Element, _ any) {
		if r, ok := e.(*SimpleNamedReference); ok {
			refs = append(refs, r.Name)
		}
	}), nil)
	assert.Equal(t, []names.Name{"x"}, refs)

	count := 0
	Inspect(f, func(e Element) bool {
		count++
		_, isBlock := e.(*Block)
		return !isBlock
	})
	// function, annotation with its two type refs, type parameter, receiver,
	// return type, value parameter with its type, block
	assert.Equal(t, 10, count)
}

func TestTransformReplacesSlots(t *testing.T) {
	s := session.New("t")
	f := testFunction(s)

	resolve := TransformerFunc(func(e Element, _ any) Element {
		if u, ok := e.(*UserTypeRef); ok {
			return NewResolvedTypeRef(u, typesystem.Simple(names.ParseClassID("lang/"+string(u.Qualifier[0]))))
		}
		return e
	})
	Transform(f, resolve, nil)

	recv, ok := ConeType(f.ReceiverTypeRef())
	require.True(t, ok)
	assert.Equal(t, "lang.String", recv.String())
	_, ok = ConeType(f.ValueParameters()[0].ReturnTypeRef())
	assert.True(t, ok)
	assert.IsType(t, &ImplicitTypeRef{}, f.ReturnTypeRef())
}

func TestTransformWrongKindPanics(t *testing.T) {
	s := session.New("t")
	f := testFunction(s)
	bad := TransformerFunc(func(e Element, _ any) Element {
		if _, ok := e.(*Block); ok {
			return NewConst(pos(3), ConstInt, 1)
		}
		return e
	})
	assert.PanicsWithError(t, "invariant violation: transformer returned *ir.ConstExpression for body slot", func() {
		f.TransformChildren(bad, nil)
	})
}

func TestReplaceSuperTypeRefsIsPhaseGated(t *testing.T) {
	s := session.New("t")
	c := RegularClassBuilder{Session: s, ClassID: names.ParseClassID("demo/Foo")}.Build()
	refs := []TypeRef{userType("Bar")}
	c.ReplaceSuperTypeRefs(refs)
	refs[0] = nil
	assert.NotNil(t, c.SuperTypeRefs()[0])

	c.ReplaceResolvePhase(PhaseSuperTypes)
	c.ReplaceSuperTypeRefs(nil)
	c.ReplaceResolvePhase(PhaseStatus)
	assert.Panics(t, func() { c.ReplaceSuperTypeRefs(refs) })
}

func TestReplaceReturnTypeRefKeepsResolvedType(t *testing.T) {
	s := session.New("t")
	f := testFunction(s)
	intType := typesystem.Simple(typesystem.IntID)

	f.ReplaceReturnTypeRef(NewResolvedTypeRef(f.ReturnTypeRef(), intType))
	assert.NotPanics(t, func() {
		f.ReplaceReturnTypeRef(&ResolvedTypeRef{Type: typesystem.Simple(typesystem.IntID)})
	})
	assert.Panics(t, func() {
		f.ReplaceReturnTypeRef(&ResolvedTypeRef{Type: typesystem.Simple(typesystem.StringID)})
	})
	assert.Panics(t, func() {
		f.ReplaceReturnTypeRef(&ImplicitTypeRef{})
	})
}

func TestCompanionIsComputedLazily(t *testing.T) {
	s := session.New("t")
	id := names.ParseClassID("demo/Foo")
	c := RegularClassBuilder{Session: s, ClassID: id}.Build()
	comp := RegularClassBuilder{
		Session: s,
		ClassID: id.Nested(names.DefaultCompanion),
		Kind:    descriptors.KindObject,
		Status:  RawStatus(Modifiers(ModCompanion)),
	}.Build()
	c.AddDeclaration(comp)

	assert.Same(t, comp, c.Companion())
	assert.Nil(t, comp.Companion())
}

func TestStatusReplacement(t *testing.T) {
	s := session.New("t")
	f := testFunction(s)
	f.ReplaceStatus(DeclarationStatus{Visibility: descriptors.Public, Modality: descriptors.Final, Resolved: true})
	assert.Equal(t, descriptors.Public, f.Status().Visibility)

	f.ReplaceResolvePhase(PhaseTypes)
	assert.Panics(t, func() { f.ReplaceStatus(DeclarationStatus{}) })
}

func TestModifiers(t *testing.T) {
	set := Modifiers(ModOpen, ModOverride)
	assert.True(t, set.Has(ModOverride))
	assert.False(t, set.Has(ModAbstract))
	assert.Equal(t, "open override", set.String())

	m, ok := ParseModifier("lateinit")
	require.True(t, ok)
	assert.Equal(t, ModLateInit, m)

	vis, ok := ExplicitVisibility(Modifiers(ModInternal))
	require.True(t, ok)
	assert.Equal(t, descriptors.Internal, vis)
	_, ok = ExplicitModality(set)
	assert.True(t, ok)
}

func TestTypeRefString(t *testing.T) {
	ref := &UserTypeRef{
		Qualifier: []names.Name{"demo", "Box"},
		Arguments: []TypeArgument{{Variance: typesystem.Out, Type: userType("T")}, {Variance: typesystem.Star}},
		Nullable:  true,
	}
	assert.Equal(t, "demo.Box<out T, *>?", TypeRefString(ref))
	fn := &FunctionTypeRef{Parameters: []TypeRef{userType("A")}, Return: userType("B"), Suspend: true}
	assert.Equal(t, "suspend (A) -> B", TypeRefString(fn))
}
