package resolve

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/builtins"
	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/deserialization"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/irload"
	"github.com/funvibe/semcore/internal/modules"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/typesystem"
)

type fixture struct {
	diags *diagnostics.Collector
	rs    *Session
	app   *modules.Module
}

// resolveSources resolves declaration files as module app, which depends
// on the builtins only.
func resolveSources(t *testing.T, sources ...string) *fixture {
	t.Helper()
	diags := diagnostics.NewCollector()
	s := session.New(t.Name(), session.WithReporter(diags))

	lang := modules.NewModule(s.Storage, config.BuiltinsModule)
	lang.SetDependencies()
	lang.Initialize(deserialization.NewComponents(s, lang, builtins.NewLibrary()))

	var files []*ir.File
	for i, src := range sources {
		f, err := irload.Parse(s, fmt.Sprintf("f%d.decl.yaml", i), []byte(src))
		require.NoError(t, err)
		files = append(files, f)
	}
	app := modules.NewModule(s.Storage, "app")
	app.SetDependencies(lang)
	rs := NewSession(s, app, files, WithWorkers(2))
	rs.Collect()
	app.Initialize(rs.Provider())
	require.NoError(t, rs.Resolve(context.Background()))
	return &fixture{diags: diags, rs: rs, app: app}
}

func (fx *fixture) class(t *testing.T, id string) *ir.RegularClass {
	t.Helper()
	d, ok := fx.rs.Class(names.ParseClassID(id))
	require.True(t, ok, id)
	c, ok := d.(*ir.RegularClass)
	require.True(t, ok, id)
	return c
}

func (fx *fixture) messages(code diagnostics.ErrorCode) []string {
	var out []string
	for _, d := range fx.diags.WithCode(code) {
		out = append(out, d.Message)
	}
	return out
}

func member[T ir.Declaration](t *testing.T, c ir.Class, name names.Name) T {
	t.Helper()
	for _, d := range c.Declarations() {
		if m, ok := d.(T); ok {
			if n, ok := d.(interface{ Name() names.Name }); ok && n.Name() == name {
				return m
			}
		}
	}
	require.Failf(t, "member not found", "%s", name)
	var zero T
	return zero
}

func topLevel[T ir.Declaration](t *testing.T, f *ir.File, name names.Name) T {
	t.Helper()
	for _, d := range f.Declarations {
		if m, ok := d.(T); ok {
			if n, ok := d.(interface{ Name() names.Name }); ok && n.Name() == name {
				return m
			}
		}
	}
	require.Failf(t, "declaration not found", "%s", name)
	var zero T
	return zero
}

func coneType(t *testing.T, ref ir.TypeRef) typesystem.Type {
	t.Helper()
	typ, ok := ir.ConeType(ref)
	require.True(t, ok, "type ref %T is not resolved", ref)
	return typ
}

func TestSupertypeDefaults(t *testing.T) {
	fx := resolveSources(t, `
package: demo
declarations:
  - class: Plain
  - enum: Color
    entries: [RED, GREEN]
  - annotation: Marker
  - interface: Shape
`)
	require.False(t, fx.diags.HasErrors(), fx.diags.Diagnostics())

	anyType := typesystem.Simple(typesystem.AnyID)
	plain := supertypesOf(fx.class(t, "demo/Plain"))
	require.Len(t, plain, 1)
	assert.True(t, typesystem.Equal(anyType, plain[0]), plain[0].String())

	color := supertypesOf(fx.class(t, "demo/Color"))
	require.Len(t, color, 1)
	want := typesystem.Simple(typesystem.EnumID, typesystem.Simple(names.ParseClassID("demo/Color")))
	assert.True(t, typesystem.Equal(want, color[0]), color[0].String())

	marker := supertypesOf(fx.class(t, "demo/Marker"))
	require.Len(t, marker, 1)
	assert.True(t, typesystem.Equal(typesystem.Simple(typesystem.AnnotationID), marker[0]))

	shape := supertypesOf(fx.class(t, "demo/Shape"))
	require.Len(t, shape, 1)
	assert.True(t, typesystem.Equal(anyType, shape[0]))
}

func TestInheritanceCycle(t *testing.T) {
	fx := resolveSources(t, `
package: demo
declarations:
  - interface: A
    supertypes: [B]
  - interface: B
    supertypes: [A]
  - interface: C
    supertypes: [A]
`)
	msgs := fx.messages(diagnostics.ErrR002)
	require.NotEmpty(t, msgs)
	for _, m := range msgs {
		assert.Contains(t, m, "there's a cycle in the inheritance hierarchy")
	}
}

func TestStatuses(t *testing.T) {
	fx := resolveSources(t, `
package: demo
declarations:
  - interface: Shape
    members:
      - fun: area
        returns: Double
      - fun: describe
        returns: String
        expression: '"shape"'
  - class: Square
    modifiers: open
    supertypes: [Shape]
    members:
      - fun: area
        modifiers: override
        returns: Double
        expression: "1.0"
      - fun: side
        returns: Double
        expression: "1.0"
      - val: name
        modifiers: private
        initializer: '"square"'
`)
	require.False(t, fx.diags.HasErrors(), fx.diags.Diagnostics())

	shape := fx.class(t, "demo/Shape")
	assert.Equal(t, descriptors.Abstract, shape.Status().Modality)
	assert.Equal(t, descriptors.Abstract, member[*ir.SimpleFunction](t, shape, "area").Status().Modality)
	assert.Equal(t, descriptors.Open, member[*ir.SimpleFunction](t, shape, "describe").Status().Modality)

	square := fx.class(t, "demo/Square")
	assert.Equal(t, descriptors.Open, square.Status().Modality)
	assert.Equal(t, descriptors.Public, square.Status().Visibility)
	assert.Equal(t, descriptors.Open, member[*ir.SimpleFunction](t, square, "area").Status().Modality)
	assert.Equal(t, descriptors.Final, member[*ir.SimpleFunction](t, square, "side").Status().Modality)
	name := member[*ir.Property](t, square, "name")
	assert.Equal(t, descriptors.Private, name.Status().Visibility)
	assert.Equal(t, descriptors.Final, name.Status().Modality)
	assert.Equal(t, ir.PhaseBodyResolve, name.ResolvePhase())
}

const circles = `
package: demo
declarations:
  - class: Circle
    members:
      - constructor: primary
        params: ["val radius: Double"]
      - fun: area
        expression: radius.times(radius)
  - val: answer
    initializer: "42"
  - fun: twice
    params: ["n: Int"]
    expression: n.plus(n)
  - fun: main
    body:
      - val c = Circle(2.0)
      - println(c.area())
      - return
      - println(twice(answer))
`

func TestImplicitTypes(t *testing.T) {
	fx := resolveSources(t, circles)
	require.False(t, fx.diags.HasErrors(), fx.diags.Diagnostics())
	f := fx.rs.Files[0]

	doubleType := typesystem.Simple(typesystem.DoubleID)
	intType := typesystem.Simple(typesystem.IntID)

	area := member[*ir.SimpleFunction](t, fx.class(t, "demo/Circle"), "area")
	assert.True(t, typesystem.Equal(doubleType, coneType(t, area.ReturnTypeRef())))
	answer := topLevel[*ir.Property](t, f, "answer")
	assert.True(t, typesystem.Equal(intType, coneType(t, answer.ReturnTypeRef())))
	twice := topLevel[*ir.SimpleFunction](t, f, "twice")
	assert.True(t, typesystem.Equal(intType, coneType(t, twice.ReturnTypeRef())))
	mainFn := topLevel[*ir.SimpleFunction](t, f, "main")
	assert.True(t, typesystem.Equal(typesystem.UnitType(), coneType(t, mainFn.ReturnTypeRef())))

	c := mainFn.Body().Statements[0].(*ir.Property)
	assert.True(t, typesystem.Equal(typesystem.Simple(names.ParseClassID("demo/Circle")), coneType(t, c.ReturnTypeRef())))
}

func TestReferences(t *testing.T) {
	fx := resolveSources(t, circles)
	f := fx.rs.Files[0]
	mainFn := topLevel[*ir.SimpleFunction](t, f, "main")
	stmts := mainFn.Body().Statements
	require.Len(t, stmts, 4)

	printCall := stmts[1].(*ir.FunctionCall)
	ref, ok := printCall.CalleeReference().(*ir.ResolvedNamedReference)
	require.True(t, ok)
	assert.Contains(t, ref.Target.String(), "println")

	areaCall := printCall.Arguments[0].(*ir.FunctionCall)
	ref, ok = areaCall.CalleeReference().(*ir.ResolvedNamedReference)
	require.True(t, ok)
	area := member[*ir.SimpleFunction](t, fx.class(t, "demo/Circle"), "area")
	assert.Same(t, area.Symbol(), ref.Target)

	recv := areaCall.ExplicitReceiver.(*ir.QualifiedAccessExpression)
	ref, ok = recv.CalleeReference().(*ir.ResolvedNamedReference)
	require.True(t, ok)
	assert.Same(t, stmts[0].(*ir.Property).Symbol(), ref.Target)

	twiceCall := stmts[3].(*ir.FunctionCall).Arguments[0].(*ir.FunctionCall)
	ref, ok = twiceCall.CalleeReference().(*ir.ResolvedNamedReference)
	require.True(t, ok)
	assert.Same(t, topLevel[*ir.SimpleFunction](t, f, "twice").Symbol(), ref.Target)
	assert.True(t, typesystem.Equal(typesystem.Simple(typesystem.IntID), coneType(t, twiceCall.TypeRef())))
}

func TestUnreachableCode(t *testing.T) {
	fx := resolveSources(t, circles)
	warnings := fx.diags.WithCode(diagnostics.ErrR007)
	require.Len(t, warnings, 1)
	assert.Equal(t, diagnostics.SeverityWarning, warnings[0].Severity)
	assert.Equal(t, "unreachable code", warnings[0].Message)
}

func TestRecursiveImplicitTypes(t *testing.T) {
	fx := resolveSources(t, `
package: demo
declarations:
  - fun: f
    expression: g()
  - fun: g
    expression: f()
`)
	msgs := fx.messages(diagnostics.ErrR003)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "type checking has run into a recursive problem")
	assert.Contains(t, msgs[0], "depends on itself")
}

func TestUnresolvedReferences(t *testing.T) {
	fx := resolveSources(t, `
package: demo
declarations:
  - fun: one
    params: ["x: Int"]
    expression: x
  - fun: main
    body:
      - println(missing)
      - one(1, 2)
`)
	msgs := fx.messages(diagnostics.ErrR004)
	assert.ElementsMatch(t, []string{
		"unresolved reference: missing",
		"none of the 1 candidates for one is applicable to 2 arguments",
	}, msgs)

	mainFn := topLevel[*ir.SimpleFunction](t, fx.rs.Files[0], "main")
	arg := mainFn.Body().Statements[0].(*ir.FunctionCall).Arguments[0].(*ir.QualifiedAccessExpression)
	assert.IsType(t, &ir.ErrorNamedReference{}, arg.CalleeReference())
}

func TestSupertypeChecks(t *testing.T) {
	fx := resolveSources(t, `
package: demo
declarations:
  - class: Closed
  - class: OpenA
    modifiers: open
  - class: OpenB
    modifiers: open
  - class: FromClosed
    supertypes: [Closed]
  - class: Two
    supertypes: [OpenA, OpenB]
  - interface: Bad
    supertypes: [OpenA]
`)
	assert.ElementsMatch(t, []string{
		"this type is final, so it cannot be inherited from: demo/Closed",
		"an interface cannot inherit from a class: demo/OpenA",
	}, fx.messages(diagnostics.ErrR005))
	assert.Equal(t, []string{"only one class may appear in a supertype list of demo/Two"}, fx.messages(diagnostics.ErrR006))
}

func TestOverrideChecks(t *testing.T) {
	fx := resolveSources(t, `
package: demo
declarations:
  - class: Base
    modifiers: open
    members:
      - fun: f
        body: []
  - class: Derived
    supertypes: [Base]
    members:
      - fun: f
        modifiers: override
        body: []
      - fun: g
        modifiers: override
        body: []
`)
	final := fx.messages(diagnostics.ErrO006)
	require.Len(t, final, 1)
	assert.Contains(t, final[0], "overrides final member")
	nothing := fx.messages(diagnostics.ErrO007)
	require.Len(t, nothing, 1)
	assert.Contains(t, nothing[0], "overrides nothing")
}

func TestConflictingDeclarations(t *testing.T) {
	fx := resolveSources(t, `
package: demo
declarations:
  - fun: f
    params: ["x: Int"]
    body: []
  - fun: f
    params: ["x: String"]
    body: []
  - val: v
    type: Int
    initializer: "1"
`, `
package: demo
declarations:
  - fun: f
    params: ["y: Int"]
    body: []
  - val: v
    type: Int
    initializer: "2"
  - class: K
  - class: K
`)
	msgs := fx.messages(diagnostics.ErrR001)
	require.Len(t, msgs, 3)
	var overloads, props, classes int
	for _, m := range msgs {
		switch {
		case strings.HasPrefix(m, "conflicting overloads: demo/f"):
			overloads++
		case strings.HasPrefix(m, "conflicting declarations: demo/v"):
			props++
		case strings.HasPrefix(m, "redeclaration: demo/K"):
			classes++
		}
	}
	assert.Equal(t, []int{1, 1, 1}, []int{overloads, props, classes})
}

func TestSourceClassDescriptor(t *testing.T) {
	fx := resolveSources(t, `
package: demo.shapes
declarations:
  - class: Shape
    modifiers: sealed
    members:
      - object: Factory
        modifiers: companion
  - class: Circle
    supertypes: [Shape]
    members:
      - constructor: primary
        params: ["val radius: Double"]
      - constructor: secondary
        delegate: this(1.0)
  - object: Empty
    supertypes: [Shape]
  - enum: Color
    entries: [RED, GREEN]
`)
	require.False(t, fx.diags.HasErrors(), fx.diags.Diagnostics())

	shape := fx.rs.SourceClass(fx.class(t, "demo/shapes/Shape"))
	assert.Equal(t, descriptors.Sealed, shape.Modality())
	sealed := shape.SealedSubclasses()
	require.Len(t, sealed, 2)
	assert.Equal(t, "demo/shapes/Circle", sealed[0].ClassID().String())
	assert.Equal(t, "demo/shapes/Empty", sealed[1].ClassID().String())
	comp := shape.CompanionObjectDescriptor()
	require.NotNil(t, comp)
	assert.True(t, comp.IsCompanionObject())
	assert.Equal(t, names.Name("Factory"), comp.Name())
	assert.NotNil(t, shape.FindNestedClass("Factory"))

	circle := fx.rs.SourceClass(fx.class(t, "demo/shapes/Circle"))
	ctors := circle.Constructors()
	require.Len(t, ctors, 2)
	primary := circle.UnsubstitutedPrimaryConstructor()
	require.NotNil(t, primary)
	require.Len(t, primary.ValueParameters(), 1)
	assert.Equal(t, names.Name("radius"), primary.ValueParameters()[0].Name())
	assert.NotEmpty(t, circle.UnsubstitutedMemberScope().ContributedProperties("radius"))

	empty := fx.rs.SourceClass(fx.class(t, "demo/shapes/Empty"))
	assert.Empty(t, empty.Constructors())

	color := fx.rs.SourceClass(fx.class(t, "demo/shapes/Color"))
	red := color.FindEnumEntry("RED")
	require.NotNil(t, red)
	assert.Equal(t, descriptors.KindEnumEntry, red.Kind())
	assert.Nil(t, color.FindEnumEntry("BLUE"))

	found := fx.app.FindClassAcrossModuleDependencies(names.ParseClassID("demo/shapes/Circle"))
	require.NotNil(t, found)
	assert.Same(t, circle, found)
}

func TestProvider(t *testing.T) {
	fx := resolveSources(t, `
package: demo.shapes
declarations:
  - class: Shape
`, `
package: demo.util
declarations:
  - fun: helper
    body: []
`)
	p := fx.rs.Provider()
	assert.Len(t, p.PackageFragments(names.NewFqName("demo.shapes")), 1)
	assert.Empty(t, p.PackageFragments(names.NewFqName("demo.other")))
	subs := p.SubPackagesOf(names.NewFqName("demo"))
	require.Len(t, subs, 2)
	assert.Equal(t, "demo.shapes", subs[0].String())
	assert.Equal(t, "demo.util", subs[1].String())

	frag := p.PackageFragments(names.NewFqName("demo.util"))[0]
	assert.Len(t, frag.MemberScope().ContributedFunctions("helper"), 1)
	assert.Nil(t, frag.MemberScope().ContributedClassifier("Shape"))
}
