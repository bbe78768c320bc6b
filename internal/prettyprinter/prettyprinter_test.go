package prettyprinter

import (
	"bytes"
	"context"
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
	"github.com/funvibe/semcore/internal/resolve"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/typesystem"
)

const shapes = `
package: demo.shapes
imports: ["demo.geo.Point as P"]
declarations:
  - interface: Shape
    members:
      - fun: area
        returns: Double
  - class: Circle
    modifiers: open
    type_parameters: ["out T : Any"]
    supertypes: [Shape]
    members:
      - constructor: primary
        params: ["val radius: Double"]
      - fun: area
        modifiers: override
        expression: radius.times(radius)
  - enum: Color
    entries: [RED, GREEN]
  - fun: main
    body:
      - val c = Circle(2.0)
      - println(c.area())
`

func parse(t *testing.T, s *session.Session, src string) *ir.File {
	t.Helper()
	f, err := irload.Parse(s, "shapes.decl.yaml", []byte(src))
	require.NoError(t, err)
	return f
}

func TestPrintFile(t *testing.T) {
	f := parse(t, session.New(t.Name()), shapes)
	p := NewCodePrinter()
	p.PrintFile(f)

	want := `package demo.shapes

import demo.geo.Point as P

interface Shape {
    fun area(): Double
}

open class Circle<out T : Any> : Shape {
    primary constructor(radius: Double)

    val radius: Double = radius

    override fun area() = radius.times(radius)
}

enum class Color {
    RED,
    GREEN
}

fun main() {
    val c = Circle(2.0)
    println(c.area())
}
`
	assert.Equal(t, want, p.String())
}

func TestPrintLiterals(t *testing.T) {
	pos := diagnostics.Position{}
	for _, tc := range []struct {
		e    *ir.ConstExpression
		want string
	}{
		{ir.NewConst(pos, ir.ConstInt, int32(42)), "42"},
		{ir.NewConst(pos, ir.ConstLong, int64(7)), "7L"},
		{ir.NewConst(pos, ir.ConstDouble, 2.0), "2.0"},
		{ir.NewConst(pos, ir.ConstDouble, 0.25), "0.25"},
		{ir.NewConst(pos, ir.ConstString, "hi"), `"hi"`},
		{ir.NewConst(pos, ir.ConstBoolean, true), "true"},
		{ir.NewConst(pos, ir.ConstNull, nil), "null"},
	} {
		assert.Equal(t, tc.want, constString(tc.e))
	}
}

func TestLongArgumentListsWrap(t *testing.T) {
	pos := diagnostics.Position{}
	call := ir.NewFunctionCall(pos, nil, "combine",
		ir.NewQualifiedAccess(pos, nil, "firstArgument"),
		ir.NewQualifiedAccess(pos, nil, "secondArgument"),
	)
	p := NewCodePrinterWithWidth(30)
	p.expr(call)
	assert.Equal(t, "combine(\n    firstArgument,\n    secondArgument\n)", p.String())

	p = NewCodePrinterWithWidth(0)
	p.expr(call)
	assert.Equal(t, "combine(firstArgument, secondArgument)", p.String())
}

type resolved struct {
	file  *ir.File
	comps *deserialization.Components
	app   *modules.Module
}

func resolveShapes(t *testing.T, src string) resolved {
	t.Helper()
	s := session.New(t.Name(), session.WithReporter(diagnostics.NewCollector()))
	lang := modules.NewModule(s.Storage, config.BuiltinsModule)
	lang.SetDependencies()
	comps := deserialization.NewComponents(s, lang, builtins.NewLibrary())
	lang.Initialize(comps)

	f := parse(t, s, src)
	app := modules.NewModule(s.Storage, "app")
	app.SetDependencies(lang)
	rs := resolve.NewSession(s, app, []*ir.File{f})
	rs.Collect()
	app.Initialize(rs.Provider())
	require.NoError(t, rs.Resolve(context.Background()))
	return resolved{file: f, comps: comps, app: app}
}

func TestPrintResolvedFile(t *testing.T) {
	r := resolveShapes(t, `
package: demo
declarations:
  - class: Box
    members:
      - fun: size
        expression: "1"
  - fun: main
    body:
      - Box().size()
      - missing()
`)
	p := NewCodePrinter()
	p.ShowResolution(true)
	p.PrintFile(r.file)

	want := `package demo

public final class Box : lang.Any {
    public final fun size(): lang.Int = 1
}

public final fun main(): lang.Unit {
    Box().size() // : lang.Int
    <unresolved: missing>() // : <ERROR: unresolved reference: missing>
}
`
	assert.Equal(t, want, p.String())
}

func TestRenderBuiltinClass(t *testing.T) {
	r := resolveShapes(t, "package: demo\n")
	intClass := r.comps.DeserializeClass(typesystem.IntID)
	require.NotNil(t, intClass)

	var buf bytes.Buffer
	require.NoError(t, DescriptorRenderer{}.RenderClass(&buf, intClass))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "public final class lang.Int : lang.Comparable<lang.Int> {\n"), out)
	assert.Contains(t, out, "\n    public final operator fun plus(other: lang.Int): lang.Int\n")
	assert.Contains(t, out, "\n    public final operator fun compareTo(other: lang.Int): lang.Int\n")
	assert.NotContains(t, out, "hashCode")

	buf.Reset()
	require.NoError(t, DescriptorRenderer{FakeOverrides: true}.RenderClass(&buf, intClass))
	assert.Contains(t, buf.String(), "/* fake_override */ public open fun hashCode(): lang.Int")
}

func TestRenderSourcePackage(t *testing.T) {
	r := resolveShapes(t, `
package: demo
declarations:
  - class: Box
    type_parameters: ["T"]
    members:
      - constructor: primary
        params: ["val item: T"]
  - fun: wrap
    type_parameters: ["T"]
    params: ["item: T"]
    returns: Box<T>
    expression: Box(item)
`)
	var buf bytes.Buffer
	require.NoError(t, DescriptorRenderer{}.RenderPackage(&buf, r.app.Package(names.NewFqName("demo"))))

	want := `package demo

public final class demo.Box<T> : lang.Any {
    /* primary */ public constructor(item: T)
    public final val item: T
}

public final fun <T> wrap(item: T): demo.Box<T>
`
	assert.Equal(t, want, buf.String())
}

func TestRenderSignatures(t *testing.T) {
	owner := &descriptors.ClassImpl{ID: names.ParseClassID("demo/Base"), Vis: descriptors.Public, Mod: descriptors.Open}
	intT := typesystem.Simple(typesystem.IntID)
	base := &descriptors.FunctionImpl{Callable: descriptors.Callable{
		Owner: owner, CallableName: "f", Vis: descriptors.Public, Mod: descriptors.Open, Returns: intT,
	}}
	derived := &descriptors.ClassImpl{ID: names.ParseClassID("demo/Derived"), Vis: descriptors.Public}
	f := &descriptors.FunctionImpl{
		Callable: descriptors.Callable{
			Owner: derived, CallableName: "f", Vis: descriptors.Protected, Mod: descriptors.Final,
			Receiver: typesystem.Simple(typesystem.StringID), Returns: intT,
		},
		Suspend: true,
	}
	f.Params = []descriptors.ValueParameterDescriptor{
		&descriptors.ValueParameterImpl{Owner: f, ParamName: "xs", ParamType: intT, Vararg: intT},
		&descriptors.ValueParameterImpl{Owner: f, ParamName: "n", Idx: 1, ParamType: intT, HasDefault: true},
	}
	f.SetOverriddenDescriptors([]descriptors.CallableMemberDescriptor{base})

	r := DescriptorRenderer{Overridden: true}
	assert.Equal(t, "protected final suspend fun lang.String.f(vararg xs: lang.Int, n: lang.Int = ...): lang.Int", r.Render(f))
	assert.Equal(t, "public open fun f(): lang.Int", r.Render(base))
	assert.Equal(t, "public open fun f(): lang.Int", r.withOverridden(r.Render(base), base))
	assert.Equal(t, "x // overrides demo.Base", r.withOverridden("x", f))
	assert.Equal(t, "x", DescriptorRenderer{}.withOverridden("x", f))
}
