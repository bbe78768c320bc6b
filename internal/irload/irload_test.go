package irload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/typesystem"
)

func TestNextToken(t *testing.T) {
	input := `a.b<out T, *>? -> (x) 42 7L 1.5 "s\n" 'c' null this`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{IDENT, "a"},
		{DOT, "."},
		{IDENT, "b"},
		{LT, "<"},
		{OUT, "out"},
		{IDENT, "T"},
		{COMMA, ","},
		{STAR, "*"},
		{GT, ">"},
		{QUESTION, "?"},
		{ARROW, "->"},
		{LPAREN, "("},
		{IDENT, "x"},
		{RPAREN, ")"},
		{INT, "42"},
		{LONG, "7L"},
		{DOUBLE, "1.5"},
		{STRING, "s\n"},
		{CHAR, "c"},
		{NULL, "null"},
		{THIS, "this"},
		{EOF, ""},
	}

	l := NewLexer(input)
	for i, tt := range tests {
		tok := l.NextToken()
		require.Equalf(t, tt.expectedType, tok.Type, "tests[%d] - %q", i, tok.Lexeme)
		require.Equalf(t, tt.expectedLexeme, tok.Lexeme, "tests[%d]", i)
	}
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input   string
		typ     TokenType
		literal any
	}{
		{"0", INT, int32(0)},
		{"1_000", INT, int32(1000)},
		{"0xFF", INT, int32(255)},
		{"0b101", INT, int32(5)},
		{"-3", INT, int32(-3)},
		{"3000000000L", LONG, int64(3000000000)},
		{"2.5e3", DOUBLE, 2500.0},
		{"3000000000", ILLEGAL, "the value is out of range for Int (use the L suffix)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, tt.typ, tok.Type)
			assert.Equal(t, tt.literal, tok.Literal)
		})
	}
}

func TestTokenColumns(t *testing.T) {
	toks := NewLexer("f(`a b`, x)").Tokens()
	require.Len(t, toks, 7)
	assert.Equal(t, 1, toks[0].Column)
	assert.Equal(t, "a b", toks[2].Lexeme)
	assert.Equal(t, 3, toks[2].Column)
	assert.Equal(t, 10, toks[4].Column)
}

func calleeName(c ir.Callee) names.Name {
	return c.CalleeReference().ReferencedName()
}

func newTestParser(input string) *Parser {
	ld := &loader{session: session.New("t"), file: "t.decl.yaml", pkg: names.NewFqName("demo")}
	return newParser(ld, diagnostics.Position{File: "t.decl.yaml", Line: 3, Column: 5}, input)
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Int", "Int"},
		{"a.b.C<T, out U, in V, *>?", "a.b.C<T, out U, in V, *>?"},
		{"Map<String, List<Int?>>", "Map<String, List<Int?>>"},
		{"(Int, String) -> Unit", "(Int, String) -> Unit"},
		{"(x: Int) -> Boolean", "(Int) -> Boolean"},
		{"String.(Int) -> Char", "String.(Int) -> Char"},
		{"suspend () -> Unit", "suspend () -> Unit"},
		{"((Int) -> Unit)?", "((Int) -> Unit)?"},
		{"(Int)", "Int"},
		{"dynamic", "dynamic"},
		{"() -> () -> Int", "() -> () -> Int"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := newTestParser(tt.input)
			ref := p.ParseType()
			require.Empty(t, p.errors)
			assert.Equal(t, tt.expected, ir.TypeRefString(ref))
		})
	}
}

func TestParseTypeStarIsStarVariance(t *testing.T) {
	p := newTestParser("List<*>")
	ref := p.ParseType().(*ir.UserTypeRef)
	require.Len(t, ref.Arguments, 1)
	assert.Equal(t, typesystem.Star, ref.Arguments[0].Variance)
	assert.Nil(t, ref.Arguments[0].Type)
}

func TestParseTypeErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
		column  int
	}{
		{"List<Int", "expected '>', got end of input", 13},
		{"suspend Int", "suspend applies to function types only", 5},
		{"(A, B)", "expected '->', got end of input", 11},
		{"Int Int", `unexpected identifier "Int"`, 9},
		{"42", `expected a type, got integer "42"`, 5},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := newTestParser(tt.input)
			p.ParseType()
			require.NotEmpty(t, p.errors)
			assert.Equal(t, diagnostics.ErrP002, p.errors[0].Code)
			assert.Equal(t, tt.message, p.errors[0].Message)
			assert.Equal(t, 3, p.errors[0].Pos.Line)
			assert.Equal(t, tt.column, p.errors[0].Pos.Column)
		})
	}
}

func TestParseExpression(t *testing.T) {
	p := newTestParser(`a.b.c(1, "x", f()).d`)
	e := p.ParseExpression()
	require.Empty(t, p.errors)

	d, ok := e.(*ir.QualifiedAccessExpression)
	require.True(t, ok)
	assert.Equal(t, names.Name("d"), calleeName(d))

	call, ok := d.ExplicitReceiver.(*ir.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, names.Name("c"), calleeName(call))
	require.Len(t, call.Arguments, 3)
	assert.Equal(t, ir.ConstInt, call.Arguments[0].(*ir.ConstExpression).Kind)
	assert.Equal(t, "x", call.Arguments[1].(*ir.ConstExpression).Value)
	inner := call.Arguments[2].(*ir.FunctionCall)
	assert.Nil(t, inner.ExplicitReceiver)
	assert.Empty(t, inner.Arguments)

	b := call.ExplicitReceiver.(*ir.QualifiedAccessExpression)
	assert.Equal(t, names.Name("b"), calleeName(b))
	a := b.ExplicitReceiver.(*ir.QualifiedAccessExpression)
	assert.Equal(t, names.Name("a"), calleeName(a))
	assert.Nil(t, a.ExplicitReceiver)
	assert.Equal(t, 5, a.Pos().Column)
}

func TestParseExpressionRejectsUnnamedCall(t *testing.T) {
	p := newTestParser("(f)(1)")
	e := p.ParseExpression()
	require.Len(t, p.errors, 1)
	assert.IsType(t, &ir.ErrorExpression{}, e)
}

func TestParseStatement(t *testing.T) {
	p := newTestParser("val x: List<Int> = listOf(1)")
	s := p.ParseStatement()
	require.Empty(t, p.errors)
	prop, ok := s.(*ir.Property)
	require.True(t, ok)
	assert.True(t, prop.IsLocal())
	assert.False(t, prop.IsVar())
	assert.Equal(t, names.Name("x"), prop.Name())
	assert.Equal(t, "List<Int>", ir.TypeRefString(prop.ReturnTypeRef()))
	assert.IsType(t, &ir.FunctionCall{}, prop.Initializer())

	p = newTestParser("return")
	r := p.ParseStatement().(*ir.ReturnExpression)
	assert.Nil(t, r.Result)

	p = newTestParser("return this")
	r = p.ParseStatement().(*ir.ReturnExpression)
	assert.Equal(t, names.Name("this"), calleeName(r.Result.(*ir.QualifiedAccessExpression)))
}

func TestParseHeaders(t *testing.T) {
	tp := newTestParser("reified out T : Comparable<T>").ParseTypeParameter()
	assert.Equal(t, names.Name("T"), tp.name)
	assert.True(t, tp.reified)
	assert.Equal(t, typesystem.Out, tp.variance)
	assert.Equal(t, "Comparable<T>", ir.TypeRefString(tp.bound))

	p := newTestParser("private vararg val xs: Int = 0")
	h := p.ParseParameter()
	require.Empty(t, p.errors)
	assert.Equal(t, names.Name("xs"), h.name)
	assert.True(t, h.property)
	assert.True(t, h.modifiers.Has(ir.ModVararg))
	assert.True(t, h.modifiers.Has(ir.ModPrivate))
	assert.NotNil(t, h.defaultValue)

	imp := newTestParser("a.b.C as D").ParseImport()
	assert.Equal(t, "a.b.C", imp.FqName.String())
	assert.Equal(t, names.Name("D"), imp.Alias)

	imp = newTestParser("a.b.*").ParseImport()
	assert.Equal(t, "a.b.*", imp.FqName.String())

	ann := newTestParser(`lang.Deprecated("old")`).ParseAnnotation()
	assert.Equal(t, "lang.Deprecated", ir.TypeRefString(ann.AnnotationTypeRef))
	require.Len(t, ann.Arguments, 1)

	call := newTestParser("super(1, x)").ParseDelegation()
	require.NotNil(t, call)
	assert.True(t, call.IsSuper)
	assert.Len(t, call.Arguments, 2)
}

const shapes = `
package: demo.shapes
imports: [demo.util.*, "demo.geo.Point as P"]
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
        params: ["private val radius: Double", "tag: T"]
      - constructor: secondary
        delegate: this(1.0, tag())
      - fun: area
        modifiers: override
        expression: radius.times(radius)
      - var: label
        type: String
        initializer: '"circle"'
        setter:
          param: "v: String"
          body: []
      - object: Companion
        modifiers: companion
  - enum: Color
    entries:
      - RED
      - name: GREEN
        members:
          - fun: hex
            expression: '"00ff00"'
  - typealias: Shapes
    type: List<Shape>
  - fun: main
    body:
      - val c = Circle(2.0, 1)
      - fun: local
        expression: c.area()
      - println(local())
`

func TestParseFile(t *testing.T) {
	s := session.New("t")
	f, err := Parse(s, "shapes.decl.yaml", []byte(shapes))
	require.NoError(t, err)

	assert.Equal(t, "demo.shapes", f.PackageFqName.String())
	require.Len(t, f.Imports, 2)
	assert.Equal(t, "demo.util.*", f.Imports[0].FqName.String())
	assert.Equal(t, names.Name("P"), f.Imports[1].Alias)
	require.Len(t, f.Declarations, 5)

	shape := f.Declarations[0].(*ir.RegularClass)
	assert.Equal(t, descriptors.KindInterface, shape.ClassKind())
	assert.Equal(t, "demo/shapes/Shape", shape.Symbol().ID.String())
	assert.Equal(t, 5, shape.Pos().Line)

	circle := f.Declarations[1].(*ir.RegularClass)
	assert.True(t, circle.Status().Modifiers.Has(ir.ModOpen))
	require.Len(t, circle.TypeParameters(), 1)
	assert.Equal(t, "demo/shapes/Circle#T", circle.TypeParameters()[0].Key())
	require.Len(t, circle.SuperTypeRefs(), 1)

	decls := circle.Declarations()
	require.Len(t, decls, 6)
	primary := decls[0].(*ir.Constructor)
	assert.True(t, primary.IsPrimary())
	require.Len(t, primary.ValueParameters(), 2)
	assert.False(t, primary.ValueParameters()[0].Status().Modifiers.Has(ir.ModPrivate))

	radius := decls[1].(*ir.Property)
	assert.Equal(t, names.Name("radius"), radius.Name())
	assert.True(t, radius.Status().Modifiers.Has(ir.ModPrivate))
	assert.Equal(t, circle.Symbol(), radius.ContainingClass())
	assert.Equal(t, names.Name("radius"), calleeName(radius.Initializer().(*ir.QualifiedAccessExpression)))

	secondary := decls[2].(*ir.Constructor)
	assert.False(t, secondary.IsPrimary())
	require.NotNil(t, secondary.DelegatedConstructor())
	assert.False(t, secondary.DelegatedConstructor().IsSuper)

	area := decls[3].(*ir.SimpleFunction)
	require.NotNil(t, area.Body())
	require.Len(t, area.Body().Statements, 1)
	assert.IsType(t, &ir.ReturnExpression{}, area.Body().Statements[0])

	label := decls[4].(*ir.Property)
	assert.True(t, label.IsVar())
	require.NotNil(t, label.Setter())
	assert.Equal(t, names.Name("v"), label.Setter().ValueParameters()[0].Name())
	assert.Equal(t, label.Symbol(), label.Setter().PropertySymbol())

	companion := decls[5].(*ir.RegularClass)
	assert.True(t, companion.IsCompanion())
	assert.Equal(t, "demo/shapes/Circle.Companion", companion.Symbol().ID.String())

	color := f.Declarations[2].(*ir.RegularClass)
	assert.Equal(t, descriptors.KindEnumClass, color.ClassKind())
	entries := color.Declarations()
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].(*ir.EnumEntry).Initializer())
	green := entries[1].(*ir.EnumEntry).Initializer()
	require.NotNil(t, green)
	assert.True(t, green.Symbol().ID.Local)

	alias := f.Declarations[3].(*ir.TypeAlias)
	assert.Equal(t, "List<Shape>", ir.TypeRefString(alias.ExpandedTypeRef()))

	main := f.Declarations[4].(*ir.SimpleFunction)
	stmts := main.Body().Statements
	require.Len(t, stmts, 3)
	assert.True(t, stmts[0].(*ir.Property).IsLocal())
	assert.IsType(t, &ir.SimpleFunction{}, stmts[1])
	assert.IsType(t, &ir.FunctionCall{}, stmts[2])

	assert.Equal(t, ir.PhaseRaw, f.ResolvePhase())
}

func TestParseFileReportsEveryProblem(t *testing.T) {
	src := `
package: demo
declarations:
  - fun: f
    returns: List<Int
    params: ["x: Int", "val y: Int"]
  - class: C
    modifiers: opn
    members:
      - constructor: tertiary
  - constructor: primary
`
	_, err := Parse(session.New("t"), "bad.decl.yaml", []byte(src))
	var syntax *SyntaxError
	require.True(t, errors.As(err, &syntax))

	var codes []diagnostics.ErrorCode
	var lines []int
	for _, d := range syntax.Diagnostics {
		codes = append(codes, d.Code)
		lines = append(lines, d.Pos.Line)
	}
	assert.Equal(t, []diagnostics.ErrorCode{
		diagnostics.ErrP002, diagnostics.ErrP001, diagnostics.ErrP001, diagnostics.ErrP001, diagnostics.ErrP001,
	}, codes)
	assert.Equal(t, []int{5, 6, 8, 10, 11}, lines)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(session.New("t"), "x.decl.yaml", []byte("package: demo\ndeclarations:\n  - fun: f\n    retuns: Int\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retuns")
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c"} {
		path := filepath.Join(dir, name+".decl.yaml")
		src := "package: demo\ndeclarations:\n  - fun: " + name + "\n"
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
		paths = append(paths, path)
	}

	files, err := LoadFiles(context.Background(), session.New("t"), paths, 2)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for i, f := range files {
		assert.Equal(t, paths[i], f.Name)
	}

	_, err = LoadFiles(context.Background(), session.New("t"), append(paths, filepath.Join(dir, "missing.decl.yaml")), 2)
	require.ErrorIs(t, err, os.ErrNotExist)
}
