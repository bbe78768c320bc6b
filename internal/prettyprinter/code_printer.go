package prettyprinter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/typesystem"
)

// --- Code Printer (output looks like declaration source) ---

// statusModifiers are the modifiers a resolved status replaces.
var statusModifiers = ir.Modifiers(
	ir.ModPublic, ir.ModPrivate, ir.ModProtected, ir.ModInternal,
	ir.ModFinal, ir.ModOpen, ir.ModAbstract, ir.ModSealed,
)

type CodePrinter struct {
	buf       bytes.Buffer
	indent    int
	lineWidth int // max line width (0 = unlimited)
	column    int // current column position
	resolved  bool
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{indent: 0, lineWidth: 100, column: 0}
}

func NewCodePrinterWithWidth(width int) *CodePrinter {
	return &CodePrinter{indent: 0, lineWidth: width, column: 0}
}

func (p *CodePrinter) SetLineWidth(width int) {
	p.lineWidth = width
}

// ShowResolution prints resolved statuses, expression types and
// unresolved references.
func (p *CodePrinter) ShowResolution(on bool) {
	p.resolved = on
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
	p.column = p.indent * 4
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
	// Track column position
	if idx := strings.LastIndex(s, "\n"); idx != -1 {
		p.column = len(s) - idx - 1
	} else {
		p.column += len(s)
	}
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
	p.column = 0
}

// sub renders with a fresh printer at the current indentation.
func (p *CodePrinter) sub(fn func(*CodePrinter)) string {
	q := &CodePrinter{indent: p.indent, lineWidth: p.lineWidth, column: p.column, resolved: p.resolved}
	fn(q)
	return q.String()
}

func (p *CodePrinter) PrintFile(f *ir.File) {
	if !f.PackageFqName.IsRoot() {
		p.write("package " + f.PackageFqName.String())
		p.writeln()
		p.writeln()
	}
	for _, imp := range f.Imports {
		p.write("import " + imp.FqName.String())
		if imp.Alias != "" {
			p.write(" as " + string(imp.Alias))
		}
		p.writeln()
	}
	if len(f.Imports) > 0 {
		p.writeln()
	}
	for i, d := range f.Declarations {
		if i > 0 {
			p.writeln()
		}
		p.writeIndent()
		p.PrintDeclaration(d)
		p.writeln()
	}
}

func (p *CodePrinter) PrintDeclaration(d ir.Declaration) {
	p.annotations(d.Annotations())
	switch d := d.(type) {
	case *ir.RegularClass:
		p.class(d)
	case *ir.TypeAlias:
		p.status(d.Status(), false)
		p.write("typealias " + string(d.Name()))
		p.typeParameters(d.TypeParameters())
		p.write(" = " + ir.TypeRefString(d.ExpandedTypeRef()))
	case *ir.SimpleFunction:
		p.function(d)
	case *ir.Property:
		p.property(d)
	case *ir.Constructor:
		p.constructor(d)
	case *ir.EnumEntry:
		p.enumEntry(d)
	case *ir.ValueParameter:
		p.valueParameter(d)
	case *ir.TypeParameter:
		p.typeParameter(d)
	case *ir.AnonymousObject:
		p.write("object")
		p.supertypes(d.SuperTypeRefs())
		p.members(d.Declarations())
	default:
		p.write("<???>")
	}
}

func (p *CodePrinter) annotations(list []*ir.Annotation) {
	for _, a := range list {
		p.annotation(a)
		p.writeln()
		p.writeIndent()
	}
}

func (p *CodePrinter) annotation(a *ir.Annotation) {
	p.write("@" + ir.TypeRefString(a.AnnotationTypeRef))
	if len(a.Arguments) > 0 {
		p.arguments(a.Arguments)
	}
}

// status writes the modifiers. With resolution shown, the resolved
// visibility and modality replace the written ones.
func (p *CodePrinter) status(st ir.DeclarationStatus, modality bool) {
	mods := st.Modifiers
	var parts []string
	if p.resolved && st.Resolved && st.Visibility != descriptors.Local {
		mods &^= statusModifiers
		parts = append(parts, st.Visibility.String())
		if modality {
			parts = append(parts, st.Modality.String())
		}
	}
	if s := mods.String(); s != "" {
		parts = append(parts, s)
	}
	if len(parts) > 0 {
		p.write(strings.Join(parts, " ") + " ")
	}
}

func classKeyword(k descriptors.ClassKind) string {
	switch k {
	case descriptors.KindInterface:
		return "interface"
	case descriptors.KindEnumClass:
		return "enum class"
	case descriptors.KindAnnotationClass:
		return "annotation class"
	case descriptors.KindObject:
		return "object"
	default:
		return "class"
	}
}

func (p *CodePrinter) class(c *ir.RegularClass) {
	p.status(c.Status(), true)
	p.write(classKeyword(c.ClassKind()) + " " + string(c.Name()))
	p.typeParameters(c.TypeParameters())
	p.supertypes(c.SuperTypeRefs())
	p.members(c.Declarations())
}

func (p *CodePrinter) supertypes(refs []ir.TypeRef) {
	for i, ref := range refs {
		if i == 0 {
			p.write(" : ")
		} else {
			p.write(", ")
		}
		p.write(ir.TypeRefString(ref))
	}
}

// members writes a class body. Enum entries come first, separated by
// commas and closed by a semicolon when other members follow.
func (p *CodePrinter) members(decls []ir.Declaration) {
	if len(decls) == 0 {
		return
	}
	var entries []*ir.EnumEntry
	var rest []ir.Declaration
	for _, d := range decls {
		if e, ok := d.(*ir.EnumEntry); ok {
			entries = append(entries, e)
		} else {
			rest = append(rest, d)
		}
	}
	p.write(" {")
	p.writeln()
	p.indent++
	for i, e := range entries {
		p.writeIndent()
		p.PrintDeclaration(e)
		switch {
		case i < len(entries)-1:
			p.write(",")
		case len(rest) > 0:
			p.write(";")
		}
		p.writeln()
	}
	for i, d := range rest {
		if i > 0 || len(entries) > 0 {
			p.writeln()
		}
		p.writeIndent()
		p.PrintDeclaration(d)
		p.writeln()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) enumEntry(e *ir.EnumEntry) {
	p.write(string(e.Name()))
	if obj := e.Initializer(); obj != nil {
		p.members(obj.Declarations())
	}
}

func (p *CodePrinter) typeParameters(params []*ir.TypeParameter) {
	if len(params) == 0 {
		return
	}
	p.write("<")
	for i, tp := range params {
		if i > 0 {
			p.write(", ")
		}
		p.typeParameter(tp)
	}
	p.write(">")
}

func (p *CodePrinter) typeParameter(tp *ir.TypeParameter) {
	if tp.IsReified() {
		p.write("reified ")
	}
	if v := tp.Variance(); v == typesystem.In || v == typesystem.Out {
		p.write(v.String() + " ")
	}
	p.write(string(tp.Name()))
	for i, b := range tp.Bounds() {
		if i == 0 {
			p.write(" : ")
		} else {
			p.write(" & ")
		}
		p.write(ir.TypeRefString(b))
	}
}

// returnType writes ": T" unless the type is still implicit.
func (p *CodePrinter) returnType(ref ir.TypeRef) {
	if _, ok := ref.(*ir.ImplicitTypeRef); ok || ref == nil {
		return
	}
	p.write(": " + ir.TypeRefString(ref))
}

func (p *CodePrinter) function(f *ir.SimpleFunction) {
	p.status(f.Status(), true)
	p.write("fun ")
	if len(f.TypeParameters()) > 0 {
		p.typeParameters(f.TypeParameters())
		p.write(" ")
	}
	if r := f.ReceiverTypeRef(); r != nil {
		p.write(ir.TypeRefString(r) + ".")
	}
	p.write(string(f.Name()))
	p.valueParameters(f.ValueParameters())
	p.returnType(f.ReturnTypeRef())
	p.body(f.Body())
}

func (p *CodePrinter) valueParameters(params []*ir.ValueParameter) {
	p.write("(")
	for i, vp := range params {
		if i > 0 {
			p.write(", ")
		}
		p.valueParameter(vp)
	}
	p.write(")")
}

func (p *CodePrinter) valueParameter(vp *ir.ValueParameter) {
	for _, a := range vp.Annotations() {
		p.annotation(a)
		p.write(" ")
	}
	if s := vp.Status().Modifiers.String(); s != "" {
		p.write(s + " ")
	}
	p.write(string(vp.Name()))
	p.returnType(vp.ReturnTypeRef())
	if def := vp.DefaultValue(); def != nil {
		p.write(" = ")
		p.expr(def)
	}
}

// body writes " = e" for an expression body and a block otherwise.
func (p *CodePrinter) body(b *ir.Block) {
	if b == nil {
		return
	}
	if len(b.Statements) == 1 {
		if r, ok := b.Statements[0].(*ir.ReturnExpression); ok && r.Result != nil {
			p.write(" = ")
			p.expr(r.Result)
			return
		}
	}
	p.write(" ")
	p.block(b)
}

func (p *CodePrinter) property(prop *ir.Property) {
	p.status(prop.Status(), !prop.IsLocal())
	if prop.IsVar() {
		p.write("var ")
	} else {
		p.write("val ")
	}
	if r := prop.ReceiverTypeRef(); r != nil {
		p.write(ir.TypeRefString(r) + ".")
	}
	p.write(string(prop.Name()))
	p.returnType(prop.ReturnTypeRef())
	if init := prop.Initializer(); init != nil {
		p.write(" = ")
		p.expr(init)
	}
	for _, a := range []*ir.PropertyAccessor{prop.Getter(), prop.Setter()} {
		if a == nil {
			continue
		}
		p.indent++
		p.writeln()
		p.writeIndent()
		p.accessor(a)
		p.indent--
	}
}

func (p *CodePrinter) accessor(a *ir.PropertyAccessor) {
	if s := a.Status().Modifiers.String(); s != "" {
		p.write(s + " ")
	}
	if a.IsGetter() {
		p.write("get()")
	} else {
		p.write("set")
		p.valueParameters(a.ValueParameters())
	}
	p.body(a.Body())
}

func (p *CodePrinter) constructor(c *ir.Constructor) {
	p.status(c.Status(), false)
	if c.IsPrimary() {
		p.write("primary ")
	}
	p.write("constructor")
	p.valueParameters(c.ValueParameters())
	if dc := c.DelegatedConstructor(); dc != nil {
		p.write(" : ")
		p.expr(dc)
	}
	if b := c.Body(); b != nil {
		p.write(" ")
		p.block(b)
	}
}

func (p *CodePrinter) block(b *ir.Block) {
	p.write("{")
	p.writeln()
	p.indent++
	for _, st := range b.Statements {
		p.writeIndent()
		switch st := st.(type) {
		case ir.Expression:
			p.expr(st)
			p.typeComment(st)
		case ir.Declaration:
			p.PrintDeclaration(st)
		default:
			p.write("<???>")
		}
		p.writeln()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

// typeComment appends the resolved type of a statement expression.
func (p *CodePrinter) typeComment(e ir.Expression) {
	if !p.resolved {
		return
	}
	if _, ok := e.(*ir.ReturnExpression); ok {
		return
	}
	switch ref := e.TypeRef().(type) {
	case *ir.ResolvedTypeRef, *ir.ErrorTypeRef:
		p.write(" // : " + ir.TypeRefString(ref))
	}
}

func (p *CodePrinter) expr(e ir.Expression) {
	switch e := e.(type) {
	case nil:
		p.write("<???>")
	case *ir.ConstExpression:
		p.write(constString(e))
	case *ir.QualifiedAccessExpression:
		p.receiver(e.ExplicitReceiver)
		p.callee(e.CalleeReference())
	case *ir.FunctionCall:
		p.receiver(e.ExplicitReceiver)
		p.callee(e.CalleeReference())
		p.arguments(e.Arguments)
	case *ir.DelegatedConstructorCall:
		if e.IsSuper {
			p.write("super")
		} else {
			p.write("this")
		}
		p.arguments(e.Arguments)
	case *ir.ReturnExpression:
		p.write("return")
		if e.Result != nil {
			p.write(" ")
			p.expr(e.Result)
		}
	case *ir.Block:
		p.block(e)
	case *ir.Annotation:
		p.annotation(e)
	case *ir.ErrorExpression:
		p.write("<error: " + e.Reason + ">")
	default:
		p.write("<???>")
	}
}

func (p *CodePrinter) receiver(recv ir.Expression) {
	if recv != nil {
		p.expr(recv)
		p.write(".")
	}
}

func (p *CodePrinter) callee(ref ir.NamedReference) {
	name := string(ref.ReferencedName())
	if _, ok := ref.(*ir.ErrorNamedReference); ok && p.resolved {
		p.write("<unresolved: " + name + ">")
		return
	}
	p.write(name)
}

// arguments writes a call argument list, one argument per line when it
// would not fit the line width.
func (p *CodePrinter) arguments(args []ir.Expression) {
	rendered := make([]string, len(args))
	width := p.column + 2
	for i, arg := range args {
		rendered[i] = p.sub(func(q *CodePrinter) { q.expr(arg) })
		width += len(rendered[i]) + 2
	}
	multiline := p.lineWidth > 0 && width > p.lineWidth && len(args) > 1
	if !multiline {
		p.write("(" + strings.Join(rendered, ", ") + ")")
		return
	}
	p.write("(")
	p.indent++
	for i, arg := range args {
		p.writeln()
		p.writeIndent()
		p.expr(arg)
		if i < len(args)-1 {
			p.write(",")
		}
	}
	p.indent--
	p.writeln()
	p.writeIndent()
	p.write(")")
}

func constString(c *ir.ConstExpression) string {
	switch c.Kind {
	case ir.ConstLong:
		return c.String() + "L"
	case ir.ConstDouble:
		v, ok := c.Value.(float64)
		if !ok {
			return c.String()
		}
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	}
	return c.String()
}
