package prettyprinter

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// DescriptorRenderer renders descriptors as declarations with fully
// qualified types. Members are sorted, so the output only depends on the
// declarations.
type DescriptorRenderer struct {
	// FakeOverrides includes inherited members in class bodies.
	FakeOverrides bool
	// Overridden lists the members each callable overrides.
	Overridden bool
}

// Render returns the one-line signature of d.
func (r DescriptorRenderer) Render(d descriptors.DeclarationDescriptor) string {
	switch d := d.(type) {
	case descriptors.ClassDescriptor:
		return r.classHeader(d)
	case descriptors.FunctionDescriptor:
		return r.function(d)
	case descriptors.PropertyDescriptor:
		return r.property(d)
	case descriptors.ConstructorDescriptor:
		return r.constructor(d)
	case descriptors.ValueParameterDescriptor:
		return valueParameter(d)
	case descriptors.TypeParameterDescriptor:
		return typeParameter(d)
	case descriptors.PackageFragmentDescriptor:
		return "package " + d.FqName().String()
	case descriptors.ModuleDescriptor:
		return "module " + d.Name().String()
	}
	return fmt.Sprintf("<unknown %T>", d)
}

// RenderClass writes c with its constructors, members and nested classes.
func (r DescriptorRenderer) RenderClass(w io.Writer, c descriptors.ClassDescriptor) error {
	p := NewCodePrinterWithWidth(0)
	r.class(p, c)
	p.writeln()
	_, err := io.WriteString(w, p.String())
	return err
}

// RenderPackage writes the members of a package view: classes first, then
// properties and functions.
func (r DescriptorRenderer) RenderPackage(w io.Writer, view descriptors.PackageViewDescriptor) error {
	p := NewCodePrinterWithWidth(0)
	p.write("package " + view.FqName().String())
	p.writeln()
	scope := view.MemberScope()
	for _, n := range sortedNames(scope.ClassifierNames()) {
		c, ok := scope.ContributedClassifier(n).(descriptors.ClassDescriptor)
		if !ok {
			continue
		}
		p.writeln()
		r.class(p, c)
		p.writeln()
	}
	callables := r.callables(scope)
	if len(callables) > 0 {
		p.writeln()
	}
	for _, line := range callables {
		p.write(line)
		p.writeln()
	}
	_, err := io.WriteString(w, p.String())
	return err
}

func (r DescriptorRenderer) class(p *CodePrinter, c descriptors.ClassDescriptor) {
	p.write(r.classHeader(c))

	var lines []string
	for _, ctor := range c.Constructors() {
		lines = append(lines, r.constructor(ctor))
	}
	lines = append(lines, r.callables(c.UnsubstitutedMemberScope())...)
	var nested []descriptors.ClassDescriptor
	scope := c.UnsubstitutedMemberScope()
	for _, n := range sortedNames(scope.ClassifierNames()) {
		if nc, ok := scope.ContributedClassifier(n).(descriptors.ClassDescriptor); ok {
			nested = append(nested, nc)
		}
	}
	if len(lines) == 0 && len(nested) == 0 {
		return
	}

	p.write(" {")
	p.writeln()
	p.indent++
	for _, line := range lines {
		p.writeIndent()
		p.write(line)
		p.writeln()
	}
	for _, nc := range nested {
		p.writeln()
		p.writeIndent()
		r.class(p, nc)
		p.writeln()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

// callables renders the properties, then the functions of a scope, by
// name and signature.
func (r DescriptorRenderer) callables(scope descriptors.MemberScope) []string {
	var out []string
	for _, n := range sortedNames(scope.PropertyNames()) {
		var group []string
		for _, prop := range scope.ContributedProperties(n) {
			if r.include(prop) {
				group = append(group, r.withOverridden(r.property(prop), prop))
			}
		}
		slices.Sort(group)
		out = append(out, group...)
	}
	for _, n := range sortedNames(scope.FunctionNames()) {
		var group []string
		for _, fn := range scope.ContributedFunctions(n) {
			if r.include(fn) {
				group = append(group, r.withOverridden(r.function(fn), fn))
			}
		}
		slices.Sort(group)
		out = append(out, group...)
	}
	return out
}

func (r DescriptorRenderer) include(m descriptors.CallableMemberDescriptor) bool {
	return r.FakeOverrides || m.Kind() != descriptors.FakeOverride
}

func (r DescriptorRenderer) withOverridden(line string, m descriptors.CallableMemberDescriptor) string {
	if !r.Overridden {
		return line
	}
	var owners []string
	for _, o := range m.OverriddenDescriptors() {
		owners = append(owners, descriptors.FqNameOf(o.ContainingDeclaration()).String())
	}
	if len(owners) == 0 {
		return line
	}
	slices.Sort(owners)
	return line + " // overrides " + strings.Join(owners, ", ")
}

func (r DescriptorRenderer) classHeader(c descriptors.ClassDescriptor) string {
	var sb strings.Builder
	sb.WriteString(c.Visibility().String())
	if c.Kind() != descriptors.KindInterface && c.Kind() != descriptors.KindObject && c.Kind() != descriptors.KindEnumEntry {
		sb.WriteString(" " + c.Modality().String())
	}
	for _, flag := range []struct {
		on   bool
		name string
	}{
		{c.IsExpect(), "expect"},
		{c.IsInner(), "inner"},
		{c.IsData(), "data"},
		{c.IsInline(), "inline"},
		{c.IsFun(), "fun"},
		{c.IsCompanionObject(), "companion"},
	} {
		if flag.on {
			sb.WriteString(" " + flag.name)
		}
	}
	sb.WriteString(" " + c.Kind().String() + " " + c.ClassID().AsSingleFqName().String())
	sb.WriteString(typeParameters(c.DeclaredTypeParameters()))
	var supers []string
	for _, st := range c.TypeConstructor().Supertypes() {
		supers = append(supers, st.String())
	}
	if len(supers) > 0 {
		sb.WriteString(" : " + strings.Join(supers, ", "))
	}
	return sb.String()
}

func (r DescriptorRenderer) callableHead(m descriptors.CallableMemberDescriptor) string {
	var sb strings.Builder
	if m.Kind() != descriptors.Declaration {
		sb.WriteString("/* " + m.Kind().String() + " */ ")
	}
	sb.WriteString(m.Visibility().String() + " " + m.Modality().String())
	return sb.String()
}

func (r DescriptorRenderer) function(f descriptors.FunctionDescriptor) string {
	var sb strings.Builder
	sb.WriteString(r.callableHead(f))
	for _, flag := range []struct {
		on   bool
		name string
	}{
		{f.IsExternal(), "external"},
		{f.IsTailrec(), "tailrec"},
		{f.IsInline(), "inline"},
		{f.IsInfix(), "infix"},
		{f.IsOperator(), "operator"},
		{f.IsSuspend(), "suspend"},
	} {
		if flag.on {
			sb.WriteString(" " + flag.name)
		}
	}
	sb.WriteString(" fun ")
	if tps := typeParameters(f.TypeParameters()); tps != "" {
		sb.WriteString(tps + " ")
	}
	sb.WriteString(receiver(f.ExtensionReceiverType()))
	sb.WriteString(string(f.Name()))
	sb.WriteString(valueParameters(f.ValueParameters()))
	sb.WriteString(": " + typeString(f.ReturnType()))
	return sb.String()
}

func (r DescriptorRenderer) property(prop descriptors.PropertyDescriptor) string {
	var sb strings.Builder
	sb.WriteString(r.callableHead(prop))
	if prop.IsConst() {
		sb.WriteString(" const")
	}
	if prop.IsLateInit() {
		sb.WriteString(" lateinit")
	}
	if prop.IsVar() {
		sb.WriteString(" var ")
	} else {
		sb.WriteString(" val ")
	}
	if tps := typeParameters(prop.TypeParameters()); tps != "" {
		sb.WriteString(tps + " ")
	}
	sb.WriteString(receiver(prop.ExtensionReceiverType()))
	sb.WriteString(string(prop.Name()))
	sb.WriteString(": " + typeString(prop.ReturnType()))
	if prop.IsDelegated() {
		sb.WriteString(" by delegate")
	}
	return sb.String()
}

func (r DescriptorRenderer) constructor(c descriptors.ConstructorDescriptor) string {
	s := c.Visibility().String() + " constructor" + valueParameters(c.ValueParameters())
	if c.IsPrimary() {
		s = "/* primary */ " + s
	}
	return s
}

func receiver(t typesystem.Type) string {
	if t == nil {
		return ""
	}
	if tc, ok := t.(typesystem.TClass); ok && isFunctionType(tc) {
		return "(" + t.String() + ")."
	}
	return t.String() + "."
}

func isFunctionType(t typesystem.TClass) bool {
	_, ok := typesystem.FunctionArity(t.ID)
	return ok
}

func valueParameters(params []descriptors.ValueParameterDescriptor) string {
	parts := make([]string, len(params))
	for i, vp := range params {
		parts[i] = valueParameter(vp)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func valueParameter(vp descriptors.ValueParameterDescriptor) string {
	var sb strings.Builder
	if vp.IsCrossinline() {
		sb.WriteString("crossinline ")
	}
	if vp.IsNoinline() {
		sb.WriteString("noinline ")
	}
	t := vp.Type()
	if el := vp.VarargElementType(); el != nil {
		sb.WriteString("vararg ")
		t = el
	}
	sb.WriteString(string(vp.Name()) + ": " + typeString(t))
	if vp.DeclaresDefaultValue() {
		sb.WriteString(" = ...")
	}
	return sb.String()
}

func typeParameters(params []descriptors.TypeParameterDescriptor) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, tp := range params {
		parts[i] = typeParameter(tp)
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// typeParameter omits the default bound Any?.
func typeParameter(tp descriptors.TypeParameterDescriptor) string {
	var sb strings.Builder
	if tp.IsReified() {
		sb.WriteString("reified ")
	}
	if v := tp.Variance(); v == typesystem.In || v == typesystem.Out {
		sb.WriteString(v.String() + " ")
	}
	sb.WriteString(string(tp.Name()))
	var bounds []string
	for _, b := range tp.UpperBounds() {
		if tc, ok := b.(typesystem.TClass); ok && tc.ID == typesystem.AnyID && tc.Nullable {
			continue
		}
		bounds = append(bounds, b.String())
	}
	if len(bounds) > 0 {
		sb.WriteString(" : " + strings.Join(bounds, " & "))
	}
	return sb.String()
}

func typeString(t typesystem.Type) string {
	if t == nil {
		return "<no type>"
	}
	return t.String()
}

func sortedNames(ns []names.Name) []names.Name {
	out := slices.Clone(ns)
	slices.SortFunc(out, func(a, b names.Name) int { return cmp.Compare(a, b) })
	return slices.Compact(out)
}
