package resolve

import (
	"fmt"
	"slices"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/override"
	"github.com/funvibe/semcore/internal/typesystem"
)

// checkFile reports supertype misuse and override problems of every class
// in f.
func (rs *Session) checkFile(f *ir.File) {
	ir.Inspect(f, func(e ir.Element) bool {
		switch c := e.(type) {
		case ir.Expression:
			return false
		case *ir.RegularClass:
			rs.checkSupertypes(c)
			rs.checkMembers(rs.SourceClass(c))
		}
		return true
	})
}

// checkSupertypes validates the written supertypes of c: an interface
// extends interfaces only, a class extends at most one class and never a
// final one.
func (rs *Session) checkSupertypes(c *ir.RegularClass) {
	var classes int
	for _, ref := range c.SuperTypeRefs() {
		r, ok := ref.(*ir.ResolvedTypeRef)
		if !ok || r.Delegated == nil {
			continue
		}
		id, ok := typesystem.ClassIDOf(r.Type)
		if !ok {
			continue
		}
		st := rs.classDescriptor(id)
		if st == nil {
			continue
		}
		if st.Kind() == descriptors.KindInterface {
			continue
		}
		if c.ClassKind() == descriptors.KindInterface {
			rs.Report(diagnostics.NewError(diagnostics.ErrR005, ref.Pos(),
				fmt.Sprintf("an interface cannot inherit from a class: %s", id)))
			continue
		}
		classes++
		if classes > 1 {
			rs.Report(diagnostics.NewError(diagnostics.ErrR006, ref.Pos(),
				fmt.Sprintf("only one class may appear in a supertype list of %s", c.Symbol().ID)))
		}
		switch {
		case st.Kind().IsSingleton():
			rs.Report(diagnostics.NewError(diagnostics.ErrR005, ref.Pos(),
				fmt.Sprintf("cannot inherit from %s %s", st.Kind(), id)))
		case st.TypeConstructor().IsFinal() || st.Kind() == descriptors.KindEnumClass:
			rs.Report(diagnostics.NewError(diagnostics.ErrR005, ref.Pos(),
				fmt.Sprintf("this type is final, so it cannot be inherited from: %s", id)))
		}
	}
}

func (rs *Session) checkMembers(c descriptors.ClassDescriptor) {
	rs.Logger.Debug("checking members", "class", c.ClassID().String())
	override.Check(c, rs.Reporter)
}

// checkTopLevel reports top-level functions of one package with the same
// name and parameter types, and properties declared twice.
func (rs *Session) checkTopLevel() {
	for _, fq := range rs.Packages() {
		pm := rs.packages[fq]
		for _, n := range sortedNames(pm.functions) {
			fns := pm.functions[n]
			for i, f := range fns {
				for _, g := range fns[:i] {
					if sameParameters(f, g) {
						rs.Report(diagnostics.NewError(diagnostics.ErrR001, f.Pos(),
							fmt.Sprintf("conflicting overloads: %s is already declared at %s", f.Symbol().ID, g.Pos())))
						break
					}
				}
			}
		}
		for _, n := range sortedNames(pm.properties) {
			props := pm.properties[n]
			for _, p := range props[1:] {
				rs.Report(diagnostics.NewError(diagnostics.ErrR001, p.Pos(),
					fmt.Sprintf("conflicting declarations: %s is already declared at %s", p.Symbol().ID, props[0].Pos())))
			}
		}
	}
}

func sameParameters(f, g *ir.SimpleFunction) bool {
	if !typesystem.Equal(receiverOf(f), receiverOf(g)) {
		return false
	}
	fp, gp := f.ValueParameters(), g.ValueParameters()
	if len(fp) != len(gp) {
		return false
	}
	for i := range fp {
		if !typesystem.Equal(valueParameterType(fp[i]), valueParameterType(gp[i])) {
			return false
		}
	}
	return true
}

func sortedNames[V any](m map[names.Name]V) []names.Name {
	out := make([]names.Name, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
