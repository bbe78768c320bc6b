package resolve

import (
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/ir"
)

func (rs *Session) resolveStatus(f *ir.File) {
	for _, d := range f.Declarations {
		rs.statusOf(d, nil)
	}
}

// statusOf resolves the visibility and modality of d and of everything
// declared inside it. container is the class d is a member of.
func (rs *Session) statusOf(d ir.Declaration, container ir.Class) {
	switch d := d.(type) {
	case *ir.RegularClass:
		d.ReplaceStatus(classStatus(d, container))
		for _, m := range d.Declarations() {
			rs.statusOf(m, d)
		}
	case *ir.TypeAlias:
		d.ReplaceStatus(resolvedStatus(d.Status().Modifiers, descriptors.Final))
	case *ir.EnumEntry:
		d.ReplaceStatus(resolvedStatus(d.Status().Modifiers, descriptors.Final))
		if obj := d.Initializer(); obj != nil {
			for _, m := range obj.Declarations() {
				rs.statusOf(m, obj)
			}
		}
	case *ir.Constructor:
		d.ReplaceStatus(resolvedStatus(d.Status().Modifiers, descriptors.Final))
		localStatuses(d.Body())
	case *ir.SimpleFunction:
		d.ReplaceStatus(memberStatus(d.Status().Modifiers, container, d.Body() != nil))
		localStatuses(d.Body())
	case *ir.Property:
		st := memberStatus(d.Status().Modifiers, container, hasImplementation(d))
		d.ReplaceStatus(st)
		for _, a := range []*ir.PropertyAccessor{d.Getter(), d.Setter()} {
			if a == nil {
				continue
			}
			as := st
			if vis, ok := ir.ExplicitVisibility(a.Status().Modifiers); ok {
				as.Visibility = vis
			}
			as.Modifiers = a.Status().Modifiers
			a.ReplaceStatus(as)
			localStatuses(a.Body())
		}
	}
}

func hasImplementation(p *ir.Property) bool {
	if p.Initializer() != nil {
		return true
	}
	g := p.Getter()
	return g != nil && g.Body() != nil
}

// resolvedStatus applies the written visibility, public by default.
func resolvedStatus(mods ir.ModifierSet, modality descriptors.Modality) ir.DeclarationStatus {
	vis, ok := ir.ExplicitVisibility(mods)
	if !ok {
		vis = descriptors.Public
	}
	if m, ok := ir.ExplicitModality(mods); ok {
		modality = m
	}
	return ir.DeclarationStatus{Modifiers: mods, Visibility: vis, Modality: modality, Resolved: true}
}

func classStatus(c *ir.RegularClass, container ir.Class) ir.DeclarationStatus {
	modality := descriptors.Final
	if c.ClassKind() == descriptors.KindInterface {
		modality = descriptors.Abstract
	}
	st := resolvedStatus(c.Status().Modifiers, modality)
	if _, ok := container.(*ir.AnonymousObject); ok {
		st.Visibility = descriptors.Local
	}
	return st
}

// memberStatus resolves a function or property. Without a written
// modality, interface members are abstract unless they have a body,
// overrides stay open and everything else is final.
func memberStatus(mods ir.ModifierSet, container ir.Class, hasBody bool) ir.DeclarationStatus {
	modality := descriptors.Final
	switch {
	case container != nil && container.ClassKind() == descriptors.KindInterface:
		switch {
		case !hasBody:
			modality = descriptors.Abstract
		case !mods.Has(ir.ModPrivate):
			modality = descriptors.Open
		}
	case mods.Has(ir.ModOverride):
		modality = descriptors.Open
	}
	return resolvedStatus(mods, modality)
}

// localStatuses marks the local variables and functions of a body.
func localStatuses(body *ir.Block) {
	ir.Inspect(body, func(e ir.Element) bool {
		switch d := e.(type) {
		case *ir.Property, *ir.SimpleFunction:
			m := d.(ir.MemberDeclaration)
			m.ReplaceStatus(ir.DeclarationStatus{
				Modifiers:  m.Status().Modifiers,
				Visibility: descriptors.Local,
				Modality:   descriptors.Final,
				Resolved:   true,
			})
		case *ir.RegularClass:
			return false
		}
		return true
	})
}
