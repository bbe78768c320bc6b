package descriptors

import (
	"slices"

	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// ModuleOf returns the module a descriptor belongs to, or nil.
func ModuleOf(d DeclarationDescriptor) ModuleDescriptor {
	for d != nil {
		switch v := d.(type) {
		case ModuleDescriptor:
			return v
		case ClassDescriptor:
			return v.Module()
		case PackageViewDescriptor:
			return v.Module()
		}
		d = d.ContainingDeclaration()
	}
	return nil
}

// ContainingClass returns the nearest enclosing class of d, or nil.
func ContainingClass(d DeclarationDescriptor) ClassDescriptor {
	for d = d.ContainingDeclaration(); d != nil; d = d.ContainingDeclaration() {
		if c, ok := d.(ClassDescriptor); ok {
			return c
		}
	}
	return nil
}

// OverriddenDeclarations unfolds fake overrides into the real members they
// stand for. A real member stands for itself.
func OverriddenDeclarations(m CallableMemberDescriptor) []CallableMemberDescriptor {
	var out []CallableMemberDescriptor
	collectDeclarations(m, &out, map[CallableMemberDescriptor]bool{})
	return out
}

func collectDeclarations(m CallableMemberDescriptor, out *[]CallableMemberDescriptor, seen map[CallableMemberDescriptor]bool) {
	if seen[m] {
		return
	}
	seen[m] = true
	if m.Kind().IsReal() {
		*out = append(*out, m)
		return
	}
	for _, o := range m.OverriddenDescriptors() {
		collectDeclarations(o, out, seen)
	}
}

// AllOverriddenDescriptors returns every member m overrides, transitively.
func AllOverriddenDescriptors(m CallableMemberDescriptor) []CallableMemberDescriptor {
	var out []CallableMemberDescriptor
	seen := map[CallableMemberDescriptor]bool{}
	queue := slices.Clone(m.OverriddenDescriptors())
	for len(queue) > 0 {
		o := queue[0]
		queue = queue[1:]
		if seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
		queue = append(queue, o.OverriddenDescriptors()...)
	}
	return out
}

// Overrides reports whether m overrides other, directly or transitively.
func Overrides(m, other CallableMemberDescriptor) bool {
	return slices.Contains(AllOverriddenDescriptors(m), other)
}

// FqNameOf returns the fully qualified name of a class or member.
func FqNameOf(d DeclarationDescriptor) names.FqName {
	switch v := d.(type) {
	case ClassDescriptor:
		return v.ClassID().AsSingleFqName()
	case PackageFragmentDescriptor:
		return v.FqName()
	case PackageViewDescriptor:
		return v.FqName()
	case ModuleDescriptor:
		return names.RootFqName
	case nil:
		return names.RootFqName
	}
	return FqNameOf(d.ContainingDeclaration()).Child(d.Name())
}

// ClassInfoFunc adapts a module to the subtyping checker.
func ClassInfoFunc(m ModuleDescriptor) typesystem.ClassInfoFunc {
	return func(id names.ClassID) (typesystem.ClassInfo, bool) {
		c := m.FindClassAcrossModuleDependencies(id)
		if c == nil {
			return typesystem.ClassInfo{}, false
		}
		tc := c.TypeConstructor()
		info := typesystem.ClassInfo{Supertypes: tc.Supertypes()}
		for _, p := range tc.Parameters() {
			info.ParameterKeys = append(info.ParameterKeys, p.Key())
		}
		return info, true
	}
}

// SupertypeClasses resolves the class descriptors of c's direct supertypes,
// skipping error types and classes that cannot be found.
func SupertypeClasses(c ClassDescriptor) []ClassDescriptor {
	m := c.Module()
	var out []ClassDescriptor
	for _, st := range c.TypeConstructor().Supertypes() {
		id, ok := typesystem.ClassIDOf(st)
		if !ok || m == nil {
			continue
		}
		if sc := m.FindClassAcrossModuleDependencies(id); sc != nil {
			out = append(out, sc)
		}
	}
	return out
}

// IsSubclassOf reports whether sub inherits from super, directly or not.
func IsSubclassOf(sub, super ClassDescriptor) bool {
	seen := map[names.ClassID]bool{}
	queue := []ClassDescriptor{sub}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c.ClassID() == super.ClassID() {
			return true
		}
		if seen[c.ClassID()] {
			continue
		}
		seen[c.ClassID()] = true
		queue = append(queue, SupertypeClasses(c)...)
	}
	return false
}
