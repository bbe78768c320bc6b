package override

import (
	"fmt"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/names"
)

// members returns every function and property of c's scope, declared and
// inherited, in name order.
func members(c descriptors.ClassDescriptor) []descriptors.CallableMemberDescriptor {
	scope := c.UnsubstitutedMemberScope()
	var out []descriptors.CallableMemberDescriptor
	for _, n := range scope.FunctionNames() {
		for _, f := range scope.ContributedFunctions(n) {
			out = append(out, f)
		}
	}
	for _, n := range scope.PropertyNames() {
		for _, p := range scope.ContributedProperties(n) {
			out = append(out, p)
		}
	}
	return out
}

func declaredIn(m descriptors.CallableMemberDescriptor, c descriptors.ClassDescriptor) bool {
	owner, ok := m.ContainingDeclaration().(descriptors.ClassDescriptor)
	return ok && owner.ClassID() == c.ClassID()
}

// mayHaveAbstractMembers reports class kinds that can leave members
// unimplemented.
func mayHaveAbstractMembers(c descriptors.ClassDescriptor) bool {
	switch {
	case c.Modality() == descriptors.Abstract || c.Modality() == descriptors.Sealed:
		return true
	case c.Kind() == descriptors.KindInterface || c.Kind() == descriptors.KindEnumClass:
		return true
	default:
		return false
	}
}

// CheckAbstractMembers reports abstract members left in a class that
// cannot have them: inherited ones that are not implemented and declared
// ones marked abstract.
func CheckAbstractMembers(c descriptors.ClassDescriptor, r diagnostics.Reporter) {
	if mayHaveAbstractMembers(c) {
		return
	}
	for _, m := range members(c) {
		if m.Modality() != descriptors.Abstract {
			continue
		}
		switch {
		case m.Kind() == descriptors.FakeOverride:
			r.Report(diagnostics.NewError(diagnostics.ErrO003, positionOf(c),
				fmt.Sprintf("%s is not abstract and does not implement abstract member %s",
					descriptors.FqNameOf(c), Signature(firstDeclaration(m)))))
		case declaredIn(m, c):
			r.Report(diagnostics.NewError(diagnostics.ErrO004, positionOf(m, c),
				fmt.Sprintf("abstract member %s in non-abstract class %s", m.Name(), descriptors.FqNameOf(c))))
		}
	}
}

func firstDeclaration(m descriptors.CallableMemberDescriptor) descriptors.CallableMemberDescriptor {
	if decls := descriptors.OverriddenDeclarations(m); len(decls) > 0 {
		return decls[0]
	}
	return m
}

// CheckRedeclarations reports declared members of c that have the same
// signature as an earlier declared member.
func CheckRedeclarations(c descriptors.ClassDescriptor, r diagnostics.Reporter) {
	byName := map[names.Name][]descriptors.CallableMemberDescriptor{}
	var order []names.Name
	for _, m := range members(c) {
		if !m.Kind().IsReal() || !declaredIn(m, c) {
			continue
		}
		if _, seen := byName[m.Name()]; !seen {
			order = append(order, m.Name())
		}
		byName[m.Name()] = append(byName[m.Name()], m)
	}
	e := &Engine{}
	for _, n := range order {
		ms := byName[n]
		for i := 1; i < len(ms); i++ {
			for j := 0; j < i; j++ {
				a, b := Inherited{Member: ms[j]}, Inherited{Member: ms[i]}
				if e.IsOverridableBy(a, b) != Incompatible && e.IsOverridableBy(b, a) != Incompatible {
					r.Report(diagnostics.NewError(diagnostics.ErrR001, positionOf(ms[i], c),
						fmt.Sprintf("conflicting overloads: %s", Signature(ms[i]))))
					break
				}
			}
		}
	}
}

// CheckOverrides reports declared members whose override modifier does not
// match what they override, and overrides of final members. Members
// without source information are skipped.
func CheckOverrides(c descriptors.ClassDescriptor, r diagnostics.Reporter) {
	for _, m := range members(c) {
		if !m.Kind().IsReal() || !declaredIn(m, c) {
			continue
		}
		src, ok := m.(descriptors.SourceElement)
		if !ok {
			continue
		}
		overridden := m.OverriddenDescriptors()
		switch {
		case len(overridden) == 0 && src.HasOverrideModifier():
			r.Report(diagnostics.NewError(diagnostics.ErrO007, src.SourcePosition(),
				fmt.Sprintf("%s overrides nothing", Signature(m))))
		case len(overridden) > 0 && !src.HasOverrideModifier():
			r.Report(diagnostics.NewError(diagnostics.ErrO008, src.SourcePosition(),
				fmt.Sprintf("%s hides member of supertype %s and needs an override modifier",
					Signature(m), Signature(overridden[0]))))
		}
		for _, o := range overridden {
			if !o.Modality().IsOverridable() {
				r.Report(diagnostics.NewError(diagnostics.ErrO006, src.SourcePosition(),
					fmt.Sprintf("%s overrides final member %s", Signature(m), Signature(o))))
			}
		}
	}
}

// Check runs every override check on c.
func Check(c descriptors.ClassDescriptor, r diagnostics.Reporter) {
	CheckRedeclarations(c, r)
	CheckOverrides(c, r)
	CheckAbstractMembers(c, r)
}
