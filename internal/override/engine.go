// Package override binds class members to the supertype members they
// override and synthesizes fake overrides for inherited members that are
// not redeclared. Source and deserialized classes go through the same
// engine via scopes.ClassMemberScope.
package override

import (
	"slices"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// Result of an overridability check.
type Result int

const (
	Incompatible Result = iota
	Overridable
	// Conflict means the signatures match but the return types do not.
	Conflict
)

func (r Result) String() string {
	switch r {
	case Overridable:
		return "OVERRIDABLE"
	case Conflict:
		return "CONFLICT"
	default:
		return "INCOMPATIBLE"
	}
}

// Inherited is a member seen through one direct supertype. Subst maps the
// type parameters of the class declaring Member to the arguments the
// supertype applies.
type Inherited struct {
	Member descriptors.CallableMemberDescriptor
	Subst  typesystem.Subst
}

// Engine computes overrides. The zero value compares return types for
// equality only; NewEngine adds a subtyping checker.
type Engine struct {
	types *typesystem.Checker
}

func NewEngine(types *typesystem.Checker) *Engine {
	return &Engine{types: types}
}

// ForClass returns an engine that checks return types against the class
// hierarchy visible from owner's module.
func ForClass(owner descriptors.ClassDescriptor) *Engine {
	if m := owner.Module(); m != nil {
		return NewEngine(typesystem.NewChecker(descriptors.ClassInfoFunc(m)))
	}
	return &Engine{}
}

// overriddenSetter is implemented by declared members whose overridden
// list is filled in by the engine.
type overriddenSetter interface {
	SetOverriddenDescriptors([]descriptors.CallableMemberDescriptor)
}

// GenerateOverrides resolves one member name of owner. Every member of
// fromCurrent gets its overridden list bound; supertype members left over
// are grouped and one fake override per group is passed to sink.
func (e *Engine) GenerateOverrides(name names.Name, fromSupertypes []Inherited, fromCurrent []descriptors.CallableMemberDescriptor, owner descriptors.ClassDescriptor, sink Sink) {
	inherited := make([]Inherited, 0, len(fromSupertypes))
	for _, in := range fromSupertypes {
		if in.Member.Name() == name && isVisibleForInheritance(in.Member, owner) {
			inherited = append(inherited, in)
		}
	}

	bound := make([]bool, len(inherited))
	for _, current := range fromCurrent {
		var overridden []descriptors.CallableMemberDescriptor
		for i, in := range inherited {
			switch e.IsOverridableBy(in, Inherited{Member: current}) {
			case Overridable:
				overridden = append(overridden, in.Member)
				bound[i] = true
			case Conflict:
				sink.OverrideConflict(in.Member, current)
				bound[i] = true
			}
		}
		if s, ok := current.(overriddenSetter); ok {
			s.SetOverriddenDescriptors(overridden)
		}
	}

	var rest []Inherited
	for i, in := range inherited {
		if !bound[i] {
			rest = append(rest, in)
		}
	}
	e.createFakeOverrides(owner, rest, sink)
}

func (e *Engine) createFakeOverrides(owner descriptors.ClassDescriptor, queue []Inherited, sink Sink) {
	for len(queue) > 0 {
		first := queue[0]
		group := []Inherited{first}
		var next []Inherited
		for _, in := range queue[1:] {
			if e.IsOverridableBy(first, in) == Overridable && e.IsOverridableBy(in, first) == Overridable {
				group = append(group, in)
			} else {
				next = append(next, in)
			}
		}
		queue = next
		e.createFakeOverride(owner, group, sink)
	}
}

func (e *Engine) createFakeOverride(owner descriptors.ClassDescriptor, group []Inherited, sink Sink) {
	members := make([]descriptors.CallableMemberDescriptor, len(group))
	for i, in := range group {
		members[i] = in.Member
	}
	visibility, ok := MaxVisibility(members)
	spec := e.mostSpecific(group)
	fake := spec.Member.CopyAsFakeOverride(owner, FakeOverrideModality(members), visibility, spec.Subst, members)
	if !ok {
		sink.CannotInferVisibility(fake)
	}
	sink.AddFakeOverride(fake)

	if impls := implementations(members); len(impls) > 1 {
		sink.InheritanceConflict(impls[0], impls[1])
	}
}

// mostSpecific picks the member whose return type is a subtype of every
// other return type in the group, falling back to the first one.
func (e *Engine) mostSpecific(group []Inherited) Inherited {
	if len(group) == 1 {
		return group[0]
	}
	for _, cand := range group {
		rt := returnType(cand)
		best := true
		for _, other := range group {
			if !e.isSubtype(rt, returnType(other)) {
				best = false
				break
			}
		}
		if best {
			return cand
		}
	}
	return group[0]
}

// implementations returns the non-abstract real declarations behind
// members, dropping those overridden by another one in the set.
func implementations(members []descriptors.CallableMemberDescriptor) []descriptors.CallableMemberDescriptor {
	var decls []descriptors.CallableMemberDescriptor
	for _, m := range members {
		for _, d := range descriptors.OverriddenDeclarations(m) {
			if !slices.Contains(decls, d) {
				decls = append(decls, d)
			}
		}
	}
	var out []descriptors.CallableMemberDescriptor
	for _, d := range decls {
		if d.Modality() == descriptors.Abstract {
			continue
		}
		shadowed := false
		for _, other := range decls {
			if other != d && descriptors.Overrides(other, d) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			out = append(out, d)
		}
	}
	return out
}

// FakeOverrideModality is abstract when every member is abstract, open when
// any member is overridable and final otherwise.
func FakeOverrideModality(members []descriptors.CallableMemberDescriptor) descriptors.Modality {
	allAbstract, anyOpen := true, false
	for _, m := range members {
		if m.Modality() != descriptors.Abstract {
			allAbstract = false
		}
		if m.Modality().IsOverridable() {
			anyOpen = true
		}
	}
	switch {
	case allAbstract:
		return descriptors.Abstract
	case anyOpen:
		return descriptors.Open
	default:
		return descriptors.Final
	}
}

// MaxVisibility returns the most visible visibility of members. When the
// maximum is not comparable with every member it falls back to the highest
// rank and reports false.
func MaxVisibility(members []descriptors.CallableMemberDescriptor) (descriptors.Visibility, bool) {
	best := members[0].Visibility()
	for _, m := range members[1:] {
		v := m.Visibility()
		c, comparable := descriptors.CompareVisibilities(v, best)
		if (comparable && c > 0) || (!comparable && v.Rank() > best.Rank()) {
			best = v
		}
	}
	for _, m := range members {
		if _, comparable := descriptors.CompareVisibilities(m.Visibility(), best); !comparable {
			return best, false
		}
	}
	return best, true
}

func isVisibleForInheritance(m descriptors.CallableMemberDescriptor, owner descriptors.ClassDescriptor) bool {
	v := m.Visibility()
	if v.IsPrivate() {
		return false
	}
	if v != descriptors.Internal {
		return true
	}
	from, to := descriptors.ModuleOf(m), owner.Module()
	if from == nil || to == nil {
		return true
	}
	return to.ShouldSeeInternalsOf(from)
}

// IsOverridableBy reports whether sub can override super. Each side's
// Subst is applied to its own signature; it is nil for declared members.
func (e *Engine) IsOverridableBy(super, sub Inherited) Result {
	sm, cm := super.Member, sub.Member
	if !sameCallableKind(sm, cm) || sm.Name() != cm.Name() {
		return Incompatible
	}
	if (sm.ExtensionReceiverType() == nil) != (cm.ExtensionReceiverType() == nil) {
		return Incompatible
	}
	sps, cps := sm.ValueParameters(), cm.ValueParameters()
	if len(sps) != len(cps) || len(sm.TypeParameters()) != len(cm.TypeParameters()) {
		return Incompatible
	}

	superSubst := withTypeParameters(super.Subst, sm.TypeParameters(), cm.TypeParameters())
	if !typesystem.Equal(apply(sm.ExtensionReceiverType(), superSubst), apply(cm.ExtensionReceiverType(), sub.Subst)) {
		return Incompatible
	}
	for i := range sps {
		if !typesystem.Equal(apply(sps[i].Type(), superSubst), apply(cps[i].Type(), sub.Subst)) {
			return Incompatible
		}
	}

	superReturn := apply(sm.ReturnType(), superSubst)
	subReturn := apply(cm.ReturnType(), sub.Subst)
	if typesystem.IsError(superReturn) || typesystem.IsError(subReturn) {
		return Overridable
	}
	if sp, ok := sm.(descriptors.PropertyDescriptor); ok && sp.IsVar() {
		if !typesystem.Equal(superReturn, subReturn) {
			return Conflict
		}
		return Overridable
	}
	if !e.isSubtype(subReturn, superReturn) {
		return Conflict
	}
	return Overridable
}

func (e *Engine) isSubtype(sub, super typesystem.Type) bool {
	if e.types == nil {
		return typesystem.Equal(sub, super)
	}
	return e.types.IsSubtype(sub, super)
}

func sameCallableKind(a, b descriptors.CallableMemberDescriptor) bool {
	_, af := a.(descriptors.FunctionDescriptor)
	_, bf := b.(descriptors.FunctionDescriptor)
	_, ap := a.(descriptors.PropertyDescriptor)
	_, bp := b.(descriptors.PropertyDescriptor)
	return af == bf && ap == bp
}

// withTypeParameters extends s so that the member type parameters of super
// read as the corresponding parameters of sub.
func withTypeParameters(s typesystem.Subst, super, sub []descriptors.TypeParameterDescriptor) typesystem.Subst {
	if len(super) == 0 {
		return s
	}
	out := make(typesystem.Subst, len(s)+len(super))
	for k, v := range s {
		out[k] = v
	}
	for i, p := range super {
		out[p.Key()] = sub[i].DefaultType()
	}
	return out
}

func apply(t typesystem.Type, s typesystem.Subst) typesystem.Type {
	if t == nil || len(s) == 0 {
		return t
	}
	return t.Apply(s)
}

func returnType(in Inherited) typesystem.Type {
	return apply(in.Member.ReturnType(), in.Subst)
}
