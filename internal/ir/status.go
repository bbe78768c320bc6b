package ir

import (
	"strings"

	"github.com/funvibe/semcore/internal/descriptors"
)

// Origin tells where a declaration comes from.
type Origin int

const (
	OriginSource Origin = iota
	OriginLibrary
	OriginSynthetic
)

func (o Origin) String() string {
	switch o {
	case OriginLibrary:
		return "library"
	case OriginSynthetic:
		return "synthetic"
	default:
		return "source"
	}
}

// Modifier is a source modifier keyword.
type Modifier uint32

const (
	ModPublic Modifier = 1 << iota
	ModPrivate
	ModProtected
	ModInternal
	ModFinal
	ModOpen
	ModAbstract
	ModSealed
	ModOverride
	ModInner
	ModData
	ModCompanion
	ModInline
	ModOperator
	ModInfix
	ModSuspend
	ModTailrec
	ModExternal
	ModConst
	ModLateInit
	ModVararg
	ModCrossinline
	ModNoinline
	ModExpect
	ModActual
	ModFun
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModPublic, "public"},
	{ModPrivate, "private"},
	{ModProtected, "protected"},
	{ModInternal, "internal"},
	{ModFinal, "final"},
	{ModOpen, "open"},
	{ModAbstract, "abstract"},
	{ModSealed, "sealed"},
	{ModOverride, "override"},
	{ModInner, "inner"},
	{ModData, "data"},
	{ModCompanion, "companion"},
	{ModInline, "inline"},
	{ModOperator, "operator"},
	{ModInfix, "infix"},
	{ModSuspend, "suspend"},
	{ModTailrec, "tailrec"},
	{ModExternal, "external"},
	{ModConst, "const"},
	{ModLateInit, "lateinit"},
	{ModVararg, "vararg"},
	{ModCrossinline, "crossinline"},
	{ModNoinline, "noinline"},
	{ModExpect, "expect"},
	{ModActual, "actual"},
	{ModFun, "fun"},
}

// ParseModifier returns the modifier spelled s.
func ParseModifier(s string) (Modifier, bool) {
	for _, m := range modifierNames {
		if m.name == s {
			return m.mod, true
		}
	}
	return 0, false
}

// ModifierSet is a set of modifiers.
type ModifierSet uint32

func Modifiers(mods ...Modifier) ModifierSet {
	var s ModifierSet
	for _, m := range mods {
		s |= ModifierSet(m)
	}
	return s
}

func (s ModifierSet) Has(m Modifier) bool { return s&ModifierSet(m) != 0 }

func (s ModifierSet) With(m Modifier) ModifierSet { return s | ModifierSet(m) }

func (s ModifierSet) String() string {
	var parts []string
	for _, m := range modifierNames {
		if s.Has(m.mod) {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(parts, " ")
}

// DeclarationStatus is the visibility, modality and modifiers of a member.
// Visibility and modality are unknown until the status phase resolves them.
type DeclarationStatus struct {
	Modifiers  ModifierSet
	Visibility descriptors.Visibility
	Modality   descriptors.Modality
	Resolved   bool
}

// RawStatus returns an unresolved status carrying the written modifiers.
func RawStatus(mods ModifierSet) DeclarationStatus {
	return DeclarationStatus{Modifiers: mods}
}

// ExplicitVisibility returns the visibility written in mods, if any.
func ExplicitVisibility(mods ModifierSet) (descriptors.Visibility, bool) {
	switch {
	case mods.Has(ModPrivate):
		return descriptors.Private, true
	case mods.Has(ModProtected):
		return descriptors.Protected, true
	case mods.Has(ModInternal):
		return descriptors.Internal, true
	case mods.Has(ModPublic):
		return descriptors.Public, true
	}
	return descriptors.VisibilityUnknown, false
}

// ExplicitModality returns the modality written in mods, if any.
func ExplicitModality(mods ModifierSet) (descriptors.Modality, bool) {
	switch {
	case mods.Has(ModSealed):
		return descriptors.Sealed, true
	case mods.Has(ModAbstract):
		return descriptors.Abstract, true
	case mods.Has(ModOpen):
		return descriptors.Open, true
	case mods.Has(ModFinal):
		return descriptors.Final, true
	}
	return descriptors.Final, false
}

// SupertypesComputationStatus guards supertype resolution of a class
// against re-entry.
type SupertypesComputationStatus int32

const (
	SupertypesNotComputed SupertypesComputationStatus = iota
	SupertypesComputing
	SupertypesComputed
)

func (s SupertypesComputationStatus) String() string {
	switch s {
	case SupertypesComputing:
		return "COMPUTING"
	case SupertypesComputed:
		return "COMPUTED"
	default:
		return "NOT_COMPUTED"
	}
}
