package metadata

import (
	"github.com/funvibe/semcore/internal/descriptors"
)

// Flags are packed into one int32 per declaration. Layouts:
//
//	class:       annotations(0) visibility(1-3) modality(4-5) kind(6-8) inner(9)
//	             data(10) external(11) expect(12) inline(13) fun(14)
//	function:    annotations(0) visibility(1-3) modality(4-5) memberKind(6-7)
//	             operator(8) infix(9) inline(10) tailrec(11) external(12)
//	             suspend(13) expect(14)
//	property:    annotations(0) visibility(1-3) modality(4-5) memberKind(6-7)
//	             var(8) getter(9) setter(10) const(11) lateinit(12)
//	             hasConstant(13) external(14) delegated(15) expect(16)
//	constructor: annotations(0) visibility(1-3) secondary(4)
//	parameter:   annotations(0) defaultValue(1) crossinline(2) noinline(3)

type bits struct {
	offset, width uint
}

func (b bits) get(flags int32) int32 {
	return (flags >> b.offset) & (1<<b.width - 1)
}

func (b bits) set(flags, v int32) int32 {
	mask := int32(1<<b.width-1) << b.offset
	return flags&^mask | (v<<b.offset)&mask
}

func flag(n uint) bits { return bits{n, 1} }

var (
	fAnnotations = flag(0)
	fVisibility  = bits{1, 3}
	fModality    = bits{4, 2}
	fClassKind   = bits{6, 3}
	fMemberKind  = bits{6, 2}

	fInner         = flag(9)
	fData          = flag(10)
	fClassExternal = flag(11)
	fClassExpect   = flag(12)
	fClassInline   = flag(13)
	fFun           = flag(14)

	fOperator   = flag(8)
	fInfix      = flag(9)
	fFunInline  = flag(10)
	fTailrec    = flag(11)
	fFunExtern  = flag(12)
	fSuspend    = flag(13)
	fFunExpect  = flag(14)
	fVar        = flag(8)
	fGetter     = flag(9)
	fSetter     = flag(10)
	fConst      = flag(11)
	fLateInit   = flag(12)
	fConstant   = flag(13)
	fPropExtern = flag(14)
	fDelegated  = flag(15)
	fPropExpect = flag(16)

	fSecondary = flag(4)

	fDefaultValue = flag(1)
	fCrossinline  = flag(2)
	fNoinline     = flag(3)
)

func boolBit(b bits, flags int32) bool { return b.get(flags) != 0 }

func setBool(b bits, flags int32, v bool) int32 {
	if v {
		return b.set(flags, 1)
	}
	return b.set(flags, 0)
}

// Wire values of visibility.
const (
	visInternal int32 = iota
	visPrivate
	visProtected
	visPublic
	visPrivateToThis
	visLocal
)

func decodeVisibility(v int32) descriptors.Visibility {
	switch v {
	case visInternal:
		return descriptors.Internal
	case visPrivate:
		return descriptors.Private
	case visProtected:
		return descriptors.Protected
	case visPrivateToThis:
		return descriptors.PrivateToThis
	case visLocal:
		return descriptors.Local
	default:
		return descriptors.Public
	}
}

func encodeVisibility(v descriptors.Visibility) int32 {
	switch v {
	case descriptors.Internal:
		return visInternal
	case descriptors.Private:
		return visPrivate
	case descriptors.Protected:
		return visProtected
	case descriptors.PrivateToThis:
		return visPrivateToThis
	case descriptors.Local:
		return visLocal
	default:
		return visPublic
	}
}

func decodeModality(v int32) descriptors.Modality {
	switch v {
	case 1:
		return descriptors.Open
	case 2:
		return descriptors.Abstract
	case 3:
		return descriptors.Sealed
	default:
		return descriptors.Final
	}
}

func encodeModality(m descriptors.Modality) int32 {
	switch m {
	case descriptors.Open:
		return 1
	case descriptors.Abstract:
		return 2
	case descriptors.Sealed:
		return 3
	default:
		return 0
	}
}

// Wire values of class kind.
const (
	kindClass int32 = iota
	kindInterface
	kindEnumClass
	kindEnumEntry
	kindAnnotationClass
	kindObject
	kindCompanionObject
)

// ClassFlags is the decoded form of class flags.
type ClassFlags struct {
	HasAnnotations bool
	Visibility     descriptors.Visibility
	Modality       descriptors.Modality
	Kind           descriptors.ClassKind
	Companion      bool
	Inner          bool
	Data           bool
	External       bool
	Expect         bool
	Inline         bool
	Fun            bool
}

func DecodeClassFlags(flags int32) ClassFlags {
	cf := ClassFlags{
		HasAnnotations: boolBit(fAnnotations, flags),
		Visibility:     decodeVisibility(fVisibility.get(flags)),
		Modality:       decodeModality(fModality.get(flags)),
		Inner:          boolBit(fInner, flags),
		Data:           boolBit(fData, flags),
		External:       boolBit(fClassExternal, flags),
		Expect:         boolBit(fClassExpect, flags),
		Inline:         boolBit(fClassInline, flags),
		Fun:            boolBit(fFun, flags),
	}
	switch fClassKind.get(flags) {
	case kindInterface:
		cf.Kind = descriptors.KindInterface
	case kindEnumClass:
		cf.Kind = descriptors.KindEnumClass
	case kindEnumEntry:
		cf.Kind = descriptors.KindEnumEntry
	case kindAnnotationClass:
		cf.Kind = descriptors.KindAnnotationClass
	case kindObject:
		cf.Kind = descriptors.KindObject
	case kindCompanionObject:
		cf.Kind = descriptors.KindObject
		cf.Companion = true
	default:
		cf.Kind = descriptors.KindClass
	}
	return cf
}

func (cf ClassFlags) Encode() int32 {
	var kind int32
	switch cf.Kind {
	case descriptors.KindInterface:
		kind = kindInterface
	case descriptors.KindEnumClass:
		kind = kindEnumClass
	case descriptors.KindEnumEntry:
		kind = kindEnumEntry
	case descriptors.KindAnnotationClass:
		kind = kindAnnotationClass
	case descriptors.KindObject:
		kind = kindObject
		if cf.Companion {
			kind = kindCompanionObject
		}
	}
	var f int32
	f = setBool(fAnnotations, f, cf.HasAnnotations)
	f = fVisibility.set(f, encodeVisibility(cf.Visibility))
	f = fModality.set(f, encodeModality(cf.Modality))
	f = fClassKind.set(f, kind)
	f = setBool(fInner, f, cf.Inner)
	f = setBool(fData, f, cf.Data)
	f = setBool(fClassExternal, f, cf.External)
	f = setBool(fClassExpect, f, cf.Expect)
	f = setBool(fClassInline, f, cf.Inline)
	f = setBool(fFun, f, cf.Fun)
	return f
}

// FunctionFlags is the decoded form of function flags.
type FunctionFlags struct {
	HasAnnotations bool
	Visibility     descriptors.Visibility
	Modality       descriptors.Modality
	Kind           descriptors.CallableKind
	Operator       bool
	Infix          bool
	Inline         bool
	Tailrec        bool
	External       bool
	Suspend        bool
	Expect         bool
}

func DecodeFunctionFlags(flags int32) FunctionFlags {
	return FunctionFlags{
		HasAnnotations: boolBit(fAnnotations, flags),
		Visibility:     decodeVisibility(fVisibility.get(flags)),
		Modality:       decodeModality(fModality.get(flags)),
		Kind:           descriptors.CallableKind(fMemberKind.get(flags)),
		Operator:       boolBit(fOperator, flags),
		Infix:          boolBit(fInfix, flags),
		Inline:         boolBit(fFunInline, flags),
		Tailrec:        boolBit(fTailrec, flags),
		External:       boolBit(fFunExtern, flags),
		Suspend:        boolBit(fSuspend, flags),
		Expect:         boolBit(fFunExpect, flags),
	}
}

func (ff FunctionFlags) Encode() int32 {
	var f int32
	f = setBool(fAnnotations, f, ff.HasAnnotations)
	f = fVisibility.set(f, encodeVisibility(ff.Visibility))
	f = fModality.set(f, encodeModality(ff.Modality))
	f = fMemberKind.set(f, int32(ff.Kind))
	f = setBool(fOperator, f, ff.Operator)
	f = setBool(fInfix, f, ff.Infix)
	f = setBool(fFunInline, f, ff.Inline)
	f = setBool(fTailrec, f, ff.Tailrec)
	f = setBool(fFunExtern, f, ff.External)
	f = setBool(fSuspend, f, ff.Suspend)
	f = setBool(fFunExpect, f, ff.Expect)
	return f
}

// PropertyFlags is the decoded form of property flags.
type PropertyFlags struct {
	HasAnnotations bool
	Visibility     descriptors.Visibility
	Modality       descriptors.Modality
	Kind           descriptors.CallableKind
	Var            bool
	HasGetter      bool
	HasSetter      bool
	Const          bool
	LateInit       bool
	HasConstant    bool
	External       bool
	Delegated      bool
	Expect         bool
}

func DecodePropertyFlags(flags int32) PropertyFlags {
	return PropertyFlags{
		HasAnnotations: boolBit(fAnnotations, flags),
		Visibility:     decodeVisibility(fVisibility.get(flags)),
		Modality:       decodeModality(fModality.get(flags)),
		Kind:           descriptors.CallableKind(fMemberKind.get(flags)),
		Var:            boolBit(fVar, flags),
		HasGetter:      boolBit(fGetter, flags),
		HasSetter:      boolBit(fSetter, flags),
		Const:          boolBit(fConst, flags),
		LateInit:       boolBit(fLateInit, flags),
		HasConstant:    boolBit(fConstant, flags),
		External:       boolBit(fPropExtern, flags),
		Delegated:      boolBit(fDelegated, flags),
		Expect:         boolBit(fPropExpect, flags),
	}
}

func (pf PropertyFlags) Encode() int32 {
	var f int32
	f = setBool(fAnnotations, f, pf.HasAnnotations)
	f = fVisibility.set(f, encodeVisibility(pf.Visibility))
	f = fModality.set(f, encodeModality(pf.Modality))
	f = fMemberKind.set(f, int32(pf.Kind))
	f = setBool(fVar, f, pf.Var)
	f = setBool(fGetter, f, pf.HasGetter)
	f = setBool(fSetter, f, pf.HasSetter)
	f = setBool(fConst, f, pf.Const)
	f = setBool(fLateInit, f, pf.LateInit)
	f = setBool(fConstant, f, pf.HasConstant)
	f = setBool(fPropExtern, f, pf.External)
	f = setBool(fDelegated, f, pf.Delegated)
	f = setBool(fPropExpect, f, pf.Expect)
	return f
}

// ConstructorFlags is the decoded form of constructor flags.
type ConstructorFlags struct {
	HasAnnotations bool
	Visibility     descriptors.Visibility
	Secondary      bool
}

func DecodeConstructorFlags(flags int32) ConstructorFlags {
	return ConstructorFlags{
		HasAnnotations: boolBit(fAnnotations, flags),
		Visibility:     decodeVisibility(fVisibility.get(flags)),
		Secondary:      boolBit(fSecondary, flags),
	}
}

func (cf ConstructorFlags) Encode() int32 {
	var f int32
	f = setBool(fAnnotations, f, cf.HasAnnotations)
	f = fVisibility.set(f, encodeVisibility(cf.Visibility))
	f = setBool(fSecondary, f, cf.Secondary)
	return f
}

// ValueParameterFlags is the decoded form of value parameter flags.
type ValueParameterFlags struct {
	HasAnnotations  bool
	DeclaresDefault bool
	Crossinline     bool
	Noinline        bool
}

func DecodeValueParameterFlags(flags int32) ValueParameterFlags {
	return ValueParameterFlags{
		HasAnnotations:  boolBit(fAnnotations, flags),
		DeclaresDefault: boolBit(fDefaultValue, flags),
		Crossinline:     boolBit(fCrossinline, flags),
		Noinline:        boolBit(fNoinline, flags),
	}
}

func (vf ValueParameterFlags) Encode() int32 {
	var f int32
	f = setBool(fAnnotations, f, vf.HasAnnotations)
	f = setBool(fDefaultValue, f, vf.DeclaresDefault)
	f = setBool(fCrossinline, f, vf.Crossinline)
	f = setBool(fNoinline, f, vf.Noinline)
	return f
}
