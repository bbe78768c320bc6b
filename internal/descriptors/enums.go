package descriptors

import "fmt"

// Visibility of a declaration.
type Visibility int

const (
	VisibilityUnknown Visibility = iota
	Private
	PrivateToThis
	Protected
	Internal
	Public
	Local
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case PrivateToThis:
		return "private/*private to this*/"
	case Protected:
		return "protected"
	case Internal:
		return "internal"
	case Public:
		return "public"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// IsPrivate reports visibilities that are never inherited.
func (v Visibility) IsPrivate() bool {
	return v == Private || v == PrivateToThis || v == Local
}

// order is the partial order of visibilities. Protected and Internal share a
// level and are incomparable.
func (v Visibility) order() int {
	switch v {
	case PrivateToThis, Local:
		return 0
	case Private:
		return 1
	case Protected, Internal:
		return 2
	case Public:
		return 3
	default:
		return -1
	}
}

// CompareVisibilities returns -1, 0 or 1, and false when a and b are
// incomparable.
func CompareVisibilities(a, b Visibility) (int, bool) {
	if a == b {
		return 0, true
	}
	oa, ob := a.order(), b.order()
	switch {
	case oa < 0 || ob < 0:
		return 0, false
	case oa == ob:
		return 0, false
	case oa < ob:
		return -1, true
	default:
		return 1, true
	}
}

// Rank is a total order used to break ties between incomparable
// visibilities deterministically.
func (v Visibility) Rank() int {
	switch v {
	case Public:
		return 5
	case Internal:
		return 4
	case Protected:
		return 3
	case Private:
		return 2
	case PrivateToThis:
		return 1
	default:
		return 0
	}
}

// Modality of a class or member.
type Modality int

const (
	Final Modality = iota
	Open
	Abstract
	Sealed
)

func (m Modality) String() string {
	switch m {
	case Final:
		return "final"
	case Open:
		return "open"
	case Abstract:
		return "abstract"
	case Sealed:
		return "sealed"
	default:
		return fmt.Sprintf("Modality(%d)", int(m))
	}
}

// IsOverridable reports modalities that permit overriding.
func (m Modality) IsOverridable() bool {
	return m != Final
}

// ClassKind distinguishes the flavors of class-like declarations.
type ClassKind int

const (
	KindClass ClassKind = iota
	KindInterface
	KindEnumClass
	KindEnumEntry
	KindAnnotationClass
	KindObject
)

func (k ClassKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnumClass:
		return "enum class"
	case KindEnumEntry:
		return "enum entry"
	case KindAnnotationClass:
		return "annotation class"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("ClassKind(%d)", int(k))
	}
}

func (k ClassKind) IsSingleton() bool {
	return k == KindObject || k == KindEnumEntry
}

// CallableKind tells declared members from generated ones.
type CallableKind int

const (
	Declaration CallableKind = iota
	FakeOverride
	Delegation
	Synthesized
)

func (k CallableKind) String() string {
	switch k {
	case Declaration:
		return "declaration"
	case FakeOverride:
		return "fake_override"
	case Delegation:
		return "delegation"
	case Synthesized:
		return "synthesized"
	default:
		return fmt.Sprintf("CallableKind(%d)", int(k))
	}
}

// IsReal reports kinds that correspond to an authored or compiled member.
func (k CallableKind) IsReal() bool {
	return k != FakeOverride
}
