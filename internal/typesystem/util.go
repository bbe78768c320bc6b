package typesystem

import "github.com/funvibe/semcore/internal/names"

// Simple returns the non-null class type id<args...>.
func Simple(id names.ClassID, args ...Type) TClass {
	t := TClass{ID: id}
	for _, a := range args {
		t.Args = append(t.Args, Invariantly(a))
	}
	return t
}

func AnyType() Type         { return TClass{ID: AnyID} }
func NullableAnyType() Type { return TClass{ID: AnyID, Nullable: true} }
func NothingType() Type     { return TClass{ID: NothingID} }
func UnitType() Type        { return TClass{ID: UnitID} }

// WithNullability returns t marked (or unmarked) nullable.
func WithNullability(t Type, nullable bool) Type {
	switch typ := t.(type) {
	case TClass:
		typ.Nullable = nullable || typ.Nullable
		return typ
	case TParam:
		typ.Nullable = nullable || typ.Nullable
		return typ
	default:
		return t
	}
}

// ClassIDOf returns the class id of a class type.
func ClassIDOf(t Type) (names.ClassID, bool) {
	if c, ok := t.(TClass); ok {
		return c.ID, true
	}
	return names.ClassID{}, false
}

func IsError(t Type) bool {
	_, ok := t.(TError)
	return ok
}

// ContainsError reports whether t or any of its arguments is an error type.
func ContainsError(t Type) bool {
	switch typ := t.(type) {
	case TError:
		return true
	case TClass:
		for _, a := range typ.Args {
			if a.Type != nil && ContainsError(a.Type) {
				return true
			}
		}
	}
	return false
}

// Equal compares two types structurally.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case TClass:
		y, ok := b.(TClass)
		if !ok || x.ID != y.ID || x.Nullable != y.Nullable || x.Suspend != y.Suspend || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if x.Args[i].Variance != y.Args[i].Variance || !Equal(x.Args[i].Type, y.Args[i].Type) {
				return false
			}
		}
		return true
	case TParam:
		y, ok := b.(TParam)
		return ok && x.Key == y.Key && x.Nullable == y.Nullable
	case TError:
		y, ok := b.(TError)
		return ok && x.Reason == y.Reason
	case TDynamic:
		_, ok := b.(TDynamic)
		return ok
	default:
		return false
	}
}

// EqualAll compares two type lists pairwise.
func EqualAll(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
