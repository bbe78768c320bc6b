package typesystem

import "fmt"

// Unify matches pattern against actual and records in s a binding for each
// type parameter of pattern whose key is in vars. The first binding of a
// parameter wins. Error types and star projections bind nothing.
//
// On a mismatch the bindings made so far are kept and an error describes
// the first conflict.
func Unify(pattern, actual Type, vars map[string]bool, s Subst) error {
	return unifyInternal(pattern, actual, vars, s, nil)
}

// typePair represents a pair of types being compared for co-induction
type typePair struct {
	t1 Type
	t2 Type
}

func unifyInternal(t1, t2 Type, vars map[string]bool, s Subst, visited []typePair) error {
	for _, p := range visited {
		if Equal(p.t1, t1) && Equal(p.t2, t2) {
			return nil
		}
	}
	visited = append(visited, typePair{t1: t1, t2: t2})

	if t1 == nil || t2 == nil || IsError(t2) {
		return nil
	}
	if _, ok := t2.(TDynamic); ok {
		return nil
	}

	switch p := t1.(type) {
	case TParam:
		if vars[p.Key] {
			if _, done := s[p.Key]; done {
				return nil
			}
			actual := t2
			if p.Nullable {
				actual = nonNull(actual)
			}
			return Bind(p, actual, s)
		}
		if a, ok := t2.(TParam); ok && a.Key == p.Key {
			return nil
		}
		return errUnify(t1, t2)
	case TClass:
		a, ok := t2.(TClass)
		if !ok {
			return errUnify(t1, t2)
		}
		if a.ID != p.ID {
			return errUnifyMsg(t1, t2, "class mismatch")
		}
		if len(a.Args) != len(p.Args) {
			return errUnifyMsg(t1, t2, "argument count mismatch")
		}
		for i := range p.Args {
			if err := unifyInternal(p.Args[i].Type, a.Args[i].Type, vars, s, visited); err != nil {
				return errUnifyContext(fmt.Sprintf("argument %d of %s", i, p.ID), err)
			}
		}
		return nil
	case TError, TDynamic:
		return nil
	default:
		return errMismatch(fmt.Sprintf("unknown type kind: %T", t1))
	}
}

// Bind binds a type parameter to a type, performing the occurs check.
func Bind(tp TParam, t Type, s Subst) error {
	if tVal, ok := t.(TParam); ok && tVal.Key == tp.Key {
		return nil
	}
	if OccursCheck(tp, t) {
		return errMismatch(fmt.Sprintf("infinite type detected: %s in %s", tp, t))
	}
	s[tp.Key] = t
	return nil
}

// OccursCheck returns true if tp appears free in t.
func OccursCheck(tp TParam, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Key == tp.Key {
			return true
		}
	}
	return false
}

func nonNull(t Type) Type {
	switch typ := t.(type) {
	case TClass:
		typ.Nullable = false
		return typ
	case TParam:
		typ.Nullable = false
		return typ
	}
	return t
}

func errUnify(t1, t2 Type) error {
	return fmt.Errorf("cannot unify %s with %s", t1, t2)
}

func errUnifyMsg(t1, t2 Type, msg string) error {
	return fmt.Errorf("%s: %s vs %s", msg, t1, t2)
}

func errMismatch(msg string) error {
	return fmt.Errorf("type mismatch: %s", msg)
}

func errUnifyContext(ctx string, err error) error {
	return fmt.Errorf("in %s: %w", ctx, err)
}
