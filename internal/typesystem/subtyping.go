package typesystem

import "github.com/funvibe/semcore/internal/names"

// ClassInfo describes what subtyping needs to know about a class.
type ClassInfo struct {
	ParameterKeys []string
	Supertypes    []Type
}

// ClassInfoFunc resolves a class id. It returns false for unknown classes.
type ClassInfoFunc func(id names.ClassID) (ClassInfo, bool)

// Checker answers subtyping questions over a class hierarchy.
type Checker struct {
	classes ClassInfoFunc
}

func NewChecker(classes ClassInfoFunc) *Checker {
	return &Checker{classes: classes}
}

// IsSubtype reports whether sub <: super. Error and dynamic types are
// compatible with everything so that a broken hierarchy produces at most one
// diagnostic.
func (c *Checker) IsSubtype(sub, super Type) bool {
	switch sub.(type) {
	case TError, TDynamic:
		return true
	}
	switch super.(type) {
	case TError, TDynamic:
		return true
	}
	if sub.IsNullable() && !super.IsNullable() {
		return false
	}
	if sc, ok := sub.(TClass); ok && sc.ID == NothingID {
		return true
	}
	if sc, ok := super.(TClass); ok && sc.ID == AnyID {
		return true
	}

	switch sp := super.(type) {
	case TParam:
		p, ok := sub.(TParam)
		return ok && p.Key == sp.Key
	case TClass:
		sc, ok := sub.(TClass)
		if !ok {
			return false
		}
		return c.isClassSubtype(sc, sp, make(map[names.ClassID]bool))
	}
	return false
}

func (c *Checker) isClassSubtype(sub, super TClass, visited map[names.ClassID]bool) bool {
	if sub.ID == super.ID {
		return c.argumentsMatch(sub.Args, super.Args)
	}
	if visited[sub.ID] || c.classes == nil {
		return false
	}
	visited[sub.ID] = true
	info, ok := c.classes(sub.ID)
	if !ok {
		return false
	}
	subst := NewSubst(info.ParameterKeys, sub.Args)
	for _, st := range info.Supertypes {
		next, ok := st.Apply(subst).(TClass)
		if !ok {
			continue
		}
		next.Nullable = false
		if c.isClassSubtype(next, super, visited) {
			return true
		}
	}
	return false
}

func (c *Checker) argumentsMatch(sub, super []Projection) bool {
	if len(sub) != len(super) {
		return len(super) == 0
	}
	for i := range super {
		sa, pa := sub[i], super[i]
		switch pa.Variance {
		case Star:
			continue
		case Out:
			if sa.Variance == In || sa.Variance == Star || !c.IsSubtype(sa.Type, pa.Type) {
				return false
			}
		case In:
			if sa.Variance == Out || sa.Variance == Star || !c.IsSubtype(pa.Type, sa.Type) {
				return false
			}
		default:
			if sa.Variance != Invariant || !Equal(sa.Type, pa.Type) {
				return false
			}
		}
	}
	return true
}
