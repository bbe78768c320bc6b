package resolve

import (
	"fmt"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// supertypeFrame is a class whose supertypes are being resolved, with the
// index of the supertype ref currently followed.
type supertypeFrame struct {
	class  ir.Class
	edge   int
	looped map[int]bool
}

// supertypeResolver resolves supertype refs depth first so that the
// supertypes of a source supertype are known before its subclasses. A
// class met again while it is being computed closes a loop; every edge on
// the loop is replaced by an error type.
type supertypeResolver struct {
	rs    *Session
	stack []*supertypeFrame
}

func (rs *Session) resolveSupertypes() {
	r := &supertypeResolver{rs: rs}
	for _, f := range rs.Files {
		ir.Inspect(f, func(e ir.Element) bool {
			switch c := e.(type) {
			case ir.Expression:
				return false
			case ir.Class:
				r.resolve(c)
			}
			return true
		})
	}
}

func (r *supertypeResolver) resolve(c ir.Class) {
	switch c.SupertypesComputationStatus() {
	case ir.SupertypesComputed:
		return
	case ir.SupertypesComputing:
		r.markLoop(c)
		return
	}
	c.ReplaceSupertypesComputationStatus(ir.SupertypesComputing)
	frame := &supertypeFrame{class: c, looped: make(map[int]bool)}
	r.stack = append(r.stack, frame)

	lex := r.rs.lexicalOf(c)
	// Supertypes see the type parameters of c but not its nested classes.
	ts := classScope(lex.enter(c))
	ts.lex = lex

	refs := c.SuperTypeRefs()
	resolved := make([]ir.TypeRef, len(refs))
	for i, ref := range refs {
		frame.edge = i
		resolved[i] = r.rs.resolveTypeRef(ts, ref)
		t, _ := ir.ConeType(resolved[i])
		if id, ok := typesystem.ClassIDOf(t); ok {
			if d, ok := r.rs.Class(id); ok {
				if sc, ok := d.(ir.Class); ok {
					r.resolve(sc)
				}
			}
		}
	}
	r.stack = r.stack[:len(r.stack)-1]

	var out []ir.TypeRef
	for i, ref := range resolved {
		if frame.looped[i] {
			r.rs.Report(diagnostics.NewError(diagnostics.ErrR002, refs[i].Pos(),
				fmt.Sprintf("there's a cycle in the inheritance hierarchy for %s", c.Symbol().ID)))
			out = append(out, ir.NewErrorTypeRef(refs[i], names.RecursionDetected.String()))
			continue
		}
		out = append(out, ref)
		if extra := r.rs.suspendSupertype(ref); extra != nil {
			out = append(out, extra)
		}
	}
	out = r.withDefaults(c, lex, out)

	c.ReplaceSuperTypeRefs(out)
	c.ReplaceSupertypesComputationStatus(ir.SupertypesComputed)
}

// markLoop marks the edge followed by every frame from c's frame to the
// top of the stack.
func (r *supertypeResolver) markLoop(c ir.Class) {
	for i := len(r.stack) - 1; i >= 0; i-- {
		f := r.stack[i]
		f.looped[f.edge] = true
		if f.class == c {
			return
		}
	}
}

// suspendSupertype returns the SuspendFunctionN supertype implied by a
// suspend function type supertype.
func (rs *Session) suspendSupertype(ref ir.TypeRef) ir.TypeRef {
	t, _ := ir.ConeType(ref)
	ct, ok := t.(typesystem.TClass)
	if !ok || !ct.Suspend {
		return nil
	}
	n, ok := typesystem.FunctionArity(ct.ID)
	if !ok {
		return nil
	}
	sid := typesystem.SuspendFunctionID(n)
	if rs.Module.FindClassAcrossModuleDependencies(sid) == nil {
		diagnostics.Fatalf(diagnostics.ErrM005, "built-in class %s is not found", sid)
	}
	return &ir.ResolvedTypeRef{Source: ref.Pos(), Type: typesystem.TClass{ID: sid, Args: ct.Args}}
}

// withDefaults adds the implicit supertypes: Enum<E> for enum classes,
// Annotation for annotation classes, the enum class for enum entry bodies
// and Any when nothing else is left.
func (r *supertypeResolver) withDefaults(c ir.Class, lex *lexical, refs []ir.TypeRef) []ir.TypeRef {
	implicit := func(t typesystem.Type) ir.TypeRef {
		return &ir.ResolvedTypeRef{Source: c.Pos(), Type: t}
	}
	if _, ok := c.(*ir.AnonymousObject); ok && len(refs) == 0 {
		if owner, ok := lex.owner().(*ir.RegularClass); ok && owner.ClassKind() == descriptors.KindEnumClass {
			return []ir.TypeRef{implicit(defaultType(owner))}
		}
	}
	switch c.ClassKind() {
	case descriptors.KindEnumClass:
		enum := typesystem.Simple(typesystem.EnumID, defaultType(c))
		refs = append([]ir.TypeRef{implicit(enum)}, refs...)
	case descriptors.KindAnnotationClass:
		refs = append([]ir.TypeRef{implicit(typesystem.TClass{ID: typesystem.AnnotationID})}, refs...)
	}
	if len(refs) == 0 && c.Symbol().ID != typesystem.AnyID {
		refs = []ir.TypeRef{implicit(typesystem.AnyType())}
	}
	return refs
}

// defaultType is the type of c applied to its own type parameters.
func defaultType(c ir.Class) typesystem.TClass {
	t := typesystem.TClass{ID: c.Symbol().ID}
	for _, p := range c.TypeParameters() {
		t.Args = append(t.Args, typesystem.Invariantly(p.Type()))
	}
	return t
}

// supertypesOf returns the resolved supertypes of c without error types.
func supertypesOf(c ir.Class) []typesystem.Type {
	ir.RequirePhase(c, ir.PhaseSuperTypes)
	var out []typesystem.Type
	for _, ref := range c.SuperTypeRefs() {
		if t, ok := ir.ConeType(ref); ok && !typesystem.IsError(t) {
			out = append(out, t)
		}
	}
	return out
}
