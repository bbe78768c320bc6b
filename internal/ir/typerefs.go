package ir

import (
	"strings"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// TypeRef is a type as written in source, or its resolved form. Resolution
// replaces placeholder refs wholesale; a ResolvedTypeRef is never mutated.
type TypeRef interface {
	Element
	typeRefNode()
}

// TypeArgument is a type argument of a user type. Star projections have
// variance Star and a nil Type.
type TypeArgument struct {
	Variance typesystem.Variance
	Type     TypeRef
}

// UserTypeRef is a possibly qualified class or type parameter reference as
// written in source, e.g. a.b.Foo<T>?.
type UserTypeRef struct {
	Source      diagnostics.Position
	Qualifier   []names.Name
	Arguments   []TypeArgument
	Nullable    bool
	Annotations []*Annotation
}

func (r *UserTypeRef) Pos() diagnostics.Position { return r.Source }
func (r *UserTypeRef) typeRefNode()              {}

func (r *UserTypeRef) AcceptChildren(v Visitor, data any) {
	acceptAll(v, r.Annotations, data)
	for _, a := range r.Arguments {
		accept(v, a.Type, data)
	}
}

func (r *UserTypeRef) TransformChildren(t Transformer, data any) Element {
	r.Annotations = transformList(t, r.Annotations, data, "annotation")
	for i := range r.Arguments {
		r.Arguments[i].Type = transformSingle(t, r.Arguments[i].Type, data, "type argument")
	}
	return r
}

func (r *UserTypeRef) String() string {
	var sb strings.Builder
	for i, q := range r.Qualifier {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(string(q))
	}
	if len(r.Arguments) > 0 {
		sb.WriteByte('<')
		for i, a := range r.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			switch {
			case a.Variance == typesystem.Star:
				sb.WriteByte('*')
				continue
			case a.Variance == typesystem.In:
				sb.WriteString("in ")
			case a.Variance == typesystem.Out:
				sb.WriteString("out ")
			}
			sb.WriteString(TypeRefString(a.Type))
		}
		sb.WriteByte('>')
	}
	if r.Nullable {
		sb.WriteByte('?')
	}
	return sb.String()
}

// ImplicitTypeRef stands for a type that was not written and must be
// inferred.
type ImplicitTypeRef struct {
	Source diagnostics.Position
}

func (r *ImplicitTypeRef) Pos() diagnostics.Position                  { return r.Source }
func (r *ImplicitTypeRef) typeRefNode()                               {}
func (r *ImplicitTypeRef) AcceptChildren(Visitor, any)                {}
func (r *ImplicitTypeRef) TransformChildren(Transformer, any) Element { return r }

// ResolvedTypeRef carries a resolved type. Delegated keeps the ref it was
// resolved from, if any.
type ResolvedTypeRef struct {
	Source      diagnostics.Position
	Type        typesystem.Type
	Delegated   TypeRef
	Annotations []*Annotation
}

func (r *ResolvedTypeRef) Pos() diagnostics.Position { return r.Source }
func (r *ResolvedTypeRef) typeRefNode()              {}

func (r *ResolvedTypeRef) AcceptChildren(v Visitor, data any) {
	acceptAll(v, r.Annotations, data)
}

func (r *ResolvedTypeRef) TransformChildren(t Transformer, data any) Element {
	r.Annotations = transformList(t, r.Annotations, data, "annotation")
	return r
}

// ErrorTypeRef is a type that failed to resolve. It counts as resolved.
type ErrorTypeRef struct {
	Source    diagnostics.Position
	Reason    string
	Delegated TypeRef
}

func (r *ErrorTypeRef) Pos() diagnostics.Position                  { return r.Source }
func (r *ErrorTypeRef) typeRefNode()                               {}
func (r *ErrorTypeRef) AcceptChildren(Visitor, any)                {}
func (r *ErrorTypeRef) TransformChildren(Transformer, any) Element { return r }

func (r *ErrorTypeRef) Type() typesystem.Type {
	return typesystem.TError{Reason: r.Reason}
}

// FunctionTypeRef is a function type as written, e.g. suspend (A) -> B.
type FunctionTypeRef struct {
	Source     diagnostics.Position
	Receiver   TypeRef
	Parameters []TypeRef
	Return     TypeRef
	Suspend    bool
	Nullable   bool
}

func (r *FunctionTypeRef) Pos() diagnostics.Position { return r.Source }
func (r *FunctionTypeRef) typeRefNode()              {}

func (r *FunctionTypeRef) AcceptChildren(v Visitor, data any) {
	accept(v, r.Receiver, data)
	acceptAll(v, r.Parameters, data)
	accept(v, r.Return, data)
}

func (r *FunctionTypeRef) TransformChildren(t Transformer, data any) Element {
	r.Receiver = transformSingle(t, r.Receiver, data, "function receiver type")
	r.Parameters = transformList(t, r.Parameters, data, "function parameter type")
	r.Return = transformSingle(t, r.Return, data, "function return type")
	return r
}

// DynamicTypeRef is the dynamic type.
type DynamicTypeRef struct {
	Source diagnostics.Position
}

func (r *DynamicTypeRef) Pos() diagnostics.Position                  { return r.Source }
func (r *DynamicTypeRef) typeRefNode()                               {}
func (r *DynamicTypeRef) AcceptChildren(Visitor, any)                {}
func (r *DynamicTypeRef) TransformChildren(Transformer, any) Element { return r }

// NewResolvedTypeRef wraps t, keeping the position of the ref it replaces.
func NewResolvedTypeRef(from TypeRef, t typesystem.Type) *ResolvedTypeRef {
	r := &ResolvedTypeRef{Type: t, Delegated: from}
	if !isNil(from) {
		r.Source = from.Pos()
	}
	return r
}

// NewErrorTypeRef returns an error ref in place of from.
func NewErrorTypeRef(from TypeRef, reason string) *ErrorTypeRef {
	r := &ErrorTypeRef{Reason: reason, Delegated: from}
	if !isNil(from) {
		r.Source = from.Pos()
	}
	return r
}

// ConeType returns the type of a resolved or error ref.
func ConeType(ref TypeRef) (typesystem.Type, bool) {
	switch r := ref.(type) {
	case *ResolvedTypeRef:
		return r.Type, true
	case *ErrorTypeRef:
		return r.Type(), true
	}
	return nil, false
}

// IsResolved reports whether ref carries a type.
func IsResolved(ref TypeRef) bool {
	_, ok := ConeType(ref)
	return ok
}

// TypeRefString renders ref for messages and dumps.
func TypeRefString(ref TypeRef) string {
	switch r := ref.(type) {
	case nil:
		return "<none>"
	case *UserTypeRef:
		return r.String()
	case *ImplicitTypeRef:
		return "<implicit>"
	case *ResolvedTypeRef:
		return r.Type.String()
	case *ErrorTypeRef:
		return r.Type().String()
	case *DynamicTypeRef:
		return "dynamic"
	case *FunctionTypeRef:
		var sb strings.Builder
		if r.Suspend {
			sb.WriteString("suspend ")
		}
		if r.Receiver != nil {
			sb.WriteString(TypeRefString(r.Receiver))
			sb.WriteByte('.')
		}
		sb.WriteByte('(')
		for i, p := range r.Parameters {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(TypeRefString(p))
		}
		sb.WriteString(") -> ")
		sb.WriteString(TypeRefString(r.Return))
		if r.Nullable {
			return "(" + sb.String() + ")?"
		}
		return sb.String()
	}
	return "<unknown>"
}

// replaceTypeSlot stores ref in slot. Once a slot holds a resolved type it
// may only be replaced by a ref of an equal type.
func replaceTypeSlot(slot *TypeRef, ref TypeRef, what string) {
	cur := *slot
	if !isNil(cur) && cur != ref {
		if ct, ok := ConeType(cur); ok {
			nt, ok := ConeType(ref)
			if !ok || !typesystem.Equal(ct, nt) {
				diagnostics.Invariantf("%s is already resolved to %s, cannot replace with %s", what, ct, TypeRefString(ref))
			}
		}
	}
	*slot = ref
}
