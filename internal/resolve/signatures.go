package resolve

import (
	"fmt"

	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

var (
	builtinsPackage = names.NewFqName(config.BuiltinsPackage)
	arrayID         = names.TopLevelClassID(builtinsPackage.Child(config.ArrayTypeName))
)

type receiverReplacer interface {
	ReplaceReceiverTypeRef(ref ir.TypeRef)
}

func (rs *Session) resolveTypes(f *ir.File) {
	for _, d := range f.Declarations {
		rs.typesOf(d)
	}
}

// typesOf resolves the written types of d's signature: bounds, receiver,
// parameters and return type. Types left implicit are inferred from
// bodies later.
func (rs *Session) typesOf(d ir.Declaration) {
	switch d := d.(type) {
	case *ir.RegularClass:
		ts := classScope(rs.lexicalOf(d).enter(d))
		rs.resolveBounds(ts, d.TypeParameters())
		rs.resolveAnnotations(ts, d.Annotations())
		for _, m := range d.Declarations() {
			rs.typesOf(m)
		}
	case *ir.TypeAlias:
		ts := typeScope{lex: rs.lexicalOf(d)}.withParams(d.TypeParameters())
		rs.resolveBounds(ts, d.TypeParameters())
		rs.resolveAnnotations(ts, d.Annotations())
		rs.AliasExpansion(d)
	case *ir.EnumEntry:
		lex := rs.lexicalOf(d)
		rs.resolveAnnotations(classScope(lex), d.Annotations())
		d.ReplaceReturnTypeRef(&ir.ResolvedTypeRef{Source: d.Pos(), Type: defaultType(lex.owner())})
		if obj := d.Initializer(); obj != nil {
			for _, m := range obj.Declarations() {
				rs.typesOf(m)
			}
		}
	case ir.CallableDeclaration:
		rs.callableTypes(d)
	}
}

func (rs *Session) callableTypes(d ir.CallableDeclaration) {
	lex := rs.lexicalOf(d)
	ts := classScope(lex).withParams(d.TypeParameters())
	rs.resolveBounds(ts, d.TypeParameters())
	rs.resolveAnnotations(ts, d.Annotations())
	if r, ok := d.(receiverReplacer); ok && d.ReceiverTypeRef() != nil {
		r.ReplaceReceiverTypeRef(rs.resolveTypeRef(ts, d.ReceiverTypeRef()))
	}
	if fl, ok := d.(ir.FunctionLike); ok {
		for _, p := range fl.ValueParameters() {
			rs.parameterType(ts, p)
		}
	}

	switch d := d.(type) {
	case *ir.Constructor:
		d.ReplaceReturnTypeRef(&ir.ResolvedTypeRef{Source: d.Pos(), Type: defaultType(lex.owner())})
	case *ir.SimpleFunction:
		if isImplicit(d.ReturnTypeRef()) {
			if isExpressionBody(d.Body()) {
				rs.pending.Store(ir.CallableDeclaration(d), true)
			} else {
				d.ReplaceReturnTypeRef(&ir.ResolvedTypeRef{Source: d.Pos(), Type: typesystem.UnitType()})
			}
			return
		}
		d.ReplaceReturnTypeRef(rs.resolveTypeRef(ts, d.ReturnTypeRef()))
	case *ir.Property:
		rs.propertyType(ts, d)
	}
}

// propertyType resolves the type of p and of its accessors. A property
// without a written type takes the type of a constant initializer now and
// of any other initializer once bodies are resolved.
func (rs *Session) propertyType(ts typeScope, p *ir.Property) {
	switch {
	case !isImplicit(p.ReturnTypeRef()):
		p.ReplaceReturnTypeRef(rs.resolveTypeRef(ts, p.ReturnTypeRef()))
	case p.Initializer() == nil:
		msg := fmt.Sprintf("property %s must have a type or an initializer", p.Name())
		rs.Report(diagnostics.NewError(diagnostics.ErrR003, p.Pos(), msg))
		p.ReplaceReturnTypeRef(ir.NewErrorTypeRef(p.ReturnTypeRef(), msg))
	default:
		if c, ok := p.Initializer().(*ir.ConstExpression); ok {
			p.ReplaceReturnTypeRef(&ir.ResolvedTypeRef{Source: p.Pos(), Type: constType(c)})
		} else {
			rs.pending.Store(ir.CallableDeclaration(p), true)
		}
	}
	_, pending := rs.pending.Load(ir.CallableDeclaration(p))
	known, _ := ir.ConeType(p.ReturnTypeRef())

	if g := p.Getter(); g != nil {
		switch {
		case !isImplicit(g.ReturnTypeRef()):
			g.ReplaceReturnTypeRef(rs.resolveTypeRef(ts, g.ReturnTypeRef()))
		case pending:
			rs.pending.Store(ir.CallableDeclaration(g), true)
		default:
			g.ReplaceReturnTypeRef(&ir.ResolvedTypeRef{Source: g.Pos(), Type: known})
		}
	}
	if s := p.Setter(); s != nil {
		s.ReplaceReturnTypeRef(&ir.ResolvedTypeRef{Source: s.Pos(), Type: typesystem.UnitType()})
		for _, v := range s.ValueParameters() {
			rs.resolveAnnotations(ts, v.Annotations())
			if !isImplicit(v.ReturnTypeRef()) {
				v.ReplaceReturnTypeRef(rs.resolveTypeRef(ts, v.ReturnTypeRef()))
				continue
			}
			if pending {
				rs.pending.Store(ir.CallableDeclaration(s), true)
			} else {
				v.ReplaceReturnTypeRef(&ir.ResolvedTypeRef{Source: v.Pos(), Type: known})
			}
		}
	}
}

// parameterType resolves the type of a function or constructor parameter.
func (rs *Session) parameterType(ts typeScope, p *ir.ValueParameter) {
	rs.resolveAnnotations(ts, p.Annotations())
	if !isImplicit(p.ReturnTypeRef()) {
		p.ReplaceReturnTypeRef(rs.resolveTypeRef(ts, p.ReturnTypeRef()))
		return
	}
	msg := fmt.Sprintf("a type annotation is required on value parameter %s", p.Name())
	rs.Report(diagnostics.NewError(diagnostics.ErrR003, p.Pos(), msg))
	p.ReplaceReturnTypeRef(ir.NewErrorTypeRef(p.ReturnTypeRef(), msg))
}

func (rs *Session) resolveBounds(ts typeScope, params []*ir.TypeParameter) {
	for _, p := range params {
		rs.resolveAnnotations(ts, p.Annotations())
		bounds := p.Bounds()
		if len(bounds) == 0 {
			continue
		}
		out := make([]ir.TypeRef, len(bounds))
		for i, b := range bounds {
			out[i] = rs.resolveTypeRef(ts, b)
		}
		p.ReplaceBounds(out)
	}
}

// resolveAnnotations resolves annotation types. Arguments must be
// constants.
func (rs *Session) resolveAnnotations(ts typeScope, annotations []*ir.Annotation) {
	for _, a := range annotations {
		a.AnnotationTypeRef = rs.resolveTypeRef(ts, a.AnnotationTypeRef)
		a.ReplaceTypeRef(a.AnnotationTypeRef)
		for _, arg := range a.Arguments {
			c, ok := arg.(*ir.ConstExpression)
			if !ok {
				msg := "annotation argument must be a constant"
				rs.Report(diagnostics.NewError(diagnostics.ErrR003, arg.Pos(), msg))
				arg.ReplaceTypeRef(ir.NewErrorTypeRef(arg.TypeRef(), msg))
				continue
			}
			c.ReplaceTypeRef(&ir.ResolvedTypeRef{Source: c.Pos(), Type: constType(c)})
		}
	}
}

func isImplicit(ref ir.TypeRef) bool {
	_, ok := ref.(*ir.ImplicitTypeRef)
	return ok
}

// isExpressionBody reports a body of the form `= expr`, which the loader
// stores as a single return.
func isExpressionBody(b *ir.Block) bool {
	if b == nil || len(b.Statements) != 1 {
		return false
	}
	r, ok := b.Statements[0].(*ir.ReturnExpression)
	return ok && r.Result != nil
}

func constType(c *ir.ConstExpression) typesystem.Type {
	switch c.Kind {
	case ir.ConstBoolean:
		return typesystem.TClass{ID: typesystem.BooleanID}
	case ir.ConstChar:
		return typesystem.TClass{ID: typesystem.CharID}
	case ir.ConstInt:
		return typesystem.TClass{ID: typesystem.IntID}
	case ir.ConstLong:
		return typesystem.TClass{ID: typesystem.LongID}
	case ir.ConstDouble:
		return typesystem.TClass{ID: typesystem.DoubleID}
	case ir.ConstString:
		return typesystem.TClass{ID: typesystem.StringID}
	default:
		return typesystem.WithNullability(typesystem.NothingType(), true)
	}
}
