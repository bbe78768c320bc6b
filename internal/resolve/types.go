package resolve

import (
	"fmt"

	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

const starImport names.Name = "*"

// typeScope is what a type reference can see: where it is written and the
// type parameters in scope, innermost list first.
type typeScope struct {
	lex    *lexical
	params [][]*ir.TypeParameter
}

// withParams returns ts with params as the innermost type parameters.
func (ts typeScope) withParams(params []*ir.TypeParameter) typeScope {
	if len(params) == 0 {
		return ts
	}
	out := make([][]*ir.TypeParameter, 0, len(ts.params)+1)
	out = append(out, params)
	return typeScope{lex: ts.lex, params: append(out, ts.params...)}
}

func (ts typeScope) param(n names.Name) (*ir.TypeParameter, bool) {
	for _, list := range ts.params {
		for _, p := range list {
			if p.Name() == n {
				return p, true
			}
		}
	}
	return nil, false
}

// classScope returns the scope of declarations written inside the classes
// of lex. Type parameters of outer classes are visible through inner
// classes only.
func classScope(lex *lexical) typeScope {
	ts := typeScope{lex: lex}
	for i := len(lex.classes) - 1; i >= 0; i-- {
		c := lex.classes[i]
		if ps := c.TypeParameters(); len(ps) > 0 {
			ts.params = append(ts.params, ps)
		}
		if !c.Status().Modifiers.Has(ir.ModInner) {
			break
		}
	}
	return ts
}

// classifier is a class or type alias found by name.
type classifier struct {
	id    names.ClassID
	arity int
	alias *ir.TypeAlias
}

// classifierByID looks id up in the module sources first and then across
// the dependencies.
func (rs *Session) classifierByID(id names.ClassID) (classifier, bool) {
	if d, ok := rs.Class(id); ok {
		c := classifier{id: id, arity: len(d.TypeParameters())}
		if a, ok := d.(*ir.TypeAlias); ok {
			c.alias = a
		}
		return c, true
	}
	if cd := rs.Module.FindClassAcrossModuleDependencies(id); cd != nil {
		return classifier{id: id, arity: len(cd.TypeConstructor().Parameters())}, true
	}
	return classifier{}, false
}

// classifierByFqName splits fq into package and class names, trying the
// longest package first.
func (rs *Session) classifierByFqName(fq names.FqName) (classifier, bool) {
	segs := fq.Segments()
	for i := len(segs) - 1; i >= 0; i-- {
		id := names.NewClassID(names.FqNameOf(segs[:i]...), names.FqNameOf(segs[i:]...), false)
		if c, ok := rs.classifierByID(id); ok {
			return c, true
		}
	}
	return classifier{}, false
}

// simpleClassifier resolves an unqualified classifier name: nested classes
// of the enclosing classes, explicit imports, the file package, star
// imports and finally the default import of the built-in package.
func (rs *Session) simpleClassifier(lex *lexical, n names.Name) (classifier, bool) {
	for i := len(lex.classes) - 1; i >= 0; i-- {
		id := lex.classes[i].Symbol().ID
		if id.Local {
			continue
		}
		if c, ok := rs.classifierByID(id.Nested(n)); ok {
			return c, true
		}
	}
	file := lex.file
	for _, imp := range file.Imports {
		if imp.FqName.ShortName() == starImport {
			continue
		}
		alias := imp.Alias
		if alias == "" {
			alias = imp.FqName.ShortName()
		}
		if alias == n {
			if c, ok := rs.classifierByFqName(imp.FqName); ok {
				return c, true
			}
		}
	}
	if c, ok := rs.classifierByID(names.TopLevelClassID(file.PackageFqName.Child(n))); ok {
		return c, true
	}
	for _, imp := range file.Imports {
		if imp.FqName.ShortName() == starImport {
			if c, ok := rs.classifierByID(names.TopLevelClassID(imp.FqName.Parent().Child(n))); ok {
				return c, true
			}
		}
	}
	return rs.classifierByID(names.TopLevelClassID(names.NewFqName(config.BuiltinsPackage).Child(n)))
}

// qualifiedClassifier resolves a.b.C: the head as a classifier and the rest
// as nested classes, or else a package prefix followed by class names.
func (rs *Session) qualifiedClassifier(lex *lexical, q []names.Name) (classifier, bool) {
	if head, ok := rs.simpleClassifier(lex, q[0]); ok && head.alias == nil {
		id := head.id
		found := true
		for _, n := range q[1:] {
			id = id.Nested(n)
			c, ok := rs.classifierByID(id)
			if !ok {
				found = false
				break
			}
			head = c
		}
		if found {
			return head, true
		}
	}
	if len(q) == 1 {
		return classifier{}, false
	}
	return rs.classifierByFqName(names.FqNameOf(q...))
}

// resolveTypeRef returns the resolved form of ref. Refs that are already
// resolved and implicit refs are returned as they are.
func (rs *Session) resolveTypeRef(ts typeScope, ref ir.TypeRef) ir.TypeRef {
	switch r := ref.(type) {
	case nil:
		return nil
	case *ir.ResolvedTypeRef, *ir.ErrorTypeRef, *ir.ImplicitTypeRef:
		return r
	}
	t := rs.coneType(ts, ref)
	if e, ok := t.(typesystem.TError); ok {
		return ir.NewErrorTypeRef(ref, e.Reason)
	}
	return ir.NewResolvedTypeRef(ref, t)
}

// coneType resolves ref to a type. Failures are reported where they occur
// and become error types, so an argument error leaves the outer type
// usable.
func (rs *Session) coneType(ts typeScope, ref ir.TypeRef) typesystem.Type {
	switch r := ref.(type) {
	case *ir.ResolvedTypeRef:
		return r.Type
	case *ir.ErrorTypeRef:
		return r.Type()
	case *ir.DynamicTypeRef:
		return typesystem.TDynamic{}
	case *ir.ImplicitTypeRef:
		return typesystem.TError{Reason: "implicit type"}
	case *ir.FunctionTypeRef:
		return rs.functionType(ts, r)
	case *ir.UserTypeRef:
		return rs.userType(ts, r)
	}
	return typesystem.TError{Reason: fmt.Sprintf("unsupported type reference %T", ref)}
}

func (rs *Session) userType(ts typeScope, r *ir.UserTypeRef) typesystem.Type {
	if len(r.Qualifier) == 0 {
		return rs.typeError(r.Source, diagnostics.ErrR003, "empty type reference")
	}
	if len(r.Qualifier) == 1 && len(r.Arguments) == 0 {
		if p, ok := ts.param(r.Qualifier[0]); ok {
			t := p.Type()
			t.Nullable = r.Nullable
			return t
		}
	}
	c, ok := rs.qualifiedClassifier(ts.lex, r.Qualifier)
	if !ok {
		return rs.typeError(r.Source, diagnostics.ErrR003, "unresolved reference: "+r.String())
	}
	args := make([]typesystem.Projection, len(r.Arguments))
	for i, a := range r.Arguments {
		if a.Variance == typesystem.Star {
			args[i] = typesystem.StarProjection
			continue
		}
		args[i] = typesystem.Projection{Variance: a.Variance, Type: rs.coneType(ts, a.Type)}
	}
	if len(args) != c.arity {
		return rs.typeError(r.Source, diagnostics.ErrR008,
			fmt.Sprintf("%d type arguments expected for %s, %d given", c.arity, c.id, len(args)))
	}
	if c.alias != nil {
		return rs.expandAliasUse(c.alias, args, r.Nullable)
	}
	return typesystem.TClass{ID: c.id, Args: args, Nullable: r.Nullable}
}

// functionType maps (R.(A) -> B) to FunctionN<R, A, B>. The receiver is the
// first parameter.
func (rs *Session) functionType(ts typeScope, r *ir.FunctionTypeRef) typesystem.Type {
	params := r.Parameters
	if r.Receiver != nil {
		params = append([]ir.TypeRef{r.Receiver}, params...)
	}
	if len(params) > config.MaxFunctionArity {
		return rs.typeError(r.Source, diagnostics.ErrR003,
			fmt.Sprintf("function types take at most %d parameters, %d given", config.MaxFunctionArity, len(params)))
	}
	args := make([]typesystem.Projection, 0, len(params)+1)
	for _, p := range params {
		args = append(args, typesystem.Invariantly(rs.coneType(ts, p)))
	}
	ret := typesystem.UnitType()
	if r.Return != nil {
		ret = rs.coneType(ts, r.Return)
	}
	args = append(args, typesystem.Invariantly(ret))
	return typesystem.TClass{ID: typesystem.FunctionID(len(params)), Args: args, Nullable: r.Nullable, Suspend: r.Suspend}
}

func (rs *Session) typeError(pos diagnostics.Position, code diagnostics.ErrorCode, msg string) typesystem.Type {
	rs.Report(diagnostics.NewError(code, pos, msg))
	return typesystem.TError{Reason: msg}
}

// expandAlias resolves the right-hand side of a type alias once. An alias
// that reaches itself expands to an error type.
func (rs *Session) expandAlias(a *ir.TypeAlias) (typesystem.Type, error) {
	ts := typeScope{lex: rs.lexicalOf(a)}.withParams(a.TypeParameters())
	ref := rs.resolveTypeRef(ts, a.ExpandedTypeRef())
	if ref == nil {
		ref = ir.NewErrorTypeRef(a.ExpandedTypeRef(), "type alias without expansion")
	}
	a.ReplaceExpandedTypeRef(ref)
	t, _ := ir.ConeType(ref)
	return t, nil
}

func (rs *Session) expandAliasUse(a *ir.TypeAlias, args []typesystem.Projection, nullable bool) typesystem.Type {
	t, err := rs.aliases.Get(a)
	if err != nil {
		return rs.typeError(a.Pos(), diagnostics.ErrR002, fmt.Sprintf("type alias %s expands to itself", a.Symbol().ID))
	}
	keys := make([]string, len(a.TypeParameters()))
	for i, p := range a.TypeParameters() {
		keys[i] = p.Key()
	}
	t = t.Apply(typesystem.NewSubst(keys, args))
	if nullable {
		t = typesystem.WithNullability(t, true)
	}
	return t
}

// AliasExpansion returns the type a source alias stands for.
func (rs *Session) AliasExpansion(a *ir.TypeAlias) typesystem.Type {
	t, err := rs.aliases.Get(a)
	if err != nil {
		return typesystem.TError{Reason: names.RecursionDetected.String()}
	}
	return t
}

// classDescriptor returns the descriptor of a class visible from the
// module, source classes included.
func (rs *Session) classDescriptor(id names.ClassID) descriptors.ClassDescriptor {
	if d, ok := rs.Class(id); ok {
		if c, ok := d.(*ir.RegularClass); ok {
			return rs.SourceClass(c)
		}
		return nil
	}
	return rs.Module.FindClassAcrossModuleDependencies(id)
}
