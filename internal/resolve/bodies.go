package resolve

import (
	"errors"
	"fmt"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/symbols"
	"github.com/funvibe/semcore/internal/typesystem"
)

const (
	thisName  names.Name = "this"
	fieldName names.Name = "field"
)

// local is a name bound inside a body: a parameter, a local variable or a
// local function.
type local struct {
	target ir.ReferenceTarget
	typ    typesystem.Type
	fn     *ir.SimpleFunction
}

// descriptorTarget is a reference to a member that has no IR in this
// module.
type descriptorTarget struct {
	d    descriptors.DeclarationDescriptor
	kind symbols.Kind
}

func (t descriptorTarget) Kind() symbols.Kind { return t.kind }
func (t descriptorTarget) IsBound() bool      { return true }
func (t descriptorTarget) String() string {
	return t.kind.String() + " " + descriptors.FqNameOf(t.d).String()
}

// Descriptor returns the descriptor the reference resolved to.
func (t descriptorTarget) Descriptor() descriptors.DeclarationDescriptor { return t.d }

type dynamicTarget struct{ name names.Name }

func (t dynamicTarget) Kind() symbols.Kind { return symbols.FunctionKind }
func (t dynamicTarget) IsBound() bool      { return true }
func (t dynamicTarget) String() string     { return "dynamic " + string(t.name) }

// resolveBody resolves the body of d and returns the type of d. Body
// resolution of one declaration may request the type of another, which
// resolves that body first.
func (rs *Session) resolveBody(d ir.CallableDeclaration) (typesystem.Type, error) {
	br := rs.newBodyResolver(d)
	switch d := d.(type) {
	case *ir.Property:
		br.propertyInitializer(d)
	case ir.FunctionLike:
		br.function(d)
	}
	t, ok := ir.ConeType(d.ReturnTypeRef())
	if !ok {
		return typesystem.TError{Reason: "type of " + string(d.Name()) + " is not resolved"}, nil
	}
	return t, nil
}

// returnType returns the type of d, resolving its body first when the type
// is inferred from it. A cycle of inferred types yields an error type and
// is reported once per declaration.
func (rs *Session) returnType(d ir.CallableDeclaration) typesystem.Type {
	if _, ok := rs.pending.Load(d); !ok {
		if t, ok := ir.ConeType(d.ReturnTypeRef()); ok {
			return t
		}
	}
	t, err := rs.bodies.Get(d)
	if err == nil {
		return t
	}
	if errors.Is(err, lazy.ErrRecursiveComputation) {
		if _, seen := rs.recursions.LoadOrStore(d, true); !seen {
			rs.Report(diagnostics.NewError(diagnostics.ErrR003, d.Pos(),
				fmt.Sprintf("type checking has run into a recursive problem: type of %s depends on itself", d.Name())))
		}
		return typesystem.TError{Reason: names.RecursionDetected.String()}
	}
	return typesystem.TError{Reason: err.Error()}
}

// lexicalOfCallable is lexicalOf for callables that are not collected
// themselves: accessors share the context of their property.
func (rs *Session) lexicalOfCallable(d ir.CallableDeclaration) *lexical {
	if a, ok := d.(*ir.PropertyAccessor); ok {
		return rs.lexicalOf(a.PropertySymbol().Owner())
	}
	return rs.lexicalOf(d)
}

type bodyResolver struct {
	rs         *Session
	decl       ir.CallableDeclaration
	lex        *lexical
	ts         typeScope
	scope      *symbols.Scope[local]
	returns    []typesystem.Type
	qualifiers map[ir.Expression]names.ClassID
	types      *typesystem.Checker
}

func (rs *Session) newBodyResolver(d ir.CallableDeclaration) *bodyResolver {
	lex := rs.lexicalOfCallable(d)
	ts := classScope(lex)
	if a, ok := d.(*ir.PropertyAccessor); ok {
		ts = ts.withParams(a.PropertySymbol().Owner().TypeParameters())
	}
	return &bodyResolver{
		rs:         rs,
		decl:       d,
		lex:        lex,
		ts:         ts.withParams(d.TypeParameters()),
		scope:      symbols.NewScope[local](symbols.ScopeClass),
		qualifiers: make(map[ir.Expression]names.ClassID),
		types:      typesystem.NewChecker(descriptors.ClassInfoFunc(rs.Module)),
	}
}

func (br *bodyResolver) report(code diagnostics.ErrorCode, pos diagnostics.Position, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	br.rs.Report(diagnostics.NewError(code, pos, msg))
	return msg
}

// function resolves parameters, the delegated constructor call and the
// body of fl, then builds its control-flow graph.
func (br *bodyResolver) function(fl ir.FunctionLike) {
	_, pending := br.rs.pending.Load(br.decl)
	if a, ok := fl.(*ir.PropertyAccessor); ok {
		prop := a.PropertySymbol().Owner()
		propType := br.rs.returnType(prop)
		if pending {
			if a.IsGetter() {
				a.ReplaceReturnTypeRef(typeRefOf(a.Pos(), propType))
			} else {
				for _, v := range a.ValueParameters() {
					if isImplicit(v.ReturnTypeRef()) {
						v.ReplaceReturnTypeRef(typeRefOf(v.Pos(), propType))
					}
				}
			}
		}
		br.scope.Define(fieldName, local{target: prop.Symbol(), typ: propType})
	}

	br.scope = symbols.NewEnclosedScope(br.scope, symbols.ScopeFunction)
	br.parameters(fl.ValueParameters())
	if c, ok := fl.(*ir.Constructor); ok {
		br.delegatedCall(c)
	}
	if body := fl.Body(); body != nil {
		br.expr(body)
		br.rs.buildCFG(fl, br.decl.Symbol().ID.String())
	}

	if f, ok := fl.(*ir.SimpleFunction); ok && pending {
		t := typesystem.UnitType()
		if len(br.returns) > 0 {
			t = br.returns[0]
		}
		f.ReplaceReturnTypeRef(typeRefOf(f.Pos(), t))
	}
}

func (br *bodyResolver) parameters(params []*ir.ValueParameter) {
	for _, p := range params {
		if def := p.DefaultValue(); def != nil {
			br.expr(def)
		}
		t := valueParameterType(p)
		if p.IsVararg() {
			t = typesystem.Simple(arrayID, t)
		}
		if !br.scope.Define(p.Name(), local{target: p.Symbol(), typ: t}) {
			br.report(diagnostics.ErrR001, p.Pos(), "conflicting declarations: value parameter %s", p.Name())
		}
	}
}

// valueParameterType is the declared type of p, the element type for varargs.
func valueParameterType(p *ir.ValueParameter) typesystem.Type {
	t, ok := ir.ConeType(p.ReturnTypeRef())
	if !ok {
		return typesystem.TError{Reason: "parameter type is not resolved"}
	}
	return t
}

// propertyInitializer resolves the initializer of a member or top-level
// property. Parameters of the primary constructor are in scope.
func (br *bodyResolver) propertyInitializer(p *ir.Property) {
	if owner := br.lex.owner(); owner != nil {
		for _, m := range owner.Declarations() {
			if c, ok := m.(*ir.Constructor); ok && c.IsPrimary() {
				for _, v := range c.ValueParameters() {
					br.scope.Define(v.Name(), local{target: v.Symbol(), typ: valueParameterType(v)})
				}
			}
		}
	}
	init := p.Initializer()
	if init == nil {
		return
	}
	t := br.expr(init)
	if _, ok := br.rs.pending.Load(ir.CallableDeclaration(p)); ok {
		p.ReplaceReturnTypeRef(typeRefOf(p.Pos(), t))
	}
}

// delegatedCall resolves this(...) or super(...) against the constructors
// of the class it names.
func (br *bodyResolver) delegatedCall(c *ir.Constructor) {
	dc := c.DelegatedConstructor()
	if dc == nil {
		return
	}
	args := br.arguments(dc.Arguments)
	owner := br.lex.owner()
	var target typesystem.Type = defaultType(owner)
	if dc.IsSuper {
		if dc.ConstructedTypeRef != nil {
			dc.ConstructedTypeRef = br.rs.resolveTypeRef(br.ts, dc.ConstructedTypeRef)
			target, _ = ir.ConeType(dc.ConstructedTypeRef)
		} else {
			target = br.superclassType(owner)
		}
	}
	var levels [][]candidate
	if id, ok := typesystem.ClassIDOf(target); ok {
		levels = append(levels, br.constructorCandidates(id))
	}
	br.choose(dc, levels, args, true)
	br.setType(dc, typesystem.UnitType())
}

// superclassType returns the class supertype of c, or Any.
func (br *bodyResolver) superclassType(c ir.Class) typesystem.Type {
	for _, st := range supertypesOf(c) {
		id, ok := typesystem.ClassIDOf(st)
		if !ok {
			continue
		}
		if cd := br.rs.classDescriptor(id); cd != nil && cd.Kind() != descriptors.KindInterface {
			return st
		}
	}
	return typesystem.AnyType()
}

func (br *bodyResolver) arguments(args []ir.Expression) []typesystem.Type {
	out := make([]typesystem.Type, len(args))
	for i, a := range args {
		out[i] = br.expr(a)
	}
	return out
}

func typeRefOf(pos diagnostics.Position, t typesystem.Type) ir.TypeRef {
	if e, ok := t.(typesystem.TError); ok {
		return &ir.ErrorTypeRef{Source: pos, Reason: e.Reason}
	}
	return &ir.ResolvedTypeRef{Source: pos, Type: t}
}

func (br *bodyResolver) setType(e ir.Expression, t typesystem.Type) {
	e.ReplaceTypeRef(typeRefOf(e.Pos(), t))
}

// expr resolves e and stores its type.
func (br *bodyResolver) expr(e ir.Expression) typesystem.Type {
	var t typesystem.Type
	switch e := e.(type) {
	case *ir.Block:
		t = br.block(e)
	case *ir.ConstExpression:
		t = constType(e)
	case *ir.QualifiedAccessExpression:
		t = br.access(e)
	case *ir.FunctionCall:
		t = br.call(e)
	case *ir.ReturnExpression:
		rt := typesystem.UnitType()
		if e.Result != nil {
			rt = br.expr(e.Result)
		}
		br.returns = append(br.returns, rt)
		t = typesystem.NothingType()
	case *ir.ErrorExpression:
		t = typesystem.TError{Reason: e.Reason}
	default:
		t = typesystem.TError{Reason: fmt.Sprintf("unsupported expression %T", e)}
	}
	br.setType(e, t)
	return t
}

// block resolves statements in a nested scope. Its type is the type of the
// last statement, Unit for declarations.
func (br *bodyResolver) block(b *ir.Block) typesystem.Type {
	outer := br.scope
	br.scope = symbols.NewEnclosedScope(outer, symbols.ScopeBlock)
	defer func() { br.scope = outer }()

	t := typesystem.UnitType()
	for _, st := range b.Statements {
		switch st := st.(type) {
		case *ir.Property:
			br.localProperty(st)
			t = typesystem.UnitType()
		case *ir.SimpleFunction:
			br.localFunction(st)
			t = typesystem.UnitType()
		case ir.Expression:
			t = br.expr(st)
		default:
			br.report(diagnostics.ErrR003, st.Pos(), "local %T is not supported", st)
			t = typesystem.UnitType()
		}
	}
	return t
}

func (br *bodyResolver) define(n names.Name, pos diagnostics.Position, l local) {
	if !br.scope.Define(n, l) {
		br.report(diagnostics.ErrR001, pos, "conflicting declarations: %s", n)
	}
}

func (br *bodyResolver) localProperty(p *ir.Property) {
	var t typesystem.Type
	if init := p.Initializer(); init != nil {
		t = br.expr(init)
	}
	switch {
	case !isImplicit(p.ReturnTypeRef()):
		ref := br.rs.resolveTypeRef(br.ts, p.ReturnTypeRef())
		p.ReplaceReturnTypeRef(ref)
		t, _ = ir.ConeType(ref)
	case t == nil:
		msg := br.report(diagnostics.ErrR003, p.Pos(), "local variable %s must have a type or an initializer", p.Name())
		t = typesystem.TError{Reason: msg}
		p.ReplaceReturnTypeRef(typeRefOf(p.Pos(), t))
	default:
		p.ReplaceReturnTypeRef(typeRefOf(p.Pos(), t))
	}
	br.define(p.Name(), p.Pos(), local{target: p.Symbol(), typ: t})
}

// localFunction resolves a function declared in a body. A local function
// with an inferred type is visible after its body only.
func (br *bodyResolver) localFunction(f *ir.SimpleFunction) {
	ts := br.ts.withParams(f.TypeParameters())
	br.rs.resolveBounds(ts, f.TypeParameters())
	if r := f.ReceiverTypeRef(); r != nil {
		f.ReplaceReceiverTypeRef(br.rs.resolveTypeRef(ts, r))
	}
	for _, p := range f.ValueParameters() {
		br.rs.parameterType(ts, p)
	}
	infer := isImplicit(f.ReturnTypeRef()) && isExpressionBody(f.Body())
	if !infer {
		if isImplicit(f.ReturnTypeRef()) {
			f.ReplaceReturnTypeRef(&ir.ResolvedTypeRef{Source: f.Pos(), Type: typesystem.UnitType()})
		} else {
			f.ReplaceReturnTypeRef(br.rs.resolveTypeRef(ts, f.ReturnTypeRef()))
		}
		br.define(f.Name(), f.Pos(), local{target: f.Symbol(), fn: f})
	}

	outerScope, outerTS, outerReturns := br.scope, br.ts, br.returns
	br.scope = symbols.NewEnclosedScope(outerScope, symbols.ScopeFunction)
	br.ts, br.returns = ts, nil
	br.parameters(f.ValueParameters())
	if body := f.Body(); body != nil {
		br.expr(body)
		br.rs.buildCFG(f, string(f.Name()))
	}
	returns := br.returns
	br.scope, br.ts, br.returns = outerScope, outerTS, outerReturns

	if infer {
		t := typesystem.UnitType()
		if len(returns) > 0 {
			t = returns[0]
		}
		f.ReplaceReturnTypeRef(typeRefOf(f.Pos(), t))
		br.define(f.Name(), f.Pos(), local{target: f.Symbol(), fn: f})
	}
}

func (br *bodyResolver) access(e *ir.QualifiedAccessExpression) typesystem.Type {
	var recv typesystem.Type
	if e.ExplicitReceiver != nil {
		recv = br.expr(e.ExplicitReceiver)
	}
	return br.resolveCallee(e, recv, nil, false)
}

func (br *bodyResolver) call(e *ir.FunctionCall) typesystem.Type {
	var recv typesystem.Type
	if e.ExplicitReceiver != nil {
		recv = br.expr(e.ExplicitReceiver)
	}
	args := br.arguments(e.Arguments)
	return br.resolveCallee(e, recv, args, true)
}

// explicitReceiver returns the receiver expression of a qualified access.
func explicitReceiver(e ir.Callee) ir.Expression {
	switch e := e.(type) {
	case *ir.QualifiedAccessExpression:
		return e.ExplicitReceiver
	case *ir.FunctionCall:
		return e.ExplicitReceiver
	}
	return nil
}

func (br *bodyResolver) resolveCallee(e ir.Callee, recv typesystem.Type, args []typesystem.Type, call bool) typesystem.Type {
	name := e.CalleeReference().ReferencedName()
	recvExpr := explicitReceiver(e)
	var levels [][]candidate
	switch {
	case recvExpr == nil:
		levels = br.implicitLevels(name, call)
	default:
		if id, ok := br.qualifiers[recvExpr]; ok {
			levels = br.qualifierLevels(id, name, call)
			break
		}
		switch recv.(type) {
		case typesystem.TError:
			e.ReplaceCalleeReference(&ir.ErrorNamedReference{Source: e.CalleeReference().Pos(), Name: name, Reason: "receiver has an error type"})
			return typesystem.TError{Reason: "receiver has an error type"}
		case typesystem.TDynamic:
			e.ReplaceCalleeReference(&ir.ResolvedNamedReference{Source: e.CalleeReference().Pos(), Name: name, Target: dynamicTarget{name: name}})
			return typesystem.TDynamic{}
		}
		levels = br.receiverLevels(recv, name, call)
	}

	if !call && !hasCandidates(levels) {
		if t, ok := br.qualifier(e, recvExpr, name); ok {
			return t
		}
	}
	return br.choose(e, levels, args, call)
}

func hasCandidates(levels [][]candidate) bool {
	for _, l := range levels {
		if len(l) > 0 {
			return true
		}
	}
	return false
}

// choose picks the first applicable candidate, level by level, and
// records it as the callee.
func (br *bodyResolver) choose(e ir.Callee, levels [][]candidate, args []typesystem.Type, call bool) typesystem.Type {
	ref := e.CalleeReference()
	var inapplicable int
	for _, level := range levels {
		for _, c := range level {
			if call && !c.accepts(len(args)) {
				inapplicable++
				continue
			}
			e.ReplaceCalleeReference(&ir.ResolvedNamedReference{Source: ref.Pos(), Name: ref.ReferencedName(), Target: c.target})
			return c.resultType(args)
		}
	}
	var msg string
	if inapplicable > 0 {
		msg = br.report(diagnostics.ErrR004, ref.Pos(),
			"none of the %d candidates for %s is applicable to %d arguments", inapplicable, ref.ReferencedName(), len(args))
	} else {
		msg = br.report(diagnostics.ErrR004, ref.Pos(), "unresolved reference: %s", ref.ReferencedName())
	}
	e.ReplaceCalleeReference(&ir.ErrorNamedReference{Source: ref.Pos(), Name: ref.ReferencedName(), Reason: msg})
	return typesystem.TError{Reason: msg}
}

// qualifier resolves a name that denotes a class. Its type is the object
// type for objects, the companion type for classes with a companion and
// Unit otherwise.
func (br *bodyResolver) qualifier(e ir.Callee, recv ir.Expression, name names.Name) (typesystem.Type, bool) {
	var c classifier
	var ok bool
	if recv == nil {
		c, ok = br.rs.simpleClassifier(br.lex, name)
	} else if outer, isQualifier := br.qualifiers[recv]; isQualifier {
		c, ok = br.rs.classifierByID(outer.Nested(name))
	}
	if !ok || c.alias != nil {
		return nil, false
	}
	cd := br.rs.classDescriptor(c.id)
	if cd == nil {
		return nil, false
	}
	br.qualifiers[e] = c.id
	e.ReplaceCalleeReference(&ir.ResolvedNamedReference{Source: e.CalleeReference().Pos(), Name: name, Target: br.rs.classTarget(cd)})
	switch {
	case cd.Kind() == descriptors.KindObject:
		return cd.DefaultType(), true
	case cd.CompanionObjectDescriptor() != nil:
		return cd.CompanionObjectDescriptor().DefaultType(), true
	}
	return typesystem.UnitType(), true
}

func (rs *Session) classTarget(cd descriptors.ClassDescriptor) ir.ReferenceTarget {
	if sc, ok := cd.(*SourceClass); ok {
		return sc.decl.Symbol()
	}
	return descriptorTarget{d: cd, kind: symbols.ClassKind}
}

// implicitLevels lists what an unqualified name can refer to, nearest
// first: locals, members of the enclosing classes and their supertypes,
// constructors, top-level members of the file package, imports and the
// built-in package.
func (br *bodyResolver) implicitLevels(name names.Name, call bool) [][]candidate {
	var levels [][]candidate
	if l, ok := br.scope.Find(name); ok {
		if c, ok := l.candidate(br.rs, call); ok {
			levels = append(levels, []candidate{c})
		}
	}
	if !call && name == thisName {
		if owner := br.lex.owner(); owner != nil {
			levels = append(levels, []candidate{{target: owner.Symbol(), typ: constant(defaultType(owner))}})
		}
	}
	var receivers []typesystem.Type
	for i := len(br.lex.classes) - 1; i >= 0; i-- {
		c := br.lex.classes[i]
		receivers = append(receivers, defaultType(c))
		levels = append(levels, br.classLevels(c, name, call)...)
		if rc, ok := c.(*ir.RegularClass); ok {
			if comp := rc.Companion(); comp != nil && comp != rc {
				levels = append(levels, br.classLevels(comp, name, call)...)
			}
		}
	}
	if call {
		if c, ok := br.rs.simpleClassifier(br.lex, name); ok {
			if c.alias != nil {
				if id, ok := typesystem.ClassIDOf(br.rs.AliasExpansion(c.alias)); ok {
					c.id = id
				}
			}
			levels = append(levels, br.constructorCandidates(c.id))
		}
	}
	accept := func(r typesystem.Type) bool {
		if r == nil {
			return true
		}
		for _, t := range receivers {
			if br.extensionApplies(t, r) {
				return true
			}
		}
		return false
	}
	return append(levels, br.topLevels(name, call, accept)...)
}

// classLevels returns the members of c named name: declared ones first,
// then those of each supertype.
func (br *bodyResolver) classLevels(c ir.Class, name names.Name, call bool) [][]candidate {
	var declared []candidate
	for _, m := range c.Declarations() {
		switch m := m.(type) {
		case *ir.SimpleFunction:
			if call && m.Name() == name {
				declared = append(declared, br.rs.irCandidate(m))
			}
		case *ir.Property:
			if !call && m.Name() == name {
				declared = append(declared, br.rs.irCandidate(m))
			}
		case *ir.EnumEntry:
			if !call && m.Name() == name {
				declared = append(declared, br.rs.irCandidate(m))
			}
		}
	}
	levels := [][]candidate{declared}
	for _, st := range supertypesOf(c) {
		levels = append(levels, br.memberCandidates(st, name, call))
	}
	return levels
}

// qualifierLevels lists what C.name can refer to: enum entries, nested
// class constructors and members of the object or companion.
func (br *bodyResolver) qualifierLevels(id names.ClassID, name names.Name, call bool) [][]candidate {
	var levels [][]candidate
	cd := br.rs.classDescriptor(id)
	if cd == nil {
		return nil
	}
	if call {
		levels = append(levels, br.constructorCandidates(id.Nested(name)))
	} else if entry := br.enumEntry(id, cd, name); entry != nil {
		levels = append(levels, []candidate{*entry})
	}
	if cd.Kind() == descriptors.KindObject {
		levels = append(levels, br.memberCandidates(cd.DefaultType(), name, call))
	}
	if comp := cd.CompanionObjectDescriptor(); comp != nil {
		levels = append(levels, br.memberCandidates(comp.DefaultType(), name, call))
	}
	return levels
}

type enumEntryFinder interface {
	FindEnumEntry(name names.Name) descriptors.ClassDescriptor
}

func (br *bodyResolver) enumEntry(id names.ClassID, cd descriptors.ClassDescriptor, name names.Name) *candidate {
	if cd.Kind() != descriptors.KindEnumClass {
		return nil
	}
	if d, ok := br.rs.Class(id); ok {
		if rc, ok := d.(*ir.RegularClass); ok {
			for _, m := range rc.Declarations() {
				if e, ok := m.(*ir.EnumEntry); ok && e.Name() == name {
					c := br.rs.irCandidate(e)
					return &c
				}
			}
		}
		return nil
	}
	f, ok := cd.(enumEntryFinder)
	if !ok {
		return nil
	}
	entry := f.FindEnumEntry(name)
	if entry == nil {
		return nil
	}
	return &candidate{target: descriptorTarget{d: entry, kind: symbols.EnumEntryKind}, typ: constant(cd.DefaultType())}
}

// receiverLevels lists the members of recv named name, then the extensions
// applicable to recv.
func (br *bodyResolver) receiverLevels(recv typesystem.Type, name names.Name, call bool) [][]candidate {
	levels := [][]candidate{br.memberCandidates(recv, name, call)}
	accept := func(r typesystem.Type) bool {
		return r != nil && br.extensionApplies(recv, r)
	}
	return append(levels, br.topLevels(name, call, accept)...)
}

// topLevels lists top-level callables named name visible from the file.
// accept filters by extension receiver type, nil for non-extensions.
func (br *bodyResolver) topLevels(name names.Name, call bool, accept func(typesystem.Type) bool) [][]candidate {
	var levels [][]candidate
	file := br.lex.file

	var own []candidate
	if pm, ok := br.rs.packages[file.PackageFqName]; ok {
		if call {
			for _, f := range pm.functions[name] {
				if accept(receiverOf(f)) {
					own = append(own, br.rs.irCandidate(f))
				}
			}
		} else {
			for _, p := range pm.properties[name] {
				if accept(receiverOf(p)) {
					own = append(own, br.rs.irCandidate(p))
				}
			}
		}
	}
	levels = append(levels, own)

	fromScope := func(scope descriptors.MemberScope, n names.Name) []candidate {
		var out []candidate
		if call {
			for _, f := range scope.ContributedFunctions(n) {
				if accept(f.ExtensionReceiverType()) {
					out = append(out, br.rs.descriptorCandidate(f, nil))
				}
			}
		} else {
			for _, p := range scope.ContributedProperties(n) {
				if accept(p.ExtensionReceiverType()) {
					out = append(out, br.rs.descriptorCandidate(p, nil))
				}
			}
		}
		return out
	}
	module := br.rs.Module
	for _, imp := range file.Imports {
		if imp.FqName.ShortName() == starImport {
			continue
		}
		alias := imp.Alias
		if alias == "" {
			alias = imp.FqName.ShortName()
		}
		if alias == name {
			levels = append(levels, fromScope(module.Package(imp.FqName.Parent()).MemberScope(), imp.FqName.ShortName()))
		}
	}
	levels = append(levels, fromScope(module.Package(file.PackageFqName).MemberScope(), name))
	for _, imp := range file.Imports {
		if imp.FqName.ShortName() == starImport {
			levels = append(levels, fromScope(module.Package(imp.FqName.Parent()).MemberScope(), name))
		}
	}
	levels = append(levels, fromScope(module.Package(builtinsPackage).MemberScope(), name))
	return levels
}

func receiverOf(d ir.CallableDeclaration) typesystem.Type {
	t, _ := ir.ConeType(d.ReceiverTypeRef())
	return t
}

// memberCandidates returns the members of t named name with t's type
// arguments substituted into their signatures.
func (br *bodyResolver) memberCandidates(t typesystem.Type, name names.Name, call bool) []candidate {
	ct, ok := t.(typesystem.TClass)
	if !ok {
		if _, isParam := t.(typesystem.TParam); !isParam {
			return nil
		}
		ct = typesystem.TClass{ID: typesystem.AnyID}
	}
	cd := br.rs.classDescriptor(ct.ID)
	if cd == nil {
		return nil
	}
	subst := typesystem.NewSubst(parameterKeys(cd.TypeConstructor().Parameters()), ct.Args)
	scope := cd.UnsubstitutedMemberScope()
	var out []candidate
	if call {
		for _, f := range scope.ContributedFunctions(name) {
			out = append(out, br.rs.descriptorCandidate(f, subst))
		}
		return out
	}
	for _, p := range scope.ContributedProperties(name) {
		out = append(out, br.rs.descriptorCandidate(p, subst))
	}
	return out
}

func (br *bodyResolver) constructorCandidates(id names.ClassID) []candidate {
	cd := br.rs.classDescriptor(id)
	if cd == nil {
		return nil
	}
	var out []candidate
	keys := parameterKeys(cd.DeclaredTypeParameters())
	for _, ctor := range cd.Constructors() {
		c := candidate{target: br.rs.constructorTarget(ctor), keys: keys, typ: constant(cd.DefaultType()), starUnbound: true}
		c.setParameters(ctor.ValueParameters(), nil)
		out = append(out, c)
	}
	return out
}

func (rs *Session) constructorTarget(ctor descriptors.ConstructorDescriptor) ir.ReferenceTarget {
	if s, ok := ctor.(*sourceConstructor); ok && s.decl != nil {
		return s.decl.Symbol()
	}
	return descriptorTarget{d: ctor, kind: symbols.ConstructorKind}
}

// extensionApplies reports whether an extension on r can be called on a
// value of type t.
func (br *bodyResolver) extensionApplies(t, r typesystem.Type) bool {
	switch r := r.(type) {
	case typesystem.TParam:
		return true
	case typesystem.TClass:
		if t.IsNullable() && !r.Nullable {
			return false
		}
		if br.types.IsSubtype(typesystem.WithNullability(t, false), typesystem.WithNullability(r, false)) {
			return true
		}
		tid, ok := typesystem.ClassIDOf(t)
		if !ok {
			return false
		}
		sub, super := br.rs.classDescriptor(tid), br.rs.classDescriptor(r.ID)
		return sub != nil && super != nil && descriptors.IsSubclassOf(sub, super)
	}
	return false
}

func parameterKeys(params []descriptors.TypeParameterDescriptor) []string {
	keys := make([]string, len(params))
	for i, p := range params {
		keys[i] = p.Key()
	}
	return keys
}

func constant(t typesystem.Type) func() typesystem.Type {
	return func() typesystem.Type { return t }
}

// candidate is something a name may resolve to.
type candidate struct {
	target ir.ReferenceTarget
	typ    func() typesystem.Type
	params []typesystem.Type
	min    int
	// max is -1 with a vararg parameter.
	max int
	// keys are the type parameters inferred from the arguments.
	keys []string
	// starUnbound replaces type parameters left unbound by star projections.
	starUnbound bool
}

func (c candidate) accepts(n int) bool {
	return n >= c.min && (c.max < 0 || n <= c.max)
}

func (c *candidate) setParameters(params []descriptors.ValueParameterDescriptor, subst typesystem.Subst) {
	c.max = len(params)
	for _, p := range params {
		t := p.Type()
		if v := p.VarargElementType(); v != nil {
			t = v
			c.max = -1
		} else if !p.DeclaresDefaultValue() {
			c.min++
		}
		c.params = append(c.params, t.Apply(subst))
	}
}

func (c candidate) paramAt(i int) typesystem.Type {
	switch {
	case i < len(c.params):
		return c.params[i]
	case c.max < 0 && len(c.params) > 0:
		return c.params[len(c.params)-1]
	}
	return nil
}

// resultType is the candidate type with type parameters bound from the
// argument types.
func (c candidate) resultType(args []typesystem.Type) typesystem.Type {
	t := c.typ()
	if len(c.keys) == 0 {
		return t
	}
	keys := make(map[string]bool, len(c.keys))
	for _, k := range c.keys {
		keys[k] = true
	}
	bound := typesystem.Subst{}
	for i, a := range args {
		if p := c.paramAt(i); p != nil {
			// A mismatch leaves the parameter to the next argument or unbound.
			_ = typesystem.Unify(p, a, keys, bound)
		}
	}
	t = t.Apply(bound)
	if ct, ok := t.(typesystem.TClass); ok && c.starUnbound {
		ct.Args = append([]typesystem.Projection(nil), ct.Args...)
		for i, a := range ct.Args {
			if p, ok := a.Type.(typesystem.TParam); ok && keys[p.Key] {
				ct.Args[i] = typesystem.StarProjection
			}
		}
		t = ct
	}
	return t
}

// candidate returns how a local is used as a value or called.
func (l local) candidate(rs *Session, call bool) (candidate, bool) {
	switch {
	case l.fn != nil:
		if !call {
			return candidate{}, false
		}
		return rs.irCandidate(l.fn), true
	case !call:
		return candidate{target: l.target, typ: constant(l.typ)}, true
	}
	return invokeCandidate(l.target, l.typ)
}

// invokeCandidate calls a value of function type.
func invokeCandidate(target ir.ReferenceTarget, t typesystem.Type) (candidate, bool) {
	ct, ok := t.(typesystem.TClass)
	if !ok || ct.Nullable {
		return candidate{}, false
	}
	if _, ok := typesystem.FunctionArity(ct.ID); !ok || len(ct.Args) == 0 {
		return candidate{}, false
	}
	c := candidate{target: target, typ: constant(ct.Args[len(ct.Args)-1].Type)}
	for _, a := range ct.Args[:len(ct.Args)-1] {
		c.params = append(c.params, a.Type)
	}
	c.min, c.max = len(c.params), len(c.params)
	return c, true
}

// irCandidate is a candidate for a source declaration of this module.
func (rs *Session) irCandidate(d ir.CallableDeclaration) candidate {
	c := candidate{target: d.Symbol(), typ: func() typesystem.Type { return rs.returnType(d) }}
	for _, p := range d.TypeParameters() {
		c.keys = append(c.keys, p.Key())
	}
	fl, ok := d.(ir.FunctionLike)
	if !ok {
		return c
	}
	c.max = len(fl.ValueParameters())
	for _, p := range fl.ValueParameters() {
		switch {
		case p.IsVararg():
			c.max = -1
		case p.DefaultValue() == nil:
			c.min++
		}
		c.params = append(c.params, valueParameterType(p))
	}
	return c
}

// descriptorCandidate is a candidate for a member descriptor. Members of
// source classes refer back to their IR.
func (rs *Session) descriptorCandidate(m descriptors.CallableMemberDescriptor, subst typesystem.Subst) candidate {
	ret := m.ReturnType()
	c := candidate{target: rs.memberTarget(m), typ: constant(ret.Apply(subst))}
	c.keys = parameterKeys(m.TypeParameters())
	c.setParameters(m.ValueParameters(), subst)
	return c
}

// sourceDeclaration is implemented by descriptors backed by IR of this
// module.
type sourceDeclaration interface {
	Declaration() ir.CallableDeclaration
}

func (rs *Session) memberTarget(m descriptors.CallableMemberDescriptor) ir.ReferenceTarget {
	real := m
	if m.Kind() == descriptors.FakeOverride {
		if decls := descriptors.OverriddenDeclarations(m); len(decls) > 0 {
			real = decls[0]
		}
	}
	if s, ok := real.(sourceDeclaration); ok {
		return s.Declaration().Symbol()
	}
	kind := symbols.FunctionKind
	if _, ok := real.(descriptors.PropertyDescriptor); ok {
		kind = symbols.PropertyKind
	}
	return descriptorTarget{d: real, kind: kind}
}

// buildCFG builds the graph of a function body: one node per statement
// between enter and exit. Returns and expressions of type Nothing jump to
// exit; statements not reachable from enter are dead and the first of them
// is reported.
func (rs *Session) buildCFG(fl ir.FunctionLike, name string) {
	owner, ok := fl.(ir.ControlFlowGraphOwner)
	if !ok || fl.Body() == nil {
		return
	}
	stmts := fl.Body().Statements
	g := &ir.ControlFlowGraph{Name: name}
	g.Nodes = append(g.Nodes, &ir.CFGNode{ID: 0, Kind: ir.CFGEnter})
	for i, st := range stmts {
		kind := ir.CFGStatement
		if jumps(st) {
			kind = ir.CFGJump
		}
		g.Nodes = append(g.Nodes, &ir.CFGNode{ID: i + 1, Kind: kind, Element: st})
	}
	exit := len(stmts) + 1
	g.Nodes = append(g.Nodes, &ir.CFGNode{ID: exit, Kind: ir.CFGExit})
	for _, n := range g.Nodes[:exit] {
		if n.Kind == ir.CFGJump {
			n.Next = []int{exit}
		} else {
			n.Next = []int{n.ID + 1}
		}
	}

	reached := make([]bool, len(g.Nodes))
	queue := []int{0}
	reached[0] = true
	for len(queue) > 0 {
		n := g.Nodes[queue[0]]
		queue = queue[1:]
		for _, next := range n.Next {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	for i, n := range g.Nodes {
		n.Dead = !reached[i]
	}
	if dead := g.DeadNodes(); len(dead) > 0 {
		rs.Report(diagnostics.NewWarning(diagnostics.ErrR007, dead[0].Element.Pos(), "unreachable code"))
	}
	owner.ReplaceControlFlowGraphReference(&ir.ControlFlowGraphReference{Graph: g})
}

func jumps(st ir.Statement) bool {
	e, ok := st.(ir.Expression)
	if !ok {
		return false
	}
	if _, ok := e.(*ir.ReturnExpression); ok {
		return true
	}
	t, _ := ir.ConeType(e.TypeRef())
	ct, ok := t.(typesystem.TClass)
	return ok && ct.ID == typesystem.NothingID && !ct.Nullable
}

// resolveBodies resolves every body of f that was not resolved yet on
// request of another file.
func (rs *Session) resolveBodies(f *ir.File) {
	ir.Inspect(f, func(e ir.Element) bool {
		switch d := e.(type) {
		case ir.Expression, *ir.ValueParameter:
			return false
		case ir.CallableDeclaration:
			if _, err := rs.bodies.Get(d); err != nil {
				rs.Logger.Debug("body not resolved", "declaration", d.Symbol().ID.String(), "error", err)
			}
		}
		return true
	})
	rs.Metrics.FileResolved()
}
