package ir

import (
	"slices"
	"sync/atomic"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/symbols"
	"github.com/funvibe/semcore/internal/typesystem"
)

type (
	ClassSymbol         = symbols.ClassLikeSymbol[ClassLikeDeclaration]
	CallableSymbol      = symbols.CallableSymbol[CallableDeclaration]
	TypeParameterSymbol = symbols.Symbol[*TypeParameter]
)

// Declaration is any declaration node. The set of implementations is closed.
type Declaration interface {
	Element
	Session() *session.Session
	Origin() Origin
	Annotations() []*Annotation
	ReplaceAnnotations(a []*Annotation)
	ResolvePhase() ResolvePhase
	ReplaceResolvePhase(p ResolvePhase)
	AdvancePhase(p ResolvePhase) error
	declarationNode()
}

type MemberDeclaration interface {
	Declaration
	Status() DeclarationStatus
	ReplaceStatus(s DeclarationStatus)
}

type TypeParametersOwner interface {
	TypeParameters() []*TypeParameter
}

type ClassLikeDeclaration interface {
	MemberDeclaration
	TypeParametersOwner
	Symbol() *ClassSymbol
	Name() names.Name
}

// Class is a class-like declaration with supertypes and members.
type Class interface {
	ClassLikeDeclaration
	ClassKind() descriptors.ClassKind
	SuperTypeRefs() []TypeRef
	ReplaceSuperTypeRefs(refs []TypeRef)
	Declarations() []Declaration
	SupertypesComputationStatus() SupertypesComputationStatus
	ReplaceSupertypesComputationStatus(s SupertypesComputationStatus)
}

type CallableDeclaration interface {
	MemberDeclaration
	TypeParametersOwner
	Symbol() *CallableSymbol
	Name() names.Name
	ReceiverTypeRef() TypeRef
	ReturnTypeRef() TypeRef
	ReplaceReturnTypeRef(ref TypeRef)
}

type FunctionLike interface {
	CallableDeclaration
	ControlFlowGraphOwner
	ValueParameters() []*ValueParameter
	Body() *Block
	ReplaceBody(b *Block)
}

type ControlFlowGraphOwner interface {
	ControlFlowGraphReference() *ControlFlowGraphReference
	ReplaceControlFlowGraphReference(ref *ControlFlowGraphReference)
}

type declaration struct {
	source      diagnostics.Position
	session     *session.Session
	origin      Origin
	phase       PhaseTracker
	annotations []*Annotation
}

func (d *declaration) Pos() diagnostics.Position          { return d.source }
func (d *declaration) Session() *session.Session          { return d.session }
func (d *declaration) Origin() Origin                     { return d.origin }
func (d *declaration) Annotations() []*Annotation         { return d.annotations }
func (d *declaration) ResolvePhase() ResolvePhase         { return d.phase.Phase() }
func (d *declaration) ReplaceResolvePhase(p ResolvePhase) { d.phase.ReplaceResolvePhase(p) }
func (d *declaration) AdvancePhase(p ResolvePhase) error  { return d.phase.Advance(p) }
func (d *declaration) ReplaceAnnotations(a []*Annotation) { d.annotations = a }
func (d *declaration) declarationNode()                   {}

type member struct {
	declaration
	status atomic.Pointer[DeclarationStatus]
}

func (m *member) Status() DeclarationStatus {
	if s := m.status.Load(); s != nil {
		return *s
	}
	return DeclarationStatus{}
}

// ReplaceStatus is allowed until the status phase is done.
func (m *member) ReplaceStatus(s DeclarationStatus) {
	if p := m.phase.Phase(); p > PhaseStatus {
		diagnostics.Invariantf("status replaced at phase %s", p)
	}
	m.status.Store(&s)
}

// File is the root of one source file.
type File struct {
	declaration
	Name          string
	PackageFqName names.FqName
	Imports       []Import
	Declarations  []Declaration
}

// Import is an import directive. An empty Alias keeps the short name.
type Import struct {
	FqName names.FqName
	Alias  names.Name
}

func (f *File) DeclarationName() string { return f.Name }

func (f *File) AcceptChildren(v Visitor, data any) {
	acceptAll(v, f.annotations, data)
	acceptAll(v, f.Declarations, data)
}

func (f *File) TransformChildren(t Transformer, data any) Element {
	f.annotations = transformList(t, f.annotations, data, "annotation")
	f.Declarations = transformList(t, f.Declarations, data, "declaration")
	return f
}

type classBase struct {
	member
	symbol           *ClassSymbol
	classKind        descriptors.ClassKind
	superTypeRefs    []TypeRef
	declarations     []Declaration
	supertypesStatus atomic.Int32
}

func (c *classBase) Symbol() *ClassSymbol             { return c.symbol }
func (c *classBase) ClassID() names.ClassID           { return c.symbol.ID }
func (c *classBase) ClassKind() descriptors.ClassKind { return c.classKind }
func (c *classBase) SuperTypeRefs() []TypeRef         { return slices.Clone(c.superTypeRefs) }
func (c *classBase) Declarations() []Declaration      { return c.declarations }
func (c *classBase) DeclarationName() string          { return c.symbol.ID.String() }

// ReplaceSuperTypeRefs replaces the whole supertype list. It is allowed
// until the supertype phase is done.
func (c *classBase) ReplaceSuperTypeRefs(refs []TypeRef) {
	if p := c.phase.Phase(); p > PhaseSuperTypes {
		diagnostics.Invariantf("supertypes of %s replaced at phase %s", c.symbol.ID, p)
	}
	c.superTypeRefs = slices.Clone(refs)
}

func (c *classBase) SupertypesComputationStatus() SupertypesComputationStatus {
	return SupertypesComputationStatus(c.supertypesStatus.Load())
}

func (c *classBase) ReplaceSupertypesComputationStatus(s SupertypesComputationStatus) {
	c.supertypesStatus.Store(int32(s))
}

// AddDeclaration appends a member declaration.
func (c *classBase) AddDeclaration(d Declaration) {
	c.declarations = append(c.declarations, d)
}

// RegularClass is a class, interface, enum class, annotation class or
// object declaration.
type RegularClass struct {
	classBase
	name       names.Name
	typeParams []*TypeParameter
	companion  *lazy.Value[*RegularClass]
}

func (c *RegularClass) Name() names.Name                 { return c.name }
func (c *RegularClass) TypeParameters() []*TypeParameter { return c.typeParams }
func (c *RegularClass) statementNode()                   {}

// Companion returns the companion object declared in the class, or nil.
func (c *RegularClass) Companion() *RegularClass {
	comp, err := c.companion.Get()
	if err != nil {
		return nil
	}
	return comp
}

func newCompanionValue(c *RegularClass) *lazy.Value[*RegularClass] {
	return lazy.NewValue(c.session.Storage, func() (*RegularClass, error) {
		for _, d := range c.declarations {
			if n, ok := d.(*RegularClass); ok && n.IsCompanion() {
				return n, nil
			}
		}
		return nil, nil
	}).Named("companion of " + c.symbol.ID.String())
}

func (c *RegularClass) IsCompanion() bool {
	return c.Status().Modifiers.Has(ModCompanion)
}

func (c *RegularClass) AcceptChildren(v Visitor, data any) {
	acceptAll(v, c.annotations, data)
	acceptAll(v, c.typeParams, data)
	acceptAll(v, c.superTypeRefs, data)
	acceptAll(v, c.declarations, data)
}

func (c *RegularClass) TransformChildren(t Transformer, data any) Element {
	c.annotations = transformList(t, c.annotations, data, "annotation")
	c.typeParams = transformList(t, c.typeParams, data, "type parameter")
	c.superTypeRefs = transformList(t, c.superTypeRefs, data, "supertype")
	c.declarations = transformList(t, c.declarations, data, "declaration")
	return c
}

// AnonymousObject is an object expression body or an enum entry body.
type AnonymousObject struct {
	classBase
}

func (o *AnonymousObject) Name() names.Name                 { return names.Anonymous }
func (o *AnonymousObject) TypeParameters() []*TypeParameter { return nil }

func (o *AnonymousObject) AcceptChildren(v Visitor, data any) {
	acceptAll(v, o.annotations, data)
	acceptAll(v, o.superTypeRefs, data)
	acceptAll(v, o.declarations, data)
}

func (o *AnonymousObject) TransformChildren(t Transformer, data any) Element {
	o.annotations = transformList(t, o.annotations, data, "annotation")
	o.superTypeRefs = transformList(t, o.superTypeRefs, data, "supertype")
	o.declarations = transformList(t, o.declarations, data, "declaration")
	return o
}

// TypeAlias is typealias Name<T> = Expanded.
type TypeAlias struct {
	member
	symbol          *ClassSymbol
	name            names.Name
	typeParams      []*TypeParameter
	expandedTypeRef TypeRef
}

func (a *TypeAlias) Symbol() *ClassSymbol             { return a.symbol }
func (a *TypeAlias) Name() names.Name                 { return a.name }
func (a *TypeAlias) TypeParameters() []*TypeParameter { return a.typeParams }
func (a *TypeAlias) ExpandedTypeRef() TypeRef         { return a.expandedTypeRef }
func (a *TypeAlias) DeclarationName() string          { return a.symbol.ID.String() }

func (a *TypeAlias) ReplaceExpandedTypeRef(ref TypeRef) {
	replaceTypeSlot(&a.expandedTypeRef, ref, "expanded type of "+a.symbol.ID.String())
}

func (a *TypeAlias) AcceptChildren(v Visitor, data any) {
	acceptAll(v, a.annotations, data)
	acceptAll(v, a.typeParams, data)
	accept(v, a.expandedTypeRef, data)
}

func (a *TypeAlias) TransformChildren(t Transformer, data any) Element {
	a.annotations = transformList(t, a.annotations, data, "annotation")
	a.typeParams = transformList(t, a.typeParams, data, "type parameter")
	a.expandedTypeRef = transformSingle(t, a.expandedTypeRef, data, "expanded type")
	return a
}

type callable struct {
	member
	symbol          *CallableSymbol
	containingClass *ClassSymbol
	typeParams      []*TypeParameter
	receiverTypeRef TypeRef
	returnTypeRef   TypeRef
}

func (c *callable) Symbol() *CallableSymbol          { return c.symbol }
func (c *callable) Name() names.Name                 { return c.symbol.ID.Callable }
func (c *callable) TypeParameters() []*TypeParameter { return c.typeParams }
func (c *callable) ReceiverTypeRef() TypeRef         { return c.receiverTypeRef }
func (c *callable) ReturnTypeRef() TypeRef           { return c.returnTypeRef }
func (c *callable) DeclarationName() string          { return c.symbol.ID.String() }

// ContainingClass returns the symbol of the class declaring this member, or
// nil for top-level and local callables.
func (c *callable) ContainingClass() *ClassSymbol { return c.containingClass }

func (c *callable) ReplaceReturnTypeRef(ref TypeRef) {
	replaceTypeSlot(&c.returnTypeRef, ref, "return type of "+c.symbol.ID.String())
}

func (c *callable) ReplaceReceiverTypeRef(ref TypeRef) {
	replaceTypeSlot(&c.receiverTypeRef, ref, "receiver type of "+c.symbol.ID.String())
}

func (c *callable) acceptSignature(v Visitor, data any) {
	acceptAll(v, c.annotations, data)
	acceptAll(v, c.typeParams, data)
	accept(v, c.receiverTypeRef, data)
	accept(v, c.returnTypeRef, data)
}

func (c *callable) transformSignature(t Transformer, data any) {
	c.annotations = transformList(t, c.annotations, data, "annotation")
	c.typeParams = transformList(t, c.typeParams, data, "type parameter")
	c.receiverTypeRef = transformSingle(t, c.receiverTypeRef, data, "receiver type")
	c.returnTypeRef = transformSingle(t, c.returnTypeRef, data, "return type")
}

type functionBody struct {
	valueParams []*ValueParameter
	body        *Block
	cfg         *ControlFlowGraphReference
}

func (f *functionBody) ValueParameters() []*ValueParameter                    { return f.valueParams }
func (f *functionBody) Body() *Block                                          { return f.body }
func (f *functionBody) ReplaceBody(b *Block)                                  { f.body = b }
func (f *functionBody) ControlFlowGraphReference() *ControlFlowGraphReference { return f.cfg }

func (f *functionBody) ReplaceControlFlowGraphReference(ref *ControlFlowGraphReference) {
	f.cfg = ref
}

// SimpleFunction is a named function.
type SimpleFunction struct {
	callable
	functionBody
}

func (f *SimpleFunction) statementNode() {}

func (f *SimpleFunction) AcceptChildren(v Visitor, data any) {
	f.acceptSignature(v, data)
	acceptAll(v, f.valueParams, data)
	accept(v, f.body, data)
	accept(v, f.cfg, data)
}

func (f *SimpleFunction) TransformChildren(t Transformer, data any) Element {
	f.transformSignature(t, data)
	f.valueParams = transformList(t, f.valueParams, data, "value parameter")
	f.body = transformSingle(t, f.body, data, "body")
	f.cfg = transformSingle(t, f.cfg, data, "control flow graph")
	return f
}

// Constructor is a primary or secondary constructor. Its return type is the
// constructed class type.
type Constructor struct {
	callable
	functionBody
	primary       bool
	delegatedCall *DelegatedConstructorCall
}

func (c *Constructor) IsPrimary() bool                                 { return c.primary }
func (c *Constructor) DelegatedConstructor() *DelegatedConstructorCall { return c.delegatedCall }

func (c *Constructor) AcceptChildren(v Visitor, data any) {
	c.acceptSignature(v, data)
	acceptAll(v, c.valueParams, data)
	accept(v, c.delegatedCall, data)
	accept(v, c.body, data)
	accept(v, c.cfg, data)
}

func (c *Constructor) TransformChildren(t Transformer, data any) Element {
	c.transformSignature(t, data)
	c.valueParams = transformList(t, c.valueParams, data, "value parameter")
	c.delegatedCall = transformSingle(t, c.delegatedCall, data, "delegated constructor call")
	c.body = transformSingle(t, c.body, data, "body")
	c.cfg = transformSingle(t, c.cfg, data, "control flow graph")
	return c
}

// Property is a member, top-level or local property.
type Property struct {
	callable
	isVar       bool
	isLocal     bool
	initializer Expression
	getter      *PropertyAccessor
	setter      *PropertyAccessor
}

func (p *Property) IsVar() bool               { return p.isVar }
func (p *Property) IsLocal() bool             { return p.isLocal }
func (p *Property) Initializer() Expression   { return p.initializer }
func (p *Property) Getter() *PropertyAccessor { return p.getter }
func (p *Property) Setter() *PropertyAccessor { return p.setter }
func (p *Property) statementNode()            {}

func (p *Property) AcceptChildren(v Visitor, data any) {
	p.acceptSignature(v, data)
	accept(v, p.initializer, data)
	accept(v, p.getter, data)
	accept(v, p.setter, data)
}

func (p *Property) TransformChildren(t Transformer, data any) Element {
	p.transformSignature(t, data)
	p.initializer = transformSingle(t, p.initializer, data, "initializer")
	p.getter = transformSingle(t, p.getter, data, "getter")
	p.setter = transformSingle(t, p.setter, data, "setter")
	return p
}

// PropertyAccessor is a getter or setter with an explicit body.
type PropertyAccessor struct {
	callable
	functionBody
	isGetter bool
	property *CallableSymbol
}

func (a *PropertyAccessor) IsGetter() bool                  { return a.isGetter }
func (a *PropertyAccessor) PropertySymbol() *CallableSymbol { return a.property }

func (a *PropertyAccessor) AcceptChildren(v Visitor, data any) {
	a.acceptSignature(v, data)
	acceptAll(v, a.valueParams, data)
	accept(v, a.body, data)
	accept(v, a.cfg, data)
}

func (a *PropertyAccessor) TransformChildren(t Transformer, data any) Element {
	a.transformSignature(t, data)
	a.valueParams = transformList(t, a.valueParams, data, "value parameter")
	a.body = transformSingle(t, a.body, data, "body")
	a.cfg = transformSingle(t, a.cfg, data, "control flow graph")
	return a
}

// ValueParameter is a function or constructor parameter. Its return type
// ref is the parameter type.
type ValueParameter struct {
	callable
	index        int
	defaultValue Expression
}

func (p *ValueParameter) Index() int               { return p.index }
func (p *ValueParameter) DefaultValue() Expression { return p.defaultValue }
func (p *ValueParameter) IsVararg() bool           { return p.Status().Modifiers.Has(ModVararg) }
func (p *ValueParameter) IsCrossinline() bool      { return p.Status().Modifiers.Has(ModCrossinline) }
func (p *ValueParameter) IsNoinline() bool         { return p.Status().Modifiers.Has(ModNoinline) }

func (p *ValueParameter) AcceptChildren(v Visitor, data any) {
	p.acceptSignature(v, data)
	accept(v, p.defaultValue, data)
}

func (p *ValueParameter) TransformChildren(t Transformer, data any) Element {
	p.transformSignature(t, data)
	p.defaultValue = transformSingle(t, p.defaultValue, data, "default value")
	return p
}

// EnumEntry is an entry of an enum class. Its return type is the enum class
// type; Initializer holds the entry body, if any.
type EnumEntry struct {
	callable
	initializer *AnonymousObject
}

func (e *EnumEntry) Initializer() *AnonymousObject { return e.initializer }

func (e *EnumEntry) AcceptChildren(v Visitor, data any) {
	e.acceptSignature(v, data)
	accept(v, e.initializer, data)
}

func (e *EnumEntry) TransformChildren(t Transformer, data any) Element {
	e.transformSignature(t, data)
	e.initializer = transformSingle(t, e.initializer, data, "enum entry initializer")
	return e
}

// TypeParameter is a declared type parameter of a class, alias or callable.
type TypeParameter struct {
	declaration
	symbol   *TypeParameterSymbol
	name     names.Name
	index    int
	key      string
	variance typesystem.Variance
	reified  bool
	bounds   []TypeRef
}

func (p *TypeParameter) Symbol() *TypeParameterSymbol  { return p.symbol }
func (p *TypeParameter) Name() names.Name              { return p.name }
func (p *TypeParameter) Index() int                    { return p.index }
func (p *TypeParameter) Variance() typesystem.Variance { return p.variance }
func (p *TypeParameter) IsReified() bool               { return p.reified }
func (p *TypeParameter) Bounds() []TypeRef             { return p.bounds }
func (p *TypeParameter) DeclarationName() string       { return p.key }

// Key identifies the parameter across the module, e.g. "pkg/Box#T".
func (p *TypeParameter) Key() string { return p.key }

// Type is the type parameter type.
func (p *TypeParameter) Type() typesystem.TParam {
	return typesystem.TParam{Name: p.name, Key: p.key}
}

func (p *TypeParameter) ReplaceBounds(refs []TypeRef) {
	if ph := p.phase.Phase(); ph > PhaseTypes {
		diagnostics.Invariantf("bounds of %s replaced at phase %s", p.key, ph)
	}
	p.bounds = slices.Clone(refs)
}

func (p *TypeParameter) AcceptChildren(v Visitor, data any) {
	acceptAll(v, p.annotations, data)
	acceptAll(v, p.bounds, data)
}

func (p *TypeParameter) TransformChildren(t Transformer, data any) Element {
	p.annotations = transformList(t, p.annotations, data, "annotation")
	p.bounds = transformList(t, p.bounds, data, "bound")
	return p
}
