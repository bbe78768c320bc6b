package ir

import (
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/symbols"
	"github.com/funvibe/semcore/internal/typesystem"
)

// Builders produce declarations at PhaseRaw with their symbol bound. A
// builder given a Symbol binds that symbol; otherwise it creates one.

func (d *declaration) init(pos diagnostics.Position, s *session.Session, origin Origin, annotations []*Annotation) {
	diagnostics.Assert(s != nil, "declaration at %s has no session", pos)
	d.source = pos
	d.session = s
	d.origin = origin
	d.annotations = annotations
}

func bindClass(sym *ClassSymbol, kind symbols.Kind, id names.ClassID, d ClassLikeDeclaration) *ClassSymbol {
	if sym == nil {
		sym = symbols.NewClassLike[ClassLikeDeclaration](kind, id)
	}
	if err := sym.Bind(d); err != nil {
		diagnostics.Invariantf("%v", err)
	}
	return sym
}

func bindCallable(sym *CallableSymbol, kind symbols.Kind, id names.CallableID, d CallableDeclaration) *CallableSymbol {
	if sym == nil {
		sym = symbols.NewCallable[CallableDeclaration](kind, id)
	}
	if err := sym.Bind(d); err != nil {
		diagnostics.Invariantf("%v", err)
	}
	return sym
}

func implicitIfNil(ref TypeRef, pos diagnostics.Position) TypeRef {
	if isNil(ref) {
		return &ImplicitTypeRef{Source: pos}
	}
	return ref
}

type FileBuilder struct {
	Source        diagnostics.Position
	Session       *session.Session
	Name          string
	PackageFqName names.FqName
	Imports       []Import
	Declarations  []Declaration
	Annotations   []*Annotation
}

func (b FileBuilder) Build() *File {
	f := &File{
		Name:          b.Name,
		PackageFqName: b.PackageFqName,
		Imports:       b.Imports,
		Declarations:  b.Declarations,
	}
	f.init(b.Source, b.Session, OriginSource, b.Annotations)
	return f
}

type RegularClassBuilder struct {
	Source         diagnostics.Position
	Session        *session.Session
	Origin         Origin
	Symbol         *ClassSymbol
	ClassID        names.ClassID
	Kind           descriptors.ClassKind
	Status         DeclarationStatus
	TypeParameters []*TypeParameter
	SuperTypeRefs  []TypeRef
	Declarations   []Declaration
	Annotations    []*Annotation
}

func (b RegularClassBuilder) Build() *RegularClass {
	c := &RegularClass{name: b.ClassID.ShortName(), typeParams: b.TypeParameters}
	c.init(b.Source, b.Session, b.Origin, b.Annotations)
	c.classKind = b.Kind
	c.superTypeRefs = b.SuperTypeRefs
	c.declarations = b.Declarations
	c.status.Store(&b.Status)
	c.symbol = bindClass(b.Symbol, symbols.ClassKind, b.ClassID, c)
	c.companion = newCompanionValue(c)
	return c
}

type AnonymousObjectBuilder struct {
	Source        diagnostics.Position
	Session       *session.Session
	Origin        Origin
	Symbol        *ClassSymbol
	ClassID       names.ClassID
	SuperTypeRefs []TypeRef
	Declarations  []Declaration
	Annotations   []*Annotation
}

func (b AnonymousObjectBuilder) Build() *AnonymousObject {
	o := &AnonymousObject{}
	o.init(b.Source, b.Session, b.Origin, b.Annotations)
	o.classKind = descriptors.KindObject
	o.superTypeRefs = b.SuperTypeRefs
	o.declarations = b.Declarations
	o.status.Store(&DeclarationStatus{Visibility: descriptors.Local, Modality: descriptors.Final, Resolved: true})
	o.symbol = bindClass(b.Symbol, symbols.AnonymousObjectKind, b.ClassID, o)
	return o
}

type TypeAliasBuilder struct {
	Source          diagnostics.Position
	Session         *session.Session
	Origin          Origin
	Symbol          *ClassSymbol
	ClassID         names.ClassID
	Status          DeclarationStatus
	TypeParameters  []*TypeParameter
	ExpandedTypeRef TypeRef
	Annotations     []*Annotation
}

func (b TypeAliasBuilder) Build() *TypeAlias {
	a := &TypeAlias{name: b.ClassID.ShortName(), typeParams: b.TypeParameters, expandedTypeRef: b.ExpandedTypeRef}
	a.init(b.Source, b.Session, b.Origin, b.Annotations)
	a.status.Store(&b.Status)
	a.symbol = bindClass(b.Symbol, symbols.TypeAliasKind, b.ClassID, a)
	return a
}

// CallableBuilder holds the parts shared by all callable builders.
type CallableBuilder struct {
	Source          diagnostics.Position
	Session         *session.Session
	Origin          Origin
	Symbol          *CallableSymbol
	CallableID      names.CallableID
	ContainingClass *ClassSymbol
	Status          DeclarationStatus
	TypeParameters  []*TypeParameter
	ReceiverTypeRef TypeRef
	ReturnTypeRef   TypeRef
	Annotations     []*Annotation
}

func (b CallableBuilder) fill(c *callable, kind symbols.Kind, self CallableDeclaration) {
	c.init(b.Source, b.Session, b.Origin, b.Annotations)
	c.containingClass = b.ContainingClass
	c.typeParams = b.TypeParameters
	c.receiverTypeRef = b.ReceiverTypeRef
	c.returnTypeRef = implicitIfNil(b.ReturnTypeRef, b.Source)
	status := b.Status
	c.status.Store(&status)
	c.symbol = bindCallable(b.Symbol, kind, b.CallableID, self)
}

type SimpleFunctionBuilder struct {
	CallableBuilder
	ValueParameters []*ValueParameter
	Body            *Block
}

func (b SimpleFunctionBuilder) Build() *SimpleFunction {
	f := &SimpleFunction{}
	f.valueParams = b.ValueParameters
	f.body = b.Body
	b.fill(&f.callable, symbols.FunctionKind, f)
	return f
}

type ConstructorBuilder struct {
	CallableBuilder
	Primary         bool
	ValueParameters []*ValueParameter
	DelegatedCall   *DelegatedConstructorCall
	Body            *Block
}

// Build sets the callable id from the containing class when it is empty.
func (b ConstructorBuilder) Build() *Constructor {
	diagnostics.Assert(b.ContainingClass != nil, "constructor at %s has no class", b.Source)
	if b.CallableID.Callable == "" {
		id := b.ContainingClass.ID
		b.CallableID = names.CallableID{Package: id.Package, Class: id.Relative, Callable: names.Init}
	}
	c := &Constructor{primary: b.Primary, delegatedCall: b.DelegatedCall}
	c.valueParams = b.ValueParameters
	c.body = b.Body
	b.fill(&c.callable, symbols.ConstructorKind, c)
	return c
}

type PropertyBuilder struct {
	CallableBuilder
	IsVar       bool
	IsLocal     bool
	Initializer Expression
	Getter      *PropertyAccessor
	Setter      *PropertyAccessor
}

func (b PropertyBuilder) Build() *Property {
	p := &Property{isVar: b.IsVar, isLocal: b.IsLocal, initializer: b.Initializer, getter: b.Getter, setter: b.Setter}
	b.fill(&p.callable, symbols.PropertyKind, p)
	return p
}

type PropertyAccessorBuilder struct {
	CallableBuilder
	IsGetter        bool
	Property        *CallableSymbol
	ValueParameters []*ValueParameter
	Body            *Block
}

// AccessorName returns the special name of a getter or setter of prop.
func AccessorName(prop names.Name, getter bool) names.Name {
	if getter {
		return names.Special("get-" + string(prop))
	}
	return names.Special("set-" + string(prop))
}

func (b PropertyAccessorBuilder) Build() *PropertyAccessor {
	a := &PropertyAccessor{isGetter: b.IsGetter, property: b.Property}
	a.valueParams = b.ValueParameters
	a.body = b.Body
	b.fill(&a.callable, symbols.AccessorKind, a)
	return a
}

type ValueParameterBuilder struct {
	Source       diagnostics.Position
	Session      *session.Session
	Origin       Origin
	Name         names.Name
	Index        int
	TypeRef      TypeRef
	DefaultValue Expression
	Modifiers    ModifierSet
	Annotations  []*Annotation
}

func (b ValueParameterBuilder) Build() *ValueParameter {
	p := &ValueParameter{index: b.Index, defaultValue: b.DefaultValue}
	CallableBuilder{
		Source:        b.Source,
		Session:       b.Session,
		Origin:        b.Origin,
		CallableID:    names.CallableID{Callable: b.Name},
		Status:        DeclarationStatus{Modifiers: b.Modifiers, Visibility: descriptors.Local, Modality: descriptors.Final, Resolved: true},
		ReturnTypeRef: b.TypeRef,
		Annotations:   b.Annotations,
	}.fill(&p.callable, symbols.ValueParameterKind, p)
	return p
}

type EnumEntryBuilder struct {
	CallableBuilder
	Initializer *AnonymousObject
}

func (b EnumEntryBuilder) Build() *EnumEntry {
	e := &EnumEntry{initializer: b.Initializer}
	b.fill(&e.callable, symbols.EnumEntryKind, e)
	return e
}

type TypeParameterBuilder struct {
	Source      diagnostics.Position
	Session     *session.Session
	Origin      Origin
	Name        names.Name
	Index       int
	Key         string
	Variance    typesystem.Variance
	Reified     bool
	Bounds      []TypeRef
	Annotations []*Annotation
}

func (b TypeParameterBuilder) Build() *TypeParameter {
	p := &TypeParameter{
		name:     b.Name,
		index:    b.Index,
		key:      b.Key,
		variance: b.Variance,
		reified:  b.Reified,
		bounds:   b.Bounds,
	}
	p.init(b.Source, b.Session, b.Origin, b.Annotations)
	p.symbol = symbols.New[*TypeParameter](symbols.TypeParameterKind, b.Key)
	if err := p.symbol.Bind(p); err != nil {
		diagnostics.Invariantf("%v", err)
	}
	return p
}

// TypeParameterKey returns the module-wide key of a type parameter.
func TypeParameterKey(owner string, name names.Name) string {
	return owner + "#" + string(name)
}
