package descriptors

import (
	"sync"

	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// TypeParameterImpl is the descriptor of a declared type parameter. Bounds
// are computed on first access since they may mention the parameter itself.
type TypeParameterImpl struct {
	Owner     DeclarationDescriptor
	ParamName names.Name
	Idx       int
	ParamKey  string
	Var       typesystem.Variance
	Reified   bool

	bounds func() []typesystem.Type
}

func NewTypeParameter(owner DeclarationDescriptor, name names.Name, index int, key string, variance typesystem.Variance, reified bool, bounds func() []typesystem.Type) *TypeParameterImpl {
	p := &TypeParameterImpl{Owner: owner, ParamName: name, Idx: index, ParamKey: key, Var: variance, Reified: reified}
	if bounds != nil {
		p.bounds = sync.OnceValue(bounds)
	}
	return p
}

func (p *TypeParameterImpl) Name() names.Name                             { return p.ParamName }
func (p *TypeParameterImpl) ContainingDeclaration() DeclarationDescriptor { return p.Owner }
func (p *TypeParameterImpl) Index() int                                   { return p.Idx }
func (p *TypeParameterImpl) Key() string                                  { return p.ParamKey }
func (p *TypeParameterImpl) Variance() typesystem.Variance                { return p.Var }
func (p *TypeParameterImpl) IsReified() bool                              { return p.Reified }

func (p *TypeParameterImpl) UpperBounds() []typesystem.Type {
	if p.bounds != nil {
		if b := p.bounds(); len(b) > 0 {
			return b
		}
	}
	return []typesystem.Type{typesystem.NullableAnyType()}
}

func (p *TypeParameterImpl) DefaultType() typesystem.Type {
	return typesystem.TParam{Name: p.ParamName, Key: p.ParamKey}
}

func (p *TypeParameterImpl) TypeConstructor() TypeConstructor {
	return typeParameterConstructor{p}
}

type typeParameterConstructor struct {
	p *TypeParameterImpl
}

func (c typeParameterConstructor) Parameters() []TypeParameterDescriptor { return nil }
func (c typeParameterConstructor) Supertypes() []typesystem.Type         { return c.p.UpperBounds() }
func (c typeParameterConstructor) Declaration() ClassifierDescriptor     { return c.p }
func (c typeParameterConstructor) IsFinal() bool                         { return false }

// ClassTypeConstructor is the type constructor of a class. The owner
// supplies supertypes, usually from a lazy cell.
type ClassTypeConstructor struct {
	class      ClassDescriptor
	params     []TypeParameterDescriptor
	supertypes func() []typesystem.Type
}

func NewClassTypeConstructor(class ClassDescriptor, params []TypeParameterDescriptor, supertypes func() []typesystem.Type) *ClassTypeConstructor {
	return &ClassTypeConstructor{class: class, params: params, supertypes: supertypes}
}

func (c *ClassTypeConstructor) Parameters() []TypeParameterDescriptor { return c.params }
func (c *ClassTypeConstructor) Declaration() ClassifierDescriptor     { return c.class }

func (c *ClassTypeConstructor) Supertypes() []typesystem.Type {
	if c.supertypes == nil {
		return nil
	}
	return c.supertypes()
}

func (c *ClassTypeConstructor) IsFinal() bool {
	return c.class.Modality() == Final && c.class.Kind() != KindEnumClass
}

// DefaultClassType returns the class type applied to its own parameters.
func DefaultClassType(id names.ClassID, params []TypeParameterDescriptor) typesystem.Type {
	t := typesystem.TClass{ID: id}
	for _, p := range params {
		t.Args = append(t.Args, typesystem.Invariantly(p.DefaultType()))
	}
	return t
}

// ClassImpl is an eagerly populated class descriptor, used for stubs of
// classes whose metadata could not be read.
type ClassImpl struct {
	ID         names.ClassID
	Container  DeclarationDescriptor
	InModule   ModuleDescriptor
	ClassKind  ClassKind
	Mod        Modality
	Vis        Visibility
	Companion  bool
	TypeParams []TypeParameterDescriptor
	Supers     []typesystem.Type
	Scope      MemberScope
	Ctors      []ConstructorDescriptor
	Nested     map[names.Name]ClassDescriptor
}

func (c *ClassImpl) Name() names.Name                                  { return c.ID.ShortName() }
func (c *ClassImpl) ContainingDeclaration() DeclarationDescriptor      { return c.Container }
func (c *ClassImpl) ClassID() names.ClassID                            { return c.ID }
func (c *ClassImpl) Kind() ClassKind                                   { return c.ClassKind }
func (c *ClassImpl) Modality() Modality                                { return c.Mod }
func (c *ClassImpl) Visibility() Visibility                            { return c.Vis }
func (c *ClassImpl) IsInner() bool                                     { return false }
func (c *ClassImpl) IsData() bool                                      { return false }
func (c *ClassImpl) IsCompanionObject() bool                           { return c.Companion }
func (c *ClassImpl) IsExpect() bool                                    { return false }
func (c *ClassImpl) IsInline() bool                                    { return false }
func (c *ClassImpl) IsFun() bool                                       { return false }
func (c *ClassImpl) DeclaredTypeParameters() []TypeParameterDescriptor { return c.TypeParams }
func (c *ClassImpl) Constructors() []ConstructorDescriptor             { return c.Ctors }
func (c *ClassImpl) SealedSubclasses() []ClassDescriptor               { return nil }
func (c *ClassImpl) Module() ModuleDescriptor                          { return c.InModule }
func (c *ClassImpl) CompanionObjectDescriptor() ClassDescriptor        { return nil }

func (c *ClassImpl) DefaultType() typesystem.Type {
	return DefaultClassType(c.ID, c.TypeParams)
}

func (c *ClassImpl) TypeConstructor() TypeConstructor {
	return NewClassTypeConstructor(c, c.TypeParams, func() []typesystem.Type { return c.Supers })
}

func (c *ClassImpl) UnsubstitutedMemberScope() MemberScope {
	if c.Scope == nil {
		return EmptyScope
	}
	return c.Scope
}

func (c *ClassImpl) UnsubstitutedPrimaryConstructor() ConstructorDescriptor {
	for _, ctor := range c.Ctors {
		if ctor.IsPrimary() {
			return ctor
		}
	}
	return nil
}

func (c *ClassImpl) FindNestedClass(name names.Name) ClassDescriptor {
	if n, ok := c.Nested[name]; ok {
		return n
	}
	return nil
}

type emptyScope struct{}

// EmptyScope has no members.
var EmptyScope MemberScope = emptyScope{}

func (emptyScope) ContributedFunctions(names.Name) []FunctionDescriptor  { return nil }
func (emptyScope) ContributedProperties(names.Name) []PropertyDescriptor { return nil }
func (emptyScope) ContributedClassifier(names.Name) ClassifierDescriptor { return nil }
func (emptyScope) FunctionNames() []names.Name                           { return nil }
func (emptyScope) PropertyNames() []names.Name                           { return nil }
func (emptyScope) ClassifierNames() []names.Name                         { return nil }
