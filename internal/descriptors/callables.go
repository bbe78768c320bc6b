package descriptors

import (
	"slices"
	"sync"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// Callable holds the state shared by function and property descriptors.
type Callable struct {
	Owner            DeclarationDescriptor
	CallableName     names.Name
	Vis              Visibility
	Mod              Modality
	CallKind         CallableKind
	TypeParams       []TypeParameterDescriptor
	Receiver         typesystem.Type
	Params           []ValueParameterDescriptor
	Returns          typesystem.Type
	Pos              diagnostics.Position
	OverrideModifier bool

	mu         sync.RWMutex
	overridden []CallableMemberDescriptor
}

func (c *Callable) Name() names.Name                             { return c.CallableName }
func (c *Callable) ContainingDeclaration() DeclarationDescriptor { return c.Owner }
func (c *Callable) Visibility() Visibility                       { return c.Vis }
func (c *Callable) Modality() Modality                           { return c.Mod }
func (c *Callable) Kind() CallableKind                           { return c.CallKind }
func (c *Callable) TypeParameters() []TypeParameterDescriptor    { return c.TypeParams }
func (c *Callable) ExtensionReceiverType() typesystem.Type       { return c.Receiver }
func (c *Callable) ValueParameters() []ValueParameterDescriptor  { return c.Params }
func (c *Callable) SourcePosition() diagnostics.Position         { return c.Pos }
func (c *Callable) HasOverrideModifier() bool                    { return c.OverrideModifier }

func (c *Callable) ReturnType() typesystem.Type {
	if c.Returns == nil {
		return typesystem.TError{Reason: "return type of " + string(c.CallableName) + " is not resolved"}
	}
	return c.Returns
}

func (c *Callable) OverriddenDescriptors() []CallableMemberDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.overridden)
}

// SetOverriddenDescriptors records the members this one overrides. The
// override engine calls it once per member while computing a scope.
func (c *Callable) SetOverriddenDescriptors(overridden []CallableMemberDescriptor) {
	c.mu.Lock()
	c.overridden = slices.Clone(overridden)
	c.mu.Unlock()
}

// fakeOverrideOf fills c as a fake override copy of src.
func (c *Callable) fakeOverrideOf(self DeclarationDescriptor, src *Callable, owner ClassDescriptor, modality Modality, visibility Visibility, subst typesystem.Subst, overridden []CallableMemberDescriptor) {
	c.Owner = owner
	c.CallableName = src.CallableName
	c.Vis = visibility
	c.Mod = modality
	c.CallKind = FakeOverride
	c.TypeParams = src.TypeParams
	c.Receiver = applySubst(src.Receiver, subst)
	c.Returns = applySubst(src.Returns, subst)
	c.Params = substituteParameters(self, src.Params, subst)
	c.overridden = slices.Clone(overridden)
}

func applySubst(t typesystem.Type, subst typesystem.Subst) typesystem.Type {
	if t == nil {
		return nil
	}
	return t.Apply(subst)
}

func substituteParameters(owner DeclarationDescriptor, params []ValueParameterDescriptor, subst typesystem.Subst) []ValueParameterDescriptor {
	out := make([]ValueParameterDescriptor, len(params))
	for i, p := range params {
		out[i] = &ValueParameterImpl{
			Owner:       owner,
			ParamName:   p.Name(),
			Idx:         p.Index(),
			ParamType:   applySubst(p.Type(), subst),
			Vararg:      applySubst(p.VarargElementType(), subst),
			HasDefault:  p.DeclaresDefaultValue(),
			Crossinline: p.IsCrossinline(),
			Noinline:    p.IsNoinline(),
		}
	}
	return out
}

// FunctionImpl is the descriptor of a function.
type FunctionImpl struct {
	Callable
	Operator bool
	Infix    bool
	Inline   bool
	Suspend  bool
	Tailrec  bool
	External bool
}

func (f *FunctionImpl) IsOperator() bool { return f.Operator }
func (f *FunctionImpl) IsInfix() bool    { return f.Infix }
func (f *FunctionImpl) IsInline() bool   { return f.Inline }
func (f *FunctionImpl) IsSuspend() bool  { return f.Suspend }
func (f *FunctionImpl) IsTailrec() bool  { return f.Tailrec }
func (f *FunctionImpl) IsExternal() bool { return f.External }

func (f *FunctionImpl) CopyAsFakeOverride(owner ClassDescriptor, modality Modality, visibility Visibility, subst typesystem.Subst, overridden []CallableMemberDescriptor) CallableMemberDescriptor {
	c := &FunctionImpl{
		Operator: f.Operator,
		Infix:    f.Infix,
		Inline:   f.Inline,
		Suspend:  f.Suspend,
		Tailrec:  f.Tailrec,
		External: f.External,
	}
	c.fakeOverrideOf(c, &f.Callable, owner, modality, visibility, subst, overridden)
	return c
}

// PropertyImpl is the descriptor of a property.
type PropertyImpl struct {
	Callable
	Var       bool
	Const     bool
	LateInit  bool
	Delegated bool
}

func (p *PropertyImpl) IsVar() bool       { return p.Var }
func (p *PropertyImpl) IsConst() bool     { return p.Const }
func (p *PropertyImpl) IsLateInit() bool  { return p.LateInit }
func (p *PropertyImpl) IsDelegated() bool { return p.Delegated }

func (p *PropertyImpl) CopyAsFakeOverride(owner ClassDescriptor, modality Modality, visibility Visibility, subst typesystem.Subst, overridden []CallableMemberDescriptor) CallableMemberDescriptor {
	c := &PropertyImpl{Var: p.Var, Const: p.Const, LateInit: p.LateInit, Delegated: p.Delegated}
	c.fakeOverrideOf(c, &p.Callable, owner, modality, visibility, subst, overridden)
	return c
}

// ConstructorImpl is the descriptor of a class constructor.
type ConstructorImpl struct {
	Class   ClassDescriptor
	Primary bool
	Vis     Visibility
	Params  []ValueParameterDescriptor
	Pos     diagnostics.Position
}

func (c *ConstructorImpl) Name() names.Name                             { return names.Init }
func (c *ConstructorImpl) ContainingDeclaration() DeclarationDescriptor { return c.Class }
func (c *ConstructorImpl) ConstructedClass() ClassDescriptor            { return c.Class }
func (c *ConstructorImpl) IsPrimary() bool                              { return c.Primary }
func (c *ConstructorImpl) Visibility() Visibility                       { return c.Vis }
func (c *ConstructorImpl) ValueParameters() []ValueParameterDescriptor  { return c.Params }
func (c *ConstructorImpl) ReturnType() typesystem.Type                  { return c.Class.DefaultType() }

// ValueParameterImpl is the descriptor of a value parameter.
type ValueParameterImpl struct {
	Owner       DeclarationDescriptor
	ParamName   names.Name
	Idx         int
	ParamType   typesystem.Type
	Vararg      typesystem.Type
	HasDefault  bool
	Crossinline bool
	Noinline    bool
}

func (p *ValueParameterImpl) Name() names.Name                             { return p.ParamName }
func (p *ValueParameterImpl) ContainingDeclaration() DeclarationDescriptor { return p.Owner }
func (p *ValueParameterImpl) Index() int                                   { return p.Idx }
func (p *ValueParameterImpl) Type() typesystem.Type                        { return p.ParamType }
func (p *ValueParameterImpl) VarargElementType() typesystem.Type           { return p.Vararg }
func (p *ValueParameterImpl) DeclaresDefaultValue() bool                   { return p.HasDefault }
func (p *ValueParameterImpl) IsCrossinline() bool                          { return p.Crossinline }
func (p *ValueParameterImpl) IsNoinline() bool                             { return p.Noinline }
