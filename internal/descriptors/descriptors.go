// Package descriptors defines the read-only query API over resolved
// declarations. Source-based and deserialized declarations implement the same
// interfaces, so consumers and the override engine never care where a
// declaration came from.
package descriptors

import (
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

type DeclarationDescriptor interface {
	Name() names.Name
	ContainingDeclaration() DeclarationDescriptor
}

type ClassifierDescriptor interface {
	DeclarationDescriptor
	TypeConstructor() TypeConstructor
	DefaultType() typesystem.Type
}

type TypeConstructor interface {
	Parameters() []TypeParameterDescriptor
	Supertypes() []typesystem.Type
	Declaration() ClassifierDescriptor
	IsFinal() bool
}

type TypeParameterDescriptor interface {
	ClassifierDescriptor
	Index() int
	Key() string
	Variance() typesystem.Variance
	IsReified() bool
	UpperBounds() []typesystem.Type
}

type ClassDescriptor interface {
	ClassifierDescriptor
	ClassID() names.ClassID
	Kind() ClassKind
	Modality() Modality
	Visibility() Visibility
	IsInner() bool
	IsData() bool
	IsCompanionObject() bool
	IsExpect() bool
	IsInline() bool
	IsFun() bool
	DeclaredTypeParameters() []TypeParameterDescriptor
	UnsubstitutedMemberScope() MemberScope
	Constructors() []ConstructorDescriptor
	UnsubstitutedPrimaryConstructor() ConstructorDescriptor
	CompanionObjectDescriptor() ClassDescriptor
	FindNestedClass(name names.Name) ClassDescriptor
	SealedSubclasses() []ClassDescriptor
	Module() ModuleDescriptor
}

type CallableMemberDescriptor interface {
	DeclarationDescriptor
	Visibility() Visibility
	Modality() Modality
	Kind() CallableKind
	TypeParameters() []TypeParameterDescriptor
	ExtensionReceiverType() typesystem.Type
	ValueParameters() []ValueParameterDescriptor
	ReturnType() typesystem.Type
	OverriddenDescriptors() []CallableMemberDescriptor
	// CopyAsFakeOverride returns a copy owned by owner with its signature
	// substituted by subst.
	CopyAsFakeOverride(owner ClassDescriptor, modality Modality, visibility Visibility, subst typesystem.Subst, overridden []CallableMemberDescriptor) CallableMemberDescriptor
}

type FunctionDescriptor interface {
	CallableMemberDescriptor
	IsOperator() bool
	IsInfix() bool
	IsInline() bool
	IsSuspend() bool
	IsTailrec() bool
	IsExternal() bool
}

type PropertyDescriptor interface {
	CallableMemberDescriptor
	IsVar() bool
	IsConst() bool
	IsLateInit() bool
	IsDelegated() bool
}

type ConstructorDescriptor interface {
	DeclarationDescriptor
	ConstructedClass() ClassDescriptor
	IsPrimary() bool
	Visibility() Visibility
	ValueParameters() []ValueParameterDescriptor
	ReturnType() typesystem.Type
}

type ValueParameterDescriptor interface {
	DeclarationDescriptor
	Index() int
	Type() typesystem.Type
	VarargElementType() typesystem.Type
	DeclaresDefaultValue() bool
	IsCrossinline() bool
	IsNoinline() bool
}

// MemberScope answers member queries by name. Implementations compute
// lazily and cache per name.
type MemberScope interface {
	ContributedFunctions(name names.Name) []FunctionDescriptor
	ContributedProperties(name names.Name) []PropertyDescriptor
	ContributedClassifier(name names.Name) ClassifierDescriptor
	FunctionNames() []names.Name
	PropertyNames() []names.Name
	ClassifierNames() []names.Name
}

type PackageFragmentDescriptor interface {
	DeclarationDescriptor
	FqName() names.FqName
	MemberScope() MemberScope
}

type PackageFragmentProvider interface {
	PackageFragments(fq names.FqName) []PackageFragmentDescriptor
	SubPackagesOf(fq names.FqName) []names.FqName
}

type PackageViewDescriptor interface {
	DeclarationDescriptor
	FqName() names.FqName
	Fragments() []PackageFragmentDescriptor
	MemberScope() MemberScope
	Module() ModuleDescriptor
	IsEmpty() bool
}

type ModuleDescriptor interface {
	DeclarationDescriptor
	ShouldSeeInternalsOf(other ModuleDescriptor) bool
	Package(fq names.FqName) PackageViewDescriptor
	FindClassAcrossModuleDependencies(id names.ClassID) ClassDescriptor
}

// SourceElement is implemented by descriptors built from source
// declarations.
type SourceElement interface {
	SourcePosition() diagnostics.Position
	HasOverrideModifier() bool
}
