// Package metadata reads and writes the binary metadata that describes
// compiled declarations: classes and package members with their types,
// encoded in protobuf wire format with per-unit string and name tables.
package metadata

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every decoding error.
var ErrMalformed = errors.New("malformed metadata")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Absent marks an unset optional index.
const Absent int32 = -1

const (
	DefaultClassFlags       int32 = 6
	DefaultFunctionFlags    int32 = 6
	DefaultPropertyFlags    int32 = 518
	DefaultConstructorFlags int32 = 6
)

// Projection is the wire form of a type argument projection.
type Projection int32

const (
	ProjectionIn Projection = iota
	ProjectionOut
	ProjectionInv
	ProjectionStar
)

// Variance is the wire form of a type parameter variance.
type Variance int32

const (
	VarianceIn Variance = iota
	VarianceOut
	VarianceInv
)

// QualifiedNameKind tells whether a qualified name segment is a package, a
// class or a local class.
type QualifiedNameKind int32

const (
	KindClassName QualifiedNameKind = iota
	KindPackageName
	KindLocalName
)

// Type is a type usage. Exactly one of ClassName, TypeParameter and
// TypeParameterName is set.
type Type struct {
	Flags             int32
	Arguments         []*TypeArgument
	Nullable          bool
	ClassName         int32
	TypeParameter     int32
	TypeParameterName int32
}

func NewType() *Type {
	return &Type{ClassName: Absent, TypeParameter: Absent, TypeParameterName: Absent}
}

// IsSuspend reports the suspend function type flag.
func (t *Type) IsSuspend() bool { return t.Flags&1 != 0 }

type TypeArgument struct {
	Projection Projection
	Type       *Type
	TypeID     int32
}

func NewTypeArgument() *TypeArgument {
	return &TypeArgument{Projection: ProjectionInv, TypeID: Absent}
}

// TypeTable holds the types of one unit, referenced by index. Types at and
// after FirstNullable are read as nullable.
type TypeTable struct {
	Types         []*Type
	FirstNullable int32
}

func NewTypeTable() *TypeTable {
	return &TypeTable{FirstNullable: Absent}
}

// Get returns the type at index i with the table's nullability applied.
func (tt *TypeTable) Get(i int32) (*Type, error) {
	if tt == nil || i < 0 || int(i) >= len(tt.Types) {
		return nil, malformed("type table index %d out of range", i)
	}
	t := tt.Types[i]
	if tt.FirstNullable >= 0 && i >= tt.FirstNullable && !t.Nullable {
		c := *t
		c.Nullable = true
		return &c, nil
	}
	return t, nil
}

// Resolve returns t when present, otherwise the table entry id. Both absent
// yields nil.
func (tt *TypeTable) Resolve(t *Type, id int32) (*Type, error) {
	if t != nil {
		return t, nil
	}
	if id == Absent {
		return nil, nil
	}
	return tt.Get(id)
}

// ResolveAll pairs inline types with ids the way repeated type fields are
// written: inline types when present, otherwise ids.
func (tt *TypeTable) ResolveAll(types []*Type, ids []int32) ([]*Type, error) {
	if len(types) > 0 {
		return types, nil
	}
	out := make([]*Type, 0, len(ids))
	for _, id := range ids {
		t, err := tt.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type TypeParameter struct {
	ID            int32
	Name          int32
	Reified       bool
	Variance      Variance
	UpperBounds   []*Type
	UpperBoundIDs []int32
}

func NewTypeParameter() *TypeParameter {
	return &TypeParameter{Variance: VarianceInv}
}

type ValueParameter struct {
	Flags               int32
	Name                int32
	Type                *Type
	TypeID              int32
	VarargElementType   *Type
	VarargElementTypeID int32
}

func NewValueParameter() *ValueParameter {
	return &ValueParameter{TypeID: Absent, VarargElementTypeID: Absent}
}

type Function struct {
	Flags           int32
	Name            int32
	ReturnType      *Type
	ReturnTypeID    int32
	TypeParameters  []*TypeParameter
	ReceiverType    *Type
	ReceiverTypeID  int32
	ValueParameters []*ValueParameter
}

func NewFunction() *Function {
	return &Function{Flags: DefaultFunctionFlags, ReturnTypeID: Absent, ReceiverTypeID: Absent}
}

type Property struct {
	Flags          int32
	Name           int32
	ReturnType     *Type
	ReturnTypeID   int32
	TypeParameters []*TypeParameter
	ReceiverType   *Type
	ReceiverTypeID int32
	GetterFlags    int32
	SetterFlags    int32
}

func NewProperty() *Property {
	return &Property{Flags: DefaultPropertyFlags, ReturnTypeID: Absent, ReceiverTypeID: Absent}
}

type Constructor struct {
	Flags           int32
	ValueParameters []*ValueParameter
}

func NewConstructor() *Constructor {
	return &Constructor{Flags: DefaultConstructorFlags}
}

type EnumEntry struct {
	Name int32
}

// Class describes one class. Nested classes are separate records, listed
// here by name only.
type Class struct {
	Flags                 int32
	FqName                int32
	CompanionObjectName   int32
	TypeParameters        []*TypeParameter
	Supertypes            []*Type
	SupertypeIDs          []int32
	NestedClassNames      []int32
	Constructors          []*Constructor
	Functions             []*Function
	Properties            []*Property
	EnumEntries           []*EnumEntry
	TypeTable             *TypeTable
	SealedSubclassFqNames []int32
}

func NewClass() *Class {
	return &Class{Flags: DefaultClassFlags, CompanionObjectName: Absent}
}

// Package holds the top-level callables of one package part.
type Package struct {
	Functions  []*Function
	Properties []*Property
	TypeTable  *TypeTable
	FqName     int32
}

func NewPackage() *Package {
	return &Package{FqName: Absent}
}

type StringTable struct {
	Strings []string
}

type QualifiedName struct {
	Parent    int32
	ShortName int32
	Kind      QualifiedNameKind
}

type QualifiedNameTable struct {
	Names []QualifiedName
}
