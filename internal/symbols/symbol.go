// Package symbols provides bind-once handles to declarations. A symbol can be
// created, stored and compared before the declaration it names exists.
package symbols

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/funvibe/semcore/internal/names"
)

type Kind int

const (
	ClassKind Kind = iota
	TypeAliasKind
	AnonymousObjectKind
	FunctionKind
	ConstructorKind
	PropertyKind
	AccessorKind
	EnumEntryKind
	ValueParameterKind
	TypeParameterKind
	FileKind
)

func (k Kind) String() string {
	switch k {
	case ClassKind:
		return "class"
	case TypeAliasKind:
		return "typealias"
	case AnonymousObjectKind:
		return "anonymous object"
	case FunctionKind:
		return "function"
	case ConstructorKind:
		return "constructor"
	case PropertyKind:
		return "property"
	case AccessorKind:
		return "accessor"
	case EnumEntryKind:
		return "enum entry"
	case ValueParameterKind:
		return "value parameter"
	case TypeParameterKind:
		return "type parameter"
	case FileKind:
		return "file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrDoubleBind is returned by Bind on an already bound symbol.
var ErrDoubleBind = errors.New("symbol is already bound")

// UnboundSymbolError is the panic value of Owner on an unbound symbol.
type UnboundSymbolError struct {
	Symbol string
}

func (e *UnboundSymbolError) Error() string {
	return fmt.Sprintf("symbol %s is not bound", e.Symbol)
}

type binding[D any] struct {
	owner D
}

// Symbol is a handle to a declaration of type D.
type Symbol[D any] struct {
	kind  Kind
	label string
	bound atomic.Pointer[binding[D]]
}

func New[D any](kind Kind, label string) *Symbol[D] {
	return &Symbol[D]{kind: kind, label: label}
}

func (s *Symbol[D]) Kind() Kind {
	return s.kind
}

// Bind associates the symbol with d. Only the first call succeeds.
func (s *Symbol[D]) Bind(d D) error {
	if !s.bound.CompareAndSwap(nil, &binding[D]{owner: d}) {
		return fmt.Errorf("%s %s: %w", s.kind, s.label, ErrDoubleBind)
	}
	return nil
}

func (s *Symbol[D]) IsBound() bool {
	return s.bound.Load() != nil
}

// Owner returns the bound declaration. It panics with *UnboundSymbolError
// when the symbol is not bound; callers racing declaration loading use
// TryOwner instead.
func (s *Symbol[D]) Owner() D {
	b := s.bound.Load()
	if b == nil {
		panic(&UnboundSymbolError{Symbol: s.String()})
	}
	return b.owner
}

func (s *Symbol[D]) TryOwner() (D, bool) {
	b := s.bound.Load()
	if b == nil {
		var zero D
		return zero, false
	}
	return b.owner, true
}

func (s *Symbol[D]) String() string {
	return s.kind.String() + " " + s.label
}

// ClassLikeSymbol names a class, object or type alias by its ClassID.
type ClassLikeSymbol[D any] struct {
	Symbol[D]
	ID names.ClassID
}

func NewClassLike[D any](kind Kind, id names.ClassID) *ClassLikeSymbol[D] {
	s := &ClassLikeSymbol[D]{ID: id}
	s.kind = kind
	s.label = id.String()
	return s
}

// CallableSymbol names a function, property or constructor.
type CallableSymbol[D any] struct {
	Symbol[D]
	ID names.CallableID
}

func NewCallable[D any](kind Kind, id names.CallableID) *CallableSymbol[D] {
	s := &CallableSymbol[D]{ID: id}
	s.kind = kind
	s.label = id.String()
	return s
}
