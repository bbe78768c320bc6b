package symbols

import "github.com/funvibe/semcore/internal/names"

type ScopeType int

const (
	ScopeFile ScopeType = iota
	ScopeClass
	ScopeFunction
	ScopeBlock
)

func (t ScopeType) String() string {
	switch t {
	case ScopeFile:
		return "file"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	default:
		return "block"
	}
}

// Scope maps names to local entries and falls back to its outer scope.
// Scopes are built and read by a single goroutine.
type Scope[T any] struct {
	store     map[names.Name]T
	outer     *Scope[T]
	scopeType ScopeType
}

func NewScope[T any](scopeType ScopeType) *Scope[T] {
	return &Scope[T]{store: make(map[names.Name]T), scopeType: scopeType}
}

// NewEnclosedScope creates a scope nested in outer.
func NewEnclosedScope[T any](outer *Scope[T], scopeType ScopeType) *Scope[T] {
	s := NewScope[T](scopeType)
	s.outer = outer
	return s
}

func (s *Scope[T]) Outer() *Scope[T] {
	return s.outer
}

func (s *Scope[T]) Type() ScopeType {
	return s.scopeType
}

// Define adds name to this scope. A name already defined in this scope is
// kept and Define reports false; shadowing an outer name is allowed.
func (s *Scope[T]) Define(name names.Name, v T) bool {
	if _, ok := s.store[name]; ok {
		return false
	}
	s.store[name] = v
	return true
}

// Find looks name up in this scope and then in the outer ones.
func (s *Scope[T]) Find(name names.Name) (T, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		if v, ok := sc.store[name]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// FindLocal looks name up in this scope only.
func (s *Scope[T]) FindLocal(name names.Name) (T, bool) {
	v, ok := s.store[name]
	return v, ok
}
