// Package scopes implements member scopes: the class member scope shared by
// source and deserialized classes, and the simple scopes package views are
// made of.
package scopes

import (
	"slices"
	"sync"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/names"
)

// MapScope is an eagerly filled scope. It is safe for concurrent use.
type MapScope struct {
	mu          sync.RWMutex
	functions   map[names.Name][]descriptors.FunctionDescriptor
	properties  map[names.Name][]descriptors.PropertyDescriptor
	classifiers map[names.Name]descriptors.ClassifierDescriptor
}

func NewMapScope() *MapScope {
	return &MapScope{
		functions:   make(map[names.Name][]descriptors.FunctionDescriptor),
		properties:  make(map[names.Name][]descriptors.PropertyDescriptor),
		classifiers: make(map[names.Name]descriptors.ClassifierDescriptor),
	}
}

func (s *MapScope) AddFunction(f descriptors.FunctionDescriptor) {
	s.mu.Lock()
	s.functions[f.Name()] = append(s.functions[f.Name()], f)
	s.mu.Unlock()
}

func (s *MapScope) AddProperty(p descriptors.PropertyDescriptor) {
	s.mu.Lock()
	s.properties[p.Name()] = append(s.properties[p.Name()], p)
	s.mu.Unlock()
}

// AddClassifier registers c under its name. The first classifier of a name
// wins; AddClassifier reports false for later ones.
func (s *MapScope) AddClassifier(c descriptors.ClassifierDescriptor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classifiers[c.Name()]; ok {
		return false
	}
	s.classifiers[c.Name()] = c
	return true
}

func (s *MapScope) ContributedFunctions(name names.Name) []descriptors.FunctionDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.functions[name])
}

func (s *MapScope) ContributedProperties(name names.Name) []descriptors.PropertyDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.properties[name])
}

func (s *MapScope) ContributedClassifier(name names.Name) descriptors.ClassifierDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classifiers[name]
}

func (s *MapScope) FunctionNames() []names.Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.functions)
}

func (s *MapScope) PropertyNames() []names.Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.properties)
}

func (s *MapScope) ClassifierNames() []names.Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.classifiers)
}

func sortedKeys[V any](m map[names.Name]V) []names.Name {
	out := make([]names.Name, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Union merges name lists into one sorted list without duplicates.
func Union(lists ...[]names.Name) []names.Name {
	var out []names.Name
	for _, l := range lists {
		out = append(out, l...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ChainedScope answers queries from several scopes in order. Callables are
// concatenated; the first scope that has a classifier wins.
type ChainedScope struct {
	scopes []descriptors.MemberScope
}

func Chained(scopes ...descriptors.MemberScope) descriptors.MemberScope {
	switch len(scopes) {
	case 0:
		return descriptors.EmptyScope
	case 1:
		return scopes[0]
	}
	return &ChainedScope{scopes: scopes}
}

func (c *ChainedScope) ContributedFunctions(name names.Name) []descriptors.FunctionDescriptor {
	var out []descriptors.FunctionDescriptor
	for _, s := range c.scopes {
		out = append(out, s.ContributedFunctions(name)...)
	}
	return out
}

func (c *ChainedScope) ContributedProperties(name names.Name) []descriptors.PropertyDescriptor {
	var out []descriptors.PropertyDescriptor
	for _, s := range c.scopes {
		out = append(out, s.ContributedProperties(name)...)
	}
	return out
}

func (c *ChainedScope) ContributedClassifier(name names.Name) descriptors.ClassifierDescriptor {
	for _, s := range c.scopes {
		if cl := s.ContributedClassifier(name); cl != nil {
			return cl
		}
	}
	return nil
}

func (c *ChainedScope) FunctionNames() []names.Name {
	return c.names(descriptors.MemberScope.FunctionNames)
}

func (c *ChainedScope) PropertyNames() []names.Name {
	return c.names(descriptors.MemberScope.PropertyNames)
}

func (c *ChainedScope) ClassifierNames() []names.Name {
	return c.names(descriptors.MemberScope.ClassifierNames)
}

func (c *ChainedScope) names(of func(descriptors.MemberScope) []names.Name) []names.Name {
	lists := make([][]names.Name, len(c.scopes))
	for i, s := range c.scopes {
		lists[i] = of(s)
	}
	return Union(lists...)
}
