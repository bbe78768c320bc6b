// Package ir is the typed, phase-tagged tree of declarations, type
// references, expressions and references produced by the front end and
// refined in place by resolution phases.
//
// Every element exposes its children in a fixed order: annotations, type
// information, nested declarations and expressions, then trailing
// references. Visitors observe children through AcceptChildren; transformers
// replace them through TransformChildren.
package ir

import (
	"reflect"

	"github.com/funvibe/semcore/internal/diagnostics"
)

type Element interface {
	Pos() diagnostics.Position
	AcceptChildren(v Visitor, data any)
	TransformChildren(t Transformer, data any) Element
}

// Visitor is called for an element; it decides whether to descend by calling
// AcceptChildren on it.
type Visitor interface {
	Visit(e Element, data any)
}

type VisitorFunc func(e Element, data any)

func (f VisitorFunc) Visit(e Element, data any) { f(e, data) }

// Transformer returns the replacement of an element. Returning the element
// itself keeps it.
type Transformer interface {
	Transform(e Element, data any) Element
}

type TransformerFunc func(e Element, data any) Element

func (f TransformerFunc) Transform(e Element, data any) Element { return f(e, data) }

// Walk visits e and all of its descendants in child order.
func Walk(e Element, v Visitor, data any) {
	if isNil(e) {
		return
	}
	var walker VisitorFunc
	walker = func(el Element, d any) {
		v.Visit(el, d)
		el.AcceptChildren(walker, d)
	}
	walker(e, data)
}

// Inspect calls fn for e and its descendants in pre-order. Children of an
// element are skipped when fn returns false for it.
func Inspect(e Element, fn func(Element) bool) {
	if isNil(e) {
		return
	}
	var inspector VisitorFunc
	inspector = func(el Element, d any) {
		if fn(el) {
			el.AcceptChildren(inspector, d)
		}
	}
	inspector(e, nil)
}

// Transform applies t to every descendant of e bottom-up and then to e.
func Transform(e Element, t Transformer, data any) Element {
	if isNil(e) {
		return e
	}
	var rec TransformerFunc
	rec = func(el Element, d any) Element {
		el = el.TransformChildren(rec, d)
		return t.Transform(el, d)
	}
	return rec(e, data)
}

func accept[E Element](v Visitor, e E, data any) {
	if !isNil(e) {
		v.Visit(e, data)
	}
}

func acceptAll[E Element](v Visitor, list []E, data any) {
	for _, e := range list {
		accept(v, e, data)
	}
}

// transformSingle replaces a slot of kind E. A transformer returning another
// kind of element breaks the tree and panics.
func transformSingle[E Element](t Transformer, e E, data any, slot string) E {
	if isNil(e) {
		return e
	}
	res := t.Transform(e, data)
	out, ok := res.(E)
	if !ok {
		diagnostics.Invariantf("transformer returned %T for %s slot", res, slot)
	}
	return out
}

func transformList[E Element](t Transformer, list []E, data any, slot string) []E {
	for i, e := range list {
		list[i] = transformSingle(t, e, data, slot)
	}
	return list
}

func isNil(e any) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
