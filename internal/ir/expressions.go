package ir

import (
	"fmt"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/names"
)

// Statement is an element that can appear in a block.
type Statement interface {
	Element
	statementNode()
}

// Expression is a statement with a type. The type ref starts implicit and
// is replaced once by body resolution.
type Expression interface {
	Statement
	Annotations() []*Annotation
	TypeRef() TypeRef
	ReplaceTypeRef(ref TypeRef)
	expressionNode()
}

type expression struct {
	source      diagnostics.Position
	annotations []*Annotation
	typeRef     TypeRef
}

func newExpression(pos diagnostics.Position) expression {
	return expression{source: pos, typeRef: &ImplicitTypeRef{Source: pos}}
}

func (e *expression) Pos() diagnostics.Position  { return e.source }
func (e *expression) Annotations() []*Annotation { return e.annotations }
func (e *expression) TypeRef() TypeRef           { return e.typeRef }
func (e *expression) statementNode()             {}
func (e *expression) expressionNode()            {}

func (e *expression) ReplaceTypeRef(ref TypeRef) {
	replaceTypeSlot(&e.typeRef, ref, "expression type")
}

func (e *expression) ReplaceAnnotations(a []*Annotation) {
	e.annotations = a
}

func (e *expression) acceptHead(v Visitor, data any) {
	acceptAll(v, e.annotations, data)
	accept(v, e.typeRef, data)
}

func (e *expression) transformHead(t Transformer, data any) {
	e.annotations = transformList(t, e.annotations, data, "annotation")
	e.typeRef = transformSingle(t, e.typeRef, data, "expression type")
}

// Block is a sequence of statements. Its type is the type of the last
// expression statement.
type Block struct {
	expression
	Statements []Statement
}

func NewBlock(pos diagnostics.Position, stmts ...Statement) *Block {
	return &Block{expression: newExpression(pos), Statements: stmts}
}

func (b *Block) AcceptChildren(v Visitor, data any) {
	b.acceptHead(v, data)
	acceptAll(v, b.Statements, data)
}

func (b *Block) TransformChildren(t Transformer, data any) Element {
	b.transformHead(t, data)
	b.Statements = transformList(t, b.Statements, data, "statement")
	return b
}

type ConstKind int

const (
	ConstNull ConstKind = iota
	ConstBoolean
	ConstChar
	ConstInt
	ConstLong
	ConstDouble
	ConstString
)

func (k ConstKind) String() string {
	switch k {
	case ConstBoolean:
		return "Boolean"
	case ConstChar:
		return "Char"
	case ConstInt:
		return "Int"
	case ConstLong:
		return "Long"
	case ConstDouble:
		return "Double"
	case ConstString:
		return "String"
	default:
		return "Null"
	}
}

// ConstExpression is a literal.
type ConstExpression struct {
	expression
	Kind  ConstKind
	Value any
}

func NewConst(pos diagnostics.Position, kind ConstKind, value any) *ConstExpression {
	return &ConstExpression{expression: newExpression(pos), Kind: kind, Value: value}
}

func (c *ConstExpression) AcceptChildren(v Visitor, data any) {
	c.acceptHead(v, data)
}

func (c *ConstExpression) TransformChildren(t Transformer, data any) Element {
	c.transformHead(t, data)
	return c
}

func (c *ConstExpression) String() string {
	switch c.Kind {
	case ConstNull:
		return "null"
	case ConstString:
		return fmt.Sprintf("%q", c.Value)
	case ConstChar:
		return fmt.Sprintf("'%c'", c.Value)
	default:
		return fmt.Sprint(c.Value)
	}
}

type qualifiedAccess struct {
	expression
	ExplicitReceiver Expression
	callee           NamedReference
}

func (q *qualifiedAccess) CalleeReference() NamedReference { return q.callee }

// ReplaceCalleeReference stores the resolved callee.
func (q *qualifiedAccess) ReplaceCalleeReference(ref NamedReference) {
	q.callee = ref
}

// QualifiedAccessExpression reads a variable or property, optionally through
// an explicit receiver: a.b.
type QualifiedAccessExpression struct {
	qualifiedAccess
}

func NewQualifiedAccess(pos diagnostics.Position, receiver Expression, name names.Name) *QualifiedAccessExpression {
	q := &QualifiedAccessExpression{}
	q.expression = newExpression(pos)
	q.ExplicitReceiver = receiver
	q.callee = &SimpleNamedReference{Source: pos, Name: name}
	return q
}

func (q *QualifiedAccessExpression) AcceptChildren(v Visitor, data any) {
	q.acceptHead(v, data)
	accept(v, q.ExplicitReceiver, data)
	accept(v, q.callee, data)
}

func (q *QualifiedAccessExpression) TransformChildren(t Transformer, data any) Element {
	q.transformHead(t, data)
	q.ExplicitReceiver = transformSingle(t, q.ExplicitReceiver, data, "explicit receiver")
	q.callee = transformSingle(t, q.callee, data, "callee reference")
	return q
}

// FunctionCall calls a function by name: a.f(x).
type FunctionCall struct {
	qualifiedAccess
	Arguments []Expression
}

func NewFunctionCall(pos diagnostics.Position, receiver Expression, name names.Name, args ...Expression) *FunctionCall {
	c := &FunctionCall{Arguments: args}
	c.expression = newExpression(pos)
	c.ExplicitReceiver = receiver
	c.callee = &SimpleNamedReference{Source: pos, Name: name}
	return c
}

func (c *FunctionCall) AcceptChildren(v Visitor, data any) {
	c.acceptHead(v, data)
	accept(v, c.ExplicitReceiver, data)
	acceptAll(v, c.Arguments, data)
	accept(v, c.callee, data)
}

func (c *FunctionCall) TransformChildren(t Transformer, data any) Element {
	c.transformHead(t, data)
	c.ExplicitReceiver = transformSingle(t, c.ExplicitReceiver, data, "explicit receiver")
	c.Arguments = transformList(t, c.Arguments, data, "argument")
	c.callee = transformSingle(t, c.callee, data, "callee reference")
	return c
}

// ReturnExpression returns from the enclosing function. Its type is Nothing.
type ReturnExpression struct {
	expression
	Result Expression
}

func NewReturn(pos diagnostics.Position, result Expression) *ReturnExpression {
	return &ReturnExpression{expression: newExpression(pos), Result: result}
}

func (r *ReturnExpression) AcceptChildren(v Visitor, data any) {
	r.acceptHead(v, data)
	accept(v, r.Result, data)
}

func (r *ReturnExpression) TransformChildren(t Transformer, data any) Element {
	r.transformHead(t, data)
	r.Result = transformSingle(t, r.Result, data, "return result")
	return r
}

// Annotation is an annotation use: @Foo(args).
type Annotation struct {
	expression
	AnnotationTypeRef TypeRef
	Arguments         []Expression
}

func NewAnnotation(pos diagnostics.Position, typeRef TypeRef, args ...Expression) *Annotation {
	return &Annotation{expression: newExpression(pos), AnnotationTypeRef: typeRef, Arguments: args}
}

func (a *Annotation) AcceptChildren(v Visitor, data any) {
	a.acceptHead(v, data)
	accept(v, a.AnnotationTypeRef, data)
	acceptAll(v, a.Arguments, data)
}

func (a *Annotation) TransformChildren(t Transformer, data any) Element {
	a.transformHead(t, data)
	a.AnnotationTypeRef = transformSingle(t, a.AnnotationTypeRef, data, "annotation type")
	a.Arguments = transformList(t, a.Arguments, data, "annotation argument")
	return a
}

// DelegatedConstructorCall is the this(...) or super(...) call of a
// constructor.
type DelegatedConstructorCall struct {
	expression
	ConstructedTypeRef TypeRef
	IsSuper            bool
	Arguments          []Expression
	callee             NamedReference
}

func NewDelegatedConstructorCall(pos diagnostics.Position, constructed TypeRef, isSuper bool, args ...Expression) *DelegatedConstructorCall {
	name := names.Name("this")
	if isSuper {
		name = "super"
	}
	return &DelegatedConstructorCall{
		expression:         newExpression(pos),
		ConstructedTypeRef: constructed,
		IsSuper:            isSuper,
		Arguments:          args,
		callee:             &SimpleNamedReference{Source: pos, Name: name},
	}
}

func (c *DelegatedConstructorCall) CalleeReference() NamedReference { return c.callee }

func (c *DelegatedConstructorCall) ReplaceCalleeReference(ref NamedReference) {
	c.callee = ref
}

func (c *DelegatedConstructorCall) AcceptChildren(v Visitor, data any) {
	c.acceptHead(v, data)
	accept(v, c.ConstructedTypeRef, data)
	acceptAll(v, c.Arguments, data)
	accept(v, c.callee, data)
}

func (c *DelegatedConstructorCall) TransformChildren(t Transformer, data any) Element {
	c.transformHead(t, data)
	c.ConstructedTypeRef = transformSingle(t, c.ConstructedTypeRef, data, "constructed type")
	c.Arguments = transformList(t, c.Arguments, data, "argument")
	c.callee = transformSingle(t, c.callee, data, "callee reference")
	return c
}

// ErrorExpression stands for an expression that could not be built.
type ErrorExpression struct {
	expression
	Reason string
}

func NewErrorExpression(pos diagnostics.Position, reason string) *ErrorExpression {
	return &ErrorExpression{expression: newExpression(pos), Reason: reason}
}

func (e *ErrorExpression) AcceptChildren(v Visitor, data any) {
	e.acceptHead(v, data)
}

func (e *ErrorExpression) TransformChildren(t Transformer, data any) Element {
	e.transformHead(t, data)
	return e
}

// Callee is implemented by expressions that resolve a name.
type Callee interface {
	Expression
	CalleeReference() NamedReference
	ReplaceCalleeReference(ref NamedReference)
}
