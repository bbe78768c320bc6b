package ir

import (
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/symbols"
)

// Reference is the callee of an access or a trailing reference of a
// declaration.
type Reference interface {
	Element
	referenceNode()
}

// NamedReference names the target of an access.
type NamedReference interface {
	Reference
	ReferencedName() names.Name
}

// ReferenceTarget is the symbol a resolved reference points to.
type ReferenceTarget interface {
	Kind() symbols.Kind
	IsBound() bool
	String() string
}

// SimpleNamedReference is an unresolved name.
type SimpleNamedReference struct {
	Source diagnostics.Position
	Name   names.Name
}

func (r *SimpleNamedReference) Pos() diagnostics.Position                  { return r.Source }
func (r *SimpleNamedReference) referenceNode()                             {}
func (r *SimpleNamedReference) ReferencedName() names.Name                 { return r.Name }
func (r *SimpleNamedReference) AcceptChildren(Visitor, any)                {}
func (r *SimpleNamedReference) TransformChildren(Transformer, any) Element { return r }

// ResolvedNamedReference points at the symbol a name resolved to.
type ResolvedNamedReference struct {
	Source diagnostics.Position
	Name   names.Name
	Target ReferenceTarget
}

func (r *ResolvedNamedReference) Pos() diagnostics.Position                  { return r.Source }
func (r *ResolvedNamedReference) referenceNode()                             {}
func (r *ResolvedNamedReference) ReferencedName() names.Name                 { return r.Name }
func (r *ResolvedNamedReference) AcceptChildren(Visitor, any)                {}
func (r *ResolvedNamedReference) TransformChildren(Transformer, any) Element { return r }

// ErrorNamedReference is a name that failed to resolve.
type ErrorNamedReference struct {
	Source diagnostics.Position
	Name   names.Name
	Reason string
}

func (r *ErrorNamedReference) Pos() diagnostics.Position                  { return r.Source }
func (r *ErrorNamedReference) referenceNode()                             {}
func (r *ErrorNamedReference) ReferencedName() names.Name                 { return r.Name }
func (r *ErrorNamedReference) AcceptChildren(Visitor, any)                {}
func (r *ErrorNamedReference) TransformChildren(Transformer, any) Element { return r }

// ControlFlowGraphReference attaches a control-flow graph to its owner.
type ControlFlowGraphReference struct {
	Graph *ControlFlowGraph
}

func (r *ControlFlowGraphReference) Pos() diagnostics.Position                  { return diagnostics.Position{} }
func (r *ControlFlowGraphReference) referenceNode()                             {}
func (r *ControlFlowGraphReference) AcceptChildren(Visitor, any)                {}
func (r *ControlFlowGraphReference) TransformChildren(Transformer, any) Element { return r }

type CFGNodeKind int

const (
	CFGEnter CFGNodeKind = iota
	CFGStatement
	CFGJump
	CFGExit
)

func (k CFGNodeKind) String() string {
	switch k {
	case CFGEnter:
		return "enter"
	case CFGStatement:
		return "statement"
	case CFGJump:
		return "jump"
	default:
		return "exit"
	}
}

// CFGNode is a node of a control-flow graph. Element is nil for enter and
// exit nodes.
type CFGNode struct {
	ID      int
	Kind    CFGNodeKind
	Element Element
	Next    []int
	Dead    bool
}

// ControlFlowGraph is the graph of one function body.
type ControlFlowGraph struct {
	Name  string
	Nodes []*CFGNode
}

// DeadNodes returns statement nodes unreachable from the enter node.
func (g *ControlFlowGraph) DeadNodes() []*CFGNode {
	var out []*CFGNode
	for _, n := range g.Nodes {
		if n.Dead && n.Element != nil {
			out = append(out, n)
		}
	}
	return out
}
