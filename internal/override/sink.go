package override

import (
	"fmt"
	"strings"
	"sync"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/metrics"
)

// Sink receives what the engine produces for one member name. Conflicts
// are reported, never merged; the sink decides how much they matter.
type Sink interface {
	AddFakeOverride(fake descriptors.CallableMemberDescriptor)
	// OverrideConflict is called when fromCurrent matches the signature of
	// fromSuper but its return type is incompatible.
	OverrideConflict(fromSuper, fromCurrent descriptors.CallableMemberDescriptor)
	// InheritanceConflict is called when a class inherits two
	// implementations of one member from unrelated supertypes.
	InheritanceConflict(first, second descriptors.CallableMemberDescriptor)
	CannotInferVisibility(fake descriptors.CallableMemberDescriptor)
}

// Policy tells a Collector how to treat conflicts.
type Policy int

const (
	// Strict reports conflicts as errors, as a compiler does.
	Strict Policy = iota
	// Lenient reports conflicts as warnings.
	Lenient
	// Silent drops conflicts, for best-effort display of broken code.
	Silent
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	default:
		return "silent"
	}
}

// PolicyFor maps a session's strict flag to a policy.
func PolicyFor(strict bool) Policy {
	if strict {
		return Strict
	}
	return Lenient
}

// Collector is a Sink that keeps the fake overrides of one class and turns
// conflicts into diagnostics according to its Policy.
type Collector struct {
	Owner    descriptors.ClassDescriptor
	Policy   Policy
	Reporter diagnostics.Reporter
	Metrics  *metrics.Metrics

	mu    sync.Mutex
	fakes []descriptors.CallableMemberDescriptor
}

func NewCollector(owner descriptors.ClassDescriptor, policy Policy, r diagnostics.Reporter, m *metrics.Metrics) *Collector {
	if r == nil {
		r = diagnostics.Discard
	}
	return &Collector{Owner: owner, Policy: policy, Reporter: r, Metrics: m}
}

func (c *Collector) AddFakeOverride(fake descriptors.CallableMemberDescriptor) {
	c.mu.Lock()
	c.fakes = append(c.fakes, fake)
	c.mu.Unlock()
	c.Metrics.FakeOverrideCreated()
}

// FakeOverrides returns the fake overrides collected so far.
func (c *Collector) FakeOverrides() []descriptors.CallableMemberDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]descriptors.CallableMemberDescriptor(nil), c.fakes...)
}

func (c *Collector) OverrideConflict(fromSuper, fromCurrent descriptors.CallableMemberDescriptor) {
	c.report(diagnostics.ErrO005, "override", positionOf(fromCurrent, c.Owner),
		fmt.Sprintf("return type of %s is not a subtype of the return type of overridden %s",
			Signature(fromCurrent), Signature(fromSuper)))
}

func (c *Collector) InheritanceConflict(first, second descriptors.CallableMemberDescriptor) {
	c.report(diagnostics.ErrO001, "inheritance", positionOf(c.Owner, nil),
		fmt.Sprintf("%s inherits conflicting members: %s and %s",
			descriptors.FqNameOf(c.Owner), Signature(first), Signature(second)))
}

func (c *Collector) CannotInferVisibility(fake descriptors.CallableMemberDescriptor) {
	c.report(diagnostics.ErrO002, "visibility", positionOf(c.Owner, nil),
		fmt.Sprintf("cannot infer visibility of inherited %s in %s, using %s",
			Signature(fake), descriptors.FqNameOf(c.Owner), fake.Visibility()))
}

func (c *Collector) report(code diagnostics.ErrorCode, kind string, pos diagnostics.Position, msg string) {
	switch c.Policy {
	case Strict:
		c.Reporter.Report(diagnostics.NewError(code, pos, msg))
	case Lenient:
		c.Reporter.Report(diagnostics.NewWarning(code, pos, msg))
	default:
		return
	}
	c.Metrics.ConflictReported(kind)
}

type positioned interface {
	SourcePosition() diagnostics.Position
}

// positionOf returns the source position of the first argument that has
// a valid one.
func positionOf(ds ...descriptors.DeclarationDescriptor) diagnostics.Position {
	for _, d := range ds {
		if p, ok := d.(positioned); ok && p.SourcePosition().IsValid() {
			return p.SourcePosition()
		}
	}
	return diagnostics.Position{}
}

// Signature renders a member as owner.name(params): return for messages.
func Signature(m descriptors.CallableMemberDescriptor) string {
	var sb strings.Builder
	if owner := m.ContainingDeclaration(); owner != nil {
		sb.WriteString(descriptors.FqNameOf(owner).String())
		sb.WriteByte('.')
	}
	if r := m.ExtensionReceiverType(); r != nil {
		sb.WriteString(r.String())
		sb.WriteByte('.')
	}
	sb.WriteString(m.Name().String())
	if _, ok := m.(descriptors.FunctionDescriptor); ok {
		sb.WriteByte('(')
		for i, p := range m.ValueParameters() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(typeString(p.Type()))
		}
		sb.WriteByte(')')
	}
	sb.WriteString(": ")
	sb.WriteString(typeString(m.ReturnType()))
	return sb.String()
}

func typeString(t interface{ String() string }) string {
	if t == nil {
		return "?"
	}
	return t.String()
}
