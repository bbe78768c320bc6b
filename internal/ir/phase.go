package ir

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/funvibe/semcore/internal/diagnostics"
)

// ResolvePhase is the resolution progress of a declaration. Phases only move
// forward.
type ResolvePhase int32

const (
	PhaseRaw ResolvePhase = iota
	PhaseDeclarations
	PhaseSuperTypes
	PhaseStatus
	PhaseTypes
	PhaseBodyResolve
)

func (p ResolvePhase) String() string {
	switch p {
	case PhaseRaw:
		return "RAW"
	case PhaseDeclarations:
		return "DECLARATIONS"
	case PhaseSuperTypes:
		return "SUPER_TYPES"
	case PhaseStatus:
		return "STATUS"
	case PhaseTypes:
		return "TYPES"
	case PhaseBodyResolve:
		return "BODY_RESOLVE"
	default:
		return fmt.Sprintf("ResolvePhase(%d)", int32(p))
	}
}

// Phases lists all phases in order.
var Phases = []ResolvePhase{PhaseRaw, PhaseDeclarations, PhaseSuperTypes, PhaseStatus, PhaseTypes, PhaseBodyResolve}

// ErrPhaseRewind is returned when a declaration is asked to move to an
// earlier phase.
var ErrPhaseRewind = errors.New("resolve phase cannot go back")

// PhaseTracker holds the phase of one declaration. The zero value is at
// PhaseRaw and is safe for concurrent use.
type PhaseTracker struct {
	phase atomic.Int32
}

func (t *PhaseTracker) Phase() ResolvePhase {
	return ResolvePhase(t.phase.Load())
}

// Advance moves the tracker to p. Advancing to the current phase is a no-op.
func (t *PhaseTracker) Advance(p ResolvePhase) error {
	for {
		cur := t.phase.Load()
		if int32(p) < cur {
			return fmt.Errorf("%w: %s -> %s", ErrPhaseRewind, ResolvePhase(cur), p)
		}
		if int32(p) == cur || t.phase.CompareAndSwap(cur, int32(p)) {
			return nil
		}
	}
}

// ReplaceResolvePhase is Advance for callers that treat a rewind as a bug.
func (t *PhaseTracker) ReplaceResolvePhase(p ResolvePhase) {
	if err := t.Advance(p); err != nil {
		diagnostics.Invariantf("%v", err)
	}
}

// RequirePhase asserts that d has reached at least p before a phase-gated
// read.
func RequirePhase(d Declaration, p ResolvePhase) {
	if cur := d.ResolvePhase(); cur < p {
		diagnostics.Invariantf("%s requires phase %s, declaration is at %s", describe(d), p, cur)
	}
}

func describe(d Declaration) string {
	if n, ok := d.(interface{ DeclarationName() string }); ok {
		return fmt.Sprintf("%T %s", d, n.DeclarationName())
	}
	return fmt.Sprintf("%T", d)
}
