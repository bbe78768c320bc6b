package diagnostics

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// Severity of a reported diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Position is a location in a source or metadata file. A zero Line means
// the position is unknown inside File.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) IsValid() bool {
	return p.File != "" || p.Line > 0
}

func (p Position) String() string {
	switch {
	case p.Line > 0 && p.File != "":
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	case p.Line > 0:
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	default:
		return p.File
	}
}

// DiagnosticError is a single reported problem.
type DiagnosticError struct {
	Code     ErrorCode
	Severity Severity
	Pos      Position
	Message  string
}

func (e *DiagnosticError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s[%s]: %s", e.Pos, e.Severity, e.Code, e.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Severity, e.Code, e.Message)
}

func NewError(code ErrorCode, pos Position, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Severity: SeverityError, Pos: pos, Message: msg}
}

func NewWarning(code ErrorCode, pos Position, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Severity: SeverityWarning, Pos: pos, Message: msg}
}

// Reporter receives diagnostics. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Report(d *DiagnosticError)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(d *DiagnosticError)

func (f ReporterFunc) Report(d *DiagnosticError) { f(d) }

// Discard drops every diagnostic.
var Discard Reporter = ReporterFunc(func(*DiagnosticError) {})

// Collector accumulates diagnostics from concurrent resolvers.
type Collector struct {
	mu    sync.Mutex
	diags []*DiagnosticError
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(d *DiagnosticError) {
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()
}

// Diagnostics returns a snapshot sorted by position, then code.
func (c *Collector) Diagnostics() []*DiagnosticError {
	c.mu.Lock()
	out := slices.Clone(c.diags)
	c.mu.Unlock()
	slices.SortStableFunc(out, func(a, b *DiagnosticError) int {
		if n := cmp.Compare(a.Pos.File, b.Pos.File); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Pos.Line, b.Pos.Line); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Pos.Column, b.Pos.Column); n != 0 {
			return n
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return out
}

// WithCode returns the collected diagnostics having the given code.
func (c *Collector) WithCode(code ErrorCode) []*DiagnosticError {
	var out []*DiagnosticError
	for _, d := range c.Diagnostics() {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diags)
}
