package diagnostics

import (
	"errors"
	"fmt"
)

// InvariantError is raised (as a panic value) when a core invariant is
// broken by the caller: double binding, rewinding a phase, setting module
// dependencies twice. It is never meant to be recovered from during
// resolution.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Message
}

// Invariantf panics with an *InvariantError.
func Invariantf(format string, args ...any) {
	panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
}

// Assert panics with an *InvariantError when cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		Invariantf(format, args...)
	}
}

// FatalError is raised (as a panic value) for input that makes continuing
// impossible, such as a missing foundational built-in. Loaders recover it
// with RecoverFatal and abort the affected module.
type FatalError struct {
	Code    ErrorCode
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal[%s]: %s", e.Code, e.Message)
}

// Fatalf panics with a *FatalError.
func Fatalf(code ErrorCode, format string, args ...any) {
	panic(&FatalError{Code: code, Message: fmt.Sprintf(format, args...)})
}

// RecoverFatal converts a *FatalError panic into an error stored in *errp.
// Any other panic value is re-raised.
//
//	defer diagnostics.RecoverFatal(&err)
func RecoverFatal(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if fe, ok := r.(*FatalError); ok {
		*errp = fe
		return
	}
	panic(r)
}

// IsFatal reports whether err is or wraps a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
