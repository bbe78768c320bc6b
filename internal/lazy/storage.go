// Package lazy provides compute-once cells and memoized functions shared by
// every on-demand field of declarations and descriptors.
//
// All cells created from one Storage are guarded by a single re-entrant lock,
// so two goroutines computing mutually dependent cells cannot deadlock: the
// second one waits for the first to finish its whole computation. Reading a
// published value never takes the lock.
package lazy

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// ErrRecursiveComputation is matched (via errors.Is) by the error returned
// when a cell is read again while it is being computed on the same goroutine.
var ErrRecursiveComputation = errors.New("recursive computation")

// RecursionError reports a cycle through a lazy cell.
type RecursionError struct {
	Storage string
	Cell    string
}

func (e *RecursionError) Error() string {
	if e.Cell != "" {
		return fmt.Sprintf("%s: recursive computation of %s", e.Storage, e.Cell)
	}
	return fmt.Sprintf("%s: recursive computation", e.Storage)
}

func (e *RecursionError) Is(target error) bool {
	return target == ErrRecursiveComputation
}

// Stats is a snapshot of storage counters.
type Stats struct {
	Computations int64
	Recursions   int64
	Failures     int64
}

// Storage owns the lock and counters shared by a family of cells, usually
// one per resolution session.
type Storage struct {
	name string
	lock reentrantLock

	computations atomic.Int64
	recursions   atomic.Int64
	failures     atomic.Int64
}

func NewStorage(name string) *Storage {
	return &Storage{name: name}
}

func (s *Storage) Name() string {
	return s.name
}

func (s *Storage) Stats() Stats {
	return Stats{
		Computations: s.computations.Load(),
		Recursions:   s.recursions.Load(),
		Failures:     s.failures.Load(),
	}
}

// reentrantLock is a mutex that the owning goroutine may acquire again.
type reentrantLock struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

func (l *reentrantLock) lock() {
	id := goid.Get()
	if l.owner.Load() == id {
		l.depth++
		return
	}
	l.mu.Lock()
	l.owner.Store(id)
	l.depth = 1
}

func (l *reentrantLock) unlock() {
	l.depth--
	if l.depth == 0 {
		l.owner.Store(0)
		l.mu.Unlock()
	}
}
