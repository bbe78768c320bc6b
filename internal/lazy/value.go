package lazy

import "sync/atomic"

// outcome is the published result of a computation. A recovered panic is
// kept and raised again on every read.
type outcome[T any] struct {
	value    T
	err      error
	panicked bool
	panicVal any
}

func (o *outcome[T]) unwrap() (T, error) {
	if o.panicked {
		panic(o.panicVal)
	}
	return o.value, o.err
}

// Value computes its content at most once, on first read, and caches the
// result including a returned error or a panic.
type Value[T any] struct {
	storage     *Storage
	name        string
	compute     func() (T, error)
	onRecursion func() T

	res       atomic.Pointer[outcome[T]]
	computing bool // guarded by storage lock
}

// NewValue returns a cell that runs compute on first read.
func NewValue[T any](s *Storage, compute func() (T, error)) *Value[T] {
	return &Value[T]{storage: s, compute: compute}
}

// NewRecursionTolerantValue returns a cell that yields onRecursion() instead
// of a RecursionError when read again during its own computation. The
// fallback is not cached.
func NewRecursionTolerantValue[T any](s *Storage, compute func() (T, error), onRecursion func() T) *Value[T] {
	return &Value[T]{storage: s, compute: compute, onRecursion: onRecursion}
}

// Named sets the label used in recursion errors.
func (v *Value[T]) Named(name string) *Value[T] {
	v.name = name
	return v
}

func (v *Value[T]) Get() (T, error) {
	if o := v.res.Load(); o != nil {
		return o.unwrap()
	}

	v.storage.lock.lock()
	defer v.storage.lock.unlock()

	if o := v.res.Load(); o != nil {
		return o.unwrap()
	}
	if v.computing {
		v.storage.recursions.Add(1)
		if v.onRecursion != nil {
			return v.onRecursion(), nil
		}
		var zero T
		return zero, &RecursionError{Storage: v.storage.name, Cell: v.name}
	}

	v.computing = true
	o := v.run()
	v.computing = false
	v.storage.computations.Add(1)
	if o.err != nil || o.panicked {
		v.storage.failures.Add(1)
	}
	v.res.Store(o)
	return o.unwrap()
}

// MustGet returns the value and panics with the cached error, if any.
func (v *Value[T]) MustGet() T {
	val, err := v.Get()
	if err != nil {
		panic(err)
	}
	return val
}

// IsComputed reports whether a result has been published.
func (v *Value[T]) IsComputed() bool {
	return v.res.Load() != nil
}

func (v *Value[T]) run() (o *outcome[T]) {
	o = &outcome[T]{}
	defer func() {
		if r := recover(); r != nil {
			o.panicked = true
			o.panicVal = r
		}
	}()
	o.value, o.err = v.compute()
	return o
}
