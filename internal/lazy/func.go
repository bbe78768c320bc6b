package lazy

import (
	"fmt"
	"sync"
)

// Func is a memoized function: compute runs at most once per key.
type Func[K comparable, V any] struct {
	storage *Storage
	name    string
	compute func(K) (V, error)
	cells   sync.Map // K -> *Value[V]
}

func NewFunc[K comparable, V any](s *Storage, compute func(K) (V, error)) *Func[K, V] {
	return &Func[K, V]{storage: s, compute: compute}
}

// Named sets the label used in recursion errors.
func (f *Func[K, V]) Named(name string) *Func[K, V] {
	f.name = name
	return f
}

func (f *Func[K, V]) Get(key K) (V, error) {
	return f.cell(key).Get()
}

func (f *Func[K, V]) MustGet(key K) V {
	return f.cell(key).MustGet()
}

// IsComputed reports whether a result for key has been published.
func (f *Func[K, V]) IsComputed(key K) bool {
	c, ok := f.cells.Load(key)
	return ok && c.(*Value[V]).IsComputed()
}

// Computed calls fn for every key whose value is published and successful.
func (f *Func[K, V]) Computed(fn func(K, V) bool) {
	f.cells.Range(func(k, c any) bool {
		cell := c.(*Value[V])
		o := cell.res.Load()
		if o == nil || o.err != nil || o.panicked {
			return true
		}
		return fn(k.(K), o.value)
	})
}

func (f *Func[K, V]) cell(key K) *Value[V] {
	if c, ok := f.cells.Load(key); ok {
		return c.(*Value[V])
	}
	fresh := NewValue(f.storage, func() (V, error) { return f.compute(key) })
	if f.name != "" {
		fresh.name = fmt.Sprintf("%s(%v)", f.name, key)
	}
	c, _ := f.cells.LoadOrStore(key, fresh)
	return c.(*Value[V])
}
