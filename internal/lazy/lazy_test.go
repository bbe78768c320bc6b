package lazy

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct{ n int }

func TestValueComputesOnceUnderConcurrentReads(t *testing.T) {
	s := NewStorage("test")
	var calls atomic.Int32
	v := NewValue(s, func() (*payload, error) {
		calls.Add(1)
		return &payload{n: 42}, nil
	})

	const readers = 64
	results := make([]*payload, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := v.Get()
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
	assert.True(t, v.IsComputed())
	assert.Equal(t, int64(1), s.Stats().Computations)
}

func TestValueCachesErrors(t *testing.T) {
	s := NewStorage("test")
	calls := 0
	boom := errors.New("boom")
	v := NewValue(s, func() (int, error) {
		calls++
		return 0, boom
	})

	_, err := v.Get()
	require.ErrorIs(t, err, boom)
	_, err = v.Get()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), s.Stats().Failures)
}

func TestValueCachesPanics(t *testing.T) {
	s := NewStorage("test")
	calls := 0
	v := NewValue(s, func() (int, error) {
		calls++
		panic("bad record")
	})

	assert.PanicsWithValue(t, "bad record", func() { _, _ = v.Get() })
	assert.PanicsWithValue(t, "bad record", func() { _, _ = v.Get() })
	assert.Equal(t, 1, calls)
}

func TestValueRecursionIsReported(t *testing.T) {
	s := NewStorage("test")
	var v *Value[int]
	v = NewValue(s, func() (int, error) {
		n, err := v.Get()
		return n + 1, err
	}).Named("self")

	_, err := v.Get()
	require.ErrorIs(t, err, ErrRecursiveComputation)
	var re *RecursionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "self", re.Cell)
	assert.Equal(t, int64(1), s.Stats().Recursions)

	// The failure is cached like any other.
	_, err = v.Get()
	assert.ErrorIs(t, err, ErrRecursiveComputation)
}

func TestRecursionTolerantValueUsesFallback(t *testing.T) {
	s := NewStorage("test")
	var a, b *Value[[]string]
	a = NewRecursionTolerantValue(s, func() ([]string, error) {
		inner, _ := b.Get()
		return append([]string{"a"}, inner...), nil
	}, func() []string { return []string{"<loop>"} })
	b = NewRecursionTolerantValue(s, func() ([]string, error) {
		inner, _ := a.Get()
		return append([]string{"b"}, inner...), nil
	}, func() []string { return []string{"<loop>"} })

	got, err := a.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "<loop>"}, got)

	// b finished first, with the fallback baked in.
	got, err = b.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "<loop>"}, got)
}

func TestMutuallyDependentCellsDoNotDeadlock(t *testing.T) {
	s := NewStorage("test")
	var x, y *Value[int]
	x = NewValue(s, func() (int, error) {
		if y.IsComputed() {
			return y.MustGet() + 1, nil
		}
		return 1, nil
	})
	y = NewValue(s, func() (int, error) { return x.MustGet() + 1, nil })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = x.Get() }()
		go func() { defer wg.Done(); _, _ = y.Get() }()
	}
	wg.Wait()
	assert.True(t, x.IsComputed())
	assert.True(t, y.IsComputed())
}

func TestFuncOncePerKey(t *testing.T) {
	s := NewStorage("test")
	var calls sync.Map
	f := NewFunc(s, func(k string) (*payload, error) {
		n, _ := calls.LoadOrStore(k, new(atomic.Int32))
		n.(*atomic.Int32).Add(1)
		return &payload{n: len(k)}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"a", "bb", "ccc"}[i%3]
			p, err := f.Get(key)
			assert.NoError(t, err)
			assert.Equal(t, len(key), p.n)
		}(i)
	}
	wg.Wait()

	calls.Range(func(_, v any) bool {
		assert.Equal(t, int32(1), v.(*atomic.Int32).Load())
		return true
	})
	assert.Same(t, f.MustGet("bb"), f.MustGet("bb"))
	assert.True(t, f.IsComputed("a"))
	assert.False(t, f.IsComputed("dddd"))

	seen := map[string]int{}
	f.Computed(func(k string, p *payload) bool {
		seen[k] = p.n
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "bb": 2, "ccc": 3}, seen)
}

func TestFuncRecursionThroughKey(t *testing.T) {
	s := NewStorage("test")
	var f *Func[int, int]
	f = NewFunc(s, func(k int) (int, error) {
		if k == 0 {
			return f.Get(0)
		}
		return k, nil
	}).Named("depth")

	_, err := f.Get(0)
	require.ErrorIs(t, err, ErrRecursiveComputation)
	assert.Contains(t, err.Error(), "depth(0)")
	n, err := f.Get(3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
