package diagnostics

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticErrorFormatting(t *testing.T) {
	d := NewError(ErrR001, Position{File: "a.decl.yaml", Line: 3, Column: 5}, "class 'Foo' is already declared")
	assert.Equal(t, "a.decl.yaml:3:5: error[R001]: class 'Foo' is already declared", d.Error())

	w := NewWarning(ErrR007, Position{}, "unreachable code")
	assert.Equal(t, "warning[R007]: unreachable code", w.Error())
	assert.Equal(t, "unreachable code", ErrR007.Title())
}

func TestCollectorIsSafeForConcurrentUse(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Report(NewWarning(ErrR007, Position{File: "f", Line: 50 - i}, fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()

	got := c.Diagnostics()
	require.Len(t, got, 50)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Pos.Line, got[i].Pos.Line)
	}
	assert.False(t, c.HasErrors())

	c.Report(NewError(ErrO003, Position{}, "x"))
	assert.True(t, c.HasErrors())
	assert.Len(t, c.WithCode(ErrO003), 1)
}

func TestRecoverFatal(t *testing.T) {
	load := func() (err error) {
		defer RecoverFatal(&err)
		Fatalf(ErrM005, "built-in %s is missing", "lang/Any")
		return nil
	}
	err := load()
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "lang/Any")
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestRecoverFatalRepanicsOtherValues(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		var err error
		defer RecoverFatal(&err)
		panic("boom")
	})
}

func TestAssert(t *testing.T) {
	assert.NotPanics(t, func() { Assert(true, "never") })
	defer func() {
		r := recover()
		ie, ok := r.(*InvariantError)
		require.True(t, ok)
		assert.Equal(t, "invariant violation: phase went from 3 to 1", ie.Error())
	}()
	Assert(false, "phase went from %d to %d", 3, 1)
}
