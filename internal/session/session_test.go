package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/funvibe/semcore/internal/diagnostics"
)

func TestNewSession(t *testing.T) {
	c := diagnostics.NewCollector()
	s := New("demo", WithReporter(c), WithStrict(true))
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, "demo", s.Storage.Name())
	assert.True(t, s.Strict)

	s.Report(diagnostics.NewError(diagnostics.ErrR001, diagnostics.Position{}, "dup"))
	assert.Equal(t, 1, c.Len())

	other := New("demo")
	assert.NotEqual(t, s.ID, other.ID)
}
