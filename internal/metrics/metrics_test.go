package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
)

func TestCountersAndTextOutput(t *testing.T) {
	m := New()
	m.ClassDeserialized()
	m.ClassDeserialized()
	m.StubCreated("incompatible")
	m.FakeOverrideCreated()
	m.ConflictReported("inheritance")
	m.FileResolved()
	m.ObservePhase("types", time.Now())
	m.ObserveDiagnostics([]*diagnostics.DiagnosticError{
		diagnostics.NewError(diagnostics.ErrO003, diagnostics.Position{}, "x"),
		diagnostics.NewWarning(diagnostics.ErrR007, diagnostics.Position{}, "y"),
	})

	s := lazy.NewStorage("s")
	_, _ = lazy.NewValue(s, func() (int, error) { return 1, nil }).Get()
	m.ObserveStorage(s)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeserializedClasses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StubClasses.WithLabelValues("incompatible")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Diagnostics.WithLabelValues("O003", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LazyComputations))

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), "semcore_deserialized_classes_total 2")
	assert.Contains(t, buf.String(), `semcore_override_conflicts_total{kind="inheritance"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ClassDeserialized()
		m.ObservePhase("x", time.Now())
		m.ObserveStorage(lazy.NewStorage("s"))
		require.NoError(t, m.WriteText(&bytes.Buffer{}))
	})
}
