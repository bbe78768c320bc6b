// Package metrics exposes resolution counters on a private prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
)

type Metrics struct {
	Registry *prometheus.Registry

	DeserializedClasses prometheus.Counter
	StubClasses         *prometheus.CounterVec
	FakeOverrides       prometheus.Counter
	OverrideConflicts   *prometheus.CounterVec
	Diagnostics         *prometheus.CounterVec
	PhaseDuration       *prometheus.HistogramVec
	LazyComputations    prometheus.Gauge
	LazyRecursions      prometheus.Gauge
	ResolvedFiles       prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		DeserializedClasses: f.NewCounter(prometheus.CounterOpts{
			Name: "semcore_deserialized_classes_total",
			Help: "Class descriptors created from metadata.",
		}),
		StubClasses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semcore_stub_classes_total",
			Help: "Classes replaced by an empty stub, by reason.",
		}, []string{"reason"}),
		FakeOverrides: f.NewCounter(prometheus.CounterOpts{
			Name: "semcore_fake_overrides_total",
			Help: "Fake overrides synthesized by member scopes.",
		}),
		OverrideConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semcore_override_conflicts_total",
			Help: "Conflicts reported by the override engine, by kind.",
		}, []string{"kind"}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semcore_diagnostics_total",
			Help: "Reported diagnostics by code and severity.",
		}, []string{"code", "severity"}),
		PhaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "semcore_phase_seconds",
			Help:    "Time spent in a resolution phase.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		LazyComputations: f.NewGauge(prometheus.GaugeOpts{
			Name: "semcore_lazy_computations",
			Help: "Lazy cells computed in the session storage.",
		}),
		LazyRecursions: f.NewGauge(prometheus.GaugeOpts{
			Name: "semcore_lazy_recursions",
			Help: "Recursive reads of lazy cells detected in the session storage.",
		}),
		ResolvedFiles: f.NewCounter(prometheus.CounterOpts{
			Name: "semcore_resolved_files_total",
			Help: "Source files that reached body resolution.",
		}),
	}
}

func (m *Metrics) ClassDeserialized() {
	if m != nil {
		m.DeserializedClasses.Inc()
	}
}

func (m *Metrics) StubCreated(reason string) {
	if m != nil {
		m.StubClasses.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) FakeOverrideCreated() {
	if m != nil {
		m.FakeOverrides.Inc()
	}
}

func (m *Metrics) ConflictReported(kind string) {
	if m != nil {
		m.OverrideConflicts.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) FileResolved() {
	if m != nil {
		m.ResolvedFiles.Inc()
	}
}

// ObservePhase records the time elapsed since start for phase.
func (m *Metrics) ObservePhase(phase string, start time.Time) {
	if m != nil {
		m.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}

// ObserveDiagnostics counts diagnostics by code and severity.
func (m *Metrics) ObserveDiagnostics(diags []*diagnostics.DiagnosticError) {
	if m == nil {
		return
	}
	for _, d := range diags {
		m.Diagnostics.WithLabelValues(string(d.Code), d.Severity.String()).Inc()
	}
}

// ObserveStorage copies the counters of a lazy storage.
func (m *Metrics) ObserveStorage(s *lazy.Storage) {
	if m == nil || s == nil {
		return
	}
	st := s.Stats()
	m.LazyComputations.Set(float64(st.Computations))
	m.LazyRecursions.Set(float64(st.Recursions))
}

// WriteText writes all metrics in the prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
