// Package session carries the per-run state shared by every declaration:
// the lazy storage, the diagnostic reporter and the logger.
package session

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/metrics"
)

// Session is the resolution context of one compiler run. Declarations keep
// a pointer to the session that created them and live as long as it does.
type Session struct {
	ID       uuid.UUID
	Name     string
	Storage  *lazy.Storage
	Reporter diagnostics.Reporter
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	// Strict turns override conflicts into errors.
	Strict bool
}

type Option func(*Session)

func WithReporter(r diagnostics.Reporter) Option {
	return func(s *Session) { s.Reporter = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.Logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.Metrics = m }
}

func WithStrict(strict bool) Option {
	return func(s *Session) { s.Strict = strict }
}

func New(name string, opts ...Option) *Session {
	s := &Session{
		ID:       uuid.New(),
		Name:     name,
		Reporter: diagnostics.Discard,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Storage = lazy.NewStorage(name)
	s.Logger = s.Logger.With("session", name, "session_id", s.ID.String())
	return s
}

// Report forwards d to the session reporter.
func (s *Session) Report(d *diagnostics.DiagnosticError) {
	s.Reporter.Report(d)
}
