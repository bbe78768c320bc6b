package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/metrics"
	"github.com/funvibe/semcore/internal/modules"
	"github.com/funvibe/semcore/internal/resolve"
	"github.com/funvibe/semcore/internal/session"
)

const instrumentationName = "github.com/funvibe/semcore/internal/pipeline"

// PipelineContext is the state passed from one stage to the next. Stages
// fill the fields they produce and leave the others alone.
type PipelineContext struct {
	Context context.Context

	// ProjectPath is a project file or a directory to search from.
	ProjectPath string
	Project     *config.Project
	Session     *session.Session
	Graph       *modules.Graph

	// Files and Resolvers are keyed by module name.
	Files     map[string][]*ir.File
	Resolvers map[string]*resolve.Session

	Diagnostics *diagnostics.Collector
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Tracer      trace.Tracer

	// LogLevel, when set, takes the level of the project file.
	LogLevel *slog.LevelVar

	// Errors are failures that are not diagnostics: unreadable project
	// files, fatal resolution errors, cancellation.
	Errors []error
}

type Option func(*PipelineContext)

func WithLogger(l *slog.Logger) Option {
	return func(c *PipelineContext) { c.Logger = l }
}

func WithLogLevel(v *slog.LevelVar) Option {
	return func(c *PipelineContext) { c.LogLevel = v }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *PipelineContext) { c.Metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *PipelineContext) { c.Tracer = tp.Tracer(instrumentationName) }
}

// WithProject skips the lookup of the project file.
func WithProject(p *config.Project) Option {
	return func(c *PipelineContext) { c.Project = p }
}

func NewPipelineContext(ctx context.Context, projectPath string, opts ...Option) *PipelineContext {
	c := &PipelineContext{
		Context:     ctx,
		ProjectPath: projectPath,
		Files:       make(map[string][]*ir.File),
		Resolvers:   make(map[string]*resolve.Session),
		Diagnostics: diagnostics.NewCollector(),
		Logger:      slog.Default(),
		Tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PipelineContext) AddError(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Err joins the errors of every stage.
func (c *PipelineContext) Err() error {
	return errors.Join(c.Errors...)
}

// Failed reports whether the run produced errors or error diagnostics.
func (c *PipelineContext) Failed() bool {
	return len(c.Errors) > 0 || c.Diagnostics.HasErrors()
}

// Close releases the resources held by the module graph.
func (c *PipelineContext) Close() error {
	if c.Graph == nil {
		return nil
	}
	return c.Graph.Close()
}
