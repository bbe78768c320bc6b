package pipeline

import (
	"errors"
	"fmt"
	"os"

	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/deserialization"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/irload"
	"github.com/funvibe/semcore/internal/modules"
	"github.com/funvibe/semcore/internal/resolve"
	"github.com/funvibe/semcore/internal/session"
)

// ProjectLoader reads the project file and opens the session.
type ProjectLoader struct{}

func (ProjectLoader) Name() string { return "project" }

func (ProjectLoader) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Project == nil {
		p, err := loadProject(ctx.ProjectPath)
		if err != nil {
			ctx.AddError(err)
			return ctx
		}
		ctx.Project = p
	}
	p := ctx.Project
	if ctx.LogLevel != nil {
		if err := ctx.LogLevel.UnmarshalText([]byte(p.LogLevel)); err != nil {
			ctx.AddError(err)
		}
	}
	ctx.Session = session.New(p.Name,
		session.WithReporter(ctx.Diagnostics),
		session.WithLogger(ctx.Logger),
		session.WithMetrics(ctx.Metrics),
		session.WithStrict(p.Strict),
	)
	ctx.Session.Logger.Info("project loaded", "root", p.Root, "modules", len(p.Modules), "workers", p.Workers)
	return ctx
}

func loadProject(path string) (*config.Project, error) {
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		found, err := config.FindProject(path)
		if err != nil {
			return nil, err
		}
		if found == "" {
			return nil, fmt.Errorf("no project file found in %s or its parents", path)
		}
		path = found
	}
	return config.LoadProject(path)
}

// GraphBuilder loads every module with its metadata and the declaration
// files matched by its source globs. Syntax errors are reported as
// diagnostics and the files that parsed are still resolved.
type GraphBuilder struct{}

func (GraphBuilder) Name() string { return "graph" }

func (GraphBuilder) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Session == nil {
		return ctx
	}
	loader := modules.NewLoader(ctx.Session, ctx.Project)
	loader.Sources = func(m *modules.Module, cfg *config.ModuleConfig, _ *deserialization.Components) (descriptors.PackageFragmentProvider, error) {
		return ctx.loadSources(m, cfg)
	}
	g, err := loader.Load()
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Graph = g
	return ctx
}

func (ctx *PipelineContext) loadSources(m *modules.Module, cfg *config.ModuleConfig) (descriptors.PackageFragmentProvider, error) {
	if len(cfg.Sources) == 0 {
		return nil, nil
	}
	paths, err := modules.MatchFiles(ctx.Project.Root, cfg.Sources)
	if err != nil {
		return nil, err
	}
	loaded, err := irload.LoadFiles(ctx.Context, ctx.Session, paths, ctx.Project.Workers)
	if loaded == nil && err != nil {
		return nil, err
	}
	ctx.reportLoadError(err)

	files := make([]*ir.File, 0, len(loaded))
	for _, f := range loaded {
		if f != nil {
			files = append(files, f)
		}
	}
	rs := resolve.NewSession(ctx.Session, m, files, resolve.WithWorkers(ctx.Project.Workers))
	rs.Collect()
	ctx.Files[cfg.Name] = files
	ctx.Resolvers[cfg.Name] = rs
	ctx.Session.Logger.Debug("sources collected", "module", cfg.Name, "files", len(files), "matched", len(paths))
	return rs.Provider(), nil
}

// reportLoadError turns syntax errors into diagnostics. Other failures,
// such as unreadable files, are kept as errors.
func (ctx *PipelineContext) reportLoadError(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			ctx.reportLoadError(e)
		}
		return
	}
	var syntax *irload.SyntaxError
	if errors.As(err, &syntax) {
		for _, d := range syntax.Diagnostics {
			ctx.Session.Report(d)
		}
		return
	}
	ctx.AddError(err)
}

// ModuleResolver resolves the sources of every module, dependencies first.
type ModuleResolver struct{}

func (ModuleResolver) Name() string { return "resolve" }

func (ModuleResolver) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Graph == nil {
		return ctx
	}
	order, err := ctx.Project.ModuleOrder()
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	for _, cfg := range order {
		rs, ok := ctx.Resolvers[cfg.Name]
		if !ok {
			continue
		}
		if err := rs.Resolve(ctx.Context); err != nil {
			ctx.AddError(fmt.Errorf("module %s: %w", cfg.Name, err))
			var fatal *diagnostics.FatalError
			if errors.As(err, &fatal) || ctx.Context.Err() != nil {
				return ctx
			}
		}
	}
	return ctx
}

// DiagnosticsSummary counts the reported diagnostics and logs the outcome.
type DiagnosticsSummary struct{}

func (DiagnosticsSummary) Name() string { return "summary" }

func (DiagnosticsSummary) Process(ctx *PipelineContext) *PipelineContext {
	diags := ctx.Diagnostics.Diagnostics()
	ctx.Metrics.ObserveDiagnostics(diags)
	var errs, warnings int
	for _, d := range diags {
		switch d.Severity {
		case diagnostics.SeverityError:
			errs++
		case diagnostics.SeverityWarning:
			warnings++
		}
	}
	if ctx.Session != nil {
		ctx.Metrics.ObserveStorage(ctx.Session.Storage)
	}
	ctx.Logger.Info("run finished", "errors", errs, "warnings", warnings, "failures", len(ctx.Errors))
	return ctx
}
