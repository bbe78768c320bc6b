// Package pipeline chains the stages of a run over a project: loading the
// project file, building the module graph with its source declarations,
// resolving every module and summarizing diagnostics.
package pipeline

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Processor is one stage of a pipeline.
type Processor interface {
	Name() string
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Default is the full run: project, graph, resolution and summary.
func Default() *Pipeline {
	return New(ProjectLoader{}, GraphBuilder{}, ModuleResolver{}, DiagnosticsSummary{})
}

// Run executes the pipeline. Each stage runs in its own span.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	parent := ctx.Context
	runCtx, runSpan := ctx.Tracer.Start(parent, "pipeline.Run", trace.WithAttributes(
		attribute.String("project", ctx.ProjectPath),
		attribute.Int("stages", len(p.processors)),
	))
	defer runSpan.End()

	for _, processor := range p.processors {
		if err := runCtx.Err(); err != nil {
			ctx.AddError(err)
			break
		}
		stageCtx, span := ctx.Tracer.Start(runCtx, "pipeline."+processor.Name())
		ctx.Context = stageCtx
		errs, diags := len(ctx.Errors), ctx.Diagnostics.Len()
		start := time.Now()

		ctx = processor.Process(ctx)
		// Continue on errors to collect diagnostics from all stages.

		ctx.Metrics.ObservePhase(processor.Name(), start)
		span.SetAttributes(attribute.Int("diagnostics", ctx.Diagnostics.Len()-diags))
		if len(ctx.Errors) > errs {
			for _, err := range ctx.Errors[errs:] {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, ctx.Errors[errs].Error())
		}
		span.End()
		ctx.Context = runCtx
	}

	if ctx.Failed() {
		runSpan.SetStatus(codes.Error, "run failed")
	}
	ctx.Context = parent
	return ctx
}
