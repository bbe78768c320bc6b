package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/metrics"
	"github.com/funvibe/semcore/internal/names"
)

const project = `
name: demo
workers: 2
modules:
  - name: core
    sources: ["core/*.decl.yaml"]
  - name: app
    dependencies: [core]
    sources: ["app/*.decl.yaml"]
`

const coreShapes = `
package: demo.core
declarations:
  - interface: Shape
    members:
      - fun: area
        returns: Double
`

const appMain = `
package: demo.app
imports: [demo.core.Shape]
declarations:
  - class: Square
    supertypes: [Shape]
    members:
      - constructor: primary
        params: ["val side: Double"]
      - fun: area
        modifiers: override
        expression: side.times(side)
  - fun: main
    body:
      - missing()
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestDefaultPipeline(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"semcore.yaml":            project,
		"core/shapes.decl.yaml":   coreShapes,
		"app/main.decl.yaml":      appMain,
		"app/README.md":           "not a declaration file",
		"other/ignored.decl.yaml": "package: [",
	})

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	m := metrics.New()
	ctx := Default().Run(NewPipelineContext(context.Background(), dir, WithTracerProvider(tp), WithMetrics(m)))
	defer ctx.Close()

	require.NoError(t, ctx.Err())
	require.NotNil(t, ctx.Graph)
	assert.Len(t, ctx.Files["core"], 1)
	assert.Len(t, ctx.Files["app"], 1)

	unresolved := ctx.Diagnostics.WithCode(diagnostics.ErrR004)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "unresolved reference: missing", unresolved[0].Message)
	assert.True(t, ctx.Failed())

	app, ok := ctx.Graph.Module("app")
	require.True(t, ok)
	square := app.FindClassAcrossModuleDependencies(names.ParseClassID("demo/app/Square"))
	require.NotNil(t, square)
	var supers []string
	for _, st := range square.TypeConstructor().Supertypes() {
		supers = append(supers, st.String())
	}
	assert.Equal(t, []string{"demo.core.Shape"}, supers)

	var spans []string
	for _, s := range recorder.Ended() {
		spans = append(spans, s.Name())
	}
	assert.Equal(t, []string{"pipeline.project", "pipeline.graph", "pipeline.resolve", "pipeline.summary", "pipeline.Run"}, spans)

	var out strings.Builder
	require.NoError(t, m.WriteText(&out))
	assert.Contains(t, out.String(), `semcore_diagnostics_total{code="R004",severity="error"} 1`)
	assert.Contains(t, out.String(), `semcore_phase_seconds_count{phase="graph"} 1`)
}

func TestSyntaxErrorsBecomeDiagnostics(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"semcore.yaml":          project,
		"core/shapes.decl.yaml": coreShapes,
		"core/broken.decl.yaml": "package: [",
		"app/main.decl.yaml":    appMain,
	})
	ctx := Default().Run(NewPipelineContext(context.Background(), filepath.Join(dir, "semcore.yaml")))
	defer ctx.Close()

	require.NoError(t, ctx.Err())
	assert.Len(t, ctx.Files["core"], 1)
	syntax := ctx.Diagnostics.WithCode(diagnostics.ErrP001)
	require.Len(t, syntax, 1)
	assert.Equal(t, filepath.Join(dir, "core", "broken.decl.yaml"), syntax[0].Pos.File)
	assert.Len(t, ctx.Diagnostics.WithCode(diagnostics.ErrR004), 1)
}

func TestMissingProject(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx := Default().Run(NewPipelineContext(context.Background(), filepath.Join(t.TempDir(), "semcore.yaml"), WithTracerProvider(tp)))

	require.Error(t, ctx.Err())
	assert.ErrorIs(t, ctx.Err(), os.ErrNotExist)
	assert.Nil(t, ctx.Session)
	assert.Nil(t, ctx.Graph)
	assert.True(t, ctx.Failed())
	require.NoError(t, ctx.Close())

	var failed []string
	for _, s := range recorder.Ended() {
		if s.Status().Code == codes.Error {
			failed = append(failed, s.Name())
		}
	}
	assert.Equal(t, []string{"pipeline.project", "pipeline.Run"}, failed)
}

func TestCanceledRunStops(t *testing.T) {
	dir := writeProject(t, map[string]string{"semcore.yaml": project})
	cctx, cancel := context.WithCancel(context.Background())
	cancel()

	ctx := Default().Run(NewPipelineContext(cctx, dir))
	require.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Nil(t, ctx.Project)
}

func TestProjectLogLevel(t *testing.T) {
	dir := writeProject(t, map[string]string{"semcore.yaml": "log_level: debug\n" + project})
	level := new(slog.LevelVar)
	ctx := New(ProjectLoader{}).Run(NewPipelineContext(context.Background(), dir, WithLogLevel(level)))

	require.NoError(t, ctx.Err())
	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Equal(t, "demo", ctx.Session.Name)
	assert.Nil(t, ctx.Graph)
}
