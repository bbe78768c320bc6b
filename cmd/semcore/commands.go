package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/funvibe/semcore/internal/builtins"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/metastore"
	"github.com/funvibe/semcore/internal/metrics"
	"github.com/funvibe/semcore/internal/modules"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/pipeline"
	"github.com/funvibe/semcore/internal/prettyprinter"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// runPipeline resolves the project found at path. The project log level
// applies unless verbose is set.
func runPipeline(path string, verbose bool, m *metrics.Metrics, stderr io.Writer) *pipeline.PipelineContext {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	opts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithMetrics(m)}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		opts = append(opts, pipeline.WithLogLevel(level))
	}
	return pipeline.Default().Run(pipeline.NewPipelineContext(context.Background(), path, opts...))
}

func reportErrors(w io.Writer, ctx *pipeline.PipelineContext) {
	for _, err := range ctx.Errors {
		fmt.Fprintf(w, "error: %v\n", err)
	}
}

func runCheck(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("check", stderr)
	verbose := fs.Bool("v", false, "log debug messages")
	withMetrics := fs.Bool("metrics", false, "print metrics in the prometheus text format after the run")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var m *metrics.Metrics
	if *withMetrics {
		m = metrics.New()
	}
	ctx := runPipeline(fs.Arg(0), *verbose, m, stderr)
	defer ctx.Close()

	diags := ctx.Diagnostics.Diagnostics()
	printDiagnostics(stdout, diags, colorEnabled(stdout))
	reportErrors(stderr, ctx)
	if *withMetrics {
		if err := m.WriteText(stderr); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
	}
	if ctx.Failed() {
		return 1
	}
	return 0
}

func runDump(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("dump", stderr)
	resolved := fs.Bool("resolved", false, "print resolved statuses, types and references")
	width := fs.Int("width", 100, "line width; 0 disables wrapping")
	only := fs.String("module", "", "print only this module")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := runPipeline(fs.Arg(0), false, nil, stderr)
	defer ctx.Close()
	if ctx.Project == nil {
		reportErrors(stderr, ctx)
		return 1
	}
	printDiagnostics(stderr, ctx.Diagnostics.Diagnostics(), colorEnabled(stderr))
	reportErrors(stderr, ctx)

	order, err := ctx.Project.ModuleOrder()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	for _, cfg := range order {
		if *only != "" && cfg.Name != *only {
			continue
		}
		for _, f := range ctx.Files[cfg.Name] {
			p := prettyprinter.NewCodePrinter()
			p.SetLineWidth(*width)
			p.ShowResolution(*resolved)
			p.PrintFile(f)
			fmt.Fprintf(stdout, "// module %s: %s\n%s\n", cfg.Name, f.Name, p.String())
		}
	}
	if len(ctx.Errors) > 0 {
		return 1
	}
	return 0
}

func runRender(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("render", stderr)
	fakeOverrides := fs.Bool("fake-overrides", false, "include inherited members")
	overridden := fs.Bool("overridden", false, "list the members each callable overrides")
	only := fs.String("module", "", "module to look from; defaults to the last module")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "usage: semcore render <package|pkg/Class> [path]")
		return 2
	}
	target := fs.Arg(0)

	ctx := runPipeline(fs.Arg(1), false, nil, stderr)
	defer ctx.Close()
	reportErrors(stderr, ctx)
	if ctx.Graph == nil {
		return 1
	}
	m, err := lookupModule(ctx.Graph, *only)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	r := prettyprinter.DescriptorRenderer{FakeOverrides: *fakeOverrides, Overridden: *overridden}
	if strings.Contains(target, "/") {
		c := m.FindClassAcrossModuleDependencies(names.ParseClassID(target))
		if c == nil {
			fmt.Fprintf(stderr, "error: class %s is not visible from module %s\n", target, m.Name())
			return 1
		}
		err = r.RenderClass(stdout, c)
	} else {
		err = r.RenderPackage(stdout, m.Package(names.NewFqName(target)))
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func lookupModule(g *modules.Graph, name string) (*modules.Module, error) {
	if name != "" {
		m, ok := g.Module(name)
		if !ok {
			return nil, fmt.Errorf("unknown module %q", name)
		}
		return m, nil
	}
	if len(g.Modules) == 0 {
		return nil, errors.New("the project has no modules")
	}
	return g.Modules[len(g.Modules)-1], nil
}

func runIndex(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("index", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 3 {
		fmt.Fprintln(stderr, "usage: semcore index <store.db> <key> <file.smd>...")
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := metastore.Open(fs.Arg(0), fs.Arg(1), metastore.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer s.Close()

	for _, path := range fs.Args()[2:] {
		if err := s.ImportFile(path); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}
	sources, err := s.Sources()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s: %d sources, %d packages\n", fs.Arg(0), len(sources), len(s.Packages()))
	return 0
}

func runMeta(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("meta", stderr)
	asJSON := fs.Bool("json", false, "print JSON instead of text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: semcore meta [-json] <file.smd>")
		return 2
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	envs, err := metadata.ParseEnvelopes(data)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s: %v\n", fs.Arg(0), err)
		return 1
	}
	format := metadata.DumpText
	if *asJSON {
		format = metadata.DumpJSON
	}
	for _, env := range envs {
		if err := metadata.Dump(stdout, env, format); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}
	return 0
}

func runBuiltins(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("builtins", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: semcore builtins <out.smd>")
		return 2
	}
	f, err := os.Create(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if err := errors.Join(builtins.Write(f), f.Close()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s: %d envelopes\n", fs.Arg(0), len(builtins.Envelopes()))
	return 0
}
