package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/diagnostics"
)

const testProject = `
name: demo
log_level: error
modules:
  - name: core
    sources: ["core/*.decl.yaml"]
  - name: app
    dependencies: [core]
    sources: ["app/*.decl.yaml"]
`

const testShapes = `
package: demo.core
declarations:
  - interface: Shape
    members:
      - fun: area
        returns: Double
`

const testSquare = `
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
`

func writeTestProject(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"semcore.yaml":          testProject,
		"core/shapes.decl.yaml": testShapes,
		"app/square.decl.yaml":  testSquare + extra,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func runCommand(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestUsage(t *testing.T) {
	code, _, stderr := runCommand()
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: semcore <command>")

	code, _, stderr = runCommand("help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "semcore render")

	code, _, stderr = runCommand("frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)
}

func TestCheck(t *testing.T) {
	dir := writeTestProject(t, "")
	code, stdout, stderr := runCommand("check", "-metrics", dir)
	assert.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "semcore_resolved_files_total 2")

	dir = writeTestProject(t, "  - fun: main\n    body:\n      - missing()\n")
	code, stdout, _ = runCommand("check", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "error[R004]: unresolved reference: missing\n")
	assert.Contains(t, stdout, "1 error(s)")
}

func TestCheckMissingProject(t *testing.T) {
	code, _, stderr := runCommand("check", filepath.Join(t.TempDir(), "semcore.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: ")
}

func TestDump(t *testing.T) {
	dir := writeTestProject(t, "")
	code, stdout, stderr := runCommand("dump", "-module", "app", dir)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "// module app: "+filepath.Join(dir, "app", "square.decl.yaml"))
	assert.Contains(t, stdout, "class Square : Shape {\n")
	assert.NotContains(t, stdout, "interface Shape")

	code, stdout, _ = runCommand("dump", "-resolved", dir)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "public abstract interface Shape : lang.Any {")
}

func TestRender(t *testing.T) {
	dir := writeTestProject(t, "")
	code, stdout, stderr := runCommand("render", "demo.app", dir)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "public final class demo.app.Square : demo.core.Shape {\n")

	code, stdout, stderr = runCommand("render", "-overridden", "demo/app/Square", dir)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "public open fun area(): lang.Double // overrides demo.core.Shape\n")

	code, _, stderr = runCommand("render", "-module", "core", "demo/app/Square", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "is not visible from module")
}

func TestMetadataCommands(t *testing.T) {
	dir := t.TempDir()
	smd := filepath.Join(dir, "lang.smd")

	code, stdout, stderr := runCommand("builtins", smd)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "envelopes")

	code, stdout, stderr = runCommand("meta", smd)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "# payload")

	code, stdout, stderr = runCommand("index", filepath.Join(dir, "meta.db"), "lang", smd)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "1 sources")

	code, _, _ = runCommand("meta")
	assert.Equal(t, 2, code)
}

func TestPrintDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	printDiagnostics(&buf, []*diagnostics.DiagnosticError{
		diagnostics.NewError(diagnostics.ErrR004, diagnostics.Position{File: "a.decl.yaml", Line: 3, Column: 7}, "unresolved reference: x"),
		diagnostics.NewWarning(diagnostics.ErrR007, diagnostics.Position{}, "unreachable code"),
	}, false)
	assert.Equal(t, "a.decl.yaml:3:7: error[R004]: unresolved reference: x\nwarning[R007]: unreachable code\n1 error(s), 1 warning(s)\n", buf.String())

	buf.Reset()
	printDiagnostics(&buf, []*diagnostics.DiagnosticError{
		diagnostics.NewError(diagnostics.ErrR004, diagnostics.Position{}, "x"),
	}, true)
	assert.Equal(t, "\033[31merror[R004]\033[39m: x\n1 error(s), 0 warning(s)\n", buf.String())
	assert.False(t, colorEnabled(&buf))
}
