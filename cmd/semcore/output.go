package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/semcore/internal/diagnostics"
)

// colorEnabled reports whether w is a terminal that accepts ANSI colors.
func colorEnabled(w io.Writer) bool {
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

func ansiFg(on bool, colorCode int, s string) string {
	if !on {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[39m", colorCode, s)
}

func ansiBold(on bool, s string) string {
	if !on {
		return s
	}
	return "\033[1m" + s + "\033[22m"
}

func severityColor(s diagnostics.Severity) int {
	switch s {
	case diagnostics.SeverityError:
		return 31
	case diagnostics.SeverityWarning:
		return 33
	default:
		return 36
	}
}

// printDiagnostics writes one line per diagnostic followed by a summary:
//
//	app/main.decl.yaml:3:7: error[R004]: unresolved reference: missing
func printDiagnostics(w io.Writer, diags []*diagnostics.DiagnosticError, color bool) {
	var errs, warnings int
	for _, d := range diags {
		switch d.Severity {
		case diagnostics.SeverityError:
			errs++
		case diagnostics.SeverityWarning:
			warnings++
		}
		if d.Pos.IsValid() {
			fmt.Fprint(w, ansiBold(color, d.Pos.String())+": ")
		}
		label := fmt.Sprintf("%s[%s]", d.Severity, d.Code)
		fmt.Fprintf(w, "%s: %s\n", ansiFg(color, severityColor(d.Severity), label), d.Message)
	}
	if len(diags) > 0 {
		fmt.Fprintf(w, "%d error(s), %d warning(s)\n", errs, warnings)
	}
}
