// Command semcore resolves a project of declaration files and compiled
// metadata and reports what it found.
package main

import (
	"fmt"
	"io"
	"os"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(args []string, stdout, stderr io.Writer) int
}

var commands []command

func init() {
	commands = []command{
		{"check", "check [-v] [-metrics] [path]", "resolve the project and print diagnostics", runCheck},
		{"dump", "dump [-resolved] [-width n] [-module name] [path]", "print the declaration files of every module", runDump},
		{"render", "render [-fake-overrides] [-overridden] [-module name] <package|pkg/Class> [path]", "print descriptors of a package or class", runRender},
		{"index", "index <store.db> <key> <file.smd>...", "import metadata files into a store", runIndex},
		{"meta", "meta [-json] <file.smd>", "decode a metadata file", runMeta},
		{"builtins", "builtins <out.smd>", "write the built-in library as metadata", runBuiltins},
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-help" || args[0] == "--help" {
		printUsage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(args[1:], stdout, stderr)
		}
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
	printUsage(stderr)
	return 2
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: semcore <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  semcore %s\n", c.usage)
	}
}
