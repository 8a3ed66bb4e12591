// Package main implements chirtool, a debug CLI for loading one
// chirtext file, running the default pass pipeline over it, and
// printing the before/after IR and the diagnostics produced, the same
// load/process/print loop a source-level CLI runs for a single file.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"chir/internal/chirtext"
	"chir/internal/diag"
	"chir/internal/passes"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: chirtool <file.chir>")
		os.Exit(1)
	}

	path := os.Args[1]
	prog, err := chirtext.ParseFile(path)
	if err != nil {
		os.Exit(1) // ParseFile already reported the caret-style error.
	}

	pkg, err := chirtext.Build(prog)
	if err != nil {
		color.Red("failed to build CHIR from %s: %s", path, err)
		os.Exit(1)
	}

	color.Cyan("-- before --")
	fmt.Println(chirtext.Print(pkg))

	reporter := diag.NewReporter()
	pipeline := passes.NewPipeline(reporter)
	pipeline.Log = func(msg string) { color.HiBlack("  %s", msg) }
	pipeline.Run(pkg)

	color.Cyan("-- after --")
	fmt.Println(chirtext.Print(pkg))

	if reporter.Len() == 0 {
		color.Green("no diagnostics")
		return
	}
	for _, d := range reporter.Sorted() {
		printDiagnostic(d)
	}
	if reporter.HasErrors() {
		os.Exit(1)
	}
}

func printDiagnostic(d diag.Diagnostic) {
	line := fmt.Sprintf("[%s] %s: %s", d.Kind.String(), d.Range, d.Message)
	switch d.Level {
	case diag.Error:
		color.Red(line)
	case diag.Warning:
		color.Yellow(line)
	default:
		color.White(line)
	}
	for _, n := range d.Notes {
		color.HiBlack("  note: %s", n)
	}
}
