package core

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer handles all display output for the CLI.
type Printer struct {
	Verbose bool
	Writer  io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(verbose bool) *Printer {
	return &Printer{Verbose: verbose, Writer: os.Stdout}
}

// PrintResult renders a single file outcome.
func (p *Printer) PrintResult(r FileResult) {
	switch r.Outcome {
	case OutcomeRenamed:
		suffix := ""
		if r.Stamped {
			suffix = " [stamped]"
		}
		if r.Collision {
			suffix += " [collision resolved]"
		}
		fmt.Fprintln(p.Writer, color.CyanString("  %s  =>  %s%s", r.Source, r.Target, suffix))
	case OutcomeSkipped:
		if p.Verbose {
			fmt.Fprintln(p.Writer, color.YellowString("  %s  skipped (%s)", r.Source, r.Reason))
		}
	case OutcomeFailed:
		fmt.Fprintln(p.Writer, color.RedString("  %s  failed: %v", r.Source, r.Err))
	}
}

// PrintSummary renders the end-of-batch counts.
func (p *Printer) PrintSummary(s Summary) {
	fmt.Fprintf(p.Writer, "\n%d files: %d renamed, %d skipped, %d failed\n",
		s.Total(), s.Renamed, s.Skipped, s.Failed)
}

// PrintInfo prints an informational line.
func (p *Printer) PrintInfo(format string, a ...interface{}) {
	fmt.Fprintf(p.Writer, format+"\n", a...)
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, color.RedString("✗ Error: %s", msg))
}
