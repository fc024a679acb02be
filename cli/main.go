// photostamp renames JPEG photos to their capture timestamp plus a short
// content digest (2023-01-23_1430_206cc7d9.jpg) and can burn the capture
// date into the pixels.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"photostamp/core"
	"photostamp/core/batch"
)

func main() {
	var cfg core.StampConfig
	flag.BoolVarP(&cfg.StampDate, "date", "d", false, "print the date on the image (format: YYYY-MM-DD); overwrites pixel data")
	flag.BoolVarP(&cfg.Recurse, "recursion", "r", false, "recursive processing when subdirectories exist")
	flag.BoolVarP(&cfg.KeepExif, "keep-exif", "k", false, "keep EXIF data when printing dates")
	flag.StringVarP(&cfg.Path, "path", "p", "", "directory to process (default: current directory, with confirmation)")
	flag.StringVar(&cfg.FontPath, "font", "", "TTF font for the date stamp (default: built-in segment face)")
	flag.IntVarP(&cfg.Workers, "jobs", "j", 0, "concurrent workers (default: one per CPU)")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "report planned renames without touching files")
	flag.BoolVarP(&cfg.AssumeYes, "yes", "y", false, "skip the confirmation prompt")
	verbose := flag.BoolP("verbose", "v", false, "also report skipped files")
	flag.Parse()

	printer := core.NewPrinter(*verbose)
	if err := run(cfg, printer); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
}

func run(cfg core.StampConfig, printer *core.Printer) error {
	explicitPath := cfg.Path != ""
	if !explicitPath {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		cfg.Path = wd
	}
	if info, err := os.Stat(cfg.Path); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", cfg.Path)
	}

	printer.PrintInfo("--- Info ---")
	printer.PrintInfo("Change names of files in this directory: %s", cfg.Path)
	if cfg.StampDate {
		printer.PrintInfo("The -d option was specified: the date will be printed on each image, overwriting pixel data.")
	}
	if cfg.Recurse {
		printer.PrintInfo("The -r option was specified: subdirectories are included.")
	}
	if cfg.DryRun {
		printer.PrintInfo("Dry run: nothing will be modified.")
	}
	printer.PrintInfo("------------")

	// the gate before anything is mutated: only runs launched without an
	// explicit path, interactively, in earnest
	if !explicitPath && !cfg.AssumeYes && !cfg.DryRun && term.IsTerminal(int(os.Stdin.Fd())) {
		if !confirm() {
			printer.PrintInfo("Aborted, nothing was modified.")
			return nil
		}
	}

	// font problems must surface before the first file is touched
	runner, err := batch.New(cfg, printer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer.PrintInfo("Processing...")
	summary, err := runner.Run(ctx)
	printer.PrintSummary(summary)
	return err
}

func confirm() bool {
	in := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Can I start the process? [y/n]: ")
		line, err := in.ReadString('\n')
		if err != nil {
			return false
		}
		switch {
		case strings.HasPrefix(line, "y"):
			return true
		case strings.HasPrefix(line, "n"):
			return false
		default:
			fmt.Println("Please answer 'y' or 'n'.")
		}
	}
}
