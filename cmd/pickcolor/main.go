// Package main parses and validates the flags and input passed to the program, and then runs
// the color picker extension against a host editor or a local file using the internal client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jkbrsn/pickcolor/internal/app"
)

func init() {
	registerFlags()

	// Define custom usage message
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage:  pickcolor [options] <host-url>")
		fmt.Fprintln(os.Stderr, "        pickcolor [options] -file <path> (-offset <n> | -line <n> [-col <n>])")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Host options:")
		fmt.Fprintln(os.Stderr, "  -H, -header   "+flag.Lookup("H").Usage)
		fmt.Fprintln(os.Stderr, "  -tls          "+flag.Lookup("tls").Usage)
		fmt.Fprintln(os.Stderr, "  -timeout      "+flag.Lookup("timeout").Usage)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "File options:")
		fmt.Fprintln(os.Stderr, "  -file         "+flag.Lookup("file").Usage)
		fmt.Fprintln(os.Stderr, "  -offset       "+flag.Lookup("offset").Usage)
		fmt.Fprintln(os.Stderr, "  -line         "+flag.Lookup("line").Usage)
		fmt.Fprintln(os.Stderr, "  -col          "+flag.Lookup("col").Usage)
		fmt.Fprintln(os.Stderr, "  -dry-run      "+flag.Lookup("dry-run").Usage)
		fmt.Fprintln(os.Stderr, "  -font         "+flag.Lookup("font").Usage)
		fmt.Fprintln(os.Stderr, "  -font-size    "+flag.Lookup("font-size").Usage)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Picker options:")
		fmt.Fprintln(os.Stderr, "  -manifest     "+flag.Lookup("manifest").Usage)
		fmt.Fprintln(os.Stderr, "  -picker       "+flag.Lookup("picker").Usage)
		fmt.Fprintln(os.Stderr, "  -install-dir  "+flag.Lookup("install-dir").Usage)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Output options:")
		fmt.Fprintln(os.Stderr, "  -format       "+flag.Lookup("format").Usage)
		fmt.Fprintln(os.Stderr, "  -color        "+flag.Lookup("color").Usage)
		fmt.Fprintln(os.Stderr, "  -q            "+flag.Lookup("q").Usage)
		fmt.Fprintln(os.Stderr, "  -v            "+flag.Lookup("v").Usage)
		fmt.Fprintln(os.Stderr, "  -version      "+flag.Lookup("version").Usage)
	}
}

func main() {
	preprocessVerbosityArgs()

	cfg, err := parseConfig()
	if err != nil {
		if errors.Is(err, errVersionRequested) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error parsing input: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	client := newClient(cfg)
	if err := client.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in input settings: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := client.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	if client.File != "" {
		if err := client.PrintResult(); err != nil {
			fmt.Fprintf(os.Stderr, "Error printing result: %v\n", err)
			os.Exit(1)
		}
	}
}

// newClient maps the parsed configuration onto the app client.
func newClient(cfg *Config) *app.Client {
	return &app.Client{
		HostURL:        cfg.HostURL,
		Headers:        cfg.Headers,
		Timeout:        cfg.Timeout,
		File:           cfg.File,
		Cursor:         cfg.Cursor,
		DryRun:         cfg.DryRun,
		ManifestPath:   cfg.ManifestPath,
		PickerPath:     cfg.PickerPath,
		InstallDir:     cfg.InstallDir,
		Font:           cfg.Font,
		Format:         cfg.Format,
		ColorMode:      cfg.ColorMode,
		Quiet:          cfg.Quiet,
		VerbosityLevel: cfg.Verbosity,
	}
}
