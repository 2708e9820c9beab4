package main

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jkbrsn/pickcolor"
	"github.com/jkbrsn/pickcolor/internal/app"
)

var (
	// Host mode
	headerArguments headerList
	useTLS          *bool
	timeout         *time.Duration
	// File mode
	filePath   *string
	offsetFlag = newTrackedIntFlag(0)
	lineNumber *int
	column     *int
	dryRun     *bool
	// Picker
	manifestPath *string
	pickerPath   *string
	installDir   *string
	fontFamily   *string
	fontSize     *string
	// Output
	formatOption *string
	colorArg     *string
	showVersion  *bool
	version      = "unknown"
	// Verbosity
	quiet          *bool
	verbosityLevel = newVerbosityCounter()
)

// registerFlags defines the program flags on flag.CommandLine.
func registerFlags() {
	useTLS = flag.Bool("tls", false, "use wss:// when the host URL has no scheme")
	timeout = flag.Duration("timeout", 0, "dial and request timeout for the host connection")
	filePath = flag.String("file", "", "pick a color in this file instead of serving a host")
	lineNumber = flag.Int("line", 0, "1-based cursor line in -file")
	column = flag.Int("col", 1, "1-based cursor column in -file, counted in characters")
	dryRun = flag.Bool("dry-run", false, "report the picked color without writing -file")
	manifestPath = flag.String("manifest", "", "extension manifest (package.json or YAML); "+
		"defaults to the bundled one")
	pickerPath = flag.String("picker", "", "picker executable; overrides -install-dir resolution")
	installDir = flag.String("install-dir", "",
		"directory holding bin/<os>/picker; defaults to the executable's directory")
	fontFamily = flag.String("font", "", "font family passed to the picker in file mode")
	fontSize = flag.String("font-size", "", "font size passed to the picker in file mode")
	formatOption = flag.String("format", "auto", "output format: auto or json")
	colorArg = flag.String("color", "auto", "color output: auto, always, or never")
	showVersion = flag.Bool("version", false, "print the program version")
	quiet = flag.Bool("q", false, "log errors only and print just the picked color")

	flag.Var(&offsetFlag, "offset", "cursor byte offset in -file")
	flag.Var(&headerArguments, "H", "HTTP header for the host handshake, 'Key: Value' (repeatable)")
	flag.Var(&headerArguments, "header", "alias of -H")
	flag.Var(verbosityLevel, "v", "increase log verbosity (repeatable, or -vv, -vvv)")
}

// Config holds all configuration parsed from command-line flags.
type Config struct {
	HostURL      *url.URL
	Headers      []string
	Timeout      time.Duration
	File         string
	Cursor       app.Cursor
	DryRun       bool
	ManifestPath string
	PickerPath   string
	InstallDir   string
	Font         pickcolor.FontSettings
	Format       string
	ColorMode    string
	Quiet        bool
	Verbosity    int
}

// parseConfig parses command-line flags and returns a validated Config.
func parseConfig() (*Config, error) {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Version: %s\n", version)
		return nil, errVersionRequested
	}

	if *quiet && verbosityLevel.Value() > 0 {
		return nil, errors.New("-q cannot be combined with -v")
	}

	args := flag.Args()
	switch {
	case len(args) > 1:
		return nil, errors.New("invalid number of arguments")
	case len(args) == 1 && *filePath != "":
		return nil, errors.New("a host URL cannot be combined with -file")
	case len(args) == 0 && *filePath == "":
		return nil, errors.New("a host URL or -file is required")
	}

	switch strings.ToLower(*colorArg) {
	case "auto", "always", "never":
		// valid
	default:
		return nil, errors.New("-color must be auto, always, or never")
	}

	switch strings.ToLower(*formatOption) {
	case "auto", "json":
		// valid
	default:
		return nil, errors.New("-format must be auto or json")
	}

	cfg := &Config{
		Headers:      headerArguments.Values(),
		Timeout:      *timeout,
		File:         *filePath,
		Cursor:       resolveCursor(),
		DryRun:       *dryRun,
		ManifestPath: *manifestPath,
		PickerPath:   *pickerPath,
		InstallDir:   *installDir,
		Font:         pickcolor.FontSettings{Family: *fontFamily, Size: *fontSize},
		Format:       strings.ToLower(*formatOption),
		ColorMode:    strings.ToLower(*colorArg),
		Quiet:        *quiet,
		Verbosity:    verbosityLevel.Value(),
	}

	if len(args) == 1 {
		hostURL, err := parseWSURI(args[0])
		if err != nil {
			return nil, fmt.Errorf("error parsing host URL: %w", err)
		}
		cfg.HostURL = hostURL
	}

	return cfg, nil
}

// parseWSURI parses the rawURI string into a URL object. A missing scheme defaults to ws://,
// or wss:// with -tls.
func parseWSURI(rawURI string) (*url.URL, error) {
	uri := rawURI
	if !strings.Contains(rawURI, "://") {
		scheme := "ws://"
		if *useTLS {
			scheme = "wss://"
		}
		uri = scheme + rawURI
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}

	return u, nil
}

// resolveCursor returns the cursor given by -offset, or by -line and -col. Conflicts are
// reported by app.Client.Validate.
func resolveCursor() app.Cursor {
	cursor := app.Cursor{Offset: -1, Line: *lineNumber, Col: *column}
	if offsetFlag.WasSet() {
		cursor.Offset = offsetFlag.Value()
	}
	return cursor
}

// errVersionRequested is returned when -version flag is used.
var errVersionRequested = errors.New("version requested")

// onlyRune returns true if the string consists solely of the provided rune.
func onlyRune(s string, r rune) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch != r {
			return false
		}
	}
	return true
}

// preprocessVerbosityArgs rewrites os.Args so that shorthand -vv/-vvv translates to
// canonical -v=N forms before flag parsing. This lets the default flag package
// treat -v as a repeatable count.
func preprocessVerbosityArgs() {
	if len(os.Args) <= 1 {
		return
	}

	filtered := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		switch {
		case arg == "-v" || arg == "--verbose":
			filtered = append(filtered, "-v=1")
		case strings.HasPrefix(arg, "-v="):
			filtered = append(filtered, arg)
		case strings.HasPrefix(arg, "-vv") && onlyRune(arg[1:], 'v'):
			filtered = append(filtered, fmt.Sprintf("-v=%d", len(arg)-1))
		default:
			filtered = append(filtered, arg)
		}
	}

	os.Args = append([]string{os.Args[0]}, filtered...)
}
