// Package app runs the color picker extension from the command line: connected to a host
// editor over a WebSocket, or directly against a file on disk.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jkbrsn/pickcolor"
	"github.com/jkbrsn/pickcolor/internal/host"
	"github.com/rs/zerolog"
)

// shutdownGrace bounds how long a closing host session waits for running pickers.
const shutdownGrace = 2 * time.Second

// Client runs the extension against a host editor or a local file, based on the settings
// passed to the struct.
type Client struct {
	// Host mode
	HostURL *url.URL      // Host editor endpoint
	Headers []string      // HTTP headers for the WebSocket handshake ("Key: Value")
	Timeout time.Duration // Dial and call timeout; 0 keeps the host client default

	// File mode
	File   string // File to pick a color in
	Cursor Cursor // Cursor position in File
	DryRun bool   // Report the edit without writing the file

	// Picker
	ManifestPath string                 // Manifest to register; empty for the bundled one
	PickerPath   string                 // Explicit picker executable
	InstallDir   string                 // Directory the bundled picker is resolved under
	Font         pickcolor.FontSettings // Font settings for file mode

	// Output
	Format    string // Output formatting mode: "auto" or "json"
	ColorMode string // Color behavior: "auto", "always", or "never"

	// Verbosity
	Quiet          bool // only errors on stderr, only the picked color on stdout
	VerbosityLevel int  // 0 = warnings, 1 = info, 2 = debug, >=3 = trace

	// The result of the last pick in file mode. Is overwritten if Run is called again.
	Result *pickcolor.Result

	document *pickcolor.Document // file contents before the pick
}

// Validate checks the settings of the Client.
func (c *Client) Validate() error {
	hostMode := c.HostURL != nil
	fileMode := c.File != ""
	switch {
	case hostMode && fileMode:
		return errors.New("a host URL and -file are mutually exclusive")
	case !hostMode && !fileMode:
		return errors.New("either a host URL or -file is required")
	}

	if hostMode {
		switch c.HostURL.Scheme {
		case "ws", "wss":
		default:
			return fmt.Errorf("unsupported host URL scheme %q", c.HostURL.Scheme)
		}
		if c.DryRun {
			return errors.New("-dry-run requires -file")
		}
	}

	if fileMode {
		switch {
		case c.Cursor.Offset >= 0 && c.Cursor.Line > 0:
			return errors.New("-offset and -line are mutually exclusive")
		case c.Cursor.Offset < 0 && c.Cursor.Line <= 0:
			return errors.New("-file requires -offset or -line")
		case c.Cursor.Line > 0 && c.Cursor.Col <= 0:
			return errors.New("-col must be at least 1")
		}
	}

	switch c.Format {
	case formatAuto, formatJSON, "":
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}

	if c.Quiet && c.VerbosityLevel > 0 {
		return errors.New("quiet and verbose output are mutually exclusive")
	}

	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}

	return nil
}

// Run loads the manifest and runs the extension until the work of the selected mode is done.
// In host mode that is when the host shuts down or ctx ends; in file mode, when the picker has
// exited and its result was applied.
func (c *Client) Run(ctx context.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, logLevel(c.VerbosityLevel, c.Quiet), c.colorEnabled(os.Stderr))

	manifest, err := c.manifest()
	if err != nil {
		return err
	}

	if c.HostURL != nil {
		return c.runHost(ctx, manifest, logger)
	}
	return c.runFile(ctx, manifest, logger)
}

// runHost serves the manifest's commands to a host editor.
func (c *Client) runHost(ctx context.Context, m *pickcolor.Manifest, logger zerolog.Logger) error {
	header, err := parseHeaders(c.Headers)
	if err != nil {
		return err
	}

	opts := []host.Option{host.WithLogger(logger)}
	if c.Timeout > 0 {
		opts = append(opts, host.WithTimeout(c.Timeout))
	}
	hc := host.New(opts...)
	defer hc.Close()

	if err := hc.Dial(ctx, c.HostURL, header); err != nil {
		return handleConnectionError(err, c.HostURL.String())
	}

	ext := pickcolor.New(hc, c.extensionOptions(logger)...)
	defer ext.Close()

	if err := ext.Activate(ctx, m, hc); err != nil {
		return fmt.Errorf("failed to activate extension: %w", err)
	}
	logger.Info().Str("host", c.HostURL.String()).Msg("Serving commands")

	select {
	case <-ctx.Done():
		logger.Info().Msg("Interrupted, closing host connection")
	case <-hc.Done():
		logger.Info().Msg("Host connection closed")
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := ext.Wait(waitCtx); err != nil {
		logger.Warn().Err(err).Msg("Pickers still running at shutdown")
	}
	return nil
}

// runFile picks the color under the cursor of a local file.
func (c *Client) runFile(ctx context.Context, m *pickcolor.Manifest, logger zerolog.Logger) error {
	editor, err := newFileEditor(c.File, c.Cursor, c.Font, c.DryRun, logger)
	if err != nil {
		return err
	}
	c.document = &pickcolor.Document{Text: editor.Text()}
	c.Result = nil

	id, err := pickCommand(m)
	if err != nil {
		return err
	}

	opts := append(c.extensionOptions(logger), pickcolor.WithResultHandler(func(r pickcolor.Result) {
		c.Result = &r
	}))
	ext := pickcolor.New(editor, opts...)
	defer ext.Close()

	table := pickcolor.NewCommandTable()
	if err := ext.Activate(ctx, m, table); err != nil {
		return fmt.Errorf("failed to activate extension: %w", err)
	}

	if err := table.Execute(ctx, id); err != nil {
		return err
	}
	if err := ext.Wait(ctx); err != nil {
		return err
	}
	if c.Result == nil {
		return errors.New("picker finished without a result")
	}
	return c.Result.Err
}

// manifest returns the configured manifest, or the bundled one.
func (c *Client) manifest() (*pickcolor.Manifest, error) {
	if c.ManifestPath == "" {
		return pickcolor.DefaultManifest(), nil
	}
	return pickcolor.LoadManifest(c.ManifestPath)
}

// extensionOptions returns the options shared by both modes.
func (c *Client) extensionOptions(logger zerolog.Logger) []pickcolor.Option {
	return []pickcolor.Option{
		pickcolor.WithLogger(logger),
		pickcolor.WithInstallDir(c.installDir()),
		pickcolor.WithPickerPath(c.PickerPath),
	}
}

// installDir returns the configured install directory, or the directory of the running
// executable.
func (c *Client) installDir() string {
	if c.InstallDir != "" {
		return c.InstallDir
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// pickCommand returns the first manifest command bound to the pick-color handler.
func pickCommand(m *pickcolor.Manifest) (string, error) {
	for _, id := range m.CommandIDs() {
		if pickcolor.HandlerName(id) == pickcolor.HandlerPickColor {
			return id, nil
		}
	}
	return "", fmt.Errorf("manifest declares no command ending in .%s (has %s)",
		pickcolor.HandlerPickColor, strings.Join(m.CommandIDs(), ", "))
}
