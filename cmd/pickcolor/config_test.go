package main

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags gives each test a fresh flag set and os.Args, restored on cleanup.
func resetFlags(t *testing.T, args ...string) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine
	t.Cleanup(func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	})

	flag.CommandLine = flag.NewFlagSet("pickcolor", flag.ContinueOnError)
	headerArguments = nil
	offsetFlag = newTrackedIntFlag(0)
	verbosityLevel = newVerbosityCounter()
	registerFlags()

	os.Args = append([]string{"pickcolor"}, args...)
}

func TestParseWSURI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		tls      bool
		expected string
		wantErr  bool
	}{
		{name: "full ws URL", input: "ws://localhost:7000/ext", expected: "ws://localhost:7000/ext"},
		{name: "full wss URL", input: "wss://example.com/ext", expected: "wss://example.com/ext"},
		{name: "no scheme defaults to ws", input: "localhost:7000", expected: "ws://localhost:7000"},
		{name: "no scheme with tls", input: "example.com/ext", tls: true, expected: "wss://example.com/ext"},
		{name: "invalid URL", input: "ws://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			*useTLS = tt.tls

			result, err := parseWSURI(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.String())
		})
	}
}

func TestResolveCursor(t *testing.T) {
	t.Run("offset", func(t *testing.T) {
		resetFlags(t, "-file", "a.css", "-offset", "0")
		flag.Parse()
		cursor := resolveCursor()
		assert.Equal(t, 0, cursor.Offset)
	})

	t.Run("line and column", func(t *testing.T) {
		resetFlags(t, "-file", "a.css", "-line", "3", "-col", "5")
		flag.Parse()
		cursor := resolveCursor()
		assert.Equal(t, -1, cursor.Offset)
		assert.Equal(t, 3, cursor.Line)
		assert.Equal(t, 5, cursor.Col)
	})

	t.Run("column defaults to 1", func(t *testing.T) {
		resetFlags(t, "-file", "a.css", "-line", "2")
		flag.Parse()
		assert.Equal(t, 1, resolveCursor().Col)
	})
}

func TestPreprocessVerbosityArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "single", args: []string{"-v"}, want: []string{"-v=1"}},
		{name: "long form", args: []string{"--verbose"}, want: []string{"-v=1"}},
		{name: "shorthand", args: []string{"-vvv", "ws://h"}, want: []string{"-v=3", "ws://h"}},
		{name: "explicit", args: []string{"-v=2"}, want: []string{"-v=2"}},
		{name: "other flags untouched", args: []string{"-version", "-vx"}, want: []string{"-version", "-vx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t, tt.args...)
			preprocessVerbosityArgs()
			assert.Equal(t, tt.want, os.Args[1:])
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("host mode", func(t *testing.T) {
		resetFlags(t, "-H", "Authorization: Bearer x", "-timeout", "3s", "-v", "localhost:7000/ext")
		preprocessVerbosityArgs()

		cfg, err := parseConfig()
		require.NoError(t, err)
		require.NotNil(t, cfg.HostURL)
		assert.Equal(t, "ws://localhost:7000/ext", cfg.HostURL.String())
		assert.Equal(t, []string{"Authorization: Bearer x"}, cfg.Headers)
		assert.Equal(t, 3*time.Second, cfg.Timeout)
		assert.Equal(t, 1, cfg.Verbosity)
		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, "auto", cfg.ColorMode)
	})

	t.Run("file mode", func(t *testing.T) {
		resetFlags(t, "-file", "a.css", "-line", "4", "-col", "9", "-dry-run",
			"-font", "Menlo", "-font-size", "13", "-format", "JSON", "-color", "never",
			"-picker", "/opt/picker")

		cfg, err := parseConfig()
		require.NoError(t, err)
		assert.Nil(t, cfg.HostURL)
		assert.Equal(t, "a.css", cfg.File)
		assert.Equal(t, -1, cfg.Cursor.Offset)
		assert.Equal(t, 4, cfg.Cursor.Line)
		assert.Equal(t, 9, cfg.Cursor.Col)
		assert.True(t, cfg.DryRun)
		assert.Equal(t, "Menlo", cfg.Font.Family)
		assert.Equal(t, "13", cfg.Font.Size)
		assert.Equal(t, "json", cfg.Format)
		assert.Equal(t, "never", cfg.ColorMode)
		assert.Equal(t, "/opt/picker", cfg.PickerPath)

		client := newClient(cfg)
		assert.Equal(t, "a.css", client.File)
		assert.True(t, client.DryRun)
		assert.NoError(t, client.Validate())
	})

	t.Run("version", func(t *testing.T) {
		resetFlags(t, "-version")
		_, err := parseConfig()
		assert.ErrorIs(t, err, errVersionRequested)
	})

	errorCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no input", args: nil, wantErr: "a host URL or -file is required"},
		{name: "too many arguments", args: []string{"ws://a", "ws://b"}, wantErr: "invalid number of arguments"},
		{name: "host and file", args: []string{"-file", "a.css", "ws://a"}, wantErr: "cannot be combined with -file"},
		{name: "quiet and verbose", args: []string{"-q", "-v", "ws://a"}, wantErr: "-q cannot be combined with -v"},
		{name: "bad color", args: []string{"-color", "sometimes", "ws://a"}, wantErr: "-color"},
		{name: "bad format", args: []string{"-format", "xml", "ws://a"}, wantErr: "-format"},
		{name: "bad host URL", args: []string{"ws://[::1"}, wantErr: "error parsing host URL"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t, tt.args...)
			_, err := parseConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
