package app

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jkbrsn/pickcolor"
	"github.com/stretchr/testify/require"
)

func captureStdoutFrom(t *testing.T, fn func() error) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	original := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = original }()

	err = fn()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	output, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(output)
}

// sampleResult returns an accepted, applied pick of #fff in "color: #fff;".
func sampleResult(t *testing.T) (*pickcolor.Result, *pickcolor.Document) {
	t.Helper()
	doc := &pickcolor.Document{URI: "file:///tmp/a.css", Text: "color: #fff;"}
	return &pickcolor.Result{
		URI:         doc.URI,
		Range:       pickcolor.Range{Start: 7, End: 11},
		Original:    "#fff",
		Replacement: "#AABBCC",
		Reason:      pickcolor.ReasonAccepted,
		Applied:     true,
	}, doc
}

// writeTempFile writes content to a new file and returns its path.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func decodeJSONLine(t *testing.T, output string) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &payload))
	return payload
}

func asMap(t *testing.T, value any) map[string]any {
	t.Helper()
	m, ok := value.(map[string]any)
	require.True(t, ok, "expected map, got %T", value)
	return m
}
