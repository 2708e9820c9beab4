package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jkbrsn/pickcolor"
	"github.com/jkbrsn/pickcolor/internal/pickertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientValidate(t *testing.T) {
	t.Parallel()

	hostURL, err := url.Parse("ws://localhost:7000/ext")
	require.NoError(t, err)
	httpURL, err := url.Parse("http://localhost:7000")
	require.NoError(t, err)

	tests := []struct {
		name    string
		client  Client
		wantErr string
	}{
		{name: "host mode", client: Client{HostURL: hostURL}},
		{name: "file mode with offset", client: Client{File: "a.css", Cursor: Cursor{Offset: 3}}},
		{name: "file mode with line", client: Client{File: "a.css", Cursor: Cursor{Offset: -1, Line: 2, Col: 1}}},
		{name: "json format", client: Client{File: "a.css", Format: formatJSON}},
		{name: "no mode", client: Client{}, wantErr: "either a host URL or -file is required"},
		{
			name:    "both modes",
			client:  Client{HostURL: hostURL, File: "a.css"},
			wantErr: "mutually exclusive",
		},
		{name: "http scheme", client: Client{HostURL: httpURL}, wantErr: "unsupported host URL scheme"},
		{name: "dry run in host mode", client: Client{HostURL: hostURL, DryRun: true}, wantErr: "-dry-run requires -file"},
		{name: "no cursor", client: Client{File: "a.css", Cursor: Cursor{Offset: -1}}, wantErr: "-offset or -line"},
		{
			name:    "offset and line",
			client:  Client{File: "a.css", Cursor: Cursor{Offset: 2, Line: 1, Col: 1}},
			wantErr: "mutually exclusive",
		},
		{name: "line without column", client: Client{File: "a.css", Cursor: Cursor{Offset: -1, Line: 1}}, wantErr: "-col"},
		{name: "bad format", client: Client{File: "a.css", Format: "yaml"}, wantErr: "unsupported format"},
		{
			name:    "quiet and verbose",
			client:  Client{HostURL: hostURL, Quiet: true, VerbosityLevel: 1},
			wantErr: "mutually exclusive",
		},
		{name: "negative timeout", client: Client{HostURL: hostURL, Timeout: -time.Second}, wantErr: "timeout"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.client.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPickCommand(t *testing.T) {
	t.Parallel()

	id, err := pickCommand(pickcolor.DefaultManifest())
	require.NoError(t, err)
	assert.Equal(t, "colorpick.pickColor", id)

	m, err := pickcolor.ParseManifest([]byte("contributes:\n  commands:\n    - command: colorpick.other\n"))
	require.NoError(t, err)
	_, err = pickCommand(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colorpick.other")
}

func runContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunFile(t *testing.T) {
	path := writeTempFile(t, "a.css", "a { color: #fff; }\n")
	rec := pickertest.Record(t, "#AABBCC\n")

	client := &Client{
		File:       path,
		Cursor:     Cursor{Offset: -1, Line: 1, Col: 13},
		PickerPath: rec.Path,
		Font:       pickcolor.FontSettings{Family: "Menlo"},
		ColorMode:  "never",
	}
	require.NoError(t, client.Run(runContext(t)))

	assert.Equal(t, "a { color: #AABBCC; }\n", readFile(t, path))
	assert.Equal(t, []string{"#fff", "--font", "Menlo"}, rec.Args(t))

	require.NotNil(t, client.Result)
	assert.True(t, client.Result.Applied)
	assert.Equal(t, "#fff", client.Result.Original)

	output := captureStdoutFrom(t, client.PrintResult)
	assert.Equal(t, "Color: #fff -> #AABBCC (replaced)\n", output)
}

func TestRunFileDryRun(t *testing.T) {
	path := writeTempFile(t, "a.css", "a { color: rgb(1, 2, 3); }\n")

	client := &Client{
		File:       path,
		Cursor:     Cursor{Offset: 14},
		PickerPath: pickertest.Echo(t, "hsl(0, 100%, 50%)", 0),
		DryRun:     true,
		Format:     formatJSON,
	}
	require.NoError(t, client.Run(runContext(t)))
	assert.Equal(t, "a { color: rgb(1, 2, 3); }\n", readFile(t, path))

	payload := decodeJSONLine(t, captureStdoutFrom(t, client.PrintResult))
	assert.Equal(t, "rgb(1, 2, 3)", payload["original"])
	assert.Equal(t, "hsl(0, 100%, 50%)", payload["replacement"])
	assert.Equal(t, true, payload["dry_run"])
	assert.Equal(t, float64(255), asMap(t, payload["rgb"])["r"])
}

func TestRunFileCancelled(t *testing.T) {
	const content = "x: #123;\n"
	path := writeTempFile(t, "a.css", content)

	client := &Client{
		File:       path,
		Cursor:     Cursor{Offset: 4},
		PickerPath: pickertest.Echo(t, "", 1),
	}
	require.NoError(t, client.Run(runContext(t)))
	assert.Equal(t, content, readFile(t, path))

	require.NotNil(t, client.Result)
	assert.Equal(t, pickcolor.ReasonCancelled, client.Result.Reason)
	assert.False(t, client.Result.Applied)
}

func TestRunFileErrors(t *testing.T) {
	t.Run("no color at cursor", func(t *testing.T) {
		path := writeTempFile(t, "a.txt", "plain text")
		client := &Client{File: path, Cursor: Cursor{Offset: 2}, PickerPath: "/nonexistent/picker"}
		require.ErrorIs(t, client.Run(runContext(t)), pickcolor.ErrNoColorAtCursor)
		assert.Nil(t, client.Result)
	})

	t.Run("missing picker", func(t *testing.T) {
		path := writeTempFile(t, "a.css", "#fff")
		client := &Client{File: path, Cursor: Cursor{Offset: 0}, InstallDir: t.TempDir()}
		require.ErrorIs(t, client.Run(runContext(t)), pickcolor.ErrPickerNotFound)
	})

	t.Run("installed picker", func(t *testing.T) {
		dir := t.TempDir()
		pickertest.Install(t, dir, "printf '#000'")
		path := writeTempFile(t, "a.css", "#fff")
		client := &Client{File: path, Cursor: Cursor{Offset: 0}, InstallDir: dir}
		require.NoError(t, client.Run(runContext(t)))
		assert.Equal(t, "#000", readFile(t, path))
	})

	t.Run("manifest without pick command", func(t *testing.T) {
		manifest := writeTempFile(t, "package.json",
			`{"contributes": {"commands": [{"command": "colorpick.other"}]}}`)
		path := writeTempFile(t, "a.css", "#fff")
		client := &Client{File: path, Cursor: Cursor{Offset: 0}, ManifestPath: manifest}
		require.Error(t, client.Run(runContext(t)))
	})

	t.Run("invalid settings", func(t *testing.T) {
		client := &Client{}
		require.Error(t, client.Run(runContext(t)))
	})
}

func TestRunHost(t *testing.T) {
	registered := make(chan string, 1)
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() {
			_ = conn.Close()
		}()

		for {
			var req struct {
				ID     json.RawMessage `json:"id"`
				Method string          `json:"method"`
				Params struct {
					Command string `json:"command"`
				} `json:"params"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Method != "commands/register" {
				continue
			}
			registered <- req.Params.Command
			reply := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": nil}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
			if err := conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "method": "shutdown"}); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	hostURL, err := url.Parse("ws" + strings.TrimPrefix(server.URL, "http"))
	require.NoError(t, err)

	client := &Client{HostURL: hostURL, Timeout: time.Second}
	require.NoError(t, client.Run(runContext(t)))

	select {
	case id := <-registered:
		assert.Equal(t, "colorpick.pickColor", id)
	default:
		t.Fatal("command was never registered")
	}
}

func TestRunHostDialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	hostURL, err := url.Parse("ws" + strings.TrimPrefix(server.URL, "http"))
	require.NoError(t, err)

	client := &Client{HostURL: hostURL, Timeout: time.Second}
	err = client.Run(runContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection to host")
}
