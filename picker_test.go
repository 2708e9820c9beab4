package pickcolor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jkbrsn/pickcolor/internal/pickertest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFontSettingsArgs(t *testing.T) {
	t.Parallel()

	iv := NewInvoker("picker", zerolog.Nop())

	args := iv.Args("#fff", FontSettings{Family: "Fira Code", Size: "14"})
	assert.Equal(t, []string{"#fff", "--font", "Fira Code", "--font-size", "14"}, args)
	assert.Len(t, args[1:], 4)

	assert.Equal(t, []string{"#fff"}, iv.Args("#fff", FontSettings{}))
	assert.Equal(t, []string{"#fff", "--font-size", "12"}, iv.Args("#fff", FontSettings{Size: "12"}))
}

func TestPickerPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("ext", "bin", "linux", "picker"), PickerPath("ext", "linux"))
	assert.Equal(t, filepath.Join("ext", "bin", "darwin", "picker"), PickerPath("ext", "darwin"))
	assert.Equal(t, filepath.Join("ext", "bin", "windows", "picker.exe"), PickerPath("ext", "windows"))
}

func TestResolvePicker(t *testing.T) {
	t.Run("installed", func(t *testing.T) {
		dir := t.TempDir()
		want := pickertest.Install(t, dir, "exit 0")

		got, err := ResolvePicker(dir)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ResolvePicker(t.TempDir())
		require.ErrorIs(t, err, ErrPickerNotFound)
	})

	t.Run("not executable", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("no executable bit on windows")
		}
		dir := t.TempDir()
		path := PickerPath(dir, runtime.GOOS)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("not a program"), 0o600))

		_, err := ResolvePicker(dir)
		require.ErrorIs(t, err, ErrPickerNotFound)
	})
}

func TestInvokerStart(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		rec := pickertest.Record(t, "#AABBCC\n")
		iv := NewInvoker(rec.Path, zerolog.Nop())

		pending, err := iv.Start(context.Background(), "#fff", FontSettings{Family: "Menlo", Size: "13"})
		require.NoError(t, err)

		outcome, err := pending.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.Equal(t, ReasonAccepted, outcome.Reason())

		color, ok := outcome.Color()
		require.True(t, ok)
		assert.Equal(t, "#AABBCC", color)

		assert.Equal(t, []string{"#fff", "--font", "Menlo", "--font-size", "13"}, rec.Args(t))
		assert.Equal(t, "#fff", pending.Color)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		iv := NewInvoker(pickertest.Echo(t, "#AABBCC", 1), zerolog.Nop())
		pending, err := iv.Start(context.Background(), "#fff", FontSettings{})
		require.NoError(t, err)

		outcome, err := pending.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, outcome.ExitCode)
		assert.Equal(t, ReasonCancelled, outcome.Reason())
		_, ok := outcome.Color()
		assert.False(t, ok)
	})

	t.Run("invalid output", func(t *testing.T) {
		iv := NewInvoker(pickertest.Echo(t, "cancelled\n", 0), zerolog.Nop())
		pending, err := iv.Start(context.Background(), "#fff", FontSettings{})
		require.NoError(t, err)

		<-pending.Done()
		outcome := pending.Outcome()
		assert.Equal(t, ReasonInvalidOutput, outcome.Reason())
		assert.Equal(t, "cancelled\n", string(outcome.Output))
	})

	t.Run("missing executable", func(t *testing.T) {
		iv := NewInvoker(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
		_, err := iv.Start(context.Background(), "#fff", FontSettings{})
		require.ErrorIs(t, err, ErrPickerNotFound)
	})

	t.Run("canceled", func(t *testing.T) {
		iv := NewInvoker(pickertest.Script(t, "exec sleep 5"), zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		pending, err := iv.Start(ctx, "#fff", FontSettings{})
		require.NoError(t, err)
		cancel()

		select {
		case <-pending.Done():
		case <-time.After(3 * time.Second):
			t.Fatal("picker was not killed")
		}
		assert.Equal(t, ReasonCrashed, pending.Outcome().Reason())
	})
}

func TestPendingWaitContext(t *testing.T) {
	t.Parallel()

	p := &Pending{done: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, p.Outcome().ExitCode, "unresolved outcome")

	p.resolve(Outcome{ExitCode: 0, Output: []byte("#000")})
	p.resolve(Outcome{ExitCode: 2})
	outcome, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode, "only the first resolution counts")
}

func TestOutcomeReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
		reason  Reason
		color   string
	}{
		{name: "hex", outcome: Outcome{Output: []byte("#AABBCC\n")}, reason: ReasonAccepted, color: "#AABBCC"},
		{name: "padded rgb", outcome: Outcome{Output: []byte("  rgb(1, 2, 3)\r\n")},
			reason: ReasonAccepted, color: "rgb(1, 2, 3)"},
		{name: "exit 1", outcome: Outcome{ExitCode: 1, Output: []byte("#AABBCC")}, reason: ReasonCancelled},
		{name: "not a color", outcome: Outcome{Output: []byte("cancelled")}, reason: ReasonInvalidOutput},
		{name: "empty", outcome: Outcome{}, reason: ReasonInvalidOutput},
		{name: "two colors", outcome: Outcome{Output: []byte("#fff\n#000\n")}, reason: ReasonInvalidOutput},
		{name: "wait error", outcome: Outcome{ExitCode: -1, Err: errors.New("boom")}, reason: ReasonCrashed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.reason, tt.outcome.Reason())
			color, ok := tt.outcome.Color()
			assert.Equal(t, tt.reason == ReasonAccepted, ok)
			assert.Equal(t, tt.color, color)
		})
	}
}
