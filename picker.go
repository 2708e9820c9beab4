package pickcolor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	pickerBaseName = "picker"

	fontFlag     = "--font"
	fontSizeFlag = "--font-size"

	// pickerWaitDelay bounds how long Wait lingers on output pipes after the picker exits or
	// is killed.
	pickerWaitDelay = time.Second
)

// FontSettings carries the editor font configuration through to the picker, unmodified.
type FontSettings struct {
	Family string // editor.fontFamily
	Size   string // editor.fontSize, in its textual form
}

// args returns the picker arguments for the font settings. A flag is only emitted when its
// value is set.
func (f FontSettings) args() []string {
	var args []string
	if f.Family != "" {
		args = append(args, fontFlag, f.Family)
	}
	if f.Size != "" {
		args = append(args, fontSizeFlag, f.Size)
	}
	return args
}

// PickerPath returns the location of the bundled picker for goos under installDir.
func PickerPath(installDir, goos string) string {
	name := pickerBaseName
	if goos == "windows" {
		name += ".exe"
	}
	return filepath.Join(installDir, "bin", goos, name)
}

// ResolvePicker returns the picker executable for the running platform under installDir.
func ResolvePicker(installDir string) (string, error) {
	path := PickerPath(installDir, runtime.GOOS)
	if err := checkExecutable(path); err != nil {
		return "", err
	}
	return path, nil
}

// checkExecutable returns ErrPickerNotFound unless path is an executable regular file.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPickerNotFound, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrPickerNotFound, path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not executable", ErrPickerNotFound, path)
	}
	return nil
}

// Invoker spawns the external picker program.
type Invoker struct {
	log  zerolog.Logger
	path string
}

// NewInvoker returns an Invoker for the picker at path.
func NewInvoker(path string, logger zerolog.Logger) *Invoker {
	return &Invoker{
		log:  logger.With().Str("picker", path).Logger(),
		path: path,
	}
}

// Path returns the picker executable path.
func (iv *Invoker) Path() string {
	return iv.path
}

// Args returns the argument list the picker is started with for color and font.
func (*Invoker) Args(color string, font FontSettings) []string {
	return append([]string{color}, font.args()...)
}

// Start spawns the picker seeded with color and returns as soon as the process is running.
// Standard input is the null device and standard error is discarded; standard output is
// collected until exit. Canceling ctx kills the process.
func (iv *Invoker) Start(ctx context.Context, color string, font FontSettings) (*Pending, error) {
	args := iv.Args(color, font)

	cmd := exec.CommandContext(ctx, iv.path, args...)
	cmd.WaitDelay = pickerWaitDelay
	stdout := &bytes.Buffer{}
	cmd.Stdout = stdout

	if err := cmd.Start(); err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, exec.ErrNotFound) ||
			errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrPickerNotFound, err)
		}
		return nil, fmt.Errorf("failed to start picker: %w", err)
	}
	iv.log.Debug().Strs("args", args).Int("pid", cmd.Process.Pid).Msg("Picker started")

	pending := &Pending{
		Color: color,
		Args:  args,
		done:  make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		outcome := Outcome{ExitCode: -1, Output: stdout.Bytes()}
		if cmd.ProcessState != nil {
			outcome.ExitCode = cmd.ProcessState.ExitCode()
		}
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			outcome.Err = err
		}
		// A signal-terminated process reports -1 and counts as crashed.
		if outcome.ExitCode < 0 && outcome.Err == nil {
			outcome.Err = err
		}
		iv.log.Debug().Int("exit_code", outcome.ExitCode).Int("bytes", len(outcome.Output)).
			Msg("Picker exited")
		pending.resolve(outcome)
	}()

	return pending, nil
}

// Pending is a running picker. It resolves exactly once, when the process exits.
type Pending struct {
	Color string   // Color the picker was seeded with
	Args  []string // Arguments the picker was started with

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func (p *Pending) resolve(o Outcome) {
	p.once.Do(func() {
		p.outcome = o
		close(p.done)
	})
}

// Done returns a channel that is closed once the picker has exited.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Outcome returns the picker outcome. It is only meaningful after Done is closed.
func (p *Pending) Outcome() Outcome {
	select {
	case <-p.done:
		return p.outcome
	default:
		return Outcome{ExitCode: -1}
	}
}

// Wait blocks until the picker exits or ctx is done.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Reason classifies a picker outcome.
type Reason int

// Outcome reasons. Only ReasonAccepted leads to an edit.
const (
	ReasonAccepted Reason = iota
	ReasonCancelled
	ReasonInvalidOutput
	ReasonCrashed
)

func (r Reason) String() string {
	switch r {
	case ReasonAccepted:
		return "accepted"
	case ReasonCancelled:
		return "cancelled"
	case ReasonInvalidOutput:
		return "invalid output"
	case ReasonCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Outcome is what a picker process left behind when it exited.
type Outcome struct {
	ExitCode int    // Process exit code, -1 if unknown
	Output   []byte // Everything written to standard output
	Err      error  // Set when waiting on the process failed
}

// Reason classifies the outcome.
func (o Outcome) Reason() Reason {
	switch {
	case o.Err != nil:
		return ReasonCrashed
	case o.ExitCode != 0:
		return ReasonCancelled
	case !IsColor(strings.TrimSpace(string(o.Output))):
		return ReasonInvalidOutput
	default:
		return ReasonAccepted
	}
}

// Color returns the trimmed picker output when the picker exited 0 and printed a single color
// literal.
func (o Outcome) Color() (string, bool) {
	if o.Reason() != ReasonAccepted {
		return "", false
	}
	return strings.TrimSpace(string(o.Output)), true
}
