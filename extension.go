// Package pickcolor re-picks the color literal under an editor's cursor with an external,
// native color picker, and writes the picked color back over the original literal.
// The host editor is abstracted behind the Editor and Registrar interfaces.
package pickcolor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// HandlerPickColor is the handler name manifest commands ending in ".pickColor" bind to.
	HandlerPickColor = "pickColor"

	// defaultTaskBufferSize is the default queue length of the event loop.
	defaultTaskBufferSize = 16
)

// Extension runs commands and picker completions on a single event loop goroutine, so editor
// calls are never made concurrently.
type Extension struct {
	log    zerolog.Logger
	editor Editor

	installDir string
	pickerPath string
	onResult   func(Result)

	tasks    chan func()
	inflight inflight

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wgLoop    sync.WaitGroup
}

// New creates an Extension talking to editor and starts its event loop. Call Close to stop it.
func New(editor Editor, opts ...Option) *Extension {
	cfg := options{
		logger:     zerolog.Nop(),
		bufferSize: defaultTaskBufferSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Extension{
		log:        cfg.logger.With().Str("pkg", "pickcolor").Logger(),
		editor:     editor,
		installDir: cfg.installDir,
		pickerPath: cfg.pickerPath,
		onResult:   cfg.onResult,
		tasks:      make(chan func(), cfg.bufferSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	e.inflight.init()

	e.wgLoop.Add(1)
	go e.loop()

	return e
}

// loop runs posted tasks in order until the extension is closed.
func (e *Extension) loop() {
	defer e.wgLoop.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case task := <-e.tasks:
			task()
		}
	}
}

// post queues task on the event loop. It returns false if the extension is closed.
func (e *Extension) post(task func()) bool {
	select {
	case <-e.ctx.Done():
		return false
	default:
	}

	select {
	case e.tasks <- task:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// Handlers returns the command handlers of the extension, keyed by handler name.
func (e *Extension) Handlers() map[string]Handler {
	return map[string]Handler{
		HandlerPickColor: e.command(HandlerPickColor, e.pickColor),
	}
}

// Activate registers every command declared in m with reg.
func (e *Extension) Activate(ctx context.Context, m *Manifest, reg Registrar) error {
	if err := Register(ctx, m, e.Handlers(), reg); err != nil {
		return err
	}
	e.log.Info().Str("extension", m.Name).Strs("commands", m.CommandIDs()).
		Msg("Extension activated")
	return nil
}

// command wraps fn so that it runs on the event loop behind the error boundary. The returned
// handler blocks until fn returns, not until any picker it started exits.
func (e *Extension) command(name string, fn func(context.Context) error) Handler {
	return func(ctx context.Context) error {
		errc := make(chan error, 1)
		if !e.post(func() { errc <- e.boundary(ctx, name, fn(ctx)) }) {
			return ErrClosed
		}
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// boundary is where invocation errors end up: each one is logged and shown to the user once.
// A missing active editor is only logged.
func (e *Extension) boundary(ctx context.Context, name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoActiveEditor) {
		e.log.Warn().Str("command", name).Msg("No active editor, ignoring command")
		return nil
	}

	e.log.Error().Err(err).Str("command", name).Msg("Command failed")
	if showErr := e.editor.ShowError(ctx, userMessage(err)); showErr != nil {
		e.log.Warn().Err(showErr).Msg("Failed to show error notification")
	}
	return err
}

// userMessage renders err for a notification, without the stage prefix.
func userMessage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		err = stageErr.Err
	}
	return fmt.Sprintf("Color picker: %v", err)
}

// invocation is one pick-color command waiting for its picker.
type invocation struct {
	doc     *Document
	rng     Range
	pending *Pending
	started time.Time
}

// pickColor locates the literal under the cursor, selects it and starts the picker. The edit
// is applied later, from the event loop, when the picker exits.
func (e *Extension) pickColor(ctx context.Context) error {
	doc, err := e.editor.ActiveEditor(ctx)
	if err != nil {
		return stageError(StageEditor, err)
	}

	rng, ok := WordRangeAt(doc.Text, doc.Cursor)
	if !ok {
		return stageError(StageLocate, fmt.Errorf("%w (offset %d)", ErrNoColorAtCursor, doc.Cursor))
	}
	color := doc.Text[rng.Start:rng.End]

	if err := e.editor.SetSelection(ctx, doc, rng); err != nil {
		return stageError(StageSelect, err)
	}

	font, err := e.editor.FontSettings(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("Failed to read font settings, starting picker without them")
		font = FontSettings{}
	}

	path, err := e.resolvePicker()
	if err != nil {
		return stageError(StageSpawn, err)
	}
	pending, err := NewInvoker(path, e.log).Start(e.ctx, color, font)
	if err != nil {
		return stageError(StageSpawn, err)
	}

	e.log.Info().Str("uri", doc.URI).Str("color", color).Stringer("range", rng).
		Msg("Picker opened")
	e.await(&invocation{doc: doc, rng: rng, pending: pending, started: time.Now()})
	return nil
}

// resolvePicker returns the configured picker path, or the bundled one under the install
// directory. Resolution happens per invocation so a missing picker is reported to the user.
func (e *Extension) resolvePicker() (string, error) {
	if e.pickerPath != "" {
		if err := checkExecutable(e.pickerPath); err != nil {
			return "", err
		}
		return e.pickerPath, nil
	}
	return ResolvePicker(e.installDir)
}

// await posts the completion of inv back onto the event loop once its picker exits.
func (e *Extension) await(inv *invocation) {
	e.inflight.add()
	go func() {
		<-inv.pending.Done()
		if !e.post(func() {
			defer e.inflight.done()
			e.complete(inv)
		}) {
			e.inflight.done()
		}
	}()
}

// complete applies the picker result of inv, if it produced one.
func (e *Extension) complete(inv *invocation) {
	outcome := inv.pending.Outcome()
	res := Result{
		URI:      inv.doc.URI,
		Range:    inv.rng,
		Original: inv.pending.Color,
		Reason:   outcome.Reason(),
		ExitCode: outcome.ExitCode,
		Duration: time.Since(inv.started),
	}

	color, ok := outcome.Color()
	if !ok {
		e.log.Debug().Stringer("reason", res.Reason).Int("exit_code", outcome.ExitCode).
			AnErr("wait_error", outcome.Err).Msg("Picker result discarded")
		e.report(res)
		return
	}
	res.Replacement = color

	applied, err := e.editor.ApplyEdit(e.ctx, inv.doc, inv.rng, color)
	res.Applied = applied
	switch {
	case err != nil:
		res.Err = stageError(StageEdit, err)
		_ = e.boundary(e.ctx, HandlerPickColor, res.Err)
	case !applied:
		e.log.Warn().Str("uri", inv.doc.URI).Stringer("range", inv.rng).
			Msg("Host rejected the color edit")
	default:
		e.log.Info().Str("uri", inv.doc.URI).Str("from", res.Original).Str("to", color).
			Msg("Color replaced")
	}
	e.report(res)
}

func (e *Extension) report(res Result) {
	if e.onResult != nil {
		e.onResult(res)
	}
}

// Wait blocks until every started picker has exited and its completion has run, or ctx is done.
func (e *Extension) Wait(ctx context.Context) error {
	select {
	case <-e.inflight.wait():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the event loop and kills any picker still running. Completions that have not
// run yet are dropped.
func (e *Extension) Close() {
	e.closeOnce.Do(func() {
		e.cancel()
		e.wgLoop.Wait()
	})
}

// inflight counts pickers whose completion has not run yet.
type inflight struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (f *inflight) init() {
	f.idle = make(chan struct{})
	close(f.idle)
}

func (f *inflight) add() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		f.idle = make(chan struct{})
	}
	f.n++
}

func (f *inflight) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n--
	if f.n == 0 {
		close(f.idle)
	}
}

func (f *inflight) wait() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle
}

// Option configures an Extension.
type Option func(*options)

// options stores the configuration for an Extension.
type options struct {
	logger     zerolog.Logger
	installDir string
	pickerPath string
	bufferSize int
	onResult   func(Result)
}

// WithLogger sets the logger for the Extension.
func WithLogger(logger zerolog.Logger) Option { return func(o *options) { o.logger = logger } }

// WithInstallDir sets the directory the bundled picker is resolved under.
func WithInstallDir(dir string) Option { return func(o *options) { o.installDir = dir } }

// WithPickerPath sets an explicit picker executable, bypassing install-dir resolution.
func WithPickerPath(path string) Option { return func(o *options) { o.pickerPath = path } }

// WithBufferSize sets the queue length of the event loop.
func WithBufferSize(n int) Option { return func(o *options) { o.bufferSize = n } }

// WithResultHandler sets a callback run on the event loop after every picker completion.
func WithResultHandler(fn func(Result)) Option { return func(o *options) { o.onResult = fn } }
