package pickcolor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveEditor is returned by an Editor when no text editor is focused.
	ErrNoActiveEditor = errors.New("no active editor")
	// ErrNoColorAtCursor is returned when the cursor is not on a color literal.
	ErrNoColorAtCursor = errors.New("no color literal at cursor")
	// ErrPickerNotFound is returned when the picker executable is missing or not executable.
	ErrPickerNotFound = errors.New("color picker executable not found")
	// ErrHandlerNotFound is returned when a manifest command has no matching handler.
	ErrHandlerNotFound = errors.New("command handler not found")
	// ErrCommandNotFound is returned when executing a command that was never registered.
	ErrCommandNotFound = errors.New("command not registered")
	// ErrClosed is returned when using an Extension after Close.
	ErrClosed = errors.New("extension closed")
)

// Stage names a step of a pick-color invocation.
type Stage string

// Invocation stages, in execution order.
const (
	StageEditor Stage = "editor"
	StageLocate Stage = "locate"
	StageSelect Stage = "select"
	StageSpawn  Stage = "spawn"
	StageEdit   Stage = "edit"
)

// StageError is the error returned by a failed invocation stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageError wraps err with the stage it failed in. A nil err stays nil.
func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
