package pickcolor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// memoryURI is the document identifier used by the one-shot wrappers.
const memoryURI = "memory://text"

// Pick is a one-shot wrapper around the Invoker: it starts the picker at pickerPath seeded
// with color, waits for it to exit, and returns the picked color. ok is false when the picker
// was cancelled, crashed or printed something other than a color literal.
func Pick(
	ctx context.Context,
	pickerPath string,
	color string,
	font FontSettings,
) (picked string, ok bool, err error) {
	pending, err := NewInvoker(pickerPath, zerolog.Nop()).Start(ctx, color, font)
	if err != nil {
		return "", false, err
	}
	outcome, err := pending.Wait(ctx)
	if err != nil {
		return "", false, err
	}
	picked, ok = outcome.Color()
	return picked, ok, nil
}

// PickInText is a one-shot wrapper around an Extension over an in-memory document. It picks
// the literal under offset in text and returns the text with the picked color substituted,
// together with the invocation Result. The text is returned unchanged when the picker produced
// no color.
func PickInText(
	ctx context.Context,
	pickerPath string,
	text string,
	offset int,
	font FontSettings,
) (string, *Result, error) {
	editor := NewMemoryEditor(memoryURI, text, offset, font)

	var result *Result
	ext := New(editor, WithPickerPath(pickerPath), WithResultHandler(func(r Result) {
		result = &r
	}))
	defer ext.Close()

	if err := ext.Handlers()[HandlerPickColor](ctx); err != nil {
		return text, nil, err
	}
	if err := ext.Wait(ctx); err != nil {
		return text, nil, err
	}
	if result == nil {
		return text, nil, fmt.Errorf("%w: picker completion was dropped", ErrClosed)
	}
	if result.Err != nil {
		return text, result, result.Err
	}

	return editor.Text(), result, nil
}
