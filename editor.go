package pickcolor

import "context"

// Editor is the slice of the host editor a pick-color invocation talks to.
type Editor interface {
	// ActiveEditor snapshots the focused text editor. It returns ErrNoActiveEditor when there
	// is none.
	ActiveEditor(ctx context.Context) (*Document, error)
	// SetSelection makes r the visible selection of doc.
	SetSelection(ctx context.Context, doc *Document, r Range) error
	// ApplyEdit replaces r in doc with text in one edit and reports whether the host applied it.
	ApplyEdit(ctx context.Context, doc *Document, r Range, text string) (bool, error)
	// FontSettings reads editor.fontFamily and editor.fontSize.
	FontSettings(ctx context.Context) (FontSettings, error)
	// ShowError shows a user-visible error notification.
	ShowError(ctx context.Context, message string) error
}
