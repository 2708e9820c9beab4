package pickcolor

import (
	"context"
	"fmt"
	"sync"
)

// MemoryEditor is an Editor over a single in-memory document.
type MemoryEditor struct {
	mu        sync.Mutex
	doc       *Document
	font      FontSettings
	selection Range
	edits     int
	errors    []string
}

// NewMemoryEditor returns a MemoryEditor holding text with the cursor at offset.
func NewMemoryEditor(uri, text string, cursor int, font FontSettings) *MemoryEditor {
	return &MemoryEditor{
		doc:  &Document{URI: uri, Text: text, Cursor: cursor},
		font: font,
	}
}

// ActiveEditor returns a snapshot of the document, or ErrNoActiveEditor once it was closed.
func (m *MemoryEditor) ActiveEditor(context.Context) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, ErrNoActiveEditor
	}
	snapshot := *m.doc
	return &snapshot, nil
}

// SetSelection records r as the selection.
func (m *MemoryEditor) SetSelection(_ context.Context, doc *Document, r Range) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDocument(doc); err != nil {
		return err
	}
	m.selection = r
	return nil
}

// ApplyEdit replaces r with text. r is a byte range in doc, which may be an older snapshot;
// it is mapped onto the current text through line/character positions, the way a host
// editor receives it.
func (m *MemoryEditor) ApplyEdit(_ context.Context, doc *Document, r Range, text string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDocument(doc); err != nil {
		return false, err
	}
	current := Range{
		Start: m.doc.OffsetAt(doc.PositionAt(r.Start)),
		End:   m.doc.OffsetAt(doc.PositionAt(r.End)),
	}
	updated, err := m.doc.Replace(current, text)
	if err != nil {
		return false, err
	}
	m.doc.Text = updated
	m.edits++
	return true, nil
}

// FontSettings returns the configured font settings.
func (m *MemoryEditor) FontSettings(context.Context) (FontSettings, error) {
	return m.font, nil
}

// ShowError records message.
func (m *MemoryEditor) ShowError(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, message)
	return nil
}

// SetCursor moves the cursor.
func (m *MemoryEditor) SetCursor(offset int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc != nil {
		m.doc.Cursor = offset
	}
}

// CloseDocument makes the editor report no active editor from now on.
func (m *MemoryEditor) CloseDocument() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = nil
}

// Text returns the current document text.
func (m *MemoryEditor) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ""
	}
	return m.doc.Text
}

// Selection returns the last selection set.
func (m *MemoryEditor) Selection() Range {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection
}

// Edits returns the number of edits applied.
func (m *MemoryEditor) Edits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edits
}

// Errors returns the error notifications shown so far.
func (m *MemoryEditor) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

func (m *MemoryEditor) checkDocument(doc *Document) error {
	if m.doc == nil {
		return ErrNoActiveEditor
	}
	if doc == nil || doc.URI != m.doc.URI {
		return fmt.Errorf("document %q is not open", documentURI(doc))
	}
	return nil
}

func documentURI(doc *Document) string {
	if doc == nil {
		return ""
	}
	return doc.URI
}
