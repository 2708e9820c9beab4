package pickcolor

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Position is a zero-based line/character location in a document. Characters are counted in
// runes, not bytes.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open byte span [Start, End) of a document's text.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether offset lies within the range. Both ends are inclusive, so a cursor
// placed right after a literal still counts as being on it.
func (r Range) Contains(offset int) bool {
	return r.Start <= offset && offset <= r.End
}

// String returns the range as "[start,end)".
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Document is a snapshot of the active editor taken when a command is invoked.
type Document struct {
	URI    string // Identifier of the document in the host editor
	Text   string // Full text at invocation time
	Cursor int    // Byte offset of the primary cursor
}

// Slice returns the text covered by r.
func (d *Document) Slice(r Range) (string, error) {
	if err := d.checkRange(r); err != nil {
		return "", err
	}
	return d.Text[r.Start:r.End], nil
}

// Replace returns the document text with r replaced by s. The document itself is not modified.
func (d *Document) Replace(r Range, s string) (string, error) {
	if err := d.checkRange(r); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(d.Text) - r.Len() + len(s))
	b.WriteString(d.Text[:r.Start])
	b.WriteString(s)
	b.WriteString(d.Text[r.End:])
	return b.String(), nil
}

// PositionAt converts a byte offset into a line/character position. Offsets outside the text
// are clamped.
func (d *Document) PositionAt(offset int) Position {
	offset = min(max(offset, 0), len(d.Text))
	before := d.Text[:offset]
	line := strings.Count(before, "\n")
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{Line: line, Character: utf8.RuneCountInString(before[lineStart:])}
}

// OffsetAt converts a line/character position into a byte offset. Lines past the end clamp to
// the end of the text, characters past the end of a line clamp to the line end.
func (d *Document) OffsetAt(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	lineStart := 0
	for n := 0; n < pos.Line; n++ {
		i := strings.IndexByte(d.Text[lineStart:], '\n')
		if i < 0 {
			return len(d.Text)
		}
		lineStart += i + 1
	}

	offset := lineStart
	for n := 0; n < pos.Character && offset < len(d.Text); n++ {
		r, size := utf8.DecodeRuneInString(d.Text[offset:])
		if r == '\n' {
			break
		}
		offset += size
	}
	return offset
}

func (d *Document) checkRange(r Range) error {
	if r.Start < 0 || r.End < r.Start || r.End > len(d.Text) {
		return fmt.Errorf("range %s out of bounds for document of length %d", r, len(d.Text))
	}
	return nil
}
