package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jkbrsn/pickcolor"
	"github.com/rs/zerolog"
)

// Cursor locates the cursor in a file: a byte offset, or a 1-based line and column counted in
// characters.
type Cursor struct {
	Offset int // Byte offset; negative when Line is used
	Line   int // 1-based line
	Col    int // 1-based column
}

// fileEditor is a pickcolor.Editor over a file on disk. Edits are written back atomically
// unless dryRun is set.
type fileEditor struct {
	*pickcolor.MemoryEditor

	log    zerolog.Logger
	path   string
	perm   fs.FileMode
	dryRun bool
}

// newFileEditor reads path and places the cursor.
func newFileEditor(
	path string,
	cursor Cursor,
	font pickcolor.FontSettings,
	dryRun bool,
	logger zerolog.Logger,
) (*fileEditor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	uri, err := fileURI(path)
	if err != nil {
		return nil, err
	}

	text := string(data)
	offset := cursor.Offset
	if offset < 0 {
		doc := pickcolor.Document{Text: text}
		offset = doc.OffsetAt(pickcolor.Position{Line: cursor.Line - 1, Character: cursor.Col - 1})
	}
	if offset > len(text) {
		return nil, fmt.Errorf("offset %d is past the end of %s (%d bytes)", offset, path, len(text))
	}

	return &fileEditor{
		MemoryEditor: pickcolor.NewMemoryEditor(uri, text, offset, font),
		log:          logger.With().Str("file", path).Logger(),
		path:         path,
		perm:         info.Mode().Perm(),
		dryRun:       dryRun,
	}, nil
}

// ApplyEdit applies the edit in memory and then writes the file.
func (f *fileEditor) ApplyEdit(
	ctx context.Context,
	doc *pickcolor.Document,
	r pickcolor.Range,
	text string,
) (bool, error) {
	applied, err := f.MemoryEditor.ApplyEdit(ctx, doc, r, text)
	if err != nil || !applied {
		return applied, err
	}
	if f.dryRun {
		f.log.Info().Msg("Dry run, file not written")
		return true, nil
	}
	if err := writeFileAtomic(f.path, []byte(f.Text()), f.perm); err != nil {
		return false, err
	}
	f.log.Debug().Int("bytes", len(f.Text())).Msg("File written")
	return true, nil
}

// ShowError records message. The command error carrying the same text is returned from
// Client.Run and printed by the caller.
func (f *fileEditor) ShowError(ctx context.Context, message string) error {
	f.log.Debug().Str("message", message).Msg("Error notification")
	return f.MemoryEditor.ShowError(ctx, message)
}

// writeFileAtomic replaces path with data through a temporary file in the same directory.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
