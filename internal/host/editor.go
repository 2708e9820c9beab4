package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jkbrsn/pickcolor"
)

// RegisterCommand binds id to handler locally and announces the command to the host. The
// local binding is dropped again when the host does not accept the command.
func (c *Client) RegisterCommand(ctx context.Context, id string, handler pickcolor.Handler) error {
	if err := c.commands.RegisterCommand(ctx, id, handler); err != nil {
		return err
	}
	if err := c.Call(ctx, MethodRegisterCommand, registerCommandParams{Command: id}, nil); err != nil {
		c.commands.UnregisterCommand(id)
		return err
	}
	return nil
}

// ActiveEditor fetches the focused document from the host. A null result means there is no
// active editor.
func (c *Client) ActiveEditor(ctx context.Context) (*pickcolor.Document, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, MethodActiveEditor, nil, &raw); err != nil {
		return nil, err
	}
	if !hasValue(raw) {
		return nil, pickcolor.ErrNoActiveEditor
	}

	var active activeEditorResult
	if err := json.Unmarshal(raw, &active); err != nil {
		return nil, fmt.Errorf("%s: failed to decode result: %w", MethodActiveEditor, err)
	}
	doc := &pickcolor.Document{URI: active.URI, Text: active.Text}
	doc.Cursor = doc.OffsetAt(active.Cursor)
	return doc, nil
}

// SetSelection asks the host to select r in doc.
func (c *Client) SetSelection(ctx context.Context, doc *pickcolor.Document, r pickcolor.Range) error {
	return c.Call(ctx, MethodSetSelection, setSelectionParams{
		URI:   doc.URI,
		Range: toRangeParam(doc, r),
	}, nil)
}

// ApplyEdit asks the host to replace r in doc with text. Positions are computed against the
// document as it was snapshotted.
func (c *Client) ApplyEdit(
	ctx context.Context,
	doc *pickcolor.Document,
	r pickcolor.Range,
	text string,
) (bool, error) {
	var result applyEditResult
	err := c.Call(ctx, MethodApplyEdit, applyEditParams{
		URI:   doc.URI,
		Range: toRangeParam(doc, r),
		Text:  text,
	}, &result)
	if err != nil {
		return false, err
	}
	return result.Applied, nil
}

// FontSettings reads the editor font family and size from the host configuration.
func (c *Client) FontSettings(ctx context.Context) (pickcolor.FontSettings, error) {
	var values []json.RawMessage
	err := c.Call(ctx, MethodConfiguration, configurationParams{
		Items: []string{ConfigFontFamily, ConfigFontSize},
	}, &values)
	if err != nil {
		return pickcolor.FontSettings{}, err
	}

	var font pickcolor.FontSettings
	if len(values) > 0 {
		font.Family = configString(values[0])
	}
	if len(values) > 1 {
		font.Size = configString(values[1])
	}
	return font, nil
}

// ShowError sends an error notification to the host.
func (c *Client) ShowError(ctx context.Context, message string) error {
	return c.Notify(ctx, MethodShowError, showErrorParams{Message: message})
}
