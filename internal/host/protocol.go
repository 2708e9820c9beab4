package host

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jkbrsn/pickcolor"
)

const rpcVersion = "2.0"

// Methods the extension calls on the host.
const (
	MethodRegisterCommand = "commands/register"
	MethodActiveEditor    = "editor/active"
	MethodSetSelection    = "editor/setSelection"
	MethodApplyEdit       = "editor/applyEdit"
	MethodConfiguration   = "workspace/configuration"
	MethodShowError       = "window/showErrorMessage"
)

// Methods the host calls on the extension.
const (
	MethodExecuteCommand = "commands/execute"
	MethodShutdown       = "shutdown"
)

// Configuration keys read for the picker.
const (
	ConfigFontFamily = "editor.fontFamily"
	ConfigFontSize   = "editor.fontSize"
)

// Standard JSON-RPC error codes, plus the code used for failed commands.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeCommandFailed  = -32000
)

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// message is any inbound frame: request, notification or response.
type message struct {
	RPCVersion string          `json:"jsonrpc"`
	ID         json.RawMessage `json:"id,omitempty"`
	Method     string          `json:"method,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *RPCError       `json:"error,omitempty"`
}

func (m *message) isResponse() bool {
	return m.Method == "" && hasValue(m.ID)
}

func (m *message) isRequest() bool {
	return m.Method != "" && hasValue(m.ID)
}

// outboundRequest is a request or, without an ID, a notification.
type outboundRequest struct {
	RPCVersion string `json:"jsonrpc"`
	ID         uint64 `json:"id,omitempty"`
	Method     string `json:"method"`
	Params     any    `json:"params,omitempty"`
}

type outboundResult struct {
	RPCVersion string          `json:"jsonrpc"`
	ID         json.RawMessage `json:"id"`
	Result     any             `json:"result"`
}

type outboundError struct {
	RPCVersion string          `json:"jsonrpc"`
	ID         json.RawMessage `json:"id"`
	Error      *RPCError       `json:"error"`
}

// idKey normalizes a request ID so numeric and string forms of the same ID match.
func idKey(raw json.RawMessage) string {
	return string(bytes.Trim(bytes.TrimSpace(raw), `"`))
}

// hasValue reports whether raw holds a JSON value other than null.
func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

type registerCommandParams struct {
	Command string `json:"command"`
}

type executeCommandParams struct {
	Command string `json:"command"`
}

type activeEditorResult struct {
	URI    string             `json:"uri"`
	Text   string             `json:"text"`
	Cursor pickcolor.Position `json:"cursor"`
}

type rangeParam struct {
	Start pickcolor.Position `json:"start"`
	End   pickcolor.Position `json:"end"`
}

type setSelectionParams struct {
	URI   string     `json:"uri"`
	Range rangeParam `json:"range"`
}

type applyEditParams struct {
	URI   string     `json:"uri"`
	Range rangeParam `json:"range"`
	Text  string     `json:"text"`
}

type applyEditResult struct {
	Applied bool `json:"applied"`
}

type configurationParams struct {
	Items []string `json:"items"`
}

type showErrorParams struct {
	Message string `json:"message"`
}

// toRangeParam converts a byte range of doc into line/character positions.
func toRangeParam(doc *pickcolor.Document, r pickcolor.Range) rangeParam {
	return rangeParam{Start: doc.PositionAt(r.Start), End: doc.PositionAt(r.End)}
}

// configString renders a configuration value as text: strings unquoted, null as empty, and
// anything else (numbers, mostly) verbatim.
func configString(raw json.RawMessage) string {
	if !hasValue(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
