package protocol

import (
	"bytes"
	"encoding/json"
)

// ProtocolVersion is the MCP revision this server speaks by default.
const ProtocolVersion = "2024-11-05"

// Request is an incoming JSON-RPC 2.0 request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id and therefore
// expects no response.
func (r *Request) IsNotification() bool {
	return len(bytes.TrimSpace(r.ID)) == 0
}

// Response is an outgoing JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NullID is used when the request id could not be determined.
var NullID = json.RawMessage("null")

// NewResult builds a success response for id. A result that cannot be
// marshaled becomes an internal error response.
func NewResult(id json.RawMessage, result any) *Response {
	data, err := MarshalCompact(result)
	if err != nil {
		return NewError(id, InternalError("marshal result: %v", err))
	}
	return &Response{JSONRPC: "2.0", ID: id, Result: data}
}

// NewError builds an error response for id from a ToolError.
func NewError(id json.RawMessage, te *ToolError) *Response {
	if len(id) == 0 {
		id = NullID
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: te.Code, Message: te.Message},
	}
}

// --- MCP method payloads ---

// Implementation names a client or server.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams is the params object of "initialize".
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities,omitempty"`
	ClientInfo      Implementation `json:"clientInfo"`
}

// InitializeResult is the result of "initialize".
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
}

// ListToolsResult is the result of "tools/list".
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallToolParams is the params object of "tools/call".
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}
