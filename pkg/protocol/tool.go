package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToolDescriptor describes a tool in MCP tools/list format.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// NewToolDescriptor creates a ToolDescriptor with an object input schema.
// A nil properties map is replaced by an empty one so the schema always
// carries a "properties" key.
func NewToolDescriptor(name, description string, properties map[string]any, required ...string) ToolDescriptor {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return ToolDescriptor{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}
}

// Content is a single content block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the envelope every successful tool call returns.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// NewTextResult wraps text as a single-item text envelope.
func NewTextResult(text string) *ToolResult {
	return &ToolResult{Content: []Content{{Type: "text", Text: text}}}
}

// NewJSONResult serializes v as two-space indented JSON and wraps it as a
// single-item text envelope. HTML characters are written verbatim.
func NewJSONResult(v any) (*ToolResult, error) {
	text, err := MarshalPretty(v)
	if err != nil {
		return nil, err
	}
	return NewTextResult(text), nil
}

// MarshalPretty renders v as two-space indented JSON without HTML escaping
// and without a trailing newline.
func MarshalPretty(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("protocol: marshal result: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// MarshalCompact renders v as compact JSON without HTML escaping. Custom
// MarshalJSON methods use it so nested values keep the same escaping as
// the enclosing envelope.
func MarshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
