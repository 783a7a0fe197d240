// Package server speaks MCP (JSON-RPC 2.0) over newline-delimited stdio and
// hands tool calls to a Caller.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/canre-io/canre/internal/tool"
	"github.com/canre-io/canre/pkg/protocol"
)

// Server identity reported by initialize.
const (
	Name    = "canadian-real-estate-mcp"
	Version = "2.0.0"
)

// maxLineBytes bounds a single JSON-RPC message on stdio.
const maxLineBytes = 16 << 20

// SupportedVersions are the MCP revisions echoed back to a client that asks
// for them. Anything else is answered with protocol.ProtocolVersion.
var SupportedVersions = []string{protocol.ProtocolVersion, "2025-03-26", "2025-06-18"}

// Caller executes a tool. Errors should be *protocol.ToolError; anything
// else is reported as an internal error.
type Caller interface {
	Call(ctx context.Context, name string, args map[string]any) (*protocol.ToolResult, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInfo overrides the name and version reported by initialize. Empty
// fields keep the defaults.
func WithInfo(name, version string) Option {
	return func(s *Server) {
		if name != "" {
			s.info.Name = name
		}
		if version != "" {
			s.info.Version = version
		}
	}
}

// Server answers MCP requests.
type Server struct {
	registry *tool.Registry
	caller   Caller
	info     protocol.Implementation
	logger   *slog.Logger
}

// New creates a server over the tool registry.
func New(reg *tool.Registry, caller Caller, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		caller:   caller,
		info:     protocol.Implementation{Name: Name, Version: Version},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "mcp")
	return s
}

// Info returns the identity reported to clients.
func (s *Server) Info() protocol.Implementation {
	return s.info
}

// ServeStdio reads one request per line from r and writes one response per
// line to w until r is exhausted or ctx is done. Requests are handled in
// arrival order.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	out := bufio.NewWriter(w)

	s.logger.Info("serving on stdio", "tools", s.registry.Len())
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.Handle(ctx, line)
		if resp == nil {
			continue
		}
		_, err := out.Write(append(resp, '\n'))
		if err == nil {
			err = out.Flush()
		}
		if err != nil {
			return fmt.Errorf("mcp stdio: write: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("mcp stdio: read: %w", err)
	}
	s.logger.Info("stdin closed")
	return nil
}

// Handle answers one raw JSON-RPC message. It returns nil for
// notifications.
func (s *Server) Handle(ctx context.Context, raw []byte) []byte {
	resp := s.handle(ctx, bytes.TrimSpace(raw))
	if resp == nil {
		return nil
	}
	data, err := protocol.MarshalCompact(resp)
	if err != nil {
		s.logger.Error("marshal response", "error", err)
		data, _ = protocol.MarshalCompact(protocol.NewError(resp.ID, protocol.InternalError("marshal response: %v", err)))
	}
	return data
}

func (s *Server) handle(ctx context.Context, raw []byte) *protocol.Response {
	if len(raw) > 0 && raw[0] == '[' {
		return protocol.NewError(protocol.NullID, invalidRequest("Batch requests are not supported"))
	}

	var req protocol.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return protocol.NewError(protocol.NullID, &protocol.ToolError{Code: protocol.CodeParseError, Message: "Parse error"})
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return protocol.NewError(req.ID, invalidRequest("Invalid Request"))
	}

	if req.IsNotification() {
		s.logger.Debug("notification", "method", req.Method)
		return nil
	}

	result, te := s.dispatch(ctx, &req)
	if te != nil {
		return protocol.NewError(req.ID, te)
	}
	return protocol.NewResult(req.ID, result)
}

func (s *Server) dispatch(ctx context.Context, req *protocol.Request) (any, *protocol.ToolError) {
	switch req.Method {
	case "initialize":
		return s.initialize(req.Params)
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return protocol.ListToolsResult{Tools: s.registry.List()}, nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	default:
		return nil, protocol.MethodNotFound("Method not found: %s", req.Method)
	}
}

func (s *Server) initialize(params json.RawMessage) (any, *protocol.ToolError) {
	var p protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, protocol.InvalidParams("Invalid initialize params: %v", err)
		}
	}
	version := protocol.ProtocolVersion
	if slices.Contains(SupportedVersions, p.ProtocolVersion) {
		version = p.ProtocolVersion
	}
	s.logger.Info("client initialized", "client", p.ClientInfo.Name,
		"client_version", p.ClientInfo.Version, "protocol", version)
	return protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      s.info,
	}, nil
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, *protocol.ToolError) {
	var p protocol.CallToolParams
	if len(params) == 0 {
		return nil, protocol.InvalidParams("Invalid tool call params: missing params")
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.InvalidParams("Invalid tool call params: %v", err)
	}
	if p.Name == "" {
		return nil, protocol.InvalidParams("Invalid tool call params: name is required")
	}

	result, err := s.caller.Call(ctx, p.Name, p.Arguments)
	if err != nil {
		return nil, protocol.AsToolError(err)
	}
	return result, nil
}

func invalidRequest(msg string) *protocol.ToolError {
	return &protocol.ToolError{Code: protocol.CodeInvalidRequest, Message: msg}
}
