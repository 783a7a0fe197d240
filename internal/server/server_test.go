package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/canre-io/canre/internal/tool"
	"github.com/canre-io/canre/pkg/protocol"
)

type stubCaller struct {
	name string
	args map[string]any
	err  error
}

func (c *stubCaller) Call(_ context.Context, name string, args map[string]any) (*protocol.ToolResult, error) {
	c.name, c.args = name, args
	if c.err != nil {
		return nil, c.err
	}
	return protocol.NewTextResult(`{"city": "Toronto <ON>"}`), nil
}

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func handle(t *testing.T, s *Server, raw string) rpcReply {
	t.Helper()
	out := s.Handle(context.Background(), []byte(raw))
	if out == nil {
		t.Fatalf("no response for %s", raw)
	}
	var r rpcReply
	if err := json.Unmarshal(out, &r); err != nil {
		t.Fatalf("bad response %s: %v", out, err)
	}
	if r.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q", r.JSONRPC)
	}
	return r
}

func newTestServer(c Caller) *Server {
	return New(tool.NewCatalog(), c)
}

func TestInitialize(t *testing.T) {
	s := newTestServer(&stubCaller{})
	r := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test","version":"1"}}}`)
	if r.Error != nil {
		t.Fatalf("error: %+v", r.Error)
	}
	var res protocol.InitializeResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		t.Fatal(err)
	}
	if res.ProtocolVersion != "2025-03-26" {
		t.Errorf("version = %q", res.ProtocolVersion)
	}
	if res.ServerInfo.Name != Name || res.ServerInfo.Version != Version {
		t.Errorf("server info = %+v", res.ServerInfo)
	}
	if _, ok := res.Capabilities["tools"]; !ok {
		t.Errorf("capabilities = %v", res.Capabilities)
	}
	if string(r.ID) != "1" {
		t.Errorf("id = %s", r.ID)
	}
}

func TestInitialize_UnknownVersion(t *testing.T) {
	s := newTestServer(&stubCaller{})
	r := handle(t, s, `{"jsonrpc":"2.0","id":"a","method":"initialize","params":{"protocolVersion":"1999-01-01"}}`)
	var res protocol.InitializeResult
	_ = json.Unmarshal(r.Result, &res)
	if res.ProtocolVersion != protocol.ProtocolVersion {
		t.Errorf("version = %q", res.ProtocolVersion)
	}
	if string(r.ID) != `"a"` {
		t.Errorf("id = %s", r.ID)
	}
}

func TestToolsList(t *testing.T) {
	s := newTestServer(&stubCaller{})
	r := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	var res protocol.ListToolsResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Tools) != 16 {
		t.Fatalf("tools = %d, want 16", len(res.Tools))
	}
	if res.Tools[0].Name != tool.HousingPriceIndex {
		t.Errorf("first tool = %s", res.Tools[0].Name)
	}
	for _, d := range res.Tools {
		if d.InputSchema["type"] != "object" {
			t.Errorf("%s schema type = %v", d.Name, d.InputSchema["type"])
		}
	}
}

func TestToolsCall(t *testing.T) {
	c := &stubCaller{}
	s := newTestServer(c)
	r := handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_market_data","arguments":{"city":"Toronto","limit":5}}}`)
	if r.Error != nil {
		t.Fatalf("error: %+v", r.Error)
	}
	if c.name != "get_market_data" || c.args["city"] != "Toronto" || c.args["limit"] != 5.0 {
		t.Errorf("caller got %s %v", c.name, c.args)
	}
	var res protocol.ToolResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Content) != 1 || res.Content[0].Text != `{"city": "Toronto <ON>"}` {
		t.Errorf("content = %+v", res.Content)
	}
	if strings.Contains(string(r.Result), `\u003c`) {
		t.Errorf("result text was HTML-escaped: %s", r.Result)
	}
}

func TestToolsCall_Errors(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		callErr error
		code    int
		msg     string
	}{
		{"tool error", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"x"}}`,
			protocol.InvalidParams("City is required"), -32602, "City is required"},
		{"plain error", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"x"}}`,
			errors.New("kaboom"), -32603, "kaboom"},
		{"no params", `{"jsonrpc":"2.0","id":1,"method":"tools/call"}`, nil, -32602, "missing params"},
		{"no name", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"arguments":{}}}`, nil, -32602, "name is required"},
		{"bad arguments", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"x","arguments":[1]}}`, nil, -32602, "Invalid tool call params"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&stubCaller{err: tc.callErr})
			r := handle(t, s, tc.raw)
			if r.Error == nil {
				t.Fatalf("expected error, got %s", r.Result)
			}
			if r.Error.Code != tc.code || !strings.Contains(r.Error.Message, tc.msg) {
				t.Errorf("got %d %q", r.Error.Code, r.Error.Message)
			}
		})
	}
}

func TestProtocolErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		code int
		id   string
	}{
		{"parse error", `{"jsonrpc":`, -32700, "null"},
		{"batch", `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, -32600, "null"},
		{"wrong version", `{"jsonrpc":"1.0","id":7,"method":"ping"}`, -32600, "7"},
		{"no method", `{"jsonrpc":"2.0","id":7}`, -32600, "7"},
		{"unknown method", `{"jsonrpc":"2.0","id":8,"method":"resources/list"}`, -32601, "8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := handle(t, newTestServer(&stubCaller{}), tc.raw)
			if r.Error == nil || r.Error.Code != tc.code {
				t.Fatalf("error = %+v, want code %d", r.Error, tc.code)
			}
			if string(r.ID) != tc.id {
				t.Errorf("id = %s, want %s", r.ID, tc.id)
			}
		})
	}
}

func TestUnknownMethodMessage(t *testing.T) {
	r := handle(t, newTestServer(&stubCaller{}), `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`)
	if r.Error.Message != "Method not found: prompts/list" {
		t.Errorf("message = %q", r.Error.Message)
	}
}

func TestNotificationsGetNoResponse(t *testing.T) {
	c := &stubCaller{}
	s := newTestServer(c)
	for _, raw := range []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"x"}}`,
	} {
		if out := s.Handle(context.Background(), []byte(raw)); out != nil {
			t.Errorf("%s: got response %s", raw, out)
		}
	}
	if c.name != "" {
		t.Errorf("notification reached the caller: %s", c.name)
	}
}

func TestPing(t *testing.T) {
	r := handle(t, newTestServer(&stubCaller{}), `{"jsonrpc":"2.0","id":9,"method":"ping"}`)
	if r.Error != nil || string(r.Result) != "{}" {
		t.Errorf("ping = %s %+v", r.Result, r.Error)
	}
}

func TestServeStdio(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`not json`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_bank_of_canada_rates"}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	s := newTestServer(&stubCaller{})
	if err := s.ServeStdio(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("ServeStdio: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	wantIDs := []string{"1", "2", "null", "3"}
	for i, line := range lines {
		var r rpcReply
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if string(r.ID) != wantIDs[i] {
			t.Errorf("line %d id = %s, want %s", i, r.ID, wantIDs[i])
		}
	}
}

func TestServeStdio_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := newTestServer(&stubCaller{}).ServeStdio(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %s", out.String())
	}
}

func TestInitialize_WithInfo(t *testing.T) {
	s := New(tool.NewCatalog(), &stubCaller{}, WithInfo("realty-desk", ""))
	r := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	var res protocol.InitializeResult
	_ = json.Unmarshal(r.Result, &res)
	if res.ServerInfo.Name != "realty-desk" || res.ServerInfo.Version != Version {
		t.Errorf("server info = %+v", res.ServerInfo)
	}
	if s.Info() != res.ServerInfo {
		t.Errorf("Info() = %+v", s.Info())
	}
}
