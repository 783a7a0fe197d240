// Package api is the optional admin HTTP surface: tool catalog and calls,
// MCP over HTTP, the call journal, upstream probe results and recent logs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/canre-io/canre/internal/journal"
	"github.com/canre-io/canre/internal/logbuf"
	"github.com/canre-io/canre/internal/source"
	"github.com/canre-io/canre/pkg/protocol"
)

// ErrDisabled is returned by a Service for features that are switched off.
var ErrDisabled = errors.New("disabled")

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// LogQuerier abstracts log entry querying to avoid coupling to logbuf directly.
type LogQuerier interface {
	Query(q logbuf.Query) []logbuf.Entry
}

// Service is what the API server needs from the running daemon.
type Service interface {
	Info() protocol.Implementation
	ListTools() []protocol.ToolDescriptor
	GetTool(name string) (protocol.ToolDescriptor, bool)
	CallTool(ctx context.Context, name string, args map[string]any) (*protocol.ToolResult, error)
	HandleRPC(ctx context.Context, raw []byte) []byte
	ListCalls(filter journal.Filter) ([]*journal.Call, error)
	GetCall(id string) (*journal.Call, error)
	ProviderStatus() []source.ProviderStatus
	RunProbe(ctx context.Context) []source.ProviderStatus
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth
}

// Server is the canre admin API server.
type Server struct {
	svc    Service
	cfg    Config
	logger *slog.Logger
	logs   LogQuerier
	srv    *http.Server
}

// NewServer creates a new API server. logs may be nil.
func NewServer(svc Service, cfg Config, logger *slog.Logger, logs LogQuerier) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		logs:   logs,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/tools", s.requireAuth(s.handleListTools))
	mux.HandleFunc("GET /api/tools/{name}", s.requireAuth(s.handleGetTool))
	mux.HandleFunc("POST /api/tools/{name}", s.requireAuth(s.handleCallTool))
	mux.HandleFunc("POST /mcp", s.requireAuth(s.handleMCP))
	mux.HandleFunc("GET /api/calls", s.requireAuth(s.handleListCalls))
	mux.HandleFunc("GET /api/calls/{id}", s.requireAuth(s.handleGetCall))
	mux.HandleFunc("GET /api/providers", s.requireAuth(s.handleProviders))
	mux.HandleFunc("POST /api/providers/probe", s.requireAuth(s.handleRunProbe))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

type healthResponse struct {
	Status  string `json:"status"`
	Server  string `json:"server"`
	Version string `json:"version"`
	Tools   int    `json:"tools"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := s.svc.Info()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Server:  info.Name,
		Version: info.Version,
		Tools:   len(s.svc.ListTools()),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListTools())
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.svc.GetTool(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "tool not found")
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// toolErrorResponse is the body of a failed tool call.
type toolErrorResponse struct {
	Error *protocol.ToolError `json:"error"`
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var args map[string]any
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			writeError(w, http.StatusBadRequest, "arguments must be a JSON object")
			return
		}
	}

	result, err := s.svc.CallTool(r.Context(), name, args)
	if err != nil {
		te := protocol.AsToolError(err)
		writeJSON(w, statusFor(te.Code), toolErrorResponse{Error: te})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func statusFor(code protocol.ErrorCode) int {
	switch code {
	case protocol.CodeInvalidParams:
		return http.StatusBadRequest
	case protocol.CodeMethodNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	resp := s.svc.HandleRPC(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := journal.Filter{Tool: q.Get("tool"), Limit: 100}
	switch q.Get("status") {
	case "ok":
		ok := true
		filter.OK = &ok
	case "failed":
		ok := false
		filter.OK = &ok
	case "":
	default:
		writeError(w, http.StatusBadRequest, "status must be ok or failed")
		return
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = n
	}
	if ms, err := strconv.ParseInt(q.Get("since"), 10, 64); err == nil {
		filter.Since = time.UnixMilli(ms)
	}

	calls, err := s.svc.ListCalls(filter)
	if err != nil {
		s.writeServiceError(w, "call journal", err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCall(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrDisabled) {
			s.writeServiceError(w, "call journal", err)
			return
		}
		writeError(w, http.StatusNotFound, "call not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.svc.ProviderStatus()))
}

func (s *Server) handleRunProbe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.svc.RunProbe(r.Context())))
}

func nonNil(st []source.ProviderStatus) []source.ProviderStatus {
	if st == nil {
		return []source.ProviderStatus{}
	}
	return st
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	q := r.URL.Query()
	query := logbuf.Query{
		Limit:     200,
		Component: q.Get("component"),
		Tool:      q.Get("tool"),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		query.Limit = n
	}
	if lvl := q.Get("level"); lvl != "" {
		query.MinLevel = logbuf.ParseLevel(lvl)
	}
	if ms, err := strconv.ParseInt(q.Get("since"), 10, 64); err == nil {
		query.Since = time.UnixMilli(ms)
	}

	writeJSON(w, http.StatusOK, s.logs.Query(query))
}

// --- Helpers ---

func (s *Server) writeServiceError(w http.ResponseWriter, feature string, err error) {
	if errors.Is(err, ErrDisabled) {
		writeError(w, http.StatusNotFound, feature+" is disabled")
		return
	}
	s.logger.Error("service error", "feature", feature, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
