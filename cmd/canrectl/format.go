package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"
)

// descWidth is the wrap width for tool descriptions.
const descWidth = 72

type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// formatTools renders one block per tool: the name, then its wrapped and
// indented description.
func formatTools(tools []toolInfo) string {
	var b strings.Builder
	for i, t := range tools {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Name)
		if req := requiredArgs(t.InputSchema); len(req) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(req, ", "))
		}
		b.WriteByte('\n')
		for _, line := range strings.Split(wordwrap.String(t.Description, descWidth), "\n") {
			b.WriteString("    " + line + "\n")
		}
	}
	return b.String()
}

func requiredArgs(schema map[string]any) []string {
	raw, _ := schema["required"].([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

type callInfo struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	OK         bool      `json:"ok"`
	Message    string    `json:"message"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
}

func formatCall(c callInfo) string {
	status := "ok"
	if !c.OK {
		status = "failed"
	}
	line := fmt.Sprintf("%-36s %-20s %-32s %-6s %5dms", c.ID, c.StartedAt.Local().Format(time.DateTime), c.Tool, status, c.DurationMs)
	if c.Message != "" {
		line += "  " + c.Message
	}
	return line
}

type logInfo struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Component string    `json:"component"`
	Tool      string    `json:"tool"`
}

func formatLog(e logInfo) string {
	scope := e.Component
	if e.Tool != "" {
		scope += "/" + e.Tool
	}
	return fmt.Sprintf("%s %-5s %-20s %s", e.Time.Local().Format(time.TimeOnly), e.Level, scope, e.Message)
}

type providerInfo struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error"`
}

func formatProvider(p providerInfo) string {
	if p.OK {
		return fmt.Sprintf("%-8s up    %5dms  %s", p.Name, p.LatencyMS, p.URL)
	}
	return fmt.Sprintf("%-8s down  %5dms  %s: %s", p.Name, p.LatencyMS, p.URL, p.Error)
}

// parseArgs decodes the --args flag. An empty string means no arguments.
func parseArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("--args must be a JSON object: %w", err)
	}
	return args, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}
