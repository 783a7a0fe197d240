package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/canre-io/canre/internal/app"
	"github.com/canre-io/canre/internal/config"
	"github.com/canre-io/canre/pkg/protocol"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "tools":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: canrectl tools <list|show>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdToolsList()
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: canrectl tools show <name>")
				os.Exit(1)
			}
			cmdToolsShow(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown tools subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "call":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: canrectl call <tool> [--args JSON] [--local] [--config path]")
			os.Exit(1)
		}
		cmdCall(os.Args[2], os.Args[3:])
	case "calls":
		if len(os.Args) >= 4 && os.Args[2] == "show" {
			cmdCallsShow(os.Args[3])
			return
		}
		args := os.Args[2:]
		if len(args) > 0 && args[0] == "list" {
			args = args[1:]
		}
		cmdCallsList(args)
	case "logs":
		cmdLogs(os.Args[2:])
	case "providers":
		cmdProviders(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: canrectl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(body))
}

func cmdToolsList() {
	body, err := apiGet("/api/tools")
	if err != nil {
		fail(err)
	}
	var tools []toolInfo
	if err := json.Unmarshal(body, &tools); err != nil {
		fail(err)
	}
	fmt.Print(formatTools(tools))
}

func cmdToolsShow(name string) {
	body, err := apiGet("/api/tools/" + url.PathEscape(name))
	if err != nil {
		fail(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdCall(name string, argv []string) {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	rawArgs := fs.String("args", "", "Tool arguments as a JSON object")
	local := fs.Bool("local", false, "Run the tool in-process instead of through the daemon")
	configPath := fs.String("config", "", "Config file for --local (default: CANRE_ env)")
	verbose := fs.Bool("v", false, "Verbose logging (--local)")
	fs.Parse(argv)

	args, err := parseArgs(*rawArgs)
	if err != nil {
		fail(err)
	}

	if !*local {
		payload, _ := json.Marshal(args)
		body, err := apiPost("/api/tools/"+url.PathEscape(name), payload)
		if err != nil {
			fail(err)
		}
		var res protocol.ToolResult
		if err := json.Unmarshal(body, &res); err != nil || len(res.Content) == 0 {
			fmt.Println(string(body))
			return
		}
		fmt.Println(res.Content[0].Text)
		return
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fail(err)
	}
	// Local runs never journal or schedule; the daemon owns those.
	cfg.Journal.Path = ""
	cfg.Probe.Schedule = ""

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	a, err := app.Build(cfg, logger)
	if err != nil {
		fail(err)
	}
	defer a.Close()

	res, err := a.CallTool(context.Background(), name, args)
	if err != nil {
		te := protocol.AsToolError(err)
		fmt.Fprintf(os.Stderr, "error %d: %s\n", te.Code, te.Message)
		os.Exit(1)
	}
	fmt.Println(res.Content[0].Text)
}

func cmdCallsList(argv []string) {
	fs := flag.NewFlagSet("calls list", flag.ExitOnError)
	toolName := fs.String("tool", "", "Filter by tool")
	status := fs.String("status", "", "Filter by status (ok|failed)")
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(argv)

	q := url.Values{"limit": {strconv.Itoa(*limit)}}
	if *toolName != "" {
		q.Set("tool", *toolName)
	}
	if *status != "" {
		q.Set("status", *status)
	}

	body, err := apiGet("/api/calls?" + q.Encode())
	if err != nil {
		fail(err)
	}
	var calls []callInfo
	json.Unmarshal(body, &calls)
	for _, c := range calls {
		fmt.Println(formatCall(c))
	}
}

func cmdCallsShow(id string) {
	body, err := apiGet("/api/calls/" + url.PathEscape(id))
	if err != nil {
		fail(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdLogs(argv []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (debug|info|warn|error)")
	component := fs.String("component", "", "Filter by component")
	toolName := fs.String("tool", "", "Filter by tool")
	since := fs.Duration("since", 0, "Only entries newer than this (e.g. 10m)")
	limit := fs.Int("limit", 100, "Max results")
	fs.Parse(argv)

	q := url.Values{"limit": {strconv.Itoa(*limit)}}
	if *level != "" {
		q.Set("level", *level)
	}
	if *component != "" {
		q.Set("component", *component)
	}
	if *toolName != "" {
		q.Set("tool", *toolName)
	}
	if *since > 0 {
		q.Set("since", strconv.FormatInt(time.Now().Add(-*since).UnixMilli(), 10))
	}

	body, err := apiGet("/api/logs?" + q.Encode())
	if err != nil {
		fail(err)
	}
	var entries []logInfo
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Println(formatLog(e))
	}
}

func cmdProviders(argv []string) {
	fs := flag.NewFlagSet("providers", flag.ExitOnError)
	probe := fs.Bool("probe", false, "Run a probe now instead of showing the last result")
	fs.Parse(argv)

	var body []byte
	var err error
	if *probe {
		body, err = apiPost("/api/providers/probe", nil)
	} else {
		body, err = apiGet("/api/providers")
	}
	if err != nil {
		fail(err)
	}
	var providers []providerInfo
	json.Unmarshal(body, &providers)
	if len(providers) == 0 {
		fmt.Println("no probe results yet (try --probe)")
		return
	}
	for _, p := range providers {
		fmt.Println(formatProvider(p))
	}
}

func cmdConfigValidate(path string) {
	_, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	return apiDo(http.MethodGet, path, nil)
}

func apiPost(path string, body []byte) ([]byte, error) {
	return apiDo(http.MethodPost, path, body)
}

func apiDo(method, path string, body []byte) ([]byte, error) {
	base := envOr("CANRE_API_URL", "http://localhost:8080")

	req, err := http.NewRequest(method, base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := os.Getenv("CANRE_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	// Composite tools can make several 15s upstream calls.
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("canrectl - Canadian real-estate MCP server CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health                   Check daemon health")
	fmt.Println("  tools list               List tools")
	fmt.Println("  tools show <name>        Show a tool's input schema")
	fmt.Println("  call <tool>              Call a tool (--args JSON, --local, --config)")
	fmt.Println("  calls [list]             List journaled calls (--tool, --status, --limit)")
	fmt.Println("  calls show <id>          Show one journaled call")
	fmt.Println("  logs                     Recent daemon logs (--level, --component, --tool, --since)")
	fmt.Println("  providers                Upstream probe results (--probe to run now)")
	fmt.Println("  config validate <path>   Validate a config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  CANRE_API_URL   Daemon admin API URL (default: http://localhost:8080)")
	fmt.Println("  CANRE_API_KEY   API key for authentication")
}
