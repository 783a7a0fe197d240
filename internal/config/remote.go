package config

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteOptions holds parameters for fetching config over HTTP.
type RemoteOptions struct {
	URL     string
	APIKey  string        // sent as a Bearer token when set
	Timeout time.Duration // default 30s
}

// LoadFromURL fetches a JSON or YAML config document, applies it over the
// defaults and validates it. YAML is detected from the Content-Type header
// or the URL extension.
func LoadFromURL(opts RemoteOptions) (*Config, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	req, err := http.NewRequest(http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("config: remote: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")
	if opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+opts.APIKey)
	}

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config: remote: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("config: remote: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config: remote: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	f := formatOf(req.URL.Path)
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		f = formatYAML
	}
	cfg := Default()
	if err := decode(body, f, cfg); err != nil {
		return nil, fmt.Errorf("config: remote: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: remote: %w", err)
	}
	return cfg, nil
}
