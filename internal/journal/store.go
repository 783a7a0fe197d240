// Package journal persists one row per tool invocation.
package journal

import "time"

// Call is a journaled tool invocation.
type Call struct {
	ID         string         `json:"id"`
	Tool       string         `json:"tool"`
	Arguments  map[string]any `json:"arguments"`
	OK         bool           `json:"ok"`
	Code       int            `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	FailedIn   string         `json:"failed_in,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	StartedAt  time.Time      `json:"started_at"`
}

// Store is the persistence interface for the call journal.
type Store interface {
	// Append records a call. An empty ID is filled in.
	Append(c *Call) error
	// Get retrieves a call by ID.
	Get(id string) (*Call, error)
	// List returns calls matching the filter, newest first.
	List(filter Filter) ([]*Call, error)
	// Count returns the number of calls matching the filter.
	Count(filter Filter) (int, error)
	// Prune deletes calls started before t and returns how many were removed.
	Prune(before time.Time) (int, error)
}

// Filter constrains call list queries.
type Filter struct {
	Tool  string
	OK    *bool     // nil = both
	Since time.Time // zero = no lower bound
	Limit int       // 0 = no limit
}
