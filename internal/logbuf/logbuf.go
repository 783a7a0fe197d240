// Package logbuf keeps the most recent log records in memory so the admin
// API can serve them without touching stderr.
package logbuf

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultSize is used when a buffer is created with a non-positive size.
const DefaultSize = 2000

// Entry is a single captured log record.
type Entry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Query selects entries. Zero fields do not filter.
type Query struct {
	Since     time.Time
	MinLevel  slog.Leveler
	Component string
	Tool      string
	Limit     int // newest entries are kept when the limit bites
}

// Buffer is a thread-safe ring of entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   int
}

// New creates a ring that holds up to size entries.
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.entries) }

// Len returns how many entries are held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Write appends an entry, overwriting the oldest when full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries[b.pos] = e
	b.pos = (b.pos + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
	b.mu.Unlock()
}

// Query returns matching entries, oldest first.
func (b *Buffer) Query(q Query) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := []Entry{}
	start := 0
	if b.count == len(b.entries) {
		start = b.pos
	}
	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%len(b.entries)]
		if !q.Since.IsZero() && e.Time.Before(q.Since) {
			continue
		}
		if q.MinLevel != nil && ParseLevel(e.Level) < q.MinLevel.Level() {
			continue
		}
		if q.Component != "" && e.Component != q.Component {
			continue
		}
		if q.Tool != "" && e.Tool != q.Tool {
			continue
		}
		result = append(result, e)
	}

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[len(result)-q.Limit:]
	}
	return result
}

// ParseLevel converts a level name to slog.Level. Unknown names map to
// debug so they never hide entries.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
