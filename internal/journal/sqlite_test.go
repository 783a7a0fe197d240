package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/canre-io/canre/internal/dispatch"
	"github.com/canre-io/canre/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestAppendAndGet(t *testing.T) {
	s := newTestStore(t)

	c := &Call{
		Tool:       "get_market_data",
		Arguments:  map[string]any{"city": "Toronto", "limit": 5.0},
		OK:         true,
		DurationMs: 42,
		StartedAt:  base,
	}
	if err := s.Append(c); err != nil {
		t.Fatalf("append: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.Get(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Tool != "get_market_data" || !got.OK || got.DurationMs != 42 {
		t.Errorf("got %+v", got)
	}
	if got.Arguments["city"] != "Toronto" || got.Arguments["limit"] != 5.0 {
		t.Errorf("arguments = %v", got.Arguments)
	}
	if !got.StartedAt.Equal(base) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, base)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	calls := []*Call{
		{Tool: "get_market_data", OK: true, StartedAt: base},
		{Tool: "get_market_data", OK: false, Code: -32602, Message: "City is required", FailedIn: "validating", StartedAt: base.Add(time.Minute)},
		{Tool: "get_bank_of_canada_rates", OK: true, StartedAt: base.Add(2 * time.Minute)},
		{Tool: "get_market_data", OK: true, StartedAt: base.Add(3*time.Minute + 500*time.Millisecond)},
	}
	for _, c := range calls {
		if err := s.Append(c); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 || all[0].ID != calls[3].ID || all[3].ID != calls[0].ID {
		t.Errorf("expected newest first, got %d calls", len(all))
	}

	market, _ := s.List(Filter{Tool: "get_market_data"})
	if len(market) != 3 {
		t.Errorf("tool filter: got %d", len(market))
	}

	failed := false
	bad, _ := s.List(Filter{OK: &failed})
	if len(bad) != 1 || bad[0].Code != -32602 || bad[0].FailedIn != "validating" {
		t.Errorf("failed filter: %+v", bad)
	}

	recent, _ := s.List(Filter{Since: base.Add(2 * time.Minute)})
	if len(recent) != 2 {
		t.Errorf("since filter: got %d", len(recent))
	}

	limited, _ := s.List(Filter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit: got %d", len(limited))
	}

	n, err := s.Count(Filter{Tool: "get_market_data"})
	if err != nil || n != 3 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestList_Empty(t *testing.T) {
	s := newTestStore(t)
	calls, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if calls == nil || len(calls) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", calls)
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	for i := range 5 {
		s.Append(&Call{Tool: "get_market_trends", OK: true, StartedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	n, err := s.Prune(base.Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	if left, _ := s.Count(Filter{}); left != 3 {
		t.Errorf("left %d, want 3", left)
	}
}

func TestObserver(t *testing.T) {
	s := newTestStore(t)
	obs := Observer(s, nil)

	obs(context.Background(), dispatch.CallRecord{
		Tool:      "get_property_tax_data",
		Arguments: map[string]any{},
		Code:      protocol.CodeInvalidParams,
		Message:   "City is required",
		FailedIn:  dispatch.StateValidating,
		Duration:  3 * time.Millisecond,
		StartedAt: base,
	})
	obs(context.Background(), dispatch.CallRecord{Tool: "get_economic_indicators", StartedAt: base.Add(time.Second)})

	calls, _ := s.List(Filter{})
	if len(calls) != 2 {
		t.Fatalf("calls = %d", len(calls))
	}
	failed := calls[1]
	if failed.OK || failed.Code != -32602 || failed.FailedIn != "validating" || failed.DurationMs != 3 {
		t.Errorf("failed call = %+v", failed)
	}
	if ok := calls[0]; !ok.OK || ok.Code != 0 || ok.FailedIn != "" {
		t.Errorf("ok call = %+v", ok)
	}
}
