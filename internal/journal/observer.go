package journal

import (
	"context"
	"log/slog"

	"github.com/canre-io/canre/internal/dispatch"
)

// Observer returns a dispatch observer that appends every invocation to
// store. Write failures are logged and never reach the caller.
func Observer(store Store, logger *slog.Logger) dispatch.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, rec dispatch.CallRecord) {
		c := FromRecord(rec)
		if err := store.Append(c); err != nil {
			logger.Warn("journal append failed", "tool", rec.Tool, "error", err)
		}
	}
}

// FromRecord converts a dispatch record into a journal row.
func FromRecord(rec dispatch.CallRecord) *Call {
	c := &Call{
		Tool:       rec.Tool,
		Arguments:  rec.Arguments,
		OK:         rec.OK(),
		DurationMs: rec.Duration.Milliseconds(),
		StartedAt:  rec.StartedAt,
	}
	if !c.OK {
		c.Code = int(rec.Code)
		c.Message = rec.Message
		c.FailedIn = rec.FailedIn.String()
	}
	return c
}
