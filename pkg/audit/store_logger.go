package audit

import (
	"context"
	"log/slog"
)

// StoreLogger records events to a line sink and the durable store.
// Either sink failing leaves the other intact; the operation being
// audited proceeds regardless.
type StoreLogger struct {
	lines Logger
	store *EventStore
}

// NewStoreLogger combines a line logger with a durable event store.
func NewStoreLogger(lines Logger, store *EventStore) *StoreLogger {
	if lines == nil {
		lines = NewLogger()
	}
	return &StoreLogger{lines: lines, store: store}
}

func (l *StoreLogger) Record(ctx context.Context, action, resource, resourceID string, success bool, metadata map[string]any) string {
	eventID := l.lines.Record(ctx, action, resource, resourceID, success, metadata)
	if l.store == nil {
		return eventID
	}

	event := NewEvent(ctx, action, resource, resourceID, success, metadata)
	event.ID = eventID
	if err := l.store.Append(ctx, event); err != nil {
		slog.WarnContext(ctx, "audit store append failed",
			"action", action, "event_id", eventID, "error", err)
	}
	return eventID
}
