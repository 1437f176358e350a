// Package audit records who did what to which plan. Recording is
// best-effort by design: an audit sink failure must never fail the
// operation being audited, so errors are logged and swallowed.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allstar-forge/forge/pkg/auth"
)

// Event is a structured audit record.
type Event struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id"`
	Success    bool           `json:"success"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Logger records audit events. Record returns the event ID for
// correlation; it never fails the caller.
type Logger interface {
	Record(ctx context.Context, action, resource, resourceID string, success bool, metadata map[string]any) string
}

// logger writes one "AUDIT: "-prefixed JSON line per event.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
	clock  func() time.Time
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to the given writer.
// This allows injection for testing and custom sinks.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w, clock: time.Now}
}

func (l *logger) Record(ctx context.Context, action, resource, resourceID string, success bool, metadata map[string]any) string {
	event := NewEvent(ctx, action, resource, resourceID, success, metadata)
	event.Timestamp = l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		slog.WarnContext(ctx, "audit event not encodable", "action", action, "error", err)
		return event.ID
	}
	// Prefix with AUDIT: for easy filtering
	if _, err := l.writer.Write(append([]byte("AUDIT: "), append(data, '\n')...)); err != nil {
		slog.WarnContext(ctx, "audit write failed", "action", action, "error", err)
	}
	return event.ID
}

// NewEvent builds an event attributed to the context's principal.
func NewEvent(ctx context.Context, action, resource, resourceID string, success bool, metadata map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Actor:      auth.ActorID(ctx),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Success:    success,
		Timestamp:  time.Now().UTC(),
		Metadata:   metadata,
	}
}
