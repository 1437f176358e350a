package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// EventStore persists audit events to SQLite for later querying.
type EventStore struct {
	db *sql.DB
}

// NewEventStore wraps an open database handle and runs migrations.
func NewEventStore(db *sql.DB) (*EventStore, error) {
	s := &EventStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EventStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id          TEXT PRIMARY KEY,
		actor       TEXT NOT NULL,
		action      TEXT NOT NULL,
		resource    TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		success     INTEGER NOT NULL,
		timestamp   DATETIME NOT NULL,
		metadata    JSON
	);
	CREATE INDEX IF NOT EXISTS audit_events_resource ON audit_events (resource, resource_id);
	CREATE INDEX IF NOT EXISTS audit_events_timestamp ON audit_events (timestamp);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("migrate audit events: %w", err)
	}
	return nil
}

// Append stores one event.
func (s *EventStore) Append(ctx context.Context, event Event) error {
	metadata, _ := json.Marshal(event.Metadata)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor, action, resource, resource_id, success, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Actor, event.Action, event.Resource, event.ResourceID,
		event.Success, event.Timestamp.UTC().Format(time.RFC3339Nano), string(metadata))
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// QueryFilter narrows an audit query. Zero values match everything.
type QueryFilter struct {
	Actor      string
	Action     string
	ResourceID string
	Start      time.Time
	End        time.Time
	Limit      int
}

// Query returns events matching the filter, newest first.
func (s *EventStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	var conditions []string
	var args []any
	if filter.Actor != "" {
		conditions = append(conditions, "actor = ?")
		args = append(args, filter.Actor)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ResourceID != "" {
		conditions = append(conditions, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if !filter.Start.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Start.UTC().Format(time.RFC3339Nano))
	}
	if !filter.End.IsZero() {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.End.UTC().Format(time.RFC3339Nano))
	}

	query := "SELECT id, actor, action, resource, resource_id, success, timestamp, metadata FROM audit_events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var event Event
		var timestamp, metadata string
		if err := rows.Scan(&event.ID, &event.Actor, &event.Action, &event.Resource,
			&event.ResourceID, &event.Success, &timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Timestamp = parseTime(timestamp)
		if metadata != "" && metadata != "null" {
			_ = json.Unmarshal([]byte(metadata), &event.Metadata)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	return events, nil
}

// Summary aggregates the audit trail over a filter.
type Summary struct {
	Total    int            `json:"total"`
	Failures int            `json:"failures"`
	ByAction map[string]int `json:"by_action"`
	ByActor  map[string]int `json:"by_actor"`
}

// Summarize computes counts over the events matching the filter.
func (s *EventStore) Summarize(ctx context.Context, filter QueryFilter) (*Summary, error) {
	events, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ByAction: make(map[string]int),
		ByActor:  make(map[string]int),
	}
	for _, event := range events {
		summary.Total++
		if !event.Success {
			summary.Failures++
		}
		summary.ByAction[event.Action]++
		summary.ByActor[event.Actor]++
	}
	return summary, nil
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
