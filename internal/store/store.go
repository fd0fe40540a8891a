// Package store keeps a local history of tool calls in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ag-tools/internal/events"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tool_calls (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	call_id     TEXT    NOT NULL,
	tool_name   TEXT    NOT NULL,
	status      TEXT    NOT NULL,
	input       TEXT    NOT NULL,
	preview     TEXT    NOT NULL,
	byte_count  INTEGER NOT NULL,
	truncated   INTEGER NOT NULL,
	started_at  TEXT    NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_started ON tool_calls(started_at);
`

// CallRecord is one finished tool call.
type CallRecord struct {
	CallID     string    `json:"call_id"`
	ToolName   string    `json:"tool_name"`
	Status     string    `json:"status"`
	Input      string    `json:"input"`
	Preview    string    `json:"preview"`
	ByteCount  int       `json:"byte_count"`
	Truncated  bool      `json:"truncated"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Store persists CallRecords.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the history database at path. ":memory:" gives a
// private in-memory database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// Writers are serialized anyway, and an in-memory database exists only
	// on the connection that created it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one call.
func (s *Store) Record(ctx context.Context, rec CallRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tool_calls (call_id, tool_name, status, input, preview, byte_count, truncated, started_at, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CallID, rec.ToolName, rec.Status, rec.Input, rec.Preview,
		rec.ByteCount, rec.Truncated, rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("store: record %s: %w", rec.CallID, err)
	}
	return nil
}

// Recent returns up to limit calls, newest first. toolName filters when set.
func (s *Store) Recent(ctx context.Context, toolName string, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT call_id, tool_name, status, input, preview, byte_count, truncated, started_at, duration_ms
FROM tool_calls`
	args := []any{}
	if toolName != "" {
		query += " WHERE tool_name = ?"
		args = append(args, toolName)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query recent: %w", err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var rec CallRecord
		var startedAt string
		if err := rows.Scan(&rec.CallID, &rec.ToolName, &rec.Status, &rec.Input, &rec.Preview,
			&rec.ByteCount, &rec.Truncated, &startedAt, &rec.DurationMs); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Observe records finished and failed tool call events. It is meant to be
// chained into a Registry emitter.
func (s *Store) Observe(event events.Event) {
	if event.Type != events.ToolCallFinished && event.Type != events.ToolCallFailed {
		return
	}
	payload, ok := event.Payload.(events.ToolCallFinishedPayload)
	if !ok {
		return
	}
	rec := CallRecord{
		CallID:     payload.CallID,
		ToolName:   payload.ToolName,
		Status:     payload.Status,
		Input:      payload.Input,
		Preview:    payload.Preview,
		ByteCount:  payload.ByteCount,
		Truncated:  payload.Truncated,
		StartedAt:  payload.StartedAt,
		DurationMs: payload.DurationMs,
	}
	if err := s.Record(context.Background(), rec); err != nil {
		s.logger.Warn("failed to record tool call", zap.String("call_id", rec.CallID), zap.Error(err))
	}
}
