// Package auditlog stores every protocol event the kiosk receives in an
// append-only SQLite table. The raw line is kept verbatim so the exact
// broadcaster output can be replayed when diagnosing selection issues.
package auditlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is a single recorded protocol event.
type Entry struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Kind       string    `json:"kind"`
	Line       string    `json:"line"`
}

// Repository handles audit event persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new audit log repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InitSchema creates the audit table if it doesn't exist.
func (r *Repository) InitSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			received_at INTEGER NOT NULL,
			kind TEXT NOT NULL,
			line TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}

	_, err = r.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_events_received_at
		ON audit_events(received_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create audit_events index: %w", err)
	}

	return nil
}

// Append records a protocol event. Events are never updated or deleted.
func (r *Repository) Append(receivedAt time.Time, kind, line string) (Entry, error) {
	entry := Entry{
		ID:         uuid.New().String(),
		ReceivedAt: receivedAt.UTC(),
		Kind:       kind,
		Line:       line,
	}

	_, err := r.db.Exec(`
		INSERT INTO audit_events (id, received_at, kind, line)
		VALUES (?, ?, ?, ?)
	`, entry.ID, entry.ReceivedAt.UnixMilli(), entry.Kind, entry.Line)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to append audit event: %w", err)
	}

	return entry, nil
}

// Recent returns the most recent events, newest first.
func (r *Repository) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, received_at, kind, line
		FROM audit_events
		ORDER BY received_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var receivedAt int64
		if err := rows.Scan(&entry.ID, &receivedAt, &entry.Kind, &entry.Line); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		entry.ReceivedAt = time.UnixMilli(receivedAt).UTC()
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Count returns the total number of recorded events.
func (r *Repository) Count() (int64, error) {
	var n int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}
