// Package journal keeps an append-only SQLite record of decoded ANT+ data
// pages.
//
// The journal is an audit trail only. Router and channel state are never
// rebuilt from it; a restarted bridge negotiates and pairs from scratch.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500

	// timestampLayout sorts lexically in time order.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// ErrSensorRequired is returned when an entry or query names no sensor.
var ErrSensorRequired = errors.New("journal: sensor is required")

// Entry is one journaled data page.
type Entry struct {
	ID           int64           `json:"id"`
	MessageID    string          `json:"message_id"`
	Sensor       string          `json:"sensor"`
	Profile      string          `json:"profile"`
	DeviceNumber uint16          `json:"device_number"`
	Channel      uint8           `json:"channel"`
	PageNumber   uint8           `json:"page_number"`
	Page         json.RawMessage `json:"page"`
	Raw          []byte          `json:"raw,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SQLite stores entries in the page_journal table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a journal over an open, migrated database.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Append inserts one entry. A zero CreatedAt is stamped with the current
// time.
func (j *SQLite) Append(ctx context.Context, e Entry) error {
	if e.Sensor == "" {
		return ErrSensorRequired
	}
	page := e.Page
	if len(page) == 0 {
		page = json.RawMessage("{}")
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO page_journal
		 (message_id, sensor, profile, device_number, channel, page_number, page, raw, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MessageID,
		e.Sensor,
		e.Profile,
		int(e.DeviceNumber),
		int(e.Channel),
		int(e.PageNumber),
		string(page),
		e.Raw,
		created.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries for a sensor, newest first.
//
// limit defaults to 50 and is capped at 500.
func (j *SQLite) Recent(ctx context.Context, sensor string, limit int) ([]Entry, error) {
	if sensor == "" {
		return nil, ErrSensorRequired
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, message_id, sensor, profile, device_number, channel, page_number, page, raw, created_at
		 FROM page_journal
		 WHERE sensor = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		sensor,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e                       Entry
			device, channel, pageNo int
			page, created           string
		)
		if err := rows.Scan(&e.ID, &e.MessageID, &e.Sensor, &e.Profile,
			&device, &channel, &pageNo, &page, &e.Raw, &created); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.DeviceNumber = uint16(device)
		e.Channel = uint8(channel)
		e.PageNumber = uint8(pageNo)
		e.Page = json.RawMessage(page)

		e.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries for a sensor, or for all sensors
// when sensor is empty.
func (j *SQLite) Count(ctx context.Context, sensor string) (int64, error) {
	query := "SELECT COUNT(*) FROM page_journal"
	var args []any
	if sensor != "" {
		query += " WHERE sensor = ?"
		args = append(args, sensor)
	}

	var n int64
	if err := j.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting journal: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than olderThan and returns how many went.
func (j *SQLite) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(timestampLayout)
	result, err := j.db.ExecContext(ctx, "DELETE FROM page_journal WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
