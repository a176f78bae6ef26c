package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/ruiji/internal/models"
)

// ErrNoEvents is returned by LatestEvent when a key has never been embedded.
var ErrNoEvents = errors.New("storage: no events for key")

// SQLiteEventStore implements EventStore using SQLite.
type SQLiteEventStore struct {
	db *sql.DB
}

// NewSQLiteEventStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteEventStore(dbPath string) (*SQLiteEventStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteEventStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS embedding_events (
		id TEXT PRIMARY KEY,
		image_key TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		dimensions INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_key ON embedding_events(image_key, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_status ON embedding_events(status, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordEvents inserts events in one transaction. Missing IDs and timestamps are filled in.
func (s *SQLiteEventStore) RecordEvents(ctx context.Context, events []*models.EmbeddingEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embedding_events (id, image_key, status, reason, dimensions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, ev.ID, ev.Key, string(ev.Status), ev.Reason, ev.Dimensions, ev.CreatedAt); err != nil {
			return fmt.Errorf("failed to record event for %s: %w", ev.Key, err)
		}
	}
	return tx.Commit()
}

// ListEvents returns events newest first. An empty status lists all events.
func (s *SQLiteEventStore) ListEvents(ctx context.Context, status models.EventStatus, offset, limit int) ([]*models.EmbeddingEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, image_key, status, reason, dimensions, created_at
			 FROM embedding_events ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
			limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, image_key, status, reason, dimensions, created_at
			 FROM embedding_events WHERE status = ?
			 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
			string(status), limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListFailures returns the most recent failed events.
func (s *SQLiteEventStore) ListFailures(ctx context.Context, limit int) ([]*models.EmbeddingEvent, error) {
	return s.ListEvents(ctx, models.StatusFailed, 0, limit)
}

// LatestEvent returns the newest event for key, or ErrNoEvents.
func (s *SQLiteEventStore) LatestEvent(ctx context.Context, key string) (*models.EmbeddingEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, image_key, status, reason, dimensions, created_at
		 FROM embedding_events WHERE image_key = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrNoEvents)
	}
	return events[0], nil
}

// CountByStatus returns the number of events per status.
func (s *SQLiteEventStore) CountByStatus(ctx context.Context) (map[models.EventStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM embedding_events GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[models.EventStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.EventStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]*models.EmbeddingEvent, error) {
	var events []*models.EmbeddingEvent
	for rows.Next() {
		var ev models.EmbeddingEvent
		var status string
		var reason sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Key, &status, &reason, &ev.Dimensions, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Status = models.EventStatus(status)
		ev.Reason = reason.String
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Close closes the database.
func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}

var _ EventStore = (*SQLiteEventStore)(nil)
