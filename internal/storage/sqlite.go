package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"events-tracker/internal/domain"
)

const createEventImagesTable = `
CREATE TABLE IF NOT EXISTS event_images (
	event_id INTEGER PRIMARY KEY,
	content_type TEXT NOT NULL,
	data BLOB NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore keeps attachments in a blob table next to the event rows. It is
// the default backend when no object-storage bucket is configured.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createEventImagesTable); err != nil {
		return fmt.Errorf("create event images table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, eventID int64, contentType string, data []byte) error {
	// single upsert statement: content type and bytes swap together
	_, err := s.db.ExecContext(ctx, `
INSERT INTO event_images (event_id, content_type, data, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(event_id) DO UPDATE SET content_type=excluded.content_type, data=excluded.data, updated_at=excluded.updated_at`,
		eventID,
		contentType,
		data,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put event image: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, eventID int64) (string, []byte, error) {
	var (
		contentType string
		data        []byte
	)
	err := s.db.QueryRowContext(ctx, `
SELECT content_type, data
FROM event_images
WHERE event_id = ?`,
		eventID,
	).Scan(&contentType, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, fmt.Errorf("event image %w", domain.ErrNotFound)
		}
		return "", nil, fmt.Errorf("get event image: %w", err)
	}
	return contentType, data, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, eventID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM event_images WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("delete event image: %w", err)
	}
	return nil
}
