package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"events-tracker/internal/domain"
	"events-tracker/internal/repository"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	date DATETIME NOT NULL,
	location TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'General',
	creator_id INTEGER NOT NULL REFERENCES users(id),
	image_content_type TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_creator ON events(creator_id);
CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
`

const defaultListLimit = 100

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) (int64, error) {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO events (title, description, date, location, category, creator_id, image_content_type, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Title,
		event.Description,
		event.Date.UTC(),
		event.Location,
		string(event.Category),
		event.CreatorID,
		event.ImageContentType,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event last insert id: %w", err)
	}
	event.ID = id
	return id, nil
}

func (r *EventRepository) Get(ctx context.Context, id int64) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, description, date, location, category, creator_id, image_content_type, created_at, updated_at
FROM events
WHERE id = ?`,
		id,
	)
	return scanEvent(row)
}

func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Search != "" {
		// instr over lower() gives a case-insensitive substring match without
		// LIKE wildcard injection
		conds = append(conds, `instr(lower(title), lower(?)) > 0`)
		args = append(args, filter.Search)
	}
	if filter.Category != "" {
		conds = append(conds, `category = ?`)
		args = append(args, filter.Category)
	}
	if filter.CreatorID != 0 {
		conds = append(conds, `creator_id = ?`)
		args = append(args, filter.CreatorID)
	}

	query := `
SELECT id, title, description, date, location, category, creator_id, image_content_type, created_at, updated_at
FROM events`
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, " AND ")
	}
	// id breaks ties so a fixed query always returns the same order
	query += "\nORDER BY date DESC, id DESC LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	return events, rows.Err()
}

func (r *EventRepository) Update(ctx context.Context, event *domain.Event) error {
	event.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE events
SET title=?, description=?, date=?, location=?, category=?, image_content_type=?, updated_at=?
WHERE id=?`,
		event.Title,
		event.Description,
		event.Date.UTC(),
		event.Location,
		string(event.Category),
		event.ImageContentType,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("event update rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("event %w", domain.ErrNotFound)
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("event delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("event %w", domain.ErrNotFound)
	}
	return nil
}

func scanEvent(scanner interface {
	Scan(dest ...any) error
}) (*domain.Event, error) {
	var (
		event    domain.Event
		category string
	)
	if err := scanner.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Location,
		&category,
		&event.CreatorID,
		&event.ImageContentType,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}

	event.Category = domain.Category(category)
	event.Date = event.Date.UTC()
	event.CreatedAt = event.CreatedAt.UTC()
	event.UpdatedAt = event.UpdatedAt.UTC()
	return &event, nil
}
