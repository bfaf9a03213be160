package repository

import (
	"context"

	"events-tracker/internal/domain"
)

// EventRepository exposes persistence operations for Event records.
type EventRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, event *domain.Event) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Event, error)
	List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	// Update rewrites every mutable field of the event in a single statement,
	// so concurrent writers to the same id never interleave partial writes.
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id int64) error
}
