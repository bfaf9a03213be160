package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"events-tracker/internal/domain"
	"events-tracker/internal/repository"
	"events-tracker/internal/storage"
)

// ImageUpload is an attachment received with a create or update request.
type ImageUpload struct {
	ContentType string
	Data        []byte
}

// CreateEventInput carries the fields of a new event. Category is the raw
// request value; empty means the default.
type CreateEventInput struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Category    string
	Image       *ImageUpload
}

// EventService coordinates event CRUD, ownership checks and the attachment
// lifecycle.
type EventService interface {
	Create(ctx context.Context, input CreateEventInput, creatorID int64) (*domain.Event, error)
	List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	Get(ctx context.Context, id int64) (*domain.Event, error)
	GetImage(ctx context.Context, id int64) (string, []byte, error)
	Update(ctx context.Context, id int64, patch domain.EventPatch, image *ImageUpload, requesterID int64) (*domain.Event, error)
	Delete(ctx context.Context, id int64, requesterID int64) error
}

type eventService struct {
	events repository.EventRepository
	images storage.Service
}

func NewEventService(events repository.EventRepository, images storage.Service) EventService {
	return &eventService{
		events: events,
		images: images,
	}
}

func (s *eventService) Create(ctx context.Context, input CreateEventInput, creatorID int64) (*domain.Event, error) {
	title := strings.TrimSpace(input.Title)
	location := strings.TrimSpace(input.Location)

	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", domain.ErrValidation)
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return nil, err
	}

	event := &domain.Event{
		Title:       title,
		Description: input.Description,
		Date:        input.Date.UTC(),
		Location:    location,
		Category:    category,
		CreatorID:   creatorID,
	}

	if _, err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	// the row advertises the attachment only after the bytes are stored, so a
	// failed blob write cannot leave a content type whose image 404s
	if input.Image != nil {
		if err := s.images.Put(ctx, event.ID, input.Image.ContentType, input.Image.Data); err != nil {
			return nil, err
		}
		event.ImageContentType = input.Image.ContentType
		if err := s.events.Update(ctx, event); err != nil {
			return nil, err
		}
	}

	return event, nil
}

func (s *eventService) List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	return s.events.List(ctx, filter)
}

func (s *eventService) Get(ctx context.Context, id int64) (*domain.Event, error) {
	return s.events.Get(ctx, id)
}

func (s *eventService) GetImage(ctx context.Context, id int64) (string, []byte, error) {
	return s.images.Get(ctx, id)
}

func (s *eventService) Update(ctx context.Context, id int64, patch domain.EventPatch, image *ImageUpload, requesterID int64) (*domain.Event, error) {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanMutate(event, requesterID) {
		return nil, fmt.Errorf("only the creator may edit this event: %w", domain.ErrForbidden)
	}

	// replace only the fields the request carried
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
		}
		event.Title = title
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Date != nil {
		if patch.Date.IsZero() {
			return nil, fmt.Errorf("%w: date must not be empty", domain.ErrValidation)
		}
		event.Date = patch.Date.UTC()
	}
	if patch.Location != nil {
		location := strings.TrimSpace(*patch.Location)
		if location == "" {
			return nil, fmt.Errorf("%w: location must not be empty", domain.ErrValidation)
		}
		event.Location = location
	}
	if patch.Category != nil {
		event.Category = *patch.Category
	}
	// bytes first: the blob swap is atomic, and the row picks up the new
	// content type only once the attachment it advertises exists
	if image != nil {
		if err := s.images.Put(ctx, event.ID, image.ContentType, image.Data); err != nil {
			return nil, err
		}
		event.ImageContentType = image.ContentType
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

func (s *eventService) Delete(ctx context.Context, id int64, requesterID int64) error {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanMutate(event, requesterID) {
		return fmt.Errorf("only the creator may delete this event: %w", domain.ErrForbidden)
	}

	// image first: its delete is idempotent, so a retry after a partial
	// failure converges instead of stranding the attachment
	if err := s.images.Delete(ctx, id); err != nil {
		return err
	}
	return s.events.Delete(ctx, id)
}
