package storage

import "context"

// Service stores the single binary image attachment of an event, keyed by the
// event id. Implementations must replace attachments atomically: a reader
// never observes a half-written content type or payload.
type Service interface {
	Put(ctx context.Context, eventID int64, contentType string, data []byte) error
	// Get returns the attachment, or domain.ErrNotFound when none is set.
	Get(ctx context.Context, eventID int64) (contentType string, data []byte, err error)
	// Delete is idempotent; deleting an absent attachment is not an error.
	Delete(ctx context.Context, eventID int64) error
}
