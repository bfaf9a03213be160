package domain

import (
	"fmt"
	"time"
)

// Category classifies an event. The set is closed; anything else is rejected
// at the boundary.
type Category string

const (
	CategoryGeneral    Category = "General"
	CategoryMusic      Category = "Music"
	CategorySports     Category = "Sports"
	CategoryArt        Category = "Art"
	CategoryTechnology Category = "Technology"
	CategoryFood       Category = "Food"
	CategoryEducation  Category = "Education"
	CategoryBusiness   Category = "Business"
	CategoryHealth     Category = "Health"
	CategoryOther      Category = "Other"
)

var categories = map[Category]struct{}{
	CategoryGeneral:    {},
	CategoryMusic:      {},
	CategorySports:     {},
	CategoryArt:        {},
	CategoryTechnology: {},
	CategoryFood:       {},
	CategoryEducation:  {},
	CategoryBusiness:   {},
	CategoryHealth:     {},
	CategoryOther:      {},
}

// ParseCategory maps a request value onto the closed category set. The empty
// string means the caller did not choose one and gets the default.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryGeneral, nil
	}
	c := Category(s)
	if _, ok := categories[c]; !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
	}
	return c, nil
}

// Event is a user-published record of a time-located happening.
type Event struct {
	ID          int64
	Title       string
	Description string
	Date        time.Time
	Location    string
	Category    Category
	CreatorID   int64
	// ImageContentType advertises the attachment, if any. The bytes live in
	// the blob store, keyed by the event id.
	ImageContentType string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EventPatch carries a partial update. Nil fields keep their prior values.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
	Category    *Category
}

// EventFilter narrows a listing. Zero values mean "no restriction".
type EventFilter struct {
	Search    string // case-insensitive title substring
	Category  string // exact, case-sensitive match
	CreatorID int64
	Limit     int
	Offset    int
}

// CanMutate reports whether the requester may update or delete the event.
// Only the creator may.
func CanMutate(e *Event, requesterID int64) bool {
	return e != nil && e.CreatorID == requesterID
}
