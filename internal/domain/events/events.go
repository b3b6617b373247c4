package events

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
)

var ErrNotFound = errors.New("event not found")

type Event struct {
	ID                string
	Title             string
	Description       string
	OrganizerID       string
	OrganizerUsername string
	Location          string
	StartTime         time.Time
	EndTime           time.Time
	IsPublic          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Computed when the event is loaded for presentation.
	RSVPCount int
	Reviews   []reviews.Review
}

// Input is the full set of client-writable fields, as sent on create and on
// PUT. IsPublic defaults to true when omitted.
type Input struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required"`
	Location    string     `json:"location" validate:"required,max=255"`
	StartTime   *time.Time `json:"start_time" validate:"required"`
	EndTime     *time.Time `json:"end_time" validate:"required"`
	IsPublic    *bool      `json:"is_public"`
}

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	IsPublic    *bool      `json:"is_public"`
}

// Fields are the stored, client-writable columns of an event.
type Fields struct {
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	IsPublic    bool
}

type CreateParams struct {
	ID          string
	OrganizerID string
	Fields
}

// Filters narrow the set of events visible to a viewer.
type Filters struct {
	// ViewerID is the authenticated caller, empty for anonymous callers.
	ViewerID          string
	OrganizerUsername string
	// StartsAfter keeps events starting at or after the instant when set.
	StartsAfter *time.Time
}

// Repository stores events. List and GetVisible only ever return events that
// are public or organized by the viewer.
type Repository interface {
	List(ctx context.Context, filters Filters) ([]Event, error)
	GetVisible(ctx context.Context, id, viewerID string) (*Event, error)
	Create(ctx context.Context, params CreateParams) (*Event, error)
	Update(ctx context.Context, id, organizerID string, fields Fields) (*Event, error)
	Delete(ctx context.Context, id, organizerID string) error
	RSVPCounts(ctx context.Context, eventIDs []string) (map[string]int, error)
}

// ReviewLister loads the reviews embedded in event representations.
type ReviewLister interface {
	ListByEvents(ctx context.Context, eventIDs []string) (map[string][]reviews.Review, error)
}
