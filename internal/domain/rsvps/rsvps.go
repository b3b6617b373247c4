package rsvps

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/validation"
)

var (
	ErrNotFound      = errors.New("rsvp not found")
	ErrEventNotFound = errors.New("event not found")
)

// ErrAlreadyRSVPd is returned when the caller already holds an RSVP for the
// event.
var ErrAlreadyRSVPd = validation.NewError("You have already RSVP'd to this event. Use PATCH to update.")

type RSVP struct {
	ID        string
	EventID   string
	UserID    string
	Username  string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input carries the only client-writable field. A nil Status means "not
// supplied".
type Input struct {
	Status *Status `json:"status"`
}

type CreateParams struct {
	ID      string
	EventID string
	UserID  string
	Status  Status
}

// Repository stores RSVPs. Create reports ErrEventNotFound and
// ErrAlreadyRSVPd from the store itself. GetOwned matches on all three keys
// and returns ErrNotFound otherwise.
type Repository interface {
	ListByEvent(ctx context.Context, eventID string) ([]RSVP, error)
	Create(ctx context.Context, params CreateParams) (*RSVP, error)
	GetOwned(ctx context.Context, id, eventID, userID string) (*RSVP, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*RSVP, error)
	Delete(ctx context.Context, id string) error
}
