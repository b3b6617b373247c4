package reviews

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/validation"
)

var ErrEventNotFound = errors.New("event not found")

// ErrAlreadyReviewed is returned when the caller already has a review on the
// event. It is a validation error so clients get a 400.
var ErrAlreadyReviewed = validation.NewError("You have already reviewed this event.")

type Review struct {
	ID        string
	EventID   string
	UserID    string
	Username  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

type Input struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

type CreateParams struct {
	ID      string
	EventID string
	UserID  string
	Rating  int
	Comment string
}

// Repository stores reviews. Create must return ErrEventNotFound when the
// event does not exist and ErrAlreadyReviewed when the (event, user) pair is
// taken; both are decided by the store, not by a prior read.
type Repository interface {
	ListByEvent(ctx context.Context, eventID string) ([]Review, error)
	ListByEvents(ctx context.Context, eventIDs []string) (map[string][]Review, error)
	Create(ctx context.Context, params CreateParams) (*Review, error)
}
