package storage

import (
	"context"

	"github.com/Togather-Foundation/gatherings/internal/domain/events"
	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
)

// Repository groups data access by domain.
type Repository interface {
	Users() users.Repository
	Events() events.Repository
	RSVPs() rsvps.Repository
	Reviews() reviews.Repository

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
