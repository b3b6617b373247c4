// Package memory is an in-process storage.Repository. It enforces the same
// uniqueness and cascade rules as the PostgreSQL schema and is used by tests
// and by the server when DATABASE_URL=memory, for local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/events"
	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
	"github.com/Togather-Foundation/gatherings/internal/storage"
)

var _ storage.Repository = (*Store)(nil)

type pairKey struct {
	eventID string
	userID  string
}

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users       map[string]users.User
	usernames   map[string]string
	events      map[string]events.Event
	rsvps       map[string]rsvps.RSVP
	rsvpPairs   map[pairKey]string
	reviews     map[string]reviews.Review
	reviewPairs map[pairKey]string
}

func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[string]users.User),
		usernames:   make(map[string]string),
		events:      make(map[string]events.Event),
		rsvps:       make(map[string]rsvps.RSVP),
		rsvpPairs:   make(map[pairKey]string),
		reviews:     make(map[string]reviews.Review),
		reviewPairs: make(map[pairKey]string),
	}
}

func (s *Store) Users() users.Repository     { return userRepo{s} }
func (s *Store) Events() events.Repository   { return eventRepo{s} }
func (s *Store) RSVPs() rsvps.Repository     { return rsvpRepo{s} }
func (s *Store) Reviews() reviews.Repository { return reviewRepo{s} }

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// sortByCreated orders records oldest first, then by id, like the SQL
// queries do.
func sortByCreated[T any](items []T, key func(T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}

// requireUser mirrors the users foreign keys: rows may only reference an
// existing account. A token for a vanished account is no longer a valid
// identity.
func (s *Store) requireUser(userID string) error {
	if _, ok := s.users[userID]; !ok {
		return auth.ErrUnauthenticated
	}
	return nil
}

func (s *Store) usernameOf(userID string) string {
	return s.users[userID].Username
}
