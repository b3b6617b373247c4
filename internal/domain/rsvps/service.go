package rsvps

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/ids"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
	"github.com/Togather-Foundation/gatherings/internal/validation"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "rsvps").Logger(),
	}
}

// List returns every RSVP of eventID regardless of the event's visibility.
func (s *Service) List(ctx context.Context, eventID string) ([]RSVP, error) {
	if !ids.IsULID(eventID) {
		return []RSVP{}, nil
	}
	items, err := s.repo.ListByEvent(ctx, ids.Normalize(eventID))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []RSVP{}
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, identity *auth.Identity, eventID string, input Input) (*RSVP, error) {
	if err := auth.RequireIdentity(identity); err != nil {
		return nil, err
	}
	status := DefaultStatus
	if input.Status != nil {
		status = *input.Status
	}
	if !status.Valid() {
		return nil, validation.FieldError("status", "is not a valid choice")
	}
	if !ids.IsULID(eventID) {
		return nil, ErrEventNotFound
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate rsvp id: %w", err)
	}
	rsvp, err := s.repo.Create(ctx, CreateParams{
		ID:      id,
		EventID: ids.Normalize(eventID),
		UserID:  identity.UserID,
		Status:  status,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordWrite("rsvp", "create")
	s.logger.Info().
		Str("rsvp_id", rsvp.ID).
		Str("event_id", rsvp.EventID).
		Stringer("status", rsvp.Status).
		Msg("rsvp created")
	return rsvp, nil
}

// Get returns the caller's own RSVP. RSVPs of other users are reported as
// not found.
func (s *Service) Get(ctx context.Context, identity *auth.Identity, eventID, id string) (*RSVP, error) {
	return s.resolve(ctx, identity, eventID, id)
}

// Update changes the status of the caller's RSVP. An empty input leaves the
// record as is.
func (s *Service) Update(ctx context.Context, identity *auth.Identity, eventID, id string, input Input) (*RSVP, error) {
	rsvp, err := s.resolve(ctx, identity, eventID, id)
	if err != nil {
		return nil, err
	}
	if input.Status == nil {
		return rsvp, nil
	}
	if !input.Status.Valid() {
		return nil, validation.FieldError("status", "is not a valid choice")
	}

	updated, err := s.repo.UpdateStatus(ctx, rsvp.ID, *input.Status)
	if err != nil {
		return nil, err
	}
	metrics.RecordWrite("rsvp", "update")
	s.logger.Info().Str("rsvp_id", updated.ID).Stringer("status", updated.Status).Msg("rsvp updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, identity *auth.Identity, eventID, id string) error {
	rsvp, err := s.resolve(ctx, identity, eventID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rsvp.ID); err != nil {
		return err
	}
	metrics.RecordWrite("rsvp", "delete")
	s.logger.Info().Str("rsvp_id", rsvp.ID).Str("event_id", rsvp.EventID).Msg("rsvp deleted")
	return nil
}

func (s *Service) resolve(ctx context.Context, identity *auth.Identity, eventID, id string) (*RSVP, error) {
	if err := auth.RequireIdentity(identity); err != nil {
		return nil, err
	}
	if !ids.IsULID(eventID) || !ids.IsULID(id) {
		return nil, ErrNotFound
	}
	rsvp, err := s.repo.GetOwned(ctx, ids.Normalize(id), ids.Normalize(eventID), identity.UserID)
	if err != nil {
		return nil, err
	}
	if !auth.CanMutateRSVP(identity, rsvp.UserID) {
		return nil, auth.ErrForbidden
	}
	return rsvp, nil
}
