package reviews

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/ids"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
	"github.com/Togather-Foundation/gatherings/internal/sanitize"
	"github.com/Togather-Foundation/gatherings/internal/validation"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "reviews").Logger(),
	}
}

// List returns every review attached to eventID. The event's visibility is
// not consulted, and an unknown event yields an empty list.
func (s *Service) List(ctx context.Context, eventID string) ([]Review, error) {
	if !ids.IsULID(eventID) {
		return []Review{}, nil
	}
	items, err := s.repo.ListByEvent(ctx, ids.Normalize(eventID))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Review{}
	}
	return items, nil
}

// Create records the caller's review of eventID.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, eventID string, input Input) (*Review, error) {
	if err := auth.RequireIdentity(identity); err != nil {
		return nil, err
	}

	input.Comment = sanitize.Text(input.Comment)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !ids.IsULID(eventID) {
		return nil, ErrEventNotFound
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate review id: %w", err)
	}

	review, err := s.repo.Create(ctx, CreateParams{
		ID:      id,
		EventID: ids.Normalize(eventID),
		UserID:  identity.UserID,
		Rating:  input.Rating,
		Comment: input.Comment,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordWrite("review", "create")
	s.logger.Info().
		Str("review_id", review.ID).
		Str("event_id", review.EventID).
		Int("rating", review.Rating).
		Msg("review created")
	return review, nil
}
