package events

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/ids"
	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
	"github.com/Togather-Foundation/gatherings/internal/sanitize"
	"github.com/Togather-Foundation/gatherings/internal/telemetry"
	"github.com/Togather-Foundation/gatherings/internal/validation"
)

type Service struct {
	repo    Repository
	reviews ReviewLister
	logger  zerolog.Logger
}

func NewService(repo Repository, reviewLister ReviewLister, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		reviews: reviewLister,
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// List returns the events visible to identity, narrowed by filters.
func (s *Service) List(ctx context.Context, identity *auth.Identity, filters Filters) ([]Event, error) {
	filters.ViewerID = viewerID(identity)
	items, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns one event if identity may see it, ErrNotFound otherwise.
func (s *Service) Get(ctx context.Context, identity *auth.Identity, id string) (*Event, error) {
	event, err := s.getVisible(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateOne(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Create stores a new event organized by the caller.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, input Input) (*Event, error) {
	if err := auth.RequireIdentity(identity); err != nil {
		return nil, err
	}
	fields, err := normalize(input)
	if err != nil {
		return nil, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}
	event, err := s.repo.Create(ctx, CreateParams{ID: id, OrganizerID: identity.UserID, Fields: fields})
	if err != nil {
		return nil, err
	}
	event.Reviews = []reviews.Review{}

	metrics.RecordWrite("event", "create")
	s.logger.Info().
		Str("event_id", event.ID).
		Str("organizer_id", event.OrganizerID).
		Bool("is_public", event.IsPublic).
		Msg("event created")
	return event, nil
}

// Replace is a full update (PUT): every required field comes from input.
// An omitted is_public keeps the stored visibility.
func (s *Service) Replace(ctx context.Context, identity *auth.Identity, id string, input Input) (*Event, error) {
	return s.update(ctx, identity, id, http.MethodPut, func(current *Event) Input {
		if input.IsPublic == nil {
			public := current.IsPublic
			input.IsPublic = &public
		}
		return input
	})
}

// Patch is a partial update (PATCH).
func (s *Service) Patch(ctx context.Context, identity *auth.Identity, id string, patch Patch) (*Event, error) {
	return s.update(ctx, identity, id, http.MethodPatch, patch.merge)
}

// Delete removes the event and, by cascade, its RSVPs and reviews.
func (s *Service) Delete(ctx context.Context, identity *auth.Identity, id string) error {
	event, err := s.authorize(ctx, identity, id, http.MethodDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, event.ID, event.OrganizerID); err != nil {
		return err
	}
	metrics.RecordWrite("event", "delete")
	s.logger.Info().Str("event_id", event.ID).Msg("event deleted")
	return nil
}

func (s *Service) update(ctx context.Context, identity *auth.Identity, id, method string, build func(*Event) Input) (*Event, error) {
	current, err := s.authorize(ctx, identity, id, method)
	if err != nil {
		return nil, err
	}
	fields, err := normalize(build(current))
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, current.ID, current.OrganizerID, fields)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateOne(ctx, updated); err != nil {
		return nil, err
	}
	metrics.RecordWrite("event", "update")
	s.logger.Info().Str("event_id", updated.ID).Str("method", method).Msg("event updated")
	return updated, nil
}

// authorize resolves the event within the caller's visible set before the
// ownership rule is applied, so hidden events are reported as not found.
func (s *Service) authorize(ctx context.Context, identity *auth.Identity, id, method string) (*Event, error) {
	if err := auth.RequireIdentity(identity); err != nil {
		return nil, err
	}
	event, err := s.getVisible(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanMutateEvent(identity, method, event.OrganizerID) {
		return nil, auth.ErrForbidden
	}
	return event, nil
}

func (s *Service) getVisible(ctx context.Context, identity *auth.Identity, id string) (*Event, error) {
	if !ids.IsULID(id) {
		return nil, ErrNotFound
	}
	return s.repo.GetVisible(ctx, ids.Normalize(id), viewerID(identity))
}

func (s *Service) hydrateOne(ctx context.Context, event *Event) error {
	items := []Event{*event}
	if err := s.hydrate(ctx, items); err != nil {
		return err
	}
	*event = items[0]
	return nil
}

// hydrate fills the computed fields of items, loading RSVP counts and
// reviews concurrently in one batch each.
func (s *Service) hydrate(ctx context.Context, items []Event) error {
	if len(items) == 0 {
		return nil
	}
	ctx, span := telemetry.StartSpan(ctx, "events.hydrate", trace.WithAttributes(attribute.Int("events.count", len(items))))
	defer span.End()

	eventIDs := make([]string, len(items))
	for i := range items {
		eventIDs[i] = items[i].ID
	}

	var (
		counts  map[string]int
		byEvent map[string][]reviews.Review
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		counts, err = s.repo.RSVPCounts(groupCtx, eventIDs)
		return err
	})
	group.Go(func() error {
		var err error
		byEvent, err = s.reviews.ListByEvents(groupCtx, eventIDs)
		return err
	})
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load event details")
		return fmt.Errorf("load event details: %w", err)
	}

	for i := range items {
		items[i].RSVPCount = counts[items[i].ID]
		items[i].Reviews = byEvent[items[i].ID]
		if items[i].Reviews == nil {
			items[i].Reviews = []reviews.Review{}
		}
	}
	return nil
}

func (p Patch) merge(current *Event) Input {
	start, end, public := current.StartTime, current.EndTime, current.IsPublic
	input := Input{
		Title:       current.Title,
		Description: current.Description,
		Location:    current.Location,
		StartTime:   &start,
		EndTime:     &end,
		IsPublic:    &public,
	}
	if p.Title != nil {
		input.Title = *p.Title
	}
	if p.Description != nil {
		input.Description = *p.Description
	}
	if p.Location != nil {
		input.Location = *p.Location
	}
	if p.StartTime != nil {
		input.StartTime = p.StartTime
	}
	if p.EndTime != nil {
		input.EndTime = p.EndTime
	}
	if p.IsPublic != nil {
		input.IsPublic = p.IsPublic
	}
	return input
}

func normalize(input Input) (Fields, error) {
	input.Title = sanitize.Text(input.Title)
	input.Description = sanitize.HTML(input.Description)
	input.Location = sanitize.Text(input.Location)

	if err := validation.Struct(input); err != nil {
		return Fields{}, err
	}
	if input.EndTime.Before(*input.StartTime) {
		return Fields{}, validation.FieldError("end_time", "must be on or after start_time")
	}

	fields := Fields{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		StartTime:   input.StartTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		IsPublic:    true,
	}
	if input.IsPublic != nil {
		fields.IsPublic = *input.IsPublic
	}
	return fields, nil
}

func viewerID(identity *auth.Identity) string {
	if identity == nil {
		return ""
	}
	return identity.UserID
}
