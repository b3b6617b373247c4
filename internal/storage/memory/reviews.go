package memory

import (
	"context"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
)

type reviewRepo struct{ s *Store }

func (r reviewRepo) ListByEvent(ctx context.Context, eventID string) ([]reviews.Review, error) {
	byEvent, err := r.ListByEvents(ctx, []string{eventID})
	if err != nil {
		return nil, err
	}
	return byEvent[eventID], nil
}

func (r reviewRepo) ListByEvents(ctx context.Context, eventIDs []string) (map[string][]reviews.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}
	out := make(map[string][]reviews.Review, len(eventIDs))
	for _, review := range r.s.reviews {
		if wanted[review.EventID] {
			review.Username = r.s.usernameOf(review.UserID)
			out[review.EventID] = append(out[review.EventID], review)
		}
	}
	for id := range out {
		sortByCreated(out[id], func(v reviews.Review) (time.Time, string) { return v.CreatedAt, v.ID })
	}
	return out, nil
}

func (r reviewRepo) Create(ctx context.Context, params reviews.CreateParams) (*reviews.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[params.EventID]; !ok {
		return nil, reviews.ErrEventNotFound
	}
	if err := r.s.requireUser(params.UserID); err != nil {
		return nil, err
	}
	key := pairKey{params.EventID, params.UserID}
	if _, taken := r.s.reviewPairs[key]; taken {
		return nil, reviews.ErrAlreadyReviewed
	}

	review := reviews.Review{
		ID:        params.ID,
		EventID:   params.EventID,
		UserID:    params.UserID,
		Rating:    params.Rating,
		Comment:   params.Comment,
		CreatedAt: r.s.now(),
	}
	r.s.reviews[review.ID] = review
	r.s.reviewPairs[key] = review.ID

	review.Username = r.s.usernameOf(review.UserID)
	return &review, nil
}
