package memory

import (
	"context"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
)

type rsvpRepo struct{ s *Store }

func (r rsvpRepo) ListByEvent(ctx context.Context, eventID string) ([]rsvps.RSVP, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]rsvps.RSVP, 0)
	for _, rsvp := range r.s.rsvps {
		if rsvp.EventID == eventID {
			rsvp.Username = r.s.usernameOf(rsvp.UserID)
			items = append(items, rsvp)
		}
	}
	sortByCreated(items, func(v rsvps.RSVP) (time.Time, string) { return v.CreatedAt, v.ID })
	return items, nil
}

func (r rsvpRepo) Create(ctx context.Context, params rsvps.CreateParams) (*rsvps.RSVP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[params.EventID]; !ok {
		return nil, rsvps.ErrEventNotFound
	}
	if err := r.s.requireUser(params.UserID); err != nil {
		return nil, err
	}
	key := pairKey{params.EventID, params.UserID}
	if _, taken := r.s.rsvpPairs[key]; taken {
		return nil, rsvps.ErrAlreadyRSVPd
	}

	now := r.s.now()
	rsvp := rsvps.RSVP{
		ID:        params.ID,
		EventID:   params.EventID,
		UserID:    params.UserID,
		Status:    params.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.rsvps[rsvp.ID] = rsvp
	r.s.rsvpPairs[key] = rsvp.ID

	rsvp.Username = r.s.usernameOf(rsvp.UserID)
	return &rsvp, nil
}

func (r rsvpRepo) GetOwned(ctx context.Context, id, eventID, userID string) (*rsvps.RSVP, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rsvp, ok := r.s.rsvps[id]
	if !ok || rsvp.EventID != eventID || rsvp.UserID != userID {
		return nil, rsvps.ErrNotFound
	}
	rsvp.Username = r.s.usernameOf(rsvp.UserID)
	return &rsvp, nil
}

func (r rsvpRepo) UpdateStatus(ctx context.Context, id string, status rsvps.Status) (*rsvps.RSVP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rsvp, ok := r.s.rsvps[id]
	if !ok {
		return nil, rsvps.ErrNotFound
	}
	rsvp.Status = status
	if now := r.s.now(); now.After(rsvp.UpdatedAt) {
		rsvp.UpdatedAt = now
	}
	r.s.rsvps[id] = rsvp

	rsvp.Username = r.s.usernameOf(rsvp.UserID)
	return &rsvp, nil
}

func (r rsvpRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rsvp, ok := r.s.rsvps[id]
	if !ok {
		return rsvps.ErrNotFound
	}
	delete(r.s.rsvps, id)
	delete(r.s.rsvpPairs, pairKey{rsvp.EventID, rsvp.UserID})
	return nil
}
