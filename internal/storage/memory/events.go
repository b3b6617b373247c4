package memory

import (
	"context"
	"sort"

	"github.com/Togather-Foundation/gatherings/internal/domain/events"
)

type eventRepo struct{ s *Store }

func visible(event events.Event, viewerID string) bool {
	return event.IsPublic || (viewerID != "" && event.OrganizerID == viewerID)
}

func (r eventRepo) List(ctx context.Context, filters events.Filters) ([]events.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]events.Event, 0)
	for _, event := range r.s.events {
		if !visible(event, filters.ViewerID) {
			continue
		}
		if filters.OrganizerUsername != "" && r.s.usernameOf(event.OrganizerID) != filters.OrganizerUsername {
			continue
		}
		if filters.StartsAfter != nil && event.StartTime.Before(*filters.StartsAfter) {
			continue
		}
		items = append(items, r.present(event))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].StartTime.Equal(items[j].StartTime) {
			return items[i].StartTime.Before(items[j].StartTime)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r eventRepo) GetVisible(ctx context.Context, id, viewerID string) (*events.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	event, ok := r.s.events[id]
	if !ok || !visible(event, viewerID) {
		return nil, events.ErrNotFound
	}
	event = r.present(event)
	return &event, nil
}

func (r eventRepo) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.requireUser(params.OrganizerID); err != nil {
		return nil, err
	}

	now := r.s.now()
	event := events.Event{
		ID:          params.ID,
		OrganizerID: params.OrganizerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyFields(&event, params.Fields)
	r.s.events[event.ID] = event

	event = r.present(event)
	return &event, nil
}

func (r eventRepo) Update(ctx context.Context, id, organizerID string, fields events.Fields) (*events.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event, ok := r.s.events[id]
	if !ok || event.OrganizerID != organizerID {
		return nil, events.ErrNotFound
	}
	applyFields(&event, fields)
	if now := r.s.now(); now.After(event.UpdatedAt) {
		event.UpdatedAt = now
	}
	r.s.events[id] = event

	event = r.present(event)
	return &event, nil
}

func (r eventRepo) Delete(ctx context.Context, id, organizerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event, ok := r.s.events[id]
	if !ok || event.OrganizerID != organizerID {
		return events.ErrNotFound
	}
	delete(r.s.events, id)

	for rid, rsvp := range r.s.rsvps {
		if rsvp.EventID == id {
			delete(r.s.rsvps, rid)
			delete(r.s.rsvpPairs, pairKey{rsvp.EventID, rsvp.UserID})
		}
	}
	for rid, review := range r.s.reviews {
		if review.EventID == id {
			delete(r.s.reviews, rid)
			delete(r.s.reviewPairs, pairKey{review.EventID, review.UserID})
		}
	}
	return nil
}

func (r eventRepo) RSVPCounts(ctx context.Context, eventIDs []string) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}
	counts := make(map[string]int, len(eventIDs))
	for _, rsvp := range r.s.rsvps {
		if wanted[rsvp.EventID] {
			counts[rsvp.EventID]++
		}
	}
	return counts, nil
}

// present fills the joined organizer username. Callers hold the lock.
func (r eventRepo) present(event events.Event) events.Event {
	event.OrganizerUsername = r.s.usernameOf(event.OrganizerID)
	event.RSVPCount = 0
	event.Reviews = nil
	return event
}

func applyFields(event *events.Event, fields events.Fields) {
	event.Title = fields.Title
	event.Description = fields.Description
	event.Location = fields.Location
	event.StartTime = fields.StartTime
	event.EndTime = fields.EndTime
	event.IsPublic = fields.IsPublic
}
