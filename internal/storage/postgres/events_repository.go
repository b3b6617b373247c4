package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/events"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

const eventSelect = `
SELECT e.id, e.title, e.description, e.organizer_id, u.username, e.location,
       e.start_time, e.end_time, e.is_public, e.created_at, e.updated_at
  FROM %s e
  JOIN users u ON u.id = e.organizer_id`

// List returns public events plus the viewer's own private ones. An empty
// viewerID matches no organizer.
func (r *EventRepository) List(ctx context.Context, filters events.Filters) ([]events.Event, error) {
	start := time.Now()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(eventSelect, "events")+`
 WHERE (e.is_public OR e.organizer_id = $1)
   AND ($2::text = '' OR u.username = $2::text)
   AND ($3::timestamptz IS NULL OR e.start_time >= $3::timestamptz)
 ORDER BY e.start_time, e.id`,
		filters.ViewerID, filters.OrganizerUsername, filters.StartsAfter,
	)
	if err != nil {
		metrics.RecordQuery("events_list", start, err)
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	err = rows.Err()
	metrics.RecordQuery("events_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) GetVisible(ctx context.Context, id, viewerID string) (*events.Event, error) {
	return r.getOne(ctx, "events_get", fmt.Sprintf(eventSelect, "events")+`
 WHERE e.id = $1 AND (e.is_public OR e.organizer_id = $2)`, id, viewerID)
}

// Create inserts an event. An organizer id without a user row (a token
// outliving its account) is reported as auth.ErrUnauthenticated.
func (r *EventRepository) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	event, err := r.getOne(ctx, "events_create", `
WITH inserted AS (
    INSERT INTO events (id, title, description, organizer_id, location, start_time, end_time, is_public)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING *
)`+fmt.Sprintf(eventSelect, "inserted"),
		params.ID, params.Title, params.Description, params.OrganizerID,
		params.Location, params.StartTime, params.EndTime, params.IsPublic,
	)
	if constraintViolation(err, codeForeignKeyViolation, "events_organizer_id_fkey") {
		return nil, auth.ErrUnauthenticated
	}
	return event, err
}

// Update rewrites the writable columns of an event owned by organizerID.
// updated_at never moves backwards.
func (r *EventRepository) Update(ctx context.Context, id, organizerID string, fields events.Fields) (*events.Event, error) {
	return r.getOne(ctx, "events_update", `
WITH updated AS (
    UPDATE events
       SET title = $3, description = $4, location = $5, start_time = $6, end_time = $7,
           is_public = $8, updated_at = GREATEST(now(), updated_at)
     WHERE id = $1 AND organizer_id = $2
    RETURNING *
)`+fmt.Sprintf(eventSelect, "updated"),
		id, organizerID, fields.Title, fields.Description, fields.Location,
		fields.StartTime, fields.EndTime, fields.IsPublic,
	)
}

// Delete removes the event; RSVPs and reviews go with it by cascade.
func (r *EventRepository) Delete(ctx context.Context, id, organizerID string) error {
	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1 AND organizer_id = $2`, id, organizerID)
	metrics.RecordQuery("events_delete", start, err)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// RSVPCounts returns the live RSVP count per event. Events without RSVPs are
// absent from the map.
func (r *EventRepository) RSVPCounts(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	start := time.Now()
	rows, err := r.pool.Query(ctx, `
SELECT event_id, count(*)
  FROM rsvps
 WHERE event_id = ANY($1)
 GROUP BY event_id`, eventIDs)
	if err != nil {
		metrics.RecordQuery("events_rsvp_counts", start, err)
		return nil, fmt.Errorf("count rsvps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID string
			count   int
		)
		if err := rows.Scan(&eventID, &count); err != nil {
			return nil, fmt.Errorf("scan rsvp count: %w", err)
		}
		counts[eventID] = count
	}
	err = rows.Err()
	metrics.RecordQuery("events_rsvp_counts", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate rsvp counts: %w", err)
	}
	return counts, nil
}

func (r *EventRepository) getOne(ctx context.Context, operation, sql string, args ...any) (*events.Event, error) {
	start := time.Now()
	event, err := scanEvent(r.pool.QueryRow(ctx, sql, args...))
	metrics.RecordQuery(operation, start, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return event, nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.OrganizerID, &e.OrganizerUsername, &e.Location,
		&e.StartTime, &e.EndTime, &e.IsPublic, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	return &e, nil
}
