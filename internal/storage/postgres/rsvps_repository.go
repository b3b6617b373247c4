package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
)

type RSVPRepository struct {
	pool *pgxpool.Pool
}

const rsvpSelect = `
SELECT r.id, r.event_id, r.user_id, u.username, r.status, r.created_at, r.updated_at
  FROM %s r
  JOIN users u ON u.id = r.user_id`

func (r *RSVPRepository) ListByEvent(ctx context.Context, eventID string) ([]rsvps.RSVP, error) {
	start := time.Now()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(rsvpSelect, "rsvps")+`
 WHERE r.event_id = $1
 ORDER BY r.created_at, r.id`, eventID)
	if err != nil {
		metrics.RecordQuery("rsvps_list", start, err)
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	defer rows.Close()

	items := make([]rsvps.RSVP, 0)
	for rows.Next() {
		rsvp, err := scanRSVP(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rsvp: %w", err)
		}
		items = append(items, *rsvp)
	}
	err = rows.Err()
	metrics.RecordQuery("rsvps_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate rsvps: %w", err)
	}
	return items, nil
}

// Create inserts an RSVP after locking its event. The (event, user) unique
// constraint decides duplicates.
func (r *RSVPRepository) Create(ctx context.Context, params rsvps.CreateParams) (*rsvps.RSVP, error) {
	var created *rsvps.RSVP
	start := time.Now()
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		exists, err := eventExists(ctx, tx, params.EventID)
		if err != nil {
			return err
		}
		if !exists {
			return rsvps.ErrEventNotFound
		}

		created, err = scanRSVP(tx.QueryRow(ctx, `
WITH inserted AS (
    INSERT INTO rsvps (id, event_id, user_id, status)
    VALUES ($1, $2, $3, $4)
    RETURNING *
)`+fmt.Sprintf(rsvpSelect, "inserted"),
			params.ID, params.EventID, params.UserID, params.Status.String(),
		))
		return err
	})
	metrics.RecordQuery("rsvps_create", start, err)

	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, rsvps.ErrEventNotFound):
		return nil, err
	case constraintViolation(err, codeUniqueViolation, "rsvps_event_user_key"):
		return nil, rsvps.ErrAlreadyRSVPd
	case constraintViolation(err, codeForeignKeyViolation, "rsvps_user_id_fkey"):
		return nil, auth.ErrUnauthenticated
	case constraintViolation(err, codeForeignKeyViolation, "rsvps_event_id_fkey"):
		return nil, rsvps.ErrEventNotFound
	default:
		return nil, fmt.Errorf("insert rsvp: %w", err)
	}
}

// GetOwned matches on the RSVP id, its event and its user together.
func (r *RSVPRepository) GetOwned(ctx context.Context, id, eventID, userID string) (*rsvps.RSVP, error) {
	return r.getOne(ctx, "rsvps_get", fmt.Sprintf(rsvpSelect, "rsvps")+`
 WHERE r.id = $1 AND r.event_id = $2 AND r.user_id = $3`, id, eventID, userID)
}

func (r *RSVPRepository) UpdateStatus(ctx context.Context, id string, status rsvps.Status) (*rsvps.RSVP, error) {
	return r.getOne(ctx, "rsvps_update", `
WITH updated AS (
    UPDATE rsvps
       SET status = $2, updated_at = GREATEST(now(), updated_at)
     WHERE id = $1
    RETURNING *
)`+fmt.Sprintf(rsvpSelect, "updated"), id, status.String())
}

func (r *RSVPRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM rsvps WHERE id = $1`, id)
	metrics.RecordQuery("rsvps_delete", start, err)
	if err != nil {
		return fmt.Errorf("delete rsvp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rsvps.ErrNotFound
	}
	return nil
}

func (r *RSVPRepository) getOne(ctx context.Context, operation, sql string, args ...any) (*rsvps.RSVP, error) {
	start := time.Now()
	rsvp, err := scanRSVP(r.pool.QueryRow(ctx, sql, args...))
	metrics.RecordQuery(operation, start, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rsvps.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return rsvp, nil
}

func scanRSVP(row pgx.Row) (*rsvps.RSVP, error) {
	var (
		rsvp   rsvps.RSVP
		status string
	)
	if err := row.Scan(&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Username, &status, &rsvp.CreatedAt, &rsvp.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := rsvps.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("stored rsvp %s: %w", rsvp.ID, err)
	}
	rsvp.Status = parsed
	return &rsvp, nil
}
