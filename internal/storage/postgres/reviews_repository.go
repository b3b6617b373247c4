package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
)

type ReviewRepository struct {
	pool *pgxpool.Pool
}

const reviewSelect = `
SELECT r.id, r.event_id, r.user_id, u.username, r.rating, r.comment, r.created_at
  FROM %s r
  JOIN users u ON u.id = r.user_id`

func (r *ReviewRepository) ListByEvent(ctx context.Context, eventID string) ([]reviews.Review, error) {
	byEvent, err := r.ListByEvents(ctx, []string{eventID})
	if err != nil {
		return nil, err
	}
	return byEvent[eventID], nil
}

// ListByEvents loads the reviews of several events in one query, oldest
// first.
func (r *ReviewRepository) ListByEvents(ctx context.Context, eventIDs []string) (map[string][]reviews.Review, error) {
	out := make(map[string][]reviews.Review, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	start := time.Now()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(reviewSelect, "reviews")+`
 WHERE r.event_id = ANY($1)
 ORDER BY r.created_at, r.id`, eventIDs)
	if err != nil {
		metrics.RecordQuery("reviews_list", start, err)
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out[review.EventID] = append(out[review.EventID], *review)
	}
	err = rows.Err()
	metrics.RecordQuery("reviews_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

// Create inserts a review after locking its event. The (event, user) unique
// constraint decides duplicates.
func (r *ReviewRepository) Create(ctx context.Context, params reviews.CreateParams) (*reviews.Review, error) {
	var created *reviews.Review
	start := time.Now()
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		exists, err := eventExists(ctx, tx, params.EventID)
		if err != nil {
			return err
		}
		if !exists {
			return reviews.ErrEventNotFound
		}

		created, err = scanReview(tx.QueryRow(ctx, `
WITH inserted AS (
    INSERT INTO reviews (id, event_id, user_id, rating, comment)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING *
)`+fmt.Sprintf(reviewSelect, "inserted"),
			params.ID, params.EventID, params.UserID, params.Rating, params.Comment,
		))
		return err
	})
	metrics.RecordQuery("reviews_create", start, err)

	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, reviews.ErrEventNotFound):
		return nil, err
	case constraintViolation(err, codeUniqueViolation, "reviews_event_user_key"):
		return nil, reviews.ErrAlreadyReviewed
	case constraintViolation(err, codeForeignKeyViolation, "reviews_user_id_fkey"):
		return nil, auth.ErrUnauthenticated
	case constraintViolation(err, codeForeignKeyViolation, "reviews_event_id_fkey"):
		return nil, reviews.ErrEventNotFound
	default:
		return nil, fmt.Errorf("insert review: %w", err)
	}
}

func scanReview(row pgx.Row) (*reviews.Review, error) {
	var rv reviews.Review
	if err := row.Scan(&rv.ID, &rv.EventID, &rv.UserID, &rv.Username, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
		return nil, err
	}
	return &rv, nil
}
