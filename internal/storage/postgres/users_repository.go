package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Togather-Foundation/gatherings/internal/domain/users"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, username, email, password_hash, full_name, bio, location, profile_picture, created_at`

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(ctx, `
INSERT INTO users (id, username, email, password_hash, full_name, bio, location, profile_picture)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+userColumns,
		params.ID, params.Username, params.Email, params.PasswordHash,
		params.FullName, params.Bio, params.Location, params.ProfilePicture,
	))
	metrics.RecordQuery("users_create", start, err)

	if constraintViolation(err, codeUniqueViolation, "users_username_key") {
		return nil, users.ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getOne(ctx, "users_get", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.getOne(ctx, "users_get_by_username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, params users.ProfileParams) (*users.User, error) {
	return r.getOne(ctx, "users_update_profile", `
UPDATE users
   SET email = $2, full_name = $3, bio = $4, location = $5, profile_picture = $6
 WHERE id = $1
RETURNING `+userColumns,
		id, params.Email, params.FullName, params.Bio, params.Location, params.ProfilePicture,
	)
}

func (r *UserRepository) getOne(ctx context.Context, operation, sql string, args ...any) (*users.User, error) {
	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	metrics.RecordQuery(operation, start, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Bio, &u.Location, &u.ProfilePicture, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
