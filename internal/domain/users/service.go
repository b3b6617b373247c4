package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

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
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.FullName = sanitize.Text(input.FullName)
	input.Bio = sanitize.Text(input.Bio)
	input.Location = sanitize.Text(input.Location)
	input.ProfilePicture = strings.TrimSpace(input.ProfilePicture)

	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, validation.FieldError("password", err.Error())
	}
	if err := validation.ValidateURL(input.ProfilePicture, "profile_picture", false); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		ID:             id,
		Username:       input.Username,
		Email:          input.Email,
		PasswordHash:   hash,
		FullName:       input.FullName,
		Bio:            input.Bio,
		Location:       input.Location,
		ProfilePicture: input.ProfilePicture,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordWrite("user", "create")
	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Authenticate returns the user for a username/password pair, or
// auth.ErrInvalidCredentials without revealing which half was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.logger.Debug().Str("username", user.Username).Msg("login rejected")
		return nil, err
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if !ids.IsULID(id) {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, ids.Normalize(id))
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, strings.TrimSpace(username))
}

// UpdateProfile applies a partial profile update to the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, identity *auth.Identity, input ProfileInput) (*User, error) {
	if err := auth.RequireIdentity(identity); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	params := ProfileParams{
		Email:          current.Email,
		FullName:       current.FullName,
		Bio:            current.Bio,
		Location:       current.Location,
		ProfilePicture: current.ProfilePicture,
	}
	if input.Email != nil {
		params.Email = strings.TrimSpace(*input.Email)
	}
	if input.FullName != nil {
		params.FullName = sanitize.Text(*input.FullName)
	}
	if input.Bio != nil {
		params.Bio = sanitize.Text(*input.Bio)
	}
	if input.Location != nil {
		params.Location = sanitize.Text(*input.Location)
	}
	if input.ProfilePicture != nil {
		params.ProfilePicture = strings.TrimSpace(*input.ProfilePicture)
	}

	// Reuse the registration rules for the profile fields.
	if err := validation.Struct(RegisterInput{
		Username:       current.Username,
		Password:       "unchanged",
		Email:          params.Email,
		FullName:       params.FullName,
		Bio:            params.Bio,
		Location:       params.Location,
		ProfilePicture: params.ProfilePicture,
	}); err != nil {
		return nil, err
	}
	if err := validation.ValidateURL(params.ProfilePicture, "profile_picture", false); err != nil {
		return nil, err
	}

	return s.repo.UpdateProfile(ctx, current.ID, params)
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if len(password) > 128 {
		return ErrPasswordTooLong
	}
	return nil
}
