package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username is already taken")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 128 characters")
)

type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	FullName       string
	Bio            string
	Location       string
	ProfilePicture string
	CreatedAt      time.Time
}

// RegisterInput is the payload accepted when a user signs up.
type RegisterInput struct {
	Username       string `json:"username" validate:"required,max=150,username"`
	Password       string `json:"password" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email,max=254"`
	FullName       string `json:"full_name" validate:"max=255"`
	Bio            string `json:"bio"`
	Location       string `json:"location" validate:"max=100"`
	ProfilePicture string `json:"profile_picture" validate:"max=200"`
}

// ProfileInput is a partial profile update; nil fields are left unchanged.
type ProfileInput struct {
	Email          *string `json:"email"`
	FullName       *string `json:"full_name"`
	Bio            *string `json:"bio"`
	Location       *string `json:"location"`
	ProfilePicture *string `json:"profile_picture"`
}

type CreateParams struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	FullName       string
	Bio            string
	Location       string
	ProfilePicture string
}

type ProfileParams struct {
	Email          string
	FullName       string
	Bio            string
	Location       string
	ProfilePicture string
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, id string, params ProfileParams) (*User, error)
}
