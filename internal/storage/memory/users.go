package memory

import (
	"context"

	"github.com/Togather-Foundation/gatherings/internal/domain/users"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.usernames[params.Username]; taken {
		return nil, users.ErrUsernameTaken
	}
	user := users.User{
		ID:             params.ID,
		Username:       params.Username,
		Email:          params.Email,
		PasswordHash:   params.PasswordHash,
		FullName:       params.FullName,
		Bio:            params.Bio,
		Location:       params.Location,
		ProfilePicture: params.ProfilePicture,
		CreatedAt:      r.s.now(),
	}
	r.s.users[user.ID] = user
	r.s.usernames[user.Username] = user.ID
	return &user, nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usernames[username]
	if !ok {
		return nil, users.ErrNotFound
	}
	user := r.s.users[id]
	return &user, nil
}

func (r userRepo) UpdateProfile(ctx context.Context, id string, params users.ProfileParams) (*users.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	user.Email = params.Email
	user.FullName = params.FullName
	user.Bio = params.Bio
	user.Location = params.Location
	user.ProfilePicture = params.ProfilePicture
	r.s.users[id] = user
	return &user, nil
}
