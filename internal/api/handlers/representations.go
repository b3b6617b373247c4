package handlers

import (
	"time"

	"github.com/Togather-Foundation/gatherings/internal/domain/events"
	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
)

// JSON representations. Fields computed by the server (organizer, user,
// rsvps_count, reviews) are never read from request bodies.

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
	Location string `json:"location"`
}

// profileResponse is a user's view of their own account.
type profileResponse struct {
	userResponse
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
}

type eventResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Organizer   string           `json:"organizer"`
	Location    string           `json:"location"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	IsPublic    bool             `json:"is_public"`
	RSVPsCount  int              `json:"rsvps_count"`
	Reviews     []reviewResponse `json:"reviews"`
}

type reviewResponse struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type rsvpResponse struct {
	ID     string       `json:"id"`
	User   string       `json:"user"`
	Status rsvps.Status `json:"status"`
}

type tokenResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      profileResponse `json:"user"`
}

func toUser(user *users.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Bio:      user.Bio,
		Location: user.Location,
	}
}

func toProfile(user *users.User) profileResponse {
	return profileResponse{
		userResponse:   toUser(user),
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
	}
}

func toEvent(event *events.Event) eventResponse {
	return eventResponse{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Organizer:   event.OrganizerUsername,
		Location:    event.Location,
		StartTime:   event.StartTime.UTC(),
		EndTime:     event.EndTime.UTC(),
		IsPublic:    event.IsPublic,
		RSVPsCount:  event.RSVPCount,
		Reviews:     toReviews(event.Reviews),
	}
}

func toEvents(items []events.Event) []eventResponse {
	out := make([]eventResponse, 0, len(items))
	for i := range items {
		out = append(out, toEvent(&items[i]))
	}
	return out
}

func toReview(review *reviews.Review) reviewResponse {
	return reviewResponse{
		ID:        review.ID,
		User:      review.Username,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt.UTC(),
	}
}

func toReviews(items []reviews.Review) []reviewResponse {
	out := make([]reviewResponse, 0, len(items))
	for i := range items {
		out = append(out, toReview(&items[i]))
	}
	return out
}

func toRSVP(rsvp *rsvps.RSVP) rsvpResponse {
	return rsvpResponse{
		ID:     rsvp.ID,
		User:   rsvp.Username,
		Status: rsvp.Status,
	}
}

func toRSVPs(items []rsvps.RSVP) []rsvpResponse {
	out := make([]rsvpResponse, 0, len(items))
	for i := range items {
		out = append(out, toRSVP(&items[i]))
	}
	return out
}
