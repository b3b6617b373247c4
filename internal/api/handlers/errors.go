package handlers

import (
	"errors"
	"net/http"

	"github.com/Togather-Foundation/gatherings/internal/api/problem"
	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/events"
	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
	"github.com/Togather-Foundation/gatherings/internal/validation"
)

var errUnsupportedMediaType = errors.New("request body must be application/json")

// writeError maps a domain error onto its problem response. Unknown errors
// are 500s; their text only reaches the client in development.
func writeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var (
		verr   *validation.Error
		ferr   events.FilterError
		maxErr *http.MaxBytesError
	)

	switch {
	case isNotFound(err):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", err,
			env, problem.WithDetail("Not found."))
	case errors.As(err, &verr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err,
			env, problem.WithDetail(verr.Message), problem.WithErrors(verr.Fields))
	case errors.As(err, &ferr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err,
			env, problem.WithDetail(ferr.Error()), problem.WithErrors(map[string]string{ferr.Field: ferr.Message}))
	case errors.As(err, &maxErr):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload Too Large", err,
			env, problem.WithDetail("Request body is too large."))
	case errors.Is(err, errUnsupportedMediaType):
		problem.Write(w, r, http.StatusUnsupportedMediaType, problem.TypeUnsupported, "Unsupported Media Type", err,
			env, problem.WithDetail(err.Error()))
	case errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="gatherings"`)
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err,
			env, problem.WithDetail("Authentication credentials were not provided."))
	case errors.Is(err, auth.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err,
			env, problem.WithDetail("Invalid username or password."))
	case errors.Is(err, auth.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err,
			env, problem.WithDetail("You do not have permission to perform this action."))
	case errors.Is(err, users.ErrUsernameTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err,
			env, problem.WithDetail("A user with that username already exists."), problem.WithErrors(map[string]string{"username": err.Error()}))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, events.ErrNotFound) ||
		errors.Is(err, reviews.ErrEventNotFound) ||
		errors.Is(err, rsvps.ErrEventNotFound) ||
		errors.Is(err, rsvps.ErrNotFound) ||
		errors.Is(err, users.ErrNotFound)
}
