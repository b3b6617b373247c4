package auth

import (
	"errors"
	"net/http"
)

// ErrForbidden is returned when the caller is not allowed to mutate a record.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthenticated is returned when an operation requires a caller identity.
var ErrUnauthenticated = errors.New("authentication required")

// Identity is the authenticated caller. A nil *Identity is an anonymous caller.
type Identity struct {
	UserID   string
	Username string
}

// Is reports whether the identity is the given user.
func (i *Identity) Is(userID string) bool {
	return i != nil && i.UserID != "" && i.UserID == userID
}

// IsSafeMethod reports whether method is read-only.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// CanMutateEvent grants read-only methods to everyone and writes to the
// event's organizer only.
func CanMutateEvent(identity *Identity, method, organizerID string) bool {
	if IsSafeMethod(method) {
		return true
	}
	return identity.Is(organizerID)
}

// CanMutateRSVP grants access to the RSVP's own user only, whatever the method.
func CanMutateRSVP(identity *Identity, ownerID string) bool {
	return identity.Is(ownerID)
}

// RequireIdentity returns ErrUnauthenticated for anonymous callers.
func RequireIdentity(identity *Identity) error {
	if identity == nil || identity.UserID == "" {
		return ErrUnauthenticated
	}
	return nil
}
