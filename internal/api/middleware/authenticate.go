package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/gatherings/internal/api/problem"
	"github.com/Togather-Foundation/gatherings/internal/auth"
)

// Authenticate resolves an optional bearer token into the caller identity.
// Requests without an Authorization header continue anonymously; a header
// that does not carry a valid token is rejected with 401.
func Authenticate(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.TokenFromHeader(header)
			if err != nil {
				writeUnauthorized(w, r, err, env)
				return
			}
			claims, err := manager.Validate(token)
			if err != nil {
				writeUnauthorized(w, r, err, env)
				return
			}

			identity := claims.Identity()
			ctx := WithIdentity(r.Context(), identity)
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", identity.UserID)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous callers.
func RequireAuth(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromContext(r.Context()) == nil {
				writeUnauthorized(w, r, auth.ErrUnauthenticated, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthForWrites lets safe methods through and requires an identity for
// everything else.
func RequireAuthForWrites(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.IsSafeMethod(r.Method) && IdentityFromContext(r.Context()) == nil {
				writeUnauthorized(w, r, auth.ErrUnauthenticated, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, err error, env string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="gatherings"`)
	detail := "Authentication credentials were not provided."
	if !errors.Is(err, auth.ErrUnauthenticated) {
		detail = "Invalid or expired token."
	}
	problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env, problem.WithDetail(detail))
}
