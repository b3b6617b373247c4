package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/gatherings/internal/api/handlers"
	"github.com/Togather-Foundation/gatherings/internal/api/middleware"
	"github.com/Togather-Foundation/gatherings/internal/api/problem"
	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/config"
	"github.com/Togather-Foundation/gatherings/internal/domain/events"
	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
	"github.com/Togather-Foundation/gatherings/internal/storage"
)

// BuildInfo is reported by /version and /readyz.
type BuildInfo struct {
	Version string
	Commit  string
}

// Router is the HTTP entry point of the API. Close releases the rate
// limiter's background cleanup.
type Router struct {
	handler http.Handler
	limiter *middleware.RateLimiter
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

func (rt *Router) Close() {
	rt.limiter.Stop()
}

func NewRouter(cfg config.Config, logger zerolog.Logger, repo storage.Repository, build BuildInfo) *Router {
	env := cfg.Environment
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)

	reviewsService := reviews.NewService(repo.Reviews(), logger)
	eventsService := events.NewService(repo.Events(), repo.Reviews(), logger)
	rsvpsService := rsvps.NewService(repo.RSVPs(), logger)
	usersService := users.NewService(repo.Users(), logger)

	eventsHandler := handlers.NewEventsHandler(eventsService, env, cfg.Server.BaseURL)
	reviewsHandler := handlers.NewReviewsHandler(reviewsService, env)
	rsvpsHandler := handlers.NewRSVPsHandler(rsvpsService, env)
	usersHandler := handlers.NewUsersHandler(usersService, jwtManager, env, cfg.Server.BaseURL)
	health := handlers.NewHealthChecker(repo, build.Version, build.Commit)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, env)
	authRequired := middleware.RequireAuth(env)
	authForWrites := middleware.RequireAuthForWrites(env)

	mux := http.NewServeMux()
	mux.Handle("/healthz", health.Healthz())
	mux.Handle("/readyz", health.Readyz())
	mux.Handle("/version", health.Version())
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/v1/events", authForWrites(methodMux(env, map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(eventsHandler.List),
		http.MethodPost: http.HandlerFunc(eventsHandler.Create),
	})))
	mux.Handle("/api/v1/events/{id}", authForWrites(methodMux(env, map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(eventsHandler.Get),
		http.MethodPut:    http.HandlerFunc(eventsHandler.Replace),
		http.MethodPatch:  http.HandlerFunc(eventsHandler.Patch),
		http.MethodDelete: http.HandlerFunc(eventsHandler.Delete),
	})))
	mux.Handle("/api/v1/events/{id}/reviews", authForWrites(methodMux(env, map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(reviewsHandler.List),
		http.MethodPost: http.HandlerFunc(reviewsHandler.Create),
	})))
	mux.Handle("/api/v1/events/{id}/rsvp", authForWrites(methodMux(env, map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(rsvpsHandler.List),
		http.MethodPost: http.HandlerFunc(rsvpsHandler.Create),
	})))
	// Every method on a single RSVP, reads included, is owner-only.
	mux.Handle("/api/v1/events/{id}/rsvp/{rsvp_id}", authRequired(methodMux(env, map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(rsvpsHandler.Get),
		http.MethodPut:    http.HandlerFunc(rsvpsHandler.Update),
		http.MethodPatch:  http.HandlerFunc(rsvpsHandler.Update),
		http.MethodDelete: http.HandlerFunc(rsvpsHandler.Delete),
	})))

	mux.Handle("/api/v1/users", methodMux(env, map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(usersHandler.Register),
	}))
	mux.Handle("/api/v1/users/me", authRequired(methodMux(env, map[string]http.Handler{
		http.MethodGet:   http.HandlerFunc(usersHandler.Me),
		http.MethodPatch: http.HandlerFunc(usersHandler.UpdateMe),
	})))
	mux.Handle("/api/v1/users/{username}", methodMux(env, map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(usersHandler.Get),
	}))
	mux.Handle("/api/v1/auth/login", limiter.Middleware(middleware.TierLogin)(methodMux(env, map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(usersHandler.Login),
	})))

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", nil, env,
			problem.WithDetail("No route matches "+r.URL.Path+"."))
	}))

	var handler http.Handler = middleware.StripTrailingSlash(mux)
	handler = limiter.Middleware("")(handler)
	handler = middleware.Authenticate(jwtManager, env)(handler)
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = middleware.CORS(cfg.CORS, logger)(handler)
	handler = middleware.SecurityHeaders(!cfg.IsDevelopment())(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	handler = middleware.Tracing(handler)

	return &Router{handler: handler, limiter: limiter}
}

// methodMux dispatches on the request method and answers anything else with
// a 405 problem carrying an Allow header. HEAD is served by the GET handler.
func methodMux(env string, handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := handlers[r.Method]
		if !ok && r.Method == http.MethodHead {
			handler, ok = handlers[http.MethodGet]
		}
		if ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		problem.Write(w, r, http.StatusMethodNotAllowed, problem.TypeNotAllowed, "Method Not Allowed", nil, env,
			problem.WithDetail("Method \""+r.Method+"\" not allowed."))
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers)+1)
	for method := range handlers {
		methods = append(methods, method)
	}
	if _, ok := handlers[http.MethodGet]; ok {
		if _, ok := handlers[http.MethodHead]; !ok {
			methods = append(methods, http.MethodHead)
		}
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
