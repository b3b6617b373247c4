package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Togather-Foundation/gatherings/internal/api/problem"
	"github.com/Togather-Foundation/gatherings/internal/config"
)

type RateLimitTier string

const (
	TierPublic        RateLimitTier = "public"
	TierAuthenticated RateLimitTier = "authenticated"
	TierLogin         RateLimitTier = "login"
)

// loginWindow is the period the login budget is spread over.
const loginWindow = 15 * time.Minute

var errRateLimited = errors.New("rate limit exceeded")

type rateLimitKey string

const rateLimitTierKey rateLimitKey = "rateLimitTier"

func WithRateLimitTier(ctx context.Context, tier RateLimitTier) context.Context {
	return context.WithValue(ctx, rateLimitTierKey, tier)
}

// RateLimiter keeps one token bucket per (tier, client).
type RateLimiter struct {
	store   *limiterStore
	trusted []string
	env     string
}

func NewRateLimiter(cfg config.RateLimitConfig, env string) *RateLimiter {
	return &RateLimiter{
		store:   newLimiterStore(cfg),
		trusted: cfg.TrustedProxyCIDRs,
		env:     env,
	}
}

// Stop ends the background cleanup of idle buckets.
func (l *RateLimiter) Stop() {
	l.store.Stop()
}

// Middleware limits requests. An empty tier picks the tier from the context
// (WithRateLimitTier), then from the caller: authenticated callers get the
// authenticated budget, everyone else the public one.
func (l *RateLimiter) Middleware(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			effective := l.tierFor(r, tier)
			key := clientKey(r, l.trusted)
			if identity := IdentityFromContext(r.Context()); identity != nil && effective == TierAuthenticated {
				key = identity.UserID
			}

			limiter := l.store.limiter(effective, key)
			if limiter == nil || limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := 60
			if effective == TierLogin {
				retryAfter = int(l.store.loginInterval().Seconds())
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too Many Requests", errRateLimited, l.env,
				problem.WithDetail("Request was throttled. Try again later."))
		})
	}
}

func (l *RateLimiter) tierFor(r *http.Request, fixed RateLimitTier) RateLimitTier {
	if fixed != "" {
		return fixed
	}
	if value, ok := r.Context().Value(rateLimitTierKey).(RateLimitTier); ok {
		return value
	}
	if IdentityFromContext(r.Context()) != nil {
		return TierAuthenticated
	}
	return TierPublic
}

type limiterStore struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	limits      map[RateLimitTier]int
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	store := &limiterStore{
		limiters: make(map[string]*limiterEntry),
		limits: map[RateLimitTier]int{
			TierPublic:        cfg.PublicPerMinute,
			TierAuthenticated: cfg.AuthenticatedPerMinute,
			TierLogin:         cfg.LoginPer15Minutes,
		},
		stopCleanup: make(chan struct{}),
	}

	go store.cleanupLoop()

	return store
}

func (s *limiterStore) loginInterval() time.Duration {
	limit := s.limits[TierLogin]
	if limit <= 0 {
		return loginWindow
	}
	return loginWindow / time.Duration(limit)
}

func (s *limiterStore) limiter(tier RateLimitTier, key string) *rate.Limiter {
	limit := s.limits[tier]
	if limit <= 0 {
		return nil
	}

	lookup := string(tier) + ":" + key

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.limiters[lookup]; ok {
		entry.lastSeen = time.Now()
		return entry.limiter
	}

	// Buckets start full; login refills one attempt per window/limit.
	interval := time.Minute / time.Duration(limit)
	if tier == TierLogin {
		interval = s.loginInterval()
	}
	limiter := rate.NewLimiter(rate.Every(interval), limit)

	s.limiters[lookup] = &limiterEntry{
		limiter:  limiter,
		lastSeen: time.Now(),
	}
	return limiter
}

func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup drops buckets idle for longer than the login window.
func (s *limiterStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > loginWindow {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

// clientKey identifies the client by remote address. X-Forwarded-For and
// X-Real-IP are honoured only when the connection comes from a trusted proxy.
func clientKey(r *http.Request, trustedProxyCIDRs []string) string {
	if r == nil {
		return ""
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trustedProxyCIDRs) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}

	return remoteIP
}

func isTrustedProxy(ip string, trustedCIDRs []string) bool {
	if len(trustedCIDRs) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidrStr := range trustedCIDRs {
		_, cidr, err := net.ParseCIDR(strings.TrimSpace(cidrStr))
		if err != nil {
			continue
		}
		if cidr.Contains(parsedIP) {
			return true
		}
	}

	return false
}
