package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) *RateLimiter {
	t.Helper()
	limiter := NewRateLimiter(cfg, "test")
	t.Cleanup(limiter.Stop)
	return limiter
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_PublicTierBlocksAfterBurst(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 2})
	handler := limiter.Middleware("")(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.RemoteAddr = "192.168.1.102:12345"
		require.Equal(t, http.StatusOK, serve(handler, req).Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.RemoteAddr = "192.168.1.102:12345"
	rec := serve(handler, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "rate-limited")
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 1})
	handler := limiter.Middleware("")(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	first.RemoteAddr = "192.168.1.10:1000"
	require.Equal(t, http.StatusOK, serve(handler, first).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(handler, first).Code)

	other := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	other.RemoteAddr = "192.168.1.11:1000"
	require.Equal(t, http.StatusOK, serve(handler, other).Code)
}

func TestRateLimit_AuthenticatedCallersUseTheirOwnBudget(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 1, AuthenticatedPerMinute: 3})
	handler := limiter.Middleware("")(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
		req.RemoteAddr = "192.168.1.20:1000"
		req = req.WithContext(WithIdentity(req.Context(), &auth.Identity{UserID: "u1", Username: "alice"}))
		require.Equal(t, http.StatusOK, serve(handler, req).Code, "request %d", i+1)
	}

	// The anonymous budget from the same address is untouched.
	anon := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	anon.RemoteAddr = "192.168.1.20:1000"
	require.Equal(t, http.StatusOK, serve(handler, anon).Code)
}

func TestRateLimit_LoginTier(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{LoginPer15Minutes: 5})
	handler := limiter.Middleware(TierLogin)(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		require.Equal(t, http.StatusOK, serve(handler, req).Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	rec := serve(handler, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "180", rec.Header().Get("Retry-After"))
}

func TestRateLimit_TierFromContext(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 100, LoginPer15Minutes: 1})
	handler := limiter.Middleware("")(okHandler())

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.168.1.30:1000"
		return req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
	}
	require.Equal(t, http.StatusOK, serve(handler, newReq()).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(handler, newReq()).Code)
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{})
	handler := limiter.Middleware("")(okHandler())

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		require.Equal(t, http.StatusOK, serve(handler, req).Code)
	}
}

func TestRateLimit_OperationalEndpointsExempt(t *testing.T) {
	limiter := newTestLimiter(t, config.RateLimitConfig{PublicPerMinute: 1})
	handler := limiter.Middleware("")(okHandler())

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, serve(handler, req).Code, path)
		}
	}
}

func TestClientKey(t *testing.T) {
	trusted := []string{"10.0.0.0/8"}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trusted    []string
		want       string
	}{
		{
			name:       "remote address without proxies",
			remoteAddr: "192.168.1.100:12345",
			want:       "192.168.1.100",
		},
		{
			name:       "forwarded header ignored from untrusted peer",
			remoteAddr: "203.0.113.9:1000",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			trusted:    trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "first forwarded address from trusted proxy",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.45, 198.51.100.1"},
			trusted:    trusted,
			want:       "203.0.113.45",
		},
		{
			name:       "real ip from trusted proxy",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": "203.0.113.45"},
			trusted:    trusted,
			want:       "203.0.113.45",
		},
		{
			name:       "invalid cidr is skipped",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": "203.0.113.45"},
			trusted:    []string{"not-a-cidr"},
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}
			require.Equal(t, tt.want, clientKey(req, tt.trusted))
		})
	}
}

func TestLimiterStore_CleanupDropsIdleEntries(t *testing.T) {
	store := newLimiterStore(config.RateLimitConfig{PublicPerMinute: 10})
	defer store.Stop()

	require.NotNil(t, store.limiter(TierPublic, "a"))
	require.NotNil(t, store.limiter(TierPublic, "b"))

	store.cleanup(time.Now())
	require.Len(t, store.limiters, 2)

	store.cleanup(time.Now().Add(loginWindow + time.Minute))
	require.Empty(t, store.limiters)

	// Stop is idempotent.
	store.Stop()
}
