package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInit_Idempotent(t *testing.T) {
	Init("v1.0.0", "abc123")
	Init("v1.0.1", "def456")

	require.Equal(t, float64(1), testutil.ToFloat64(AppInfo.WithLabelValues("v1.0.1", "def456")))
}

func TestHTTPMiddleware_RecordsRouteLabels(t *testing.T) {
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/01HZX3Y4K6F7G8H9J0K1M2N3PQ/rsvp/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/events/{id}/rsvp", "201")
	require.Equal(t, float64(1), testutil.ToFloat64(counter))
}

func TestHTTPMiddleware_ImplicitOK(t *testing.T) {
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/healthz", "200")))
}

func TestHTTPMiddleware_UnknownPathsShareOneLabel(t *testing.T) {
	handler := HTTPMiddleware(http.NotFoundHandler())

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404"))
	for _, path := range []string{"/a", "/b/c", "/.env", "/api/v2/events"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, before+4, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
	require.False(t, HTTPRequestsTotal.DeleteLabelValues(http.MethodGet, "/.env", "404"))
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/api/v1/events", "/api/v1/events"},
		{"/api/v1/events/", "/api/v1/events"},
		{"/api/v1/events/01HZX3Y4K6F7G8H9J0K1M2N3PQ", "/api/v1/events/{id}"},
		{"/api/v1/events/01hzx3y4k6f7g8h9j0k1m2n3pq/reviews", "/api/v1/events/{id}/reviews"},
		{"/api/v1/events/01HZX3Y4K6F7G8H9J0K1M2N3PQ/rsvp/01HZX3Y4K6F7G8H9J0K1M2N3PR", "/api/v1/events/{id}/rsvp/{id}"},
		{"/api/v1/users/me", "/api/v1/users/me"},
		{"/api/v1/users/alice", "/api/v1/users/{username}"},
		{"/api/v1/users/01HZX3Y4K6F7G8H9J0K1M2N3PQ", "/api/v1/users/{username}"},
		{"/healthz", "/healthz"},
		{"/", "unmatched"},
		{"", "unmatched"},
		{"/wp-admin/setup.php", "unmatched"},
		{"/api/v1/events/not-an-id", "unmatched"},
		{"/api/v1/users/alice/extra", "unmatched"},
		{"/api/v1/events/01HZX3Y4K6F7G8H9J0K1M2N3PQ/unknown", "unmatched"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, RouteLabel(tt.input))
		})
	}
}

func TestRecordWrite(t *testing.T) {
	before := testutil.ToFloat64(DomainWrites.WithLabelValues("review", "create"))
	RecordWrite("review", "create")
	require.Equal(t, before+1, testutil.ToFloat64(DomainWrites.WithLabelValues("review", "create")))
}

func TestRecordQuery_ClassifiesErrors(t *testing.T) {
	RecordQuery("test_select", time.Now(), nil)
	RecordQuery("test_select", time.Now(), pgx.ErrNoRows)
	require.Equal(t, float64(0), testutil.ToFloat64(DBErrors.WithLabelValues("test_select", "query_error")))

	RecordQuery("test_insert", time.Now(), &pgconn.PgError{Code: "23505"})
	RecordQuery("test_insert", time.Now(), context.Canceled)
	RecordQuery("test_insert", time.Now(), errors.New("boom"))

	require.Equal(t, float64(1), testutil.ToFloat64(DBErrors.WithLabelValues("test_insert", "constraint")))
	require.Equal(t, float64(1), testutil.ToFloat64(DBErrors.WithLabelValues("test_insert", "canceled")))
	require.Equal(t, float64(1), testutil.ToFloat64(DBErrors.WithLabelValues("test_insert", "query_error")))
}

func TestDBCollector_NilPool(t *testing.T) {
	collector := NewDBCollector(nil)
	collector.collect()
	collector.Stop()
	collector.Stop()
}

func TestHandler_ServesRegistry(t *testing.T) {
	RecordWrite("event", "create")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, string(body), "gatherings_domain_writes_total")
}
