package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/metrics"
)

// Pinger is the storage dependency the readiness check exercises.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck represents the readiness status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthChecker struct {
	store     Pinger
	version   string
	gitCommit string
	timeout   time.Duration
}

func NewHealthChecker(store Pinger, version, gitCommit string) *HealthChecker {
	if version == "" {
		version = "dev"
	}
	if gitCommit == "" {
		gitCommit = "unknown"
	}
	return &HealthChecker{store: store, version: version, gitCommit: gitCommit, timeout: 2 * time.Second}
}

// Healthz is the liveness probe: the process is up and serving.
func (h *HealthChecker) Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Readyz is the readiness probe: storage answers within the timeout.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		default:
		}

		checks := map[string]CheckResult{
			"database": h.checkDatabase(r.Context()),
		}

		status := "ready"
		code := http.StatusOK
		for name, check := range checks {
			value := 1.0
			if check.Status != "pass" {
				value = 0
				status = "unavailable"
				code = http.StatusServiceUnavailable
			}
			metrics.HealthCheckStatus.WithLabelValues(name).Set(value)
		}

		writeJSON(w, code, HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: "fail", Message: "storage not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "database ping failed"
		if errors.Is(err, context.DeadlineExceeded) {
			message = "database ping timed out"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency}
	}
	return CheckResult{Status: "pass", LatencyMs: latency}
}

type versionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// Version reports build metadata set via ldflags.
func (h *HealthChecker) Version() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(versionResponse{
			Version:   h.version,
			GitCommit: h.gitCommit,
			GoVersion: runtime.Version(),
		})
	})
}
