package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches the body of /healthz and /readyz.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthyStatuses are the status values reported by a serving instance.
var healthyStatuses = map[string]bool{"ok": true, "ready": true}

func newHealthcheckCommand() *cobra.Command {
	var (
		timeout int
		url     string
		ready   bool
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling /healthz (or /readyz with --ready).

This command is used by container HEALTHCHECK directives. It exits with a
non-zero code when the server is unhealthy, unreachable or answers with an
unexpected body.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = defaultHealthURL(ready)
			}
			status, err := performHealthCheck(cmd.Context(), url, time.Duration(timeout)*time.Second)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", status)
			return nil
		},
	}
	cmd.Flags().IntVar(&timeout, "timeout", 5, "timeout in seconds")
	cmd.Flags().StringVar(&url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/healthz)")
	cmd.Flags().BoolVar(&ready, "ready", false, "check readiness (database included) instead of liveness")
	return cmd
}

func defaultHealthURL(ready bool) string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	path := "/healthz"
	if ready {
		path = "/readyz"
	}
	return fmt.Sprintf("http://localhost:%s%s", port, path)
}

// performHealthCheck returns the reported status, or an error when the server
// is unreachable or not healthy.
func performHealthCheck(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("parse health check response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return body.Status, fmt.Errorf("unhealthy: status %d (%s)", resp.StatusCode, body.Status)
	}
	if !healthyStatuses[body.Status] {
		return body.Status, fmt.Errorf("unhealthy: status=%s", body.Status)
	}
	return body.Status, nil
}
