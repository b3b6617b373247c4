package cmd

import (
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origGitCommit, origBuildDate := Version, GitCommit, BuildDate
	defer func() {
		Version, GitCommit, BuildDate = origVersion, origGitCommit, origBuildDate
	}()

	Version = "1.0.0"
	GitCommit = "abc123"
	BuildDate = "2026-01-27T12:00:00Z"

	output, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	for _, expected := range []string{
		"Gatherings Server",
		"Version:    1.0.0",
		"Git commit: abc123",
		"Build date: 2026-01-27T12:00:00Z",
		"Go version:",
		"Platform:",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected output to contain %q, got:\n%s", expected, output)
		}
	}
}

func TestVersionCommandDefaultValues(t *testing.T) {
	if Version != "dev" || GitCommit != "unknown" || BuildDate != "unknown" {
		t.Skip("version variables were set via ldflags")
	}

	output, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(output, "Version:    dev") {
		t.Errorf("expected default version, got:\n%s", output)
	}
}
