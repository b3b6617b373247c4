package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectError    bool
	}{
		{
			name:           "help flag",
			args:           []string{"--help"},
			expectedOutput: "Gatherings server",
		},
		{
			name:           "short help flag",
			args:           []string{"-h"},
			expectedOutput: "Gatherings server",
		},
		{
			name:           "invalid flag",
			args:           []string{"--invalid-flag"},
			expectedOutput: "unknown flag: --invalid-flag",
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !strings.Contains(output, tt.expectedOutput) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.expectedOutput, output)
			}
		})
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	cmd := newRootCommand()

	for _, flag := range []string{"config", "log-level", "log-format"} {
		if f := cmd.PersistentFlags().Lookup(flag); f == nil {
			t.Errorf("expected persistent flag %q to be defined", flag)
		}
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	cmd := newRootCommand()

	for _, name := range []string{"serve", "migrate", "users", "token", "healthcheck", "version"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", memoryDatabaseURL)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("LOG_LEVEL", "info")

	opts := &rootOptions{logLevel: "debug", logFormat: "console"}
	cfg, err := opts.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("flag overrides not applied: %+v", cfg.Logging)
	}
}

func TestLoadConfigMissingSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", memoryDatabaseURL)
	t.Setenv("JWT_SECRET", "")

	_, err := (&rootOptions{}).loadConfig()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestUsersCreateInMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", memoryDatabaseURL)
	t.Setenv("JWT_SECRET", "test-secret")

	output, err := execute(t, "users", "create", "--username", "alice", "--password", "correct horse battery")
	if err != nil {
		t.Fatalf("users create: %v\n%s", err, output)
	}
	if !strings.Contains(output, "created user alice") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestUsersCreateRejectsShortPassword(t *testing.T) {
	t.Setenv("DATABASE_URL", memoryDatabaseURL)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GATHERINGS_PASSWORD", "")

	_, err := execute(t, "users", "create", "--username", "alice", "--password", "short")
	if err == nil || !strings.Contains(err.Error(), "password") {
		t.Fatalf("expected password error, got %v", err)
	}
}

func TestTokenUnknownUser(t *testing.T) {
	t.Setenv("DATABASE_URL", memoryDatabaseURL)
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := execute(t, "token", "--username", "nobody")
	if err == nil || !strings.Contains(err.Error(), "no such user") {
		t.Fatalf("expected unknown user error, got %v", err)
	}
}

func TestMigrateRequiresPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", memoryDatabaseURL)
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := execute(t, "migrate", "up")
	if err == nil || !strings.Contains(err.Error(), "PostgreSQL") {
		t.Fatalf("expected PostgreSQL error, got %v", err)
	}
}

func TestOpenRepositoryRefusesMemoryInProduction(t *testing.T) {
	t.Setenv("DATABASE_URL", memoryDatabaseURL)
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://gatherings.example")

	_, err := execute(t, "token", "--username", "alice")
	if err == nil || !strings.Contains(err.Error(), "production") {
		t.Fatalf("expected production error, got %v", err)
	}
}
