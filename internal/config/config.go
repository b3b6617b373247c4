package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Togather-Foundation/gatherings/internal/validation"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	CORS        CORSConfig      `yaml:"cors"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Environment string          `yaml:"environment"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections"`
	MigrationsPath string `yaml:"migrations_path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`
	JWTIssuer string        `yaml:"jwt_issuer"`
}

type RateLimitConfig struct {
	PublicPerMinute        int      `yaml:"public_per_minute"`
	AuthenticatedPerMinute int      `yaml:"authenticated_per_minute"`
	LoginPer15Minutes      int      `yaml:"login_per_15_minutes"`
	TrustedProxyCIDRs      []string `yaml:"trusted_proxy_cidrs"`
}

type CORSConfig struct {
	AllowAllOrigins bool     `yaml:"allow_all_origins"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Load reads configuration from the environment (and a .env file in the
// working directory when present).
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile layers configuration as defaults, then the YAML file at path (if
// any), then environment variables.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			MaxConnections: 25,
			MigrationsPath: "internal/storage/postgres/migrations",
		},
		Auth: AuthConfig{
			JWTExpiry: 24 * time.Hour,
			JWTIssuer: "gatherings",
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:        60,
			AuthenticatedPerMinute: 300,
			LoginPer15Minutes:      5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter:     "stdout",
			ServiceName:  "gatherings",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Environment: "development",
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.BaseURL, "SERVER_BASE_URL")

	setString(&cfg.Database.URL, "DATABASE_URL")
	setInt(&cfg.Database.MaxConnections, "DATABASE_MAX_CONNECTIONS")
	setString(&cfg.Database.MigrationsPath, "DATABASE_MIGRATIONS_PATH")

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	if hours := getEnvInt("JWT_EXPIRY_HOURS", 0); hours > 0 {
		cfg.Auth.JWTExpiry = time.Duration(hours) * time.Hour
	}
	setString(&cfg.Auth.JWTIssuer, "JWT_ISSUER")

	setInt(&cfg.RateLimit.PublicPerMinute, "RATE_LIMIT_PUBLIC")
	setInt(&cfg.RateLimit.AuthenticatedPerMinute, "RATE_LIMIT_AUTHENTICATED")
	setInt(&cfg.RateLimit.LoginPer15Minutes, "RATE_LIMIT_LOGIN")
	setList(&cfg.RateLimit.TrustedProxyCIDRs, "TRUSTED_PROXY_CIDRS")

	setString(&cfg.Environment, "ENVIRONMENT")

	setList(&cfg.CORS.AllowedOrigins, "CORS_ALLOWED_ORIGINS")
	if value, ok := os.LookupEnv("CORS_ALLOW_ALL"); ok {
		cfg.CORS.AllowAllOrigins = parseBool(value, cfg.CORS.AllowAllOrigins)
	} else if cfg.Environment == "development" && len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowAllOrigins = true
	}

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if value, ok := os.LookupEnv("TRACING_ENABLED"); ok {
		cfg.Tracing.Enabled = parseBool(value, cfg.Tracing.Enabled)
	}
	setString(&cfg.Tracing.Exporter, "TRACING_EXPORTER")
	setString(&cfg.Tracing.ServiceName, "TRACING_SERVICE_NAME")
	setString(&cfg.Tracing.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if value := os.Getenv("TRACING_SAMPLE_RATE"); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			cfg.Tracing.SampleRate = parsed
		}
	}
}

func (c Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if err := validation.ValidateBaseURL(c.Server.BaseURL, "base_url", false); err != nil {
		return fmt.Errorf("invalid SERVER_BASE_URL: %w", err)
	}
	if c.Environment == "production" {
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if !c.CORS.AllowAllOrigins && len(c.CORS.AllowedOrigins) == 0 {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
		}
	}
	return nil
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "test"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func setString(dst *string, key string) {
	*dst = getEnv(key, *dst)
}

func setInt(dst *int, key string) {
	*dst = getEnvInt(key, *dst)
}

func setList(dst *[]string, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	*dst = items
}

func parseBool(value string, fallback bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
