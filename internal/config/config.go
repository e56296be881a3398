package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DatabaseFileName is the SQLite file created inside the data directory.
	DatabaseFileName = "ConcertJournal.db3"

	DefaultUpdateURL  = "https://raw.githubusercontent.com/Teraz6/ConcertJournal/refs/heads/feature-update-notification/update.json"
	DefaultAudioDBURL = "https://www.theaudiodb.com/api/v1/json/123/search.php"
)

// Config holds all application configuration
type Config struct {
	Storage      StorageConfig
	Server       ServerConfig
	CORS         CORSConfig
	Logging      LoggingConfig
	Auth         AuthConfig
	Integrations IntegrationsConfig
	Media        MediaConfig
	Events       EventsConfig
	Metrics      MetricsConfig
}

// StorageConfig locates the journal database.
type StorageConfig struct {
	DataDir     string
	DatabaseURL string // optional; postgres:// selects Postgres
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string
	Port int
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AuthConfig describes the single owner account. An empty PasswordHash
// disables authentication.
type AuthConfig struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

// IntegrationsConfig holds remote endpoints used for update checks and artist artwork.
type IntegrationsConfig struct {
	UpdateURL           string
	AudioDBURL          string
	SpotifyClientID     string
	SpotifyClientSecret string
	HTTPTimeout         time.Duration
}

// MediaConfig selects where concert photos are kept.
type MediaConfig struct {
	Backend         string // local, s3
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// EventsConfig enables forwarding change events to RabbitMQ.
type EventsConfig struct {
	AMQPURL string
	Queue   string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// LoadDotEnv loads variables from the given dotenv files, ignoring missing ones.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.loadStorage()

	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}

	cfg.loadCORS()
	cfg.loadLogging()

	if err := cfg.loadAuth(); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if err := cfg.loadIntegrations(); err != nil {
		return nil, fmt.Errorf("load integrations config: %w", err)
	}

	cfg.loadMedia()
	cfg.loadEvents()
	cfg.Metrics.Enabled = parseBool(getEnvOrDefault("METRICS_ENABLED", "true"))

	return cfg, nil
}

func (c *Config) loadStorage() {
	c.Storage.DataDir = getEnvOrDefault("DATA_DIR", "./data")
	c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	return nil
}

func (c *Config) loadCORS() {
	c.CORS.AllowedOrigins = SplitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))
}

func (c *Config) loadLogging() {
	c.Logging.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	c.Logging.Format = strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json"))
}

func (c *Config) loadAuth() error {
	c.Auth.Username = getEnvOrDefault("AUTH_USERNAME", "owner")
	c.Auth.PasswordHash = os.Getenv("AUTH_PASSWORD_HASH")
	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")

	ttl, err := time.ParseDuration(getEnvOrDefault("AUTH_TOKEN_TTL", "168h"))
	if err != nil {
		return fmt.Errorf("invalid AUTH_TOKEN_TTL: %w", err)
	}
	c.Auth.TokenTTL = ttl
	return nil
}

func (c *Config) loadIntegrations() error {
	c.Integrations.UpdateURL = getEnvOrDefault("UPDATE_URL", DefaultUpdateURL)
	c.Integrations.AudioDBURL = getEnvOrDefault("AUDIODB_URL", DefaultAudioDBURL)
	c.Integrations.SpotifyClientID = os.Getenv("SPOTIFY_CLIENT_ID")
	c.Integrations.SpotifyClientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")

	timeout, err := time.ParseDuration(getEnvOrDefault("HTTP_CLIENT_TIMEOUT", "5s"))
	if err != nil {
		return fmt.Errorf("invalid HTTP_CLIENT_TIMEOUT: %w", err)
	}
	c.Integrations.HTTPTimeout = timeout
	return nil
}

func (c *Config) loadMedia() {
	c.Media.Backend = strings.ToLower(getEnvOrDefault("MEDIA_BACKEND", "local"))
	c.Media.Bucket = getEnvOrDefault("MEDIA_BUCKET", "concert-media")
	c.Media.Endpoint = os.Getenv("S3_ENDPOINT")
	c.Media.Region = getEnvOrDefault("S3_REGION", "us-east-1")
	c.Media.AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	c.Media.SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
}

func (c *Config) loadEvents() {
	c.Events.AMQPURL = os.Getenv("AMQP_URL")
	c.Events.Queue = getEnvOrDefault("EVENTS_QUEUE", "concert.changed")
}

// DatabaseDSN returns DATABASE_URL when set and the SQLite file path otherwise.
func (c *Config) DatabaseDSN() string {
	if c.Storage.DatabaseURL != "" {
		return c.Storage.DatabaseURL
	}
	return filepath.Join(c.Storage.DataDir, DatabaseFileName)
}

// MediaDir is the root of the local media provider.
func (c *Config) MediaDir() string {
	return filepath.Join(c.Storage.DataDir, "media")
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AuthEnabled reports whether the owner login is configured.
func (c *Config) AuthEnabled() bool {
	return c.Auth.PasswordHash != ""
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	if c.Storage.DataDir == "" && c.Storage.DatabaseURL == "" {
		errors = append(errors, "DATA_DIR or DATABASE_URL is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	if c.AuthEnabled() {
		if c.Auth.Username == "" {
			errors = append(errors, "AUTH_USERNAME is required when AUTH_PASSWORD_HASH is set")
		}
		if len(c.Auth.JWTSecret) < 16 {
			errors = append(errors, "JWT_SECRET must be at least 16 characters when auth is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	switch c.Media.Backend {
	case "local":
	case "s3":
		if c.Media.Bucket == "" {
			errors = append(errors, "MEDIA_BUCKET is required for the s3 media backend")
		}
	default:
		errors = append(errors, "MEDIA_BACKEND must be one of: local, s3")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// SplitList splits a comma separated value, trimming blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
