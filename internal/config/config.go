// Package config loads the service configuration from environment variables.
// Defaults are applied for unset values and the result is validated on
// startup so a misconfigured server fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Artifacts ArtifactConfig
	Fetch     FetchConfig
	Card      CardConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including load drain (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects and configures the run store.
type StoreConfig struct {
	// Driver is one of sqlite, postgres, memory (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	// DSN is the connection string. For sqlite it is a file path or
	// "file:" URI; for postgres a postgres:// URL.
	DSN string `env:"STORE_DSN" envAlt:"DATABASE_URL" default:"csvcard.db"`

	// SeedFile is an optional YAML file of runs loaded at startup
	SeedFile string `env:"STORE_SEED_FILE"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ArtifactConfig holds settings for serving and reaching run artifacts.
type ArtifactConfig struct {
	// RootDir is where local artifact paths are resolved (default: ./artifacts)
	RootDir string `env:"ARTIFACT_ROOT" default:"./artifacts"`

	// BaseURL is where the card reaches the artifact endpoint. Empty means
	// this server's own listen address.
	BaseURL string `env:"ARTIFACT_BASE_URL"`

	// S3Region enables s3:// artifact URIs when set
	S3Region string `env:"ARTIFACT_S3_REGION" envAlt:"AWS_REGION"`

	// S3Endpoint overrides the S3 endpoint (MinIO, LocalStack)
	S3Endpoint string `env:"ARTIFACT_S3_ENDPOINT"`

	// S3PathStyle forces path-style addressing (default: false)
	S3PathStyle bool `env:"ARTIFACT_S3_PATH_STYLE" default:"false"`
}

// FetchConfig holds settings for loading CSV artifacts.
type FetchConfig struct {
	// Timeout bounds a single artifact load (default: 30s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"30s"`

	// MaxBytes caps fetched and uploaded files (default: 32MB)
	MaxBytes int64 `env:"FETCH_MAX_BYTES" default:"33554432"`

	// UserAgent is sent on every fetch (default: csvcard/1.0)
	UserAgent string `env:"FETCH_USER_AGENT" default:"csvcard/1.0"`

	// RequestsPerSecond limits fetches per host; 0 disables (default: 20)
	RequestsPerSecond float64 `env:"FETCH_RPS" default:"20"`

	// Burst is the per-host token bucket size (default: 10)
	Burst int `env:"FETCH_BURST" default:"10"`

	// CacheTTL keeps successful remote bodies; 0 disables (default: 5m)
	CacheTTL time.Duration `env:"FETCH_CACHE_TTL" default:"5m"`

	// MaxConcurrent bounds loads across all cards (default: 8)
	MaxConcurrent int `env:"FETCH_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long a load waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"FETCH_MAX_WAIT_TIME" default:"30s"`

	// MaxParallel bounds the fan-out of a single card (default: 4)
	MaxParallel int `env:"FETCH_MAX_PARALLEL" default:"4"`
}

// CardConfig holds mounted card settings.
type CardConfig struct {
	// TTL is how long an idle card stays mounted (default: 30m)
	TTL time.Duration `env:"CARD_TTL" default:"30m"`

	// PollInterval is how often the card refreshes while loading (default: 1s)
	PollInterval time.Duration `env:"CARD_POLL_INTERVAL" default:"1s"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit is requests per minute for upload endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the artifact endpoint (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys. The first one is
	// also used by the card when it calls the artifact endpoint.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ArtifactBaseURL returns where the card should call the artifact endpoint.
func (c *Config) ArtifactBaseURL() string {
	if c.Artifacts.BaseURL != "" {
		return c.Artifacts.BaseURL
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + host + ":" + strconv.Itoa(c.Server.Port)
}

// LocalAPIKey returns the key the card presents to the artifact endpoint,
// or "" when the endpoint is open.
func (c *Config) LocalAPIKey() string {
	if !c.Security.RequireAPIKey || len(c.Security.APIKeys) == 0 {
		return ""
	}
	return c.Security.APIKeys[0]
}

// LoadTimeout bounds one artifact load: the wait for a load slot plus the
// fetch itself.
func (c *FetchConfig) LoadTimeout() time.Duration {
	return c.MaxWaitTime + c.Timeout
}
