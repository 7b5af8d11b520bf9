// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
//
// The one deliberate exception to fail-fast is the inference endpoint URL:
// its absence is a runtime condition the form surfaces as a persistent
// warning and a disabled-submit reason, not a startup error.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Inference InferenceConfig
	Upload    UploadConfig
	Session   SessionConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0,
	// disabled so slow extraction calls can finish streaming back)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// InferenceConfig holds settings for the remote extraction endpoint.
type InferenceConfig struct {
	// URL is the extraction endpoint. Optional: when unset, the form shows a
	// configuration warning and submission stays disabled.
	URL string `env:"INFERENCE_URL"`

	// Timeout is the per-call HTTP timeout (default: 2m; extraction over
	// large attachments is slow)
	Timeout time.Duration `env:"INFERENCE_TIMEOUT" default:"2m"`

	// MaxConcurrent caps extraction calls in flight across all sessions (default: 4)
	MaxConcurrent int `env:"INFERENCE_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a submission waits for a call slot (default: 15s)
	MaxWaitTime time.Duration `env:"INFERENCE_MAX_WAIT_TIME" default:"15s"`

	// DefaultModel is used when a submission names no model (default: gemini-2.5-flash)
	DefaultModel string `env:"DEFAULT_MODEL" default:"gemini-2.5-flash"`

	// DefaultSystemInstruction is applied when the user leaves the system
	// instruction empty.
	DefaultSystemInstruction string `env:"DEFAULT_SYSTEM_INSTRUCTION" default:"Do not make up data. Use null if information is missing. Respond strictly matching the provided schema."`

	// DefaultLocale is used when a submission names no locale (default: en)
	DefaultLocale string `env:"DEFAULT_LOCALE" default:"en"`
}

// UploadConfig holds file staging settings.
type UploadConfig struct {
	// MaxTotalBytes is the aggregate staged-file byte budget per session
	// (default: 20MiB)
	MaxTotalBytes int64 `env:"UPLOAD_MAX_TOTAL_BYTES" default:"20971520"`
}

// SessionConfig holds form session lifecycle settings.
type SessionConfig struct {
	// IdleTTL is how long an untouched session lives (default: 30m)
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" default:"30m"`

	// SweepInterval is how often expired sessions are collected (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// DatabaseConfig holds settings for the optional submission audit database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Optional: when unset, the
	// submission audit log is disabled.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`
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
