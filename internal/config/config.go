// Package config defines the frontend configuration and its loader.
//
// Conventions:
//   - New(ctx) returns a Config holding every default.
//   - Load(ctx) layers dotenv, YAML and environment on top of New.
//   - Errors are wrapped with ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text, json or tint.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL of the analysis backend.
	BackendURL string `koanf:"backend_url"`

	// KeywordLimit is the limit passed to GET /keywords.
	KeywordLimit int `koanf:"keyword_limit"`

	// SampleLimit is the limit passed to GET /sample-feedback.
	SampleLimit int `koanf:"sample_limit"`

	// SampleRows caps the rows shown in the dashboard sample table.
	SampleRows int `koanf:"sample_rows"`

	// RedirectDelayMS is the pause between a successful upload and the
	// redirect to the dashboard.
	RedirectDelayMS int `koanf:"redirect_delay_ms"`

	// MaxUploadBytes bounds the multipart body accepted on POST /upload.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// SubmissionCacheSize bounds the number of remembered upload form tokens.
	SubmissionCacheSize int `koanf:"submission_cache_size"`
}

// New creates a Config populated with defaults. Context is accepted first to
// follow the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":3000",
		BackendURL:          "http://127.0.0.1:8000",
		KeywordLimit:        10,
		SampleLimit:         50,
		SampleRows:          20,
		RedirectDelayMS:     1500,
		MaxUploadBytes:      32 << 20,
		SubmissionCacheSize: 10_000,
	}
}

// RedirectDelay returns RedirectDelayMS as a duration.
func (c *Config) RedirectDelay() time.Duration {
	return time.Duration(c.RedirectDelayMS) * time.Millisecond
}
