package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/subosito/gotenv"
)

// Environment variables that point at optional config sources.
const (
	EnvPrefix  = "FEEDLENS_"
	EnvConfig  = EnvPrefix + "CONFIG"
	EnvEnvFile = EnvPrefix + "ENV_FILE"
)

// Load builds a Config by layering defaults, optional files, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. dotenv file if FEEDLENS_ENV_FILE is set
//  3. YAML file if FEEDLENS_CONFIG is set (the dotenv file may name it)
//  4. env (prefix FEEDLENS_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	configPath := os.Getenv(EnvConfig)
	if path := os.Getenv(EnvEnvFile); path != "" {
		dotenv, err := gotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, path, err)
		}
		if configPath == "" {
			configPath = dotenv[EnvConfig]
		}
		if err := k.Load(confmap.Provider(dotenvKeys(dotenv), "."), nil); err != nil {
			return nil, fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, path, err)
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, configPath, err)
		}
	}

	// FEEDLENS_BACKEND_URL -> backend_url. Underscores are kept so keys match
	// the flat koanf tags on the struct.
	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps FEEDLENS_SAMPLE_LIMIT to sample_limit.
func envKey(s string) string {
	return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
}

// dotenvKeys keeps the FEEDLENS_ entries of a dotenv file, keyed like the env layer.
func dotenvKeys(vars gotenv.Env) map[string]any {
	out := make(map[string]any, len(vars))
	for name, val := range vars {
		if strings.HasPrefix(name, EnvPrefix) {
			out[envKey(name)] = val
		}
	}
	return out
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.BackendURL) == "":
		return fmt.Errorf("%w: backend_url must not be empty", ErrInvalidConfig)
	case c.KeywordLimit < 1:
		return fmt.Errorf("%w: keyword_limit must be positive", ErrInvalidConfig)
	case c.SampleLimit < 1:
		return fmt.Errorf("%w: sample_limit must be positive", ErrInvalidConfig)
	case c.SampleRows < 1:
		return fmt.Errorf("%w: sample_rows must be positive", ErrInvalidConfig)
	case c.RedirectDelayMS < 0:
		return fmt.Errorf("%w: redirect_delay_ms must not be negative", ErrInvalidConfig)
	case c.MaxUploadBytes < 1:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	}

	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: backend_url must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.BackendURL)
	}
	return nil
}
