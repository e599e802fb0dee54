// Package config loads the configuration of a tutordb data directory from
// config.json and .env.
package config

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	fileName = "config.json"
	envName  = ".env"
)

// Environment keys read from .env.
const (
	EnvFixture    = "TUTORDB_FIXTURE"
	EnvLogLevel   = "TUTORDB_LOG_LEVEL"
	EnvPageSize   = "TUTORDB_PAGE_SIZE"
	EnvSessionTTL = "TUTORDB_SESSION_TTL"
)

// Config stores the settings of a data directory.
// Loaded from config.json, created with defaults if missing.
type Config struct {
	// JWTSecret signs session tokens.
	// Auto-generated if empty on first load.
	JWTSecret []byte `json:"jwt_secret"`

	// PageSize is the number of listings shown per page.
	PageSize int `json:"page_size"`

	// SessionTTLMinutes is the lifetime of a session token.
	SessionTTLMinutes int `json:"session_ttl_minutes"`

	// FixtureURL is the bootstrap fixture fetched when the store is empty. It
	// is either an http(s) URL or a local path.
	FixtureURL string `json:"fixture_url"`

	// LogLevel is only set from .env; it is not persisted.
	LogLevel string `json:"-"`
}

// Default returns the default configuration without a secret.
func Default() Config {
	return Config{
		PageSize:          6,
		SessionTTLMinutes: 7 * 24 * 60, // one week
	}
}

// SessionTTL returns the token lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return errors.New("jwt_secret is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	if c.PageSize <= 0 {
		return errors.New("page_size must be positive")
	}
	if c.SessionTTLMinutes <= 0 {
		return errors.New("session_ttl_minutes must be positive")
	}
	return nil
}

// Load loads configuration from dataDir/config.json, then applies
// dataDir/.env on top of it.
// Creates config.json with defaults if it doesn't exist.
// Auto-generates JWTSecret if empty.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, fileName)

	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config.json: %w", err)
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.json: %w", err)
	}

	modified := false
	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.JWTSecret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		modified = true
	}

	if modified || errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	}

	env, err := ReadEnv(dataDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, fmt.Errorf("invalid .env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config.json: %w", err)
	}
	return &cfg, nil
}

// ReadEnv parses dataDir/.env without modifying the process environment. A
// missing file yields an empty map.
func ReadEnv(dataDir string) (map[string]string, error) {
	env, err := godotenv.Read(filepath.Join(dataDir, envName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return env, nil
}

// ApplyEnv overrides the settings present in env. Unknown keys are ignored.
func (c *Config) ApplyEnv(env map[string]string) error {
	if v, ok := env[EnvFixture]; ok {
		c.FixtureURL = v
	}
	if v, ok := env[EnvLogLevel]; ok {
		c.LogLevel = v
	}
	if v, ok := env[EnvPageSize]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPageSize, err)
		}
		c.PageSize = n
	}
	if v, ok := env[EnvSessionTTL]; ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSessionTTL, err)
		}
		c.SessionTTLMinutes = int(d / time.Minute)
	}
	return nil
}

// Save saves configuration to dataDir/config.json.
func (c *Config) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dataDir, fileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config.json: %w", err)
	}
	return nil
}
