package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/memora/internal/api"
	"github.com/starford/memora/internal/ratelimit"
)

// DefaultUserID is the identity used when authentication is disabled.
const DefaultUserID = "local"

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	MCP       MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if c.MCP.UserID == "" {
		c.MCP.UserID = c.Auth.UserID
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how callers are identified:
//   - "disabled" (default): every request acts as UserID, suitable for local use.
//   - "token": a static Bearer token; the holder acts as UserID.
//   - "jwt": HS256 tokens signed with JWTSecret; the "sub" claim is the user.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Token     string `yaml:"token"`
	UserID    string `yaml:"user_id"`
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = api.AuthModeDisabled
	}
	if c.UserID == "" {
		c.UserID = DefaultUserID
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(api.AuthModeDisabled, api.AuthModeToken, api.AuthModeJWT)),
		validation.Field(&c.JWTSecret, validation.When(c.Mode == api.AuthModeJWT, validation.Required, validation.Length(16, 0))),
	); err != nil {
		return err
	}
	if c.Mode == api.AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", api.AuthModeToken)
	}
	return nil
}

// API converts the config into the router's auth settings.
func (c *AuthConfig) API() api.AuthConfig {
	return api.AuthConfig{
		Mode:      c.Mode,
		Token:     c.Token,
		UserID:    c.UserID,
		JWTSecret: c.JWTSecret,
		JWTIssuer: c.JWTIssuer,
	}
}

// RateLimitConfig controls per-caller request throttling.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RequestsPerMinute, validation.When(c.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// Settings returns the limiter settings.
func (c *RateLimitConfig) Settings() ratelimit.Settings {
	return ratelimit.Settings{RequestsPerMinute: c.RequestsPerMinute, Burst: c.Burst}
}

// MCPConfig holds settings for the MCP stdio server.
type MCPConfig struct {
	// UserID is the identity MCP tool calls act as; defaults to auth.user_id.
	UserID string `yaml:"user_id"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./memora.db",
		},
		Auth: AuthConfig{
			Mode:   api.AuthModeDisabled,
			UserID: DefaultUserID,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 100,
			Burst:             20,
		},
	}
}
