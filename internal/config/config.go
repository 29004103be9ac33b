// Package config holds the settings shared by the scout commands, their
// defaults and validation.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// AuthType selects how requests authenticate
type AuthType string

const (
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api-key"
)

// BasicAuth contains HTTP Basic Authentication credentials
type BasicAuth struct {
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
	UsernameEnv string `mapstructure:"username_env" yaml:"username_env"` // Environment variable for username
	PasswordEnv string `mapstructure:"password_env" yaml:"password_env"` // Environment variable for password
}

// BearerAuth contains a bearer token
type BearerAuth struct {
	Token    string `mapstructure:"token" yaml:"token"`
	TokenEnv string `mapstructure:"token_env" yaml:"token_env"`
}

// APIKeyAuth sends a key in a named header
type APIKeyAuth struct {
	Header   string `mapstructure:"header" yaml:"header"`
	Value    string `mapstructure:"value" yaml:"value"`
	ValueEnv string `mapstructure:"value_env" yaml:"value_env"`
}

// Auth contains authentication configuration
type Auth struct {
	Type   AuthType    `mapstructure:"type" yaml:"type"`
	Basic  *BasicAuth  `mapstructure:"basic" yaml:"basic,omitempty"`
	Bearer *BearerAuth `mapstructure:"bearer" yaml:"bearer,omitempty"`
	APIKey *APIKeyAuth `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// Config holds every scout setting
type Config struct {
	// Crawling
	MaxPages        int           `mapstructure:"max_pages" yaml:"max_pages"`             // Records before the frontier closes
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency"`         // Number of concurrent workers
	MaxDepth        int           `mapstructure:"max_depth" yaml:"max_depth"`             // Deepest hop followed (0=unlimited)
	RequestDelay    time.Duration `mapstructure:"request_delay" yaml:"request_delay"`     // Delay between requests to one host
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	MaxBodySize     int64         `mapstructure:"max_body_size" yaml:"max_body_size"`     // Bytes read per response
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	RespectRobots   bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	TagsToRemove    []string      `mapstructure:"tags_to_remove" yaml:"tags_to_remove"`
	IncludePatterns []string      `mapstructure:"include_patterns" yaml:"include_patterns"` // Regex patterns for URLs to include
	ExcludePatterns []string      `mapstructure:"exclude_patterns" yaml:"exclude_patterns"` // Regex patterns for URLs to exclude
	Headers         []string      `mapstructure:"headers" yaml:"headers"`                   // "Name: Value" request headers
	Auth            *Auth         `mapstructure:"auth" yaml:"auth,omitempty"`

	// Parsing
	Mode     string `mapstructure:"mode" yaml:"mode"`         // html or xml
	Encoding string `mapstructure:"encoding" yaml:"encoding"` // Source charset hint, empty to detect

	// Output
	Format       string `mapstructure:"format" yaml:"format"`
	Indent       string `mapstructure:"indent" yaml:"indent"`
	HeadingStyle string `mapstructure:"heading_style" yaml:"heading_style"`

	// Storage; an empty path disables persistence
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		MaxPages:       50,
		Concurrency:    4,
		RequestTimeout: 30 * time.Second,
		MaxBodySize:    10 << 20,
		UserAgent:      "scout/1.0",
		RespectRobots:  true,
		Mode:           "html",
		Format:         "json",
		Indent:         "  ",
		HeadingStyle:   "atx",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

var formats = []string{"json", "markdown", "pretty", "html", "text"}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}

	switch strings.ToLower(c.Mode) {
	case "html", "xml":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if !slices.Contains(formats, strings.ToLower(c.Format)) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	switch strings.ToLower(c.HeadingStyle) {
	case "", "atx", "setext":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHeadingStyle, c.HeadingStyle)
	}

	if _, err := c.ParseHeaders(); err != nil {
		return err
	}
	if c.Auth != nil {
		switch c.Auth.Type {
		case AuthBasic, AuthBearer, AuthAPIKey, "":
		default:
			return fmt.Errorf("%w: %q", ErrInvalidAuthType, c.Auth.Type)
		}
	}
	return nil
}

// ParseHeaders splits Headers into a name to value map
func (c *Config) ParseHeaders() (map[string]string, error) {
	headers := make(map[string]string, len(c.Headers))
	for _, h := range c.Headers {
		name, value, ok := strings.Cut(h, ":")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, h)
		}
		headers[name] = value
	}
	return headers, nil
}

// GetBasicAuthCredentials returns the basic auth username and password,
// resolving environment variables if specified
func (c *Config) GetBasicAuthCredentials() (username, password string) {
	if c.Auth == nil || c.Auth.Basic == nil {
		return "", ""
	}
	basic := c.Auth.Basic
	return fromEnv(basic.UsernameEnv, basic.Username), fromEnv(basic.PasswordEnv, basic.Password)
}

// GetBearerToken returns the bearer token, resolving TokenEnv if set
func (c *Config) GetBearerToken() string {
	if c.Auth == nil || c.Auth.Bearer == nil {
		return ""
	}
	return fromEnv(c.Auth.Bearer.TokenEnv, c.Auth.Bearer.Token)
}

// GetAPIKeyCredentials returns the API key header and value, resolving ValueEnv if set
func (c *Config) GetAPIKeyCredentials() (header, value string) {
	if c.Auth == nil || c.Auth.APIKey == nil {
		return "", ""
	}
	return c.Auth.APIKey.Header, fromEnv(c.Auth.APIKey.ValueEnv, c.Auth.APIKey.Value)
}

// fromEnv prefers the named environment variable over the literal value
func fromEnv(name, literal string) string {
	if name != "" {
		return os.Getenv(name)
	}
	return literal
}
