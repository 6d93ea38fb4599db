package client

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SessionConfig represents configuration for a manager session
type SessionConfig struct {
	BaseURL      string        `json:"base_url"`
	Timeout      time.Duration `json:"timeout"`
	MaxIdleConns int           `json:"max_idle_conns"`
	UserAgent    string        `json:"user_agent"`
	Verbose      bool          `json:"verbose"` // Log method, path and status of every request
}

// DefaultSessionConfig returns a default session configuration
func DefaultSessionConfig(baseURL string) *SessionConfig {
	return &SessionConfig{
		BaseURL:      baseURL,
		Timeout:      30 * time.Second,
		MaxIdleConns: 16,
		UserAgent:    "deployments-sdk-go/0.1.0",
	}
}

// ValidateSessionConfig validates a session configuration
func ValidateSessionConfig(cfg *SessionConfig) error {
	if cfg == nil {
		return ErrInvalidConfig
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base URL %q is not absolute", ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *SessionConfig) baseURL() string {
	return strings.TrimSuffix(c.BaseURL, "/")
}
