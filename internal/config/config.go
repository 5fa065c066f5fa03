// Package config resolves streamkit endpoint settings from the user
// config file, environment variables, and CLI flags, in ascending
// precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// envEndpoint overrides the endpoint base URL.
	envEndpoint = "STREAMKIT_ENDPOINT"
	// envAPIKey overrides the bearer token.
	envAPIKey = "STREAMKIT_API_KEY"
)

// Endpoint describes the streaming endpoint streamkit connects to.
type Endpoint struct {
	// BaseURL is the endpoint root, e.g. https://api.example.com.
	BaseURL string `json:"base_url"`
	// APIKey is sent as a bearer token when present.
	APIKey string `json:"api_key"`
	// TimeoutMS bounds a whole streaming call in milliseconds;
	// zero disables the watchdog.
	TimeoutMS int `json:"timeout_ms"`
	// MaxRetries is the retry budget after the first attempt.
	MaxRetries int `json:"max_retries"`
	// InitialDelayMS is the first backoff sleep in milliseconds.
	InitialDelayMS int `json:"initial_delay_ms"`
	// MaxDelayMS caps backoff growth in milliseconds.
	MaxDelayMS int `json:"max_delay_ms"`
	// BackoffFactor multiplies the delay between attempts.
	BackoffFactor float64 `json:"backoff_factor"`
}

var (
	// ErrEndpointMissing is returned when no endpoint is configured
	// through any source.
	ErrEndpointMissing = errors.New("endpoint not configured")
)

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".streamkit", "config.json"), nil
}

// Load resolves the endpoint from the config file at path (or the
// default location when path is empty) and applies environment
// overrides. A missing file is not an error; the environment alone can
// carry a complete configuration.
func Load(path string) (*Endpoint, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	endpoint := &Endpoint{}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, endpoint); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to environment resolution.
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if value := os.Getenv(envEndpoint); value != "" {
		endpoint.BaseURL = value
	}
	if value := os.Getenv(envAPIKey); value != "" {
		endpoint.APIKey = value
	}

	if endpoint.BaseURL == "" {
		return nil, ErrEndpointMissing
	}

	applyDefaults(endpoint)
	return endpoint, nil
}

// Defaults returns an endpoint carrying only the default retry tuning,
// for callers that resolve the base URL from somewhere other than the
// config file.
func Defaults() *Endpoint {
	endpoint := &Endpoint{}
	applyDefaults(endpoint)
	return endpoint
}

// applyDefaults fills retry tuning the endpoint left unset.
func applyDefaults(endpoint *Endpoint) {
	if endpoint.MaxRetries <= 0 {
		endpoint.MaxRetries = 3
	}
	if endpoint.InitialDelayMS <= 0 {
		endpoint.InitialDelayMS = 1000
	}
	if endpoint.MaxDelayMS <= 0 {
		endpoint.MaxDelayMS = 30000
	}
	if endpoint.BackoffFactor <= 1 {
		endpoint.BackoffFactor = 2
	}
}

// Timeout converts the configured call budget to a duration.
func (e *Endpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// InitialDelay converts the first backoff sleep to a duration.
func (e *Endpoint) InitialDelay() time.Duration {
	return time.Duration(e.InitialDelayMS) * time.Millisecond
}

// MaxDelay converts the backoff cap to a duration.
func (e *Endpoint) MaxDelay() time.Duration {
	return time.Duration(e.MaxDelayMS) * time.Millisecond
}
