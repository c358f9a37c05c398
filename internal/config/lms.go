package config

import (
	"strings"
	"time"
)

// LMSConfig holds settings for the upstream LMS REST API
type LMSConfig struct {
	BaseURL    string        `json:"baseUrl"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"maxRetries"`
	// BaseBackoff is doubled on every retry of a rate-limited or failed request
	BaseBackoff time.Duration `json:"baseBackoff"`
}

// DefaultLMSConfig returns the defaults used when nothing is configured
func DefaultLMSConfig() LMSConfig {
	return LMSConfig{
		BaseURL:     "http://localhost:3000/api",
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		BaseBackoff: 500 * time.Millisecond,
	}
}

// Endpoint joins the base URL and an API path
func (c LMSConfig) Endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
