package core

import "fmt"

// RequestError is a malformed envelope. It maps to HTTP 400.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// ConfigError means a required server-side credential is absent. It is
// reported before any upstream call.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("API configuration error: %s is not configured", e.Setting)
}

// UpstreamError wraps a failure reported by the completion provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API Error: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
