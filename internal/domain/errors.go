package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotConfigured indicates a required credential or endpoint is missing
	ErrNotConfigured = errors.New("not configured")
	// ErrUpstream indicates a provider answered with a non-success status
	ErrUpstream = errors.New("upstream error")
)

// ConfigError names the configuration value that is missing
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not set", e.Key)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}

// UpstreamError carries a provider's failure status
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error: %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error: %d %s", e.Provider, e.StatusCode, e.Message)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// EmbeddingError is returned by the embedding gateway
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return "failed to generate embeddings: " + e.Err.Error() }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// SearchError is returned by the vector search gateway
type SearchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SearchError) Error() string {
	msg := "vector search failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *SearchError) Unwrap() error { return e.Err }

// CompletionError is returned by the chat completion gateway
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string { return "chat completion failed: " + e.Err.Error() }
func (e *CompletionError) Unwrap() error { return e.Err }

// SpeechError is returned by the speech gateway
type SpeechError struct {
	StatusCode int
	Err        error
}

func (e *SpeechError) Error() string { return "speech request failed: " + e.Err.Error() }
func (e *SpeechError) Unwrap() error { return e.Err }

// OrchestrationError wraps the first failing step of an answer run
type OrchestrationError struct {
	Step string
	Err  error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("failed to generate answer at %s: %v", e.Step, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// Invalid wraps a validation message so it matches ErrInvalidRequest
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
