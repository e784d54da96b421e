package models

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure that crosses the pipeline boundary. No raw
// provider error is allowed out untranslated.
type Kind string

const (
	ConfigurationError    Kind = "configuration_error"
	EmbeddingFailure      Kind = "embedding_failure"
	CollectionUnavailable Kind = "collection_unavailable"
	NoRelevantContext     Kind = "no_relevant_context"
	InsufficientContext   Kind = "insufficient_context"
	GenerationFailure     Kind = "generation_failure"
	AuthError             Kind = "auth_error"
	BadRequestError       Kind = "bad_request_error"
	RateLimitError        Kind = "rate_limit_error"
	TimeoutError          Kind = "timeout_error"
	UnknownError          Kind = "unknown_error"
)

// Error is a kind-tagged error wrapping its cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a kind-tagged error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the Kind of err, or UnknownError if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}

// IsKind reports whether err is tagged with the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ClassifyProviderError maps a generative-model provider error onto the
// taxonomy by status/substring inspection. Used for transparent surfacing
// only, never for retry decisions.
func ClassifyProviderError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "context canceled"):
		return NewError(TimeoutError, "provider call timed out", err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "authentication"):
		return NewError(AuthError, "provider rejected credentials", err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return NewError(RateLimitError, "provider is throttling requests", err)
	case strings.Contains(msg, "400") || strings.Contains(msg, "bad request") || strings.Contains(msg, "model not found") || strings.Contains(msg, "invalid model"):
		return NewError(BadRequestError, "provider rejected the request", err)
	default:
		return NewError(UnknownError, err.Error(), err)
	}
}
