package genai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrQuotaExceeded means the provider refused for quota or rate reasons
	ErrQuotaExceeded = errors.New("AI token quota exceeded, try again later")

	// ErrUnauthorized means the API key was missing, invalid or lacks access
	ErrUnauthorized = errors.New("AI provider rejected the API key")

	// ErrNoAPIKey means no key could be found in env or settings
	ErrNoAPIKey = errors.New("AI API key is not configured")

	// ErrEmptyResponse means the provider answered without any text
	ErrEmptyResponse = errors.New("AI provider returned no content")
)

// APIError is a provider error response
type APIError struct {
	StatusCode int
	Status     string // provider status, e.g. RESOURCE_EXHAUSTED
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the sentinel the error was classified as, if any
func (e *APIError) Unwrap() error {
	return e.kind
}

// classify maps a provider error response onto the package sentinels
func classify(statusCode int, status, message string) error {
	apiErr := &APIError{StatusCode: statusCode, Status: status, Message: message}
	lowerMsg := strings.ToLower(message)

	switch {
	case statusCode == http.StatusTooManyRequests ||
		status == "RESOURCE_EXHAUSTED" ||
		strings.Contains(lowerMsg, "quota") ||
		strings.Contains(lowerMsg, "billing"):
		apiErr.kind = ErrQuotaExceeded

	case statusCode == http.StatusUnauthorized ||
		statusCode == http.StatusForbidden ||
		status == "UNAUTHENTICATED" ||
		status == "PERMISSION_DENIED" ||
		strings.Contains(lowerMsg, "api key not valid"):
		apiErr.kind = ErrUnauthorized
	}

	return apiErr
}

// UserMessage turns any Generate error into text fit to show a shopper
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuotaExceeded):
		return ErrQuotaExceeded.Error()
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNoAPIKey):
		return "AI generation is not available right now"
	case errors.Is(err, ErrEmptyResponse):
		return "AI generation returned nothing, try rephrasing the prompt"
	default:
		return "AI generation failed, try again later"
	}
}
