package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/cmd/shop-api/service"
	"github.com/lyzr/storefront/common/genai"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// toHTTPError maps service errors onto status codes. The message of a
// client error is the error text; server errors are logged and hidden.
func toHTTPError(log Logger, err error) error {
	var status int
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case service.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, genai.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusTooManyRequests, genai.UserMessage(err))
	case errors.Is(err, genai.ErrUnauthorized), errors.Is(err, genai.ErrNoAPIKey):
		log.Error("AI provider rejected credentials", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, genai.UserMessage(err))
	default:
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) || errors.Is(err, genai.ErrEmptyResponse) {
			return echo.NewHTTPError(http.StatusBadGateway, genai.UserMessage(err))
		}
		log.Error("request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return echo.NewHTTPError(status, err.Error())
}

// bind decodes the request body, answering 400 on malformed JSON
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// uuidParam parses a path parameter as a UUID
func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
