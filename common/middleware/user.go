package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/common/logger"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the echo context key for the shopper ID
	UserIDKey ContextKey = "user_id"
)

// ExtractUser reads the X-User-ID header into the echo context. The request
// ID set by echo's RequestID middleware is copied into the request context
// so loggers can pick it up with WithContext.
func ExtractUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID := c.Request().Header.Get("X-User-ID"); userID != "" {
				c.Set(string(UserIDKey), userID)
			}

			if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
				ctx := context.WithValue(c.Request().Context(), logger.RequestIDKey, rid)
				c.SetRequest(c.Request().WithContext(ctx))
			}

			return next(c)
		}
	}
}

// GetUserID retrieves the shopper ID from the echo context
// Returns empty string if not set
func GetUserID(c echo.Context) string {
	userID, _ := c.Get(string(UserIDKey)).(string)
	return userID
}

// RequireUserID returns the shopper ID or a 401 error
func RequireUserID(c echo.Context) (string, error) {
	userID := GetUserID(c)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "X-User-ID header is required")
	}
	return userID, nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
