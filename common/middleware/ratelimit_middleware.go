package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/common/ratelimit"
)

// Limiter is the part of ratelimit.RateLimiter the middleware needs
type Limiter interface {
	CheckGlobalLimit(ctx context.Context) (*ratelimit.RateLimitResult, error)
	CheckUserLimit(ctx context.Context, userID string, class ratelimit.Class) (*ratelimit.RateLimitResult, error)
}

// RejectFunc is called for every rejected request (metrics)
type RejectFunc func(class string)

// isInternalRequest checks if the request is from an internal service
// Internal services set X-Internal-Service to the shared secret to bypass rate limits
func isInternalRequest(c echo.Context, secret string) bool {
	if secret == "" {
		return false
	}
	header := c.Request().Header.Get("X-Internal-Service")
	return header != "" && subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
}

// GlobalRateLimitMiddleware checks the service-wide rate limit
// Protects the entire service from being overwhelmed
func GlobalRateLimitMiddleware(limiter Limiter, internalSecret string, onReject RejectFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c, internalSecret) {
				return next(c)
			}

			result, err := limiter.CheckGlobalLimit(c.Request().Context())
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if !result.Allowed {
				if onReject != nil {
					onReject("global")
				}
				c.Response().Header().Set("Retry-After", itoa(result.RetryAfterSeconds))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "global_rate_limit_exceeded",
					"message": "Service is experiencing high load. Please try again later.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window":              "60 seconds",
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}

// UserRateLimitMiddleware checks per-user limits for the route's class
// Requires the user to be set by ExtractUser; anonymous requests only hit the global limit
func UserRateLimitMiddleware(limiter Limiter, internalSecret string, onReject RejectFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c, internalSecret) {
				return next(c)
			}

			userID := GetUserID(c)
			if userID == "" {
				return next(c)
			}

			class := ratelimit.ClassifyRoute(c.Request().Method, c.Request().URL.Path)
			result, err := limiter.CheckUserLimit(c.Request().Context(), userID, class)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				if onReject != nil {
					onReject(string(class))
				}
				message := "You have exceeded your request quota. Please wait before trying again."
				if class == ratelimit.ClassAI {
					message = "Too many AI requests. Please wait before trying again."
				}
				c.Response().Header().Set("Retry-After", itoa(result.RetryAfterSeconds))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "user_rate_limit_exceeded",
					"message": message,
					"details": map[string]interface{}{
						"class":               class,
						"limit":               result.Limit,
						"window":              "60 seconds",
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
