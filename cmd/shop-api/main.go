package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/lyzr/storefront/cmd/shop-api/container"
	"github.com/lyzr/storefront/cmd/shop-api/routes"
	"github.com/lyzr/storefront/common/bootstrap"
	"github.com/lyzr/storefront/common/metrics"
	"github.com/lyzr/storefront/common/middleware"
	"github.com/lyzr/storefront/common/server"
)

const serviceName = "shop-api"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap common components (DB, logger, redis, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap %s: %v\n", serviceName, err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		components.Logger.Error("failed to initialize service container", "error", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e, serviceContainer)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	srv := server.New(serviceName, components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server.
// RequestID runs before ExtractUser so the ID reaches the request context.
func setupMiddleware(e *echo.Echo, c *container.Container) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestID())
	e.Use(middleware.ExtractUser())
	e.Use(metrics.EchoMiddleware())

	if c.RateLimiter != nil {
		secret := c.Components.Config.RateLimit.InternalSecret
		e.Use(middleware.GlobalRateLimitMiddleware(c.RateLimiter, secret, metrics.RecordRateLimited))
		e.Use(middleware.UserRateLimitMiddleware(c.RateLimiter, secret, metrics.RecordRateLimited))
	}
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": serviceName,
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": serviceName,
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, c *container.Container) {
	routes.RegisterProductRoutes(e, c)
	routes.RegisterCartRoutes(e, c)
	routes.RegisterOrderRoutes(e, c)
	routes.RegisterSupportRoutes(e, c)
	routes.RegisterAIRoutes(e, c)
}
