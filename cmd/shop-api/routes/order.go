package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/cmd/shop-api/container"
	"github.com/lyzr/storefront/cmd/shop-api/handlers"
)

// RegisterCartRoutes registers cart routes
func RegisterCartRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewCartHandler(c.CartService, c.Components.Logger)

	cart := e.Group("/api/v1/cart")
	{
		cart.GET("", h.GetCart)                        // GET /api/v1/cart
		cart.DELETE("", h.ClearCart)                   // DELETE /api/v1/cart
		cart.POST("/items", h.AddItem)                 // POST /api/v1/cart/items
		cart.PUT("/items/:productId", h.UpdateItem)    // PUT /api/v1/cart/items/{product_id}
		cart.DELETE("/items/:productId", h.RemoveItem) // DELETE /api/v1/cart/items/{product_id}
	}
}

// RegisterOrderRoutes registers checkout and order routes
func RegisterOrderRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewOrderHandler(c.OrderService, c.Components.Logger)

	orders := e.Group("/api/v1/orders")
	{
		orders.POST("", h.Checkout)                // POST /api/v1/orders
		orders.GET("", h.ListOrders)               // GET /api/v1/orders
		orders.GET("/:id", h.GetOrder)             // GET /api/v1/orders/{id}
		orders.POST("/:id/cancel", h.CancelOrder)  // POST /api/v1/orders/{id}/cancel
		orders.PUT("/:id/status", h.UpdateStatus)  // PUT /api/v1/orders/{id}/status
	}
}
