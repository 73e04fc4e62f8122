package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/cmd/shop-api/container"
	"github.com/lyzr/storefront/cmd/shop-api/handlers"
)

// RegisterProductRoutes registers catalog routes
func RegisterProductRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewProductHandler(c.ProductService, c.Components.Logger)

	products := e.Group("/api/v1/products")
	{
		products.GET("", h.ListProducts)         // GET /api/v1/products?category=mugs&filter=product.price<2000
		products.GET("/:id", h.GetProduct)       // GET /api/v1/products/{id}
		products.POST("", h.CreateProduct)       // POST /api/v1/products
		products.PATCH("/:id", h.PatchProduct)   // PATCH /api/v1/products/{id} (RFC 6902)
		products.DELETE("/:id", h.DeleteProduct) // DELETE /api/v1/products/{id}
	}
}
