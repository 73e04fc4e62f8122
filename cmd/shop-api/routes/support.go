package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/cmd/shop-api/container"
	"github.com/lyzr/storefront/cmd/shop-api/handlers"
)

// RegisterSupportRoutes registers return, refund and ticket routes
func RegisterSupportRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewSupportHandler(c.ReturnService, c.TicketService, c.Components.Logger)

	returns := e.Group("/api/v1/returns")
	{
		returns.POST("", h.CreateReturn)              // POST /api/v1/returns
		returns.GET("", h.ListReturns)                // GET /api/v1/returns
		returns.POST("/:id/approve", h.ApproveReturn) // POST /api/v1/returns/{id}/approve
		returns.POST("/:id/reject", h.RejectReturn)   // POST /api/v1/returns/{id}/reject
	}

	e.GET("/api/v1/refunds", h.ListRefunds)

	tickets := e.Group("/api/v1/tickets")
	{
		tickets.POST("", h.CreateTicket)           // POST /api/v1/tickets
		tickets.GET("", h.ListTickets)             // GET /api/v1/tickets
		tickets.GET("/:id", h.GetTicket)           // GET /api/v1/tickets/{id}
		tickets.POST("/:id/close", h.CloseTicket)  // POST /api/v1/tickets/{id}/close
	}
}

// RegisterAIRoutes registers AI generation routes
func RegisterAIRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewAIHandler(c.AIService, c.Components.Logger)

	ai := e.Group("/api/v1/ai")
	{
		ai.POST("/generate", h.Generate)           // POST /api/v1/ai/generate
		ai.GET("/generations", h.ListGenerations)  // GET /api/v1/ai/generations
	}
}
