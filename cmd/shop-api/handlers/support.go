package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/cmd/shop-api/service"
	"github.com/lyzr/storefront/common/middleware"
	"github.com/lyzr/storefront/common/models"
)

// SupportHandler handles returns, refunds and tickets
type SupportHandler struct {
	returns *service.ReturnService
	tickets *service.TicketService
	log     Logger
}

// NewSupportHandler creates a new support handler
func NewSupportHandler(returns *service.ReturnService, tickets *service.TicketService, log Logger) *SupportHandler {
	return &SupportHandler{
		returns: returns,
		tickets: tickets,
		log:     log,
	}
}

// CreateReturn requests a return
// POST /api/v1/returns
func (h *SupportHandler) CreateReturn(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateReturnRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ret, err := h.returns.Create(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusCreated, ret)
}

// ListReturns lists the caller's returns
// GET /api/v1/returns
func (h *SupportHandler) ListReturns(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	returns, err := h.returns.List(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, models.List[models.Return]{Items: returns, Total: len(returns)})
}

// ApproveReturn approves a return and answers with the refund
// POST /api/v1/returns/:id/approve
func (h *SupportHandler) ApproveReturn(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	_, refund, err := h.returns.Approve(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, refund)
}

// RejectReturn rejects a return
// POST /api/v1/returns/:id/reject
func (h *SupportHandler) RejectReturn(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	ret, err := h.returns.Reject(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, ret)
}

// ListRefunds lists the caller's refunds
// GET /api/v1/refunds
func (h *SupportHandler) ListRefunds(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	refunds, err := h.returns.ListRefunds(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, models.List[models.Refund]{Items: refunds, Total: len(refunds)})
}

// CreateTicket opens a support ticket
// POST /api/v1/tickets
func (h *SupportHandler) CreateTicket(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	t, err := h.tickets.Create(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// ListTickets lists the caller's tickets
// GET /api/v1/tickets
func (h *SupportHandler) ListTickets(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	tickets, err := h.tickets.List(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, models.List[models.Ticket]{Items: tickets, Total: len(tickets)})
}

// GetTicket retrieves one of the caller's tickets
// GET /api/v1/tickets/:id
func (h *SupportHandler) GetTicket(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	t, err := h.tickets.Get(c.Request().Context(), userID, id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// CloseTicket closes one of the caller's tickets
// POST /api/v1/tickets/:id/close
func (h *SupportHandler) CloseTicket(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	t, err := h.tickets.Close(c.Request().Context(), userID, id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// AIHandler handles AI copy generation
type AIHandler struct {
	ai  *service.AIService
	log Logger
}

// NewAIHandler creates a new AI handler
func NewAIHandler(ai *service.AIService, log Logger) *AIHandler {
	return &AIHandler{ai: ai, log: log}
}

// Generate runs one generation
// POST /api/v1/ai/generate
func (h *AIHandler) Generate(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	var req models.GenerateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	g, err := h.ai.Generate(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, g)
}

// ListGenerations lists the caller's recent generations
// GET /api/v1/ai/generations
func (h *AIHandler) ListGenerations(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	gens, err := h.ai.ListGenerations(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, models.List[models.Generation]{Items: gens, Total: len(gens)})
}
