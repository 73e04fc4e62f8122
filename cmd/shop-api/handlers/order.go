package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/cmd/shop-api/service"
	"github.com/lyzr/storefront/common/middleware"
	"github.com/lyzr/storefront/common/models"
)

// CartHandler handles cart requests for the calling user
type CartHandler struct {
	cart *service.CartService
	log  Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart *service.CartService, log Logger) *CartHandler {
	return &CartHandler{cart: cart, log: log}
}

// GetCart returns the cart
// GET /api/v1/cart
func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	cart, err := h.cart.Get(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// AddItem adds a product to the cart
// POST /api/v1/cart/items
func (h *CartHandler) AddItem(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	var req models.AddCartItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.cart.Add(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// UpdateItem sets the quantity of a line
// PUT /api/v1/cart/items/:productId
func (h *CartHandler) UpdateItem(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}
	productID, err := uuidParam(c, "productId")
	if err != nil {
		return err
	}

	var req models.UpdateCartItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.cart.Update(c.Request().Context(), userID, productID, req.Quantity)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// RemoveItem deletes a line
// DELETE /api/v1/cart/items/:productId
func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}
	productID, err := uuidParam(c, "productId")
	if err != nil {
		return err
	}

	cart, err := h.cart.Remove(c.Request().Context(), userID, productID)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	if err := h.cart.Clear(c.Request().Context(), userID); err != nil {
		return toHTTPError(h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// OrderHandler handles checkout and orders
type OrderHandler struct {
	orders *service.OrderService
	log    Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, log Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// Checkout places an order from the cart
// POST /api/v1/orders
func (h *OrderHandler) Checkout(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	order, err := h.orders.Checkout(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// ListOrders lists the caller's orders
// GET /api/v1/orders
func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	orders, err := h.orders.List(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, models.List[models.Order]{Items: orders, Total: len(orders)})
}

// GetOrder retrieves one of the caller's orders
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.Get(c.Request().Context(), userID, id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, order)
}

// CancelOrder cancels a pending or paid order
// POST /api/v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.Cancel(c.Request().Context(), userID, id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateStatus moves an order to the next status (back office)
// PUT /api/v1/orders/:id/status
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, order)
}
