package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/storefront/cmd/shop-api/service"
	"github.com/lyzr/storefront/common/models"
)

const maxPatchBytes = 64 << 10

// ProductHandler handles catalog requests
type ProductHandler struct {
	products *service.ProductService
	log      Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *service.ProductService, log Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		log:      log,
	}
}

// ListProducts lists active products
// GET /api/v1/products?category=&q=&filter=&limit=&offset=
func (h *ProductHandler) ListProducts(c echo.Context) error {
	q := models.ProductQuery{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("q"),
		Filter:   c.QueryParam("filter"),
	}

	var err error
	if q.Limit, err = intQuery(c, "limit"); err != nil {
		return err
	}
	if q.Offset, err = intQuery(c, "offset"); err != nil {
		return err
	}

	list, err := h.products.List(c.Request().Context(), q)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetProduct retrieves one product
// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	p, err := h.products.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// CreateProduct adds a product
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req models.CreateProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.products.Create(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// PatchProduct applies a JSON Patch document
// PATCH /api/v1/products/:id
func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPatchBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	p, err := h.products.Patch(c.Request().Context(), id, body)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteProduct removes a product from the catalog
// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.products.Delete(c.Request().Context(), id); err != nil {
		return toHTTPError(h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}
