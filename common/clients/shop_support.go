package clients

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/models"
)

// CreateReturn opens a return for a delivered order
func (c *ShopClient) CreateReturn(ctx context.Context, req models.CreateReturnRequest) (*models.Return, error) {
	var out models.Return
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/returns"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReturns returns the shopper's returns
func (c *ShopClient) ListReturns(ctx context.Context) ([]models.Return, error) {
	var out models.List[models.Return]
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/returns"), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ApproveReturn approves a return and issues its refund
func (c *ShopClient) ApproveReturn(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var out models.Refund
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/returns/%s/approve", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RejectReturn rejects a return
func (c *ShopClient) RejectReturn(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var out models.Return
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/returns/%s/reject", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRefunds returns refunds issued to the shopper
func (c *ShopClient) ListRefunds(ctx context.Context) ([]models.Refund, error) {
	var out models.List[models.Refund]
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/refunds"), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateTicket opens a support ticket
func (c *ShopClient) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	var out models.Ticket
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/tickets"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTickets returns the shopper's tickets
func (c *ShopClient) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var out models.List[models.Ticket]
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/tickets"), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetTicket fetches one ticket
func (c *ShopClient) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var out models.Ticket
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/tickets/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseTicket closes a ticket
func (c *ShopClient) CloseTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var out models.Ticket
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/tickets/%s/close", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Generate asks the API to write product or support copy
func (c *ShopClient) Generate(ctx context.Context, req models.GenerateRequest) (*models.Generation, error) {
	var out models.Generation
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/ai/generate"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListGenerations returns the shopper's past generations
func (c *ShopClient) ListGenerations(ctx context.Context) ([]models.Generation, error) {
	var out models.List[models.Generation]
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/ai/generations"), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
