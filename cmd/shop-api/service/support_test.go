package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/models"
)

// deliveredOrder places an order for alice and marks it delivered
func deliveredOrder(t *testing.T, f *orderFixture, lines map[*models.Product]int) *models.Order {
	t.Helper()
	ctx := context.Background()
	for p, qty := range lines {
		_, err := f.cart.Add(ctx, "alice", models.AddCartItemRequest{ProductID: p.ID, Quantity: qty})
		require.NoError(t, err)
	}
	order, err := f.orders.Checkout(ctx, "alice")
	require.NoError(t, err)
	f.store.setOrderStatus(order.ID, models.OrderDelivered)
	order.Status = models.OrderDelivered
	return order
}

func TestReturn_CreateValidation(t *testing.T) {
	f := newOrderFixture(t)
	mug := f.store.addProduct("mug", 900, 5)
	svc := NewReturnService(fakeReturns{f.store}, fakeOrders{f.store}, logger.Discard())
	ctx := context.Background()

	_, err := f.cart.Add(ctx, "alice", models.AddCartItemRequest{ProductID: mug.ID, Quantity: 2})
	require.NoError(t, err)
	pending, err := f.orders.Checkout(ctx, "alice")
	require.NoError(t, err)

	req := models.CreateReturnRequest{OrderID: pending.ID, Reason: "broken", Items: []models.ReturnItem{{ProductID: mug.ID, Quantity: 1}}}
	_, err = svc.Create(ctx, "alice", req)
	assert.ErrorIs(t, err, ErrInvalidTransition, "order not delivered yet")

	f.store.setOrderStatus(pending.ID, models.OrderDelivered)

	_, err = svc.Create(ctx, "bob", req)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(ctx, "alice", models.CreateReturnRequest{OrderID: pending.ID, Items: req.Items})
	assert.ErrorIs(t, err, ErrValidation, "reason required")

	_, err = svc.Create(ctx, "alice", models.CreateReturnRequest{OrderID: pending.ID, Reason: "x", Items: []models.ReturnItem{{ProductID: uuid.New(), Quantity: 1}}})
	assert.ErrorIs(t, err, ErrValidation, "product not in order")

	_, err = svc.Create(ctx, "alice", models.CreateReturnRequest{OrderID: pending.ID, Reason: "x", Items: []models.ReturnItem{{ProductID: mug.ID, Quantity: 3}}})
	assert.ErrorIs(t, err, ErrValidation, "more than ordered")
}

func TestReturn_QuantitiesAccumulate(t *testing.T) {
	f := newOrderFixture(t)
	mug := f.store.addProduct("mug", 900, 5)
	svc := NewReturnService(fakeReturns{f.store}, fakeOrders{f.store}, logger.Discard())
	order := deliveredOrder(t, f, map[*models.Product]int{mug: 2})
	ctx := context.Background()

	// Duplicate lines are merged
	ret, err := svc.Create(ctx, "alice", models.CreateReturnRequest{
		OrderID: order.ID,
		Reason:  "too many mugs",
		Items:   []models.ReturnItem{{ProductID: mug.ID, Quantity: 1}, {ProductID: mug.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, 2, ret.Items[0].Quantity)

	_, err = svc.Create(ctx, "alice", models.CreateReturnRequest{OrderID: order.ID, Reason: "again", Items: []models.ReturnItem{{ProductID: mug.ID, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrValidation)

	// A rejected return frees its quantity
	_, err = svc.Reject(ctx, ret.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", models.CreateReturnRequest{OrderID: order.ID, Reason: "again", Items: []models.ReturnItem{{ProductID: mug.ID, Quantity: 1}}})
	assert.NoError(t, err)
}

func TestReturn_ApproveRefundsAndRestocks(t *testing.T) {
	f := newOrderFixture(t)
	mug := f.store.addProduct("mug", 900, 5)
	lamp := f.store.addProduct("lamp", 4500, 5)
	svc := NewReturnService(fakeReturns{f.store}, fakeOrders{f.store}, logger.Discard())
	order := deliveredOrder(t, f, map[*models.Product]int{mug: 3, lamp: 1})
	ctx := context.Background()

	// Price changes after checkout do not affect the refund
	f.store.mu.Lock()
	f.store.products[mug.ID].PriceCents = 100
	f.store.mu.Unlock()

	ret, err := svc.Create(ctx, "alice", models.CreateReturnRequest{
		OrderID: order.ID,
		Reason:  "changed my mind",
		Items:   []models.ReturnItem{{ProductID: mug.ID, Quantity: 2}, {ProductID: lamp.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	approved, refund, err := svc.Approve(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnApproved, approved.Status)
	assert.NotNil(t, approved.ResolvedAt)
	assert.Equal(t, int64(2*900+4500), refund.AmountCents)
	assert.Equal(t, "USD", refund.Currency)
	assert.Equal(t, 4, f.store.stock(mug.ID))
	assert.Equal(t, 5, f.store.stock(lamp.ID))

	_, _, err = svc.Approve(ctx, ret.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Reject(ctx, ret.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	refunds, err := svc.ListRefunds(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, refunds, 1)

	returns, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, returns, 1)
}

func TestTickets(t *testing.T) {
	f := newOrderFixture(t)
	mug := f.store.addProduct("mug", 900, 5)
	order := deliveredOrder(t, f, map[*models.Product]int{mug: 1})
	svc := NewTicketService(fakeTickets{f.store}, fakeOrders{f.store}, logger.Discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", models.CreateTicketRequest{Subject: " ", Message: "hi"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, "bob", models.CreateTicketRequest{OrderID: &order.ID, Subject: "where", Message: "is it"})
	assert.ErrorIs(t, err, ErrNotFound)

	ticket, err := svc.Create(ctx, "alice", models.CreateTicketRequest{OrderID: &order.ID, Subject: "Chipped", Message: "The mug arrived chipped"})
	require.NoError(t, err)
	assert.Equal(t, models.TicketOpen, ticket.Status)

	_, err = svc.Get(ctx, "bob", ticket.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	closed, err := svc.Close(ctx, "alice", ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	_, err = svc.Close(ctx, "alice", ticket.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
