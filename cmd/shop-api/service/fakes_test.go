package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/genai"
	"github.com/lyzr/storefront/common/models"
)

// fakeStore is an in-memory stand-in for the Postgres repositories
type fakeStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*models.Product
	carts     map[string]map[uuid.UUID]int
	cartOrder map[string][]uuid.UUID
	orders    map[uuid.UUID]*models.Order
	returns   map[uuid.UUID]*models.Return
	refunds   []models.Refund
	tickets   map[uuid.UUID]*models.Ticket
	listCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:  map[uuid.UUID]*models.Product{},
		carts:     map[string]map[uuid.UUID]int{},
		cartOrder: map[string][]uuid.UUID{},
		orders:    map[uuid.UUID]*models.Order{},
		returns:   map[uuid.UUID]*models.Return{},
		tickets:   map[uuid.UUID]*models.Ticket{},
	}
}

func (f *fakeStore) addProduct(name string, priceCents int64, stock int) *models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Product{
		ID:         uuid.New(),
		SKU:        "SKU-" + name,
		Name:       name,
		Category:   "general",
		PriceCents: priceCents,
		Currency:   "USD",
		Stock:      stock,
		Active:     true,
		CreatedAt:  time.Now().Add(time.Duration(len(f.products)) * time.Second),
	}
	f.products[p.ID] = p
	return p
}

func (f *fakeStore) stock(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

// products

type fakeProducts struct{ *fakeStore }

func (f fakeProducts) List(_ context.Context, category, search string, limit, offset int) ([]models.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	var out []models.Product
	for _, p := range f.products {
		if !p.Active || (category != "" && p.Category != category) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if limit > 0 {
		out = page(out, offset, limit)
	}
	return out, total, nil
}

func (f fakeProducts) Get(_ context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || !p.Active {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (f fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f fakeProducts) Update(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f fakeProducts) Deactivate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || !p.Active {
		return ErrNotFound
	}
	p.Active = false
	return nil
}

// cart

type fakeCart struct{ *fakeStore }

func (f fakeCart) Items(_ context.Context, userID string) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.itemsLocked(userID), nil
}

func (f *fakeStore) itemsLocked(userID string) []models.CartItem {
	items := []models.CartItem{}
	for _, id := range f.cartOrder[userID] {
		qty, ok := f.carts[userID][id]
		if !ok {
			continue
		}
		p := f.products[id]
		items = append(items, models.CartItem{
			ProductID:      id,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			Quantity:       qty,
			Available:      p.Stock,
		})
	}
	return items
}

func (f fakeCart) Add(_ context.Context, userID string, productID uuid.UUID, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.carts[userID] == nil {
		f.carts[userID] = map[uuid.UUID]int{}
	}
	if _, ok := f.carts[userID][productID]; !ok {
		f.cartOrder[userID] = append(f.cartOrder[userID], productID)
	}
	f.carts[userID][productID] += quantity
	return nil
}

func (f fakeCart) SetQuantity(_ context.Context, userID string, productID uuid.UUID, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[userID][productID]; !ok {
		return ErrNotFound
	}
	f.carts[userID][productID] = quantity
	return nil
}

func (f fakeCart) Remove(_ context.Context, userID string, productID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[userID][productID]; !ok {
		return ErrNotFound
	}
	delete(f.carts[userID], productID)
	order := f.cartOrder[userID][:0]
	for _, id := range f.cartOrder[userID] {
		if id != productID {
			order = append(order, id)
		}
	}
	f.cartOrder[userID] = order
	return nil
}

func (f fakeCart) Clear(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	delete(f.cartOrder, userID)
	return nil
}

// orders

type fakeOrders struct{ *fakeStore }

func (f fakeOrders) PlaceOrder(_ context.Context, userID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := f.itemsLocked(userID)
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range lines {
		if f.products[line.ProductID].Stock < line.Quantity {
			return nil, fmt.Errorf("%s: %w", line.Name, ErrInsufficientStock)
		}
	}

	now := time.Now().UTC()
	o := &models.Order{ID: uuid.New(), UserID: userID, Status: models.OrderPending, Currency: "USD", CreatedAt: now, UpdatedAt: now}
	for _, line := range lines {
		p := f.products[line.ProductID]
		p.Stock -= line.Quantity
		o.Items = append(o.Items, models.OrderItem{ProductID: p.ID, Name: p.Name, UnitPriceCents: p.PriceCents, Quantity: line.Quantity})
		o.TotalCents += p.PriceCents * int64(line.Quantity)
	}
	f.orders[o.ID] = o
	delete(f.carts, userID)
	delete(f.cartOrder, userID)

	cp := *o
	return &cp, nil
}

func (f fakeOrders) List(_ context.Context, userID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f fakeOrders) Get(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f fakeOrders) Transition(_ context.Context, id uuid.UUID, from, to models.OrderStatus, restock bool) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != from {
		return nil, ErrConflict
	}
	o.Status = to
	if restock {
		for _, it := range o.Items {
			f.products[it.ProductID].Stock += it.Quantity
		}
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) setOrderStatus(id uuid.UUID, status models.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[id].Status = status
}

// returns

type fakeReturns struct{ *fakeStore }

func (f fakeReturns) Create(_ context.Context, ret *models.Return) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ret
	f.returns[ret.ID] = &cp
	return nil
}

func (f fakeReturns) Get(_ context.Context, id uuid.UUID) (*models.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.returns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f fakeReturns) List(_ context.Context, userID string) ([]models.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Return{}
	for _, r := range f.returns {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f fakeReturns) ReturnedQuantities(_ context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID]int{}
	for _, r := range f.returns {
		if r.OrderID != orderID || r.Status == models.ReturnRejected {
			continue
		}
		for _, it := range r.Items {
			out[it.ProductID] += it.Quantity
		}
	}
	return out, nil
}

func (f fakeReturns) Resolve(_ context.Context, id uuid.UUID, to models.ReturnStatus, refund *models.Refund) (*models.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.returns[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != models.ReturnRequested {
		return nil, ErrConflict
	}
	r.Status = to
	now := time.Now()
	r.ResolvedAt = &now
	if refund != nil {
		f.refunds = append(f.refunds, *refund)
		for _, it := range r.Items {
			f.products[it.ProductID].Stock += it.Quantity
		}
	}
	cp := *r
	return &cp, nil
}

func (f fakeReturns) ListRefunds(_ context.Context, userID string) ([]models.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Refund{}
	for _, r := range f.refunds {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// tickets

type fakeTickets struct{ *fakeStore }

func (f fakeTickets) Create(_ context.Context, t *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tickets[t.ID] = &cp
	return nil
}

func (f fakeTickets) Get(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f fakeTickets) List(_ context.Context, userID string) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Ticket{}
	for _, t := range f.tickets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f fakeTickets) Close(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok || t.Status != models.TicketOpen {
		return nil, ErrConflict
	}
	t.Status = models.TicketClosed
	now := time.Now()
	t.ClosedAt = &now
	cp := *t
	return &cp, nil
}

// AI

type fakeAIRepo struct {
	mu          sync.Mutex
	generations []models.Generation
	audits      []models.AuditEntry
}

func (f *fakeAIRepo) SaveGeneration(_ context.Context, g *models.Generation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generations = append(f.generations, *g)
	return nil
}

func (f *fakeAIRepo) SaveAudit(_ context.Context, e *models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, *e)
	return nil
}

func (f *fakeAIRepo) ListGenerations(_ context.Context, userID string, limit int) ([]models.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Generation{}
	for _, g := range f.generations {
		if g.UserID == userID && len(out) < limit {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	prompts []string
	text    string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (genai.Result, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return genai.Result{}, f.err
	}
	return genai.Result{Text: f.text, OutputTokens: 12}, nil
}

func (f *fakeGenerator) Model() string { return "gemini-test" }

func (f fakeOrders) ListStalePending(_ context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for _, o := range f.orders {
		if o.Status == models.OrderPending && o.CreatedAt.Before(before) && len(ids) < limit {
			ids = append(ids, o.ID)
		}
	}
	return ids, nil
}

func (f *fakeStore) backdateOrder(id uuid.UUID, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[id].CreatedAt = f.orders[id].CreatedAt.Add(-d)
}
