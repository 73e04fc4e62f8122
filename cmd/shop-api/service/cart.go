package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/models"
)

// CartRepository is the storage used by CartService
type CartRepository interface {
	Items(ctx context.Context, userID string) ([]models.CartItem, error)
	Add(ctx context.Context, userID string, productID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, userID string, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID string, productID uuid.UUID) error
	Clear(ctx context.Context, userID string) error
}

// ProductReader looks up a single active product
type ProductReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// CartService manages shopper carts
type CartService struct {
	repo     CartRepository
	products ProductReader
	log      *logger.Logger
}

// NewCartService creates a new cart service
func NewCartService(repo CartRepository, products ProductReader, log *logger.Logger) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		log:      log,
	}
}

// Get returns the cart with line prices and total at current product prices
func (s *CartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	items, err := s.repo.Items(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := &models.Cart{UserID: userID, Items: items}
	for _, it := range items {
		cart.TotalCents += it.UnitPriceCents * int64(it.Quantity)
	}
	return cart, nil
}

// Add puts quantity units of a product in the cart, on top of any already there
func (s *CartService) Add(ctx context.Context, userID string, req models.AddCartItemRequest) (*models.Cart, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if req.ProductID == uuid.Nil {
		return nil, invalid("product_id is required")
	}

	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	inCart, err := s.quantityInCart(ctx, userID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if inCart+req.Quantity > product.Stock {
		return nil, fmt.Errorf("%s: only %d available: %w", product.Name, product.Stock, ErrInsufficientStock)
	}

	if err := s.repo.Add(ctx, userID, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}

	s.log.Debug("added to cart", "user_id", userID, "product_id", req.ProductID, "quantity", req.Quantity)
	return s.Get(ctx, userID)
}

// Update sets the quantity of a line; zero removes it
func (s *CartService) Update(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.Remove(ctx, userID, productID)
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, fmt.Errorf("%s: only %d available: %w", product.Name, product.Stock, ErrInsufficientStock)
	}

	if err := s.repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Remove deletes one line from the cart
func (s *CartService) Remove(ctx context.Context, userID string, productID uuid.UUID) (*models.Cart, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}

func (s *CartService) quantityInCart(ctx context.Context, userID string, productID uuid.UUID) (int, error) {
	items, err := s.repo.Items(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if it.ProductID == productID {
			return it.Quantity, nil
		}
	}
	return 0, nil
}
