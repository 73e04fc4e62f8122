package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"

	"github.com/lyzr/storefront/cmd/shop-api/security"
	"github.com/lyzr/storefront/common/cache"
	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/models"
	"github.com/lyzr/storefront/common/validation"
)

const (
	productCachePrefix = "products:"
	defaultPageSize    = 20
	maxPageSize        = 100
	defaultCurrency    = "USD"
)

var imageURLs = security.NewImageURLValidator()

// ProductRepository is the storage used by ProductService
type ProductRepository interface {
	List(ctx context.Context, category, search string, limit, offset int) ([]models.Product, int, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// ProductService handles the catalog
type ProductService struct {
	repo    ProductRepository
	cache   cache.Cache
	ttl     time.Duration
	filters *FilterEvaluator
	patches *validation.PatchValidator
	log     *logger.Logger
}

// NewProductService creates a new product service. cache may be nil.
func NewProductService(repo ProductRepository, c cache.Cache, ttl time.Duration, filters *FilterEvaluator, log *logger.Logger) *ProductService {
	return &ProductService{
		repo:    repo,
		cache:   c,
		ttl:     ttl,
		filters: filters,
		patches: validation.NewPatchValidator(),
		log:     log,
	}
}

// List returns one page of active products. A CEL filter is applied
// before paging, so Total counts filtered products.
func (s *ProductService) List(ctx context.Context, q models.ProductQuery) (*models.List[models.Product], error) {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		return nil, invalid("offset must not be negative")
	}

	key := listCacheKey(q)
	var out models.List[models.Product]
	if s.cachedJSON(ctx, key, &out) {
		return &out, nil
	}

	if q.Filter == "" {
		items, total, err := s.repo.List(ctx, q.Category, q.Search, q.Limit, q.Offset)
		if err != nil {
			return nil, err
		}
		out = models.List[models.Product]{Items: items, Total: total}
	} else {
		// Validate before touching the database
		if _, err := s.filters.Compile(q.Filter); err != nil {
			return nil, err
		}
		all, _, err := s.repo.List(ctx, q.Category, q.Search, 0, 0)
		if err != nil {
			return nil, err
		}
		matched, err := s.filters.Apply(q.Filter, all)
		if err != nil {
			return nil, err
		}
		out = models.List[models.Product]{Items: page(matched, q.Offset, q.Limit), Total: len(matched)}
	}

	s.storeJSON(ctx, key, out)
	return &out, nil
}

// Get returns one active product
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	key := productCachePrefix + "item:" + id.String()
	var p models.Product
	if s.cachedJSON(ctx, key, &p) {
		return &p, nil
	}

	got, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.storeJSON(ctx, key, got)
	return got, nil
}

// Create adds a product to the catalog
func (s *ProductService) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	now := time.Now().UTC()
	p := &models.Product{
		ID:           uuid.New(),
		SKU:          strings.TrimSpace(req.SKU),
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Category:     strings.TrimSpace(req.Category),
		PriceCents:   req.PriceCents,
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
		Stock:        req.Stock,
		ImageURL:     req.ImageURL,
		ThumbnailURL: req.ThumbnailURL,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "product created")

	s.log.Info("created product", "product_id", p.ID, "sku", p.SKU)
	return p, nil
}

// Patch applies an RFC 6902 JSON Patch to a product. Patches touching id,
// created_at or updated_at are rejected.
func (s *ProductService) Patch(ctx context.Context, id uuid.UUID, patchJSON []byte) (*models.Product, error) {
	if err := s.patches.Validate(patchJSON); err != nil {
		return nil, invalid("%v", err)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, invalid("failed to decode patch: %v", err)
	}

	doc, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product: %w", err)
	}
	patched, err := patch.Apply(doc)
	if err != nil {
		return nil, invalid("failed to apply patch: %v", err)
	}

	var next models.Product
	if err := json.Unmarshal(patched, &next); err != nil {
		return nil, invalid("patched product is malformed: %v", err)
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	next.Currency = strings.ToUpper(next.Currency)
	if err := validateProduct(&next); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.invalidate(ctx, "product patched")

	s.log.Info("patched product", "product_id", id, "operations", len(patch))
	return &next, nil
}

// Delete removes a product from the catalog
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, "product deleted")

	s.log.Info("deleted product", "product_id", id)
	return nil
}

// HandleOrderEvent drops cached listings when an order changes stock.
// It is subscribed to the order.events topic.
func (s *ProductService) HandleOrderEvent(ctx context.Context, key string, value []byte) error {
	var event models.OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode order event %s: %w", key, err)
	}

	switch event.Type {
	case models.EventOrderPlaced, models.EventOrderCancelled:
		s.invalidate(ctx, event.Type)
	}
	return nil
}

func (s *ProductService) invalidate(ctx context.Context, reason string) {
	if s.cache == nil {
		return
	}
	n, err := s.cache.DeletePrefix(ctx, productCachePrefix)
	if err != nil {
		s.log.Warn("failed to invalidate product cache", "reason", reason, "error", err)
		return
	}
	s.log.Debug("invalidated product cache", "reason", reason, "entries", n)
}

func (s *ProductService) cachedJSON(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.Warn("dropping undecodable cache entry", "key", key, "error", err)
		_ = s.cache.Delete(ctx, key)
		return false
	}
	return true
}

func (s *ProductService) storeJSON(ctx context.Context, key string, v any) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn("failed to cache response", "key", key, "error", err)
	}
}

func listCacheKey(q models.ProductQuery) string {
	v := url.Values{}
	v.Set("category", q.Category)
	v.Set("q", q.Search)
	v.Set("filter", q.Filter)
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	return productCachePrefix + "list:" + v.Encode()
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func validateProduct(p *models.Product) error {
	var problems []string
	if p.SKU == "" {
		problems = append(problems, "sku is required")
	}
	if p.Name == "" {
		problems = append(problems, "name is required")
	}
	if p.PriceCents < 0 {
		problems = append(problems, "price_cents must not be negative")
	}
	if p.Stock < 0 {
		problems = append(problems, "stock must not be negative")
	}
	if len(p.Currency) != 3 {
		problems = append(problems, "currency must be a 3-letter code")
	}
	for _, u := range []string{p.ImageURL, p.ThumbnailURL} {
		if u == "" {
			continue
		}
		if err := imageURLs.Validate(u); err != nil {
			problems = append(problems, fmt.Sprintf("image url %q: %v", u, err))
		}
	}
	if len(problems) > 0 {
		return invalid("%s", strings.Join(problems, "; "))
	}
	return nil
}
