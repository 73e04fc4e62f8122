package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/storefront/common/cache"
	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/models"
)

func newProductService(t *testing.T, store *fakeStore) (*ProductService, *cache.MemoryCache) {
	t.Helper()
	filters, err := NewFilterEvaluator()
	require.NoError(t, err)
	c := cache.NewMemoryCache(0, logger.Discard())
	t.Cleanup(func() { c.Close() })
	return NewProductService(fakeProducts{store}, c, time.Minute, filters, logger.Discard()), c
}

func TestProductList_CELFilter(t *testing.T) {
	store := newFakeStore()
	store.addProduct("mug", 900, 10)
	store.addProduct("lamp", 4500, 0)
	store.addProduct("chair", 12000, 3)
	svc, _ := newProductService(t, store)

	got, err := svc.List(context.Background(), models.ProductQuery{
		Filter: `product.price_cents < 5000 && product.stock > 0`,
	})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "mug", got.Items[0].Name)
	assert.Equal(t, 1, got.Total)

	got, err = svc.List(context.Background(), models.ProductQuery{Filter: `product.name.startsWith("c") || product.name == "mug"`, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Total)
}

func TestProductList_InvalidFilter(t *testing.T) {
	store := newFakeStore()
	svc, _ := newProductService(t, store)

	_, err := svc.List(context.Background(), models.ProductQuery{Filter: `product.price_cents <`})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.List(context.Background(), models.ProductQuery{Filter: `1 + 2`})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 0, store.listCalls)
}

func TestProductList_CachedUntilWrite(t *testing.T) {
	store := newFakeStore()
	store.addProduct("mug", 900, 10)
	svc, _ := newProductService(t, store)
	ctx := context.Background()

	_, err := svc.List(ctx, models.ProductQuery{})
	require.NoError(t, err)
	_, err = svc.List(ctx, models.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.listCalls)

	_, err = svc.Create(ctx, models.CreateProductRequest{SKU: "L-1", Name: "lamp", PriceCents: 100})
	require.NoError(t, err)

	got, err := svc.List(ctx, models.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
	assert.Equal(t, 2, got.Total)
}

func TestProductHandleOrderEvent_Invalidates(t *testing.T) {
	store := newFakeStore()
	store.addProduct("mug", 900, 10)
	svc, c := newProductService(t, store)
	ctx := context.Background()

	_, err := svc.List(ctx, models.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Stats()["entries"])

	payload, _ := json.Marshal(models.OrderEvent{Type: models.EventOrderStatusChanged})
	require.NoError(t, svc.HandleOrderEvent(ctx, "k", payload))
	assert.Equal(t, 1, c.Stats()["entries"])

	payload, _ = json.Marshal(models.OrderEvent{Type: models.EventOrderPlaced})
	require.NoError(t, svc.HandleOrderEvent(ctx, "k", payload))
	assert.Equal(t, 0, c.Stats()["entries"])

	assert.Error(t, svc.HandleOrderEvent(ctx, "k", []byte("{")))
}

func TestProductCreate_Validation(t *testing.T) {
	svc, _ := newProductService(t, newFakeStore())

	_, err := svc.Create(context.Background(), models.CreateProductRequest{Name: "x", PriceCents: -1})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "sku is required")
	assert.Contains(t, err.Error(), "price_cents must not be negative")

	_, err = svc.Create(context.Background(), models.CreateProductRequest{SKU: "a", Name: "x", ImageURL: "ftp://img"})
	assert.ErrorIs(t, err, ErrValidation)

	p, err := svc.Create(context.Background(), models.CreateProductRequest{SKU: " a ", Name: "x", Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, "a", p.SKU)
	assert.Equal(t, "EUR", p.Currency)
	assert.True(t, p.Active)
}

func TestProductPatch(t *testing.T) {
	store := newFakeStore()
	mug := store.addProduct("mug", 900, 10)
	svc, _ := newProductService(t, store)
	ctx := context.Background()

	patched, err := svc.Patch(ctx, mug.ID, []byte(`[
		{"op": "test", "path": "/name", "value": "mug"},
		{"op": "replace", "path": "/price_cents", "value": 750}
	]`))
	require.NoError(t, err)
	assert.Equal(t, int64(750), patched.PriceCents)
	assert.Equal(t, mug.ID, patched.ID)

	got, err := svc.Get(ctx, mug.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), got.PriceCents)

	_, err = svc.Patch(ctx, mug.ID, []byte(`[{"op": "replace", "path": "/stock", "value": -5}]`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Patch(ctx, mug.ID, []byte(`not a patch`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Patch(ctx, mug.ID, []byte(`[{"op": "replace", "path": "/id", "value": "00000000-0000-0000-0000-000000000001"}]`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Patch(ctx, mug.ID, []byte(`[{"op": "test", "path": "/name", "value": "lamp"}]`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProductDelete(t *testing.T) {
	store := newFakeStore()
	mug := store.addProduct("mug", 900, 10)
	svc, _ := newProductService(t, store)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, mug.ID))
	_, err := svc.Get(ctx, mug.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, mug.ID), ErrNotFound)
}

func TestFilterEvaluator_CachesPrograms(t *testing.T) {
	e, err := NewFilterEvaluator()
	require.NoError(t, err)

	_, err = e.Compile(`product.stock > 0`)
	require.NoError(t, err)
	_, err = e.Compile(`product.stock > 0`)
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheSize())
}
