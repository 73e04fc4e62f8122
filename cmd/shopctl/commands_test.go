package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/storefront/common/config"
	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/models"
)

type fakeShop struct {
	srv       *httptest.Server
	products  []models.Product
	downloads atomic.Int64
	lastUser  string
	cart      models.Cart
}

func newFakeShop(t *testing.T) *fakeShop {
	t.Helper()
	f := &fakeShop{}
	mux := http.NewServeMux()

	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		f.downloads.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/api/v1/products", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.List[models.Product]{Items: f.products, Total: len(f.products)})
	})
	mux.HandleFunc("/api/v1/cart/items", func(w http.ResponseWriter, r *http.Request) {
		f.lastUser = r.Header.Get("X-User-ID")
		var req models.AddCartItemRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.cart = models.Cart{
			UserID:     f.lastUser,
			Items:      []models.CartItem{{ProductID: req.ProductID, Name: "Mug", UnitPriceCents: 1250, Quantity: req.Quantity}},
			TotalCents: 1250 * int64(req.Quantity),
		}
		json.NewEncoder(w).Encode(f.cart)
	})
	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		f.lastUser = r.Header.Get("X-User-ID")
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "Mug: insufficient stock"})
			return
		}
		json.NewEncoder(w).Encode(models.List[models.Order]{})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	f.products = []models.Product{
		{ID: uuid.New(), SKU: "MUG-1", Name: "Mug", PriceCents: 1250, Currency: "USD", Stock: 4,
			ImageURL: f.srv.URL + "/img/mug.jpg", ThumbnailURL: f.srv.URL + "/img/mug_t.jpg"},
		{ID: uuid.New(), SKU: "CUP-1", Name: "Cup", PriceCents: 800, Currency: "USD", Stock: 0,
			ImageURL: "not-a-url"},
	}
	return f
}

func newTestApp(t *testing.T, shop *fakeShop, userID string) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Client: config.ClientConfig{
			APIBaseURL:     shop.srv.URL,
			UserID:         userID,
			CacheDir:       filepath.Join(dir, "images"),
			IndexStore:     "sqlite",
			IndexStorePath: filepath.Join(dir, "index.db"),
			DeviceTier:     "low",
		},
	}

	out := &bytes.Buffer{}
	a, err := newApp(context.Background(), cfg, logger.Discard(), out)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, out
}

func TestRun_Tier(t *testing.T) {
	a, out := newTestApp(t, newFakeShop(t), "")
	require.NoError(t, run(context.Background(), a, []string{"tier"}))

	var res struct {
		Tier   string `json:"tier"`
		Forced bool   `json:"forced"`
		Config struct {
			MaxConcurrentRequests int `json:"max_concurrent_requests"`
		} `json:"config"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "low", res.Tier)
	assert.True(t, res.Forced)
	assert.Equal(t, 2, res.Config.MaxConcurrentRequests)
}

func TestRun_Products(t *testing.T) {
	a, out := newTestApp(t, newFakeShop(t), "")
	require.NoError(t, run(context.Background(), a, []string{"products", "-category", "kitchen"}))

	assert.Contains(t, out.String(), "MUG-1")
	assert.Contains(t, out.String(), "12.50 USD")
	assert.Contains(t, out.String(), "2 of 2 products")
}

func TestRun_PrefetchThenCache(t *testing.T) {
	shop := newFakeShop(t)
	a, out := newTestApp(t, shop, "")
	ctx := context.Background()

	require.NoError(t, run(ctx, a, []string{"prefetch"}))
	assert.Contains(t, out.String(), "cached 2 of 3 images")
	assert.Equal(t, int64(2), shop.downloads.Load())

	// Second prefetch is served from the cache
	require.NoError(t, run(ctx, a, []string{"prefetch"}))
	assert.Equal(t, int64(2), shop.downloads.Load())

	out.Reset()
	require.NoError(t, run(ctx, a, []string{"cache", "stats"}))
	assert.Contains(t, out.String(), "entries: 2 (0 expired)")

	out.Reset()
	require.NoError(t, run(ctx, a, []string{"cache", "sweep"}))
	assert.Contains(t, out.String(), "evicted 0 entries")

	require.NoError(t, run(ctx, a, []string{"cache", "clear"}))
	out.Reset()
	require.NoError(t, run(ctx, a, []string{"cache", "stats"}))
	assert.Contains(t, out.String(), "entries: 0")
}

func TestRun_CartNeedsUser(t *testing.T) {
	a, _ := newTestApp(t, newFakeShop(t), "")
	err := run(context.Background(), a, []string{"cart"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOP_USER_ID")
}

func TestRun_CartAdd(t *testing.T) {
	shop := newFakeShop(t)
	a, out := newTestApp(t, shop, "alice")
	id := shop.products[0].ID

	require.NoError(t, run(context.Background(), a, []string{"cart", "add", id.String(), "2"}))
	assert.Equal(t, "alice", shop.lastUser)
	assert.Contains(t, out.String(), "total 25.00")
}

func TestRun_CheckoutSurfacesServerMessage(t *testing.T) {
	shop := newFakeShop(t)
	a, _ := newTestApp(t, shop, "alice")

	err := run(context.Background(), a, []string{"checkout"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient stock")
}

func TestRun_UsageErrors(t *testing.T) {
	a, _ := newTestApp(t, newFakeShop(t), "alice")
	ctx := context.Background()

	for _, args := range [][]string{
		nil,
		{"teleport"},
		{"cache"},
		{"cache", "defrag"},
		{"cart", "add", "not-a-uuid"},
		{"cart", "add", uuid.NewString(), "many"},
		{"products", "-bogus"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			assert.ErrorIs(t, run(ctx, a, args), errUsage)
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "12.50 USD", money(1250, "USD"))
	assert.Equal(t, "0.05", money(5, ""))
	assert.Equal(t, "-0.05", money(-5, ""))
	assert.Equal(t, "-1.50", money(-150, ""))
}
