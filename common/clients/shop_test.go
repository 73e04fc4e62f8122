package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/storefront/common/device"
	"github.com/lyzr/storefront/common/models"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg device.AdaptiveConfig) *ShopClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewShopClient(srv.URL+"/", cfg, nopLogger{})
}

func TestListProducts_QueryAndHeaders(t *testing.T) {
	var gotPath, gotQuery, gotUser, gotRequestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUser = r.Header.Get("X-User-ID")
		gotRequestID = r.Header.Get("X-Request-ID")
		json.NewEncoder(w).Encode(models.List[models.Product]{
			Items: []models.Product{{Name: "Trail Shoe", PriceCents: 8999}},
			Total: 1,
		})
	}, device.ConfigFor(device.TierMedium))

	ctx := WithRequestID(WithUserID(context.Background(), "user-1"), "req-9")
	page, err := client.ListProducts(ctx, models.ProductQuery{Category: "shoes", Filter: "product.price_cents < 10000", Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/products", gotPath)
	assert.Contains(t, gotQuery, "category=shoes")
	assert.Contains(t, gotQuery, "limit=5")
	assert.Contains(t, gotQuery, "filter=")
	assert.Equal(t, "user-1", gotUser)
	assert.Equal(t, "req-9", gotRequestID)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Trail Shoe", page.Items[0].Name)
}

func TestAPIError_CarriesServerMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"insufficient stock for Trail Shoe"}`))
	}, device.ConfigFor(device.TierMedium))

	_, err := client.Checkout(WithUserID(context.Background(), "u"))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "insufficient stock for Trail Shoe", apiErr.Error())
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	assert.False(t, IsNotFound(err))
}

func TestAPIError_PlainTextBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}, device.ConfigFor(device.TierMedium))

	err := client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, "upstream unavailable", err.Error())
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
}

func TestNoRetries(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, device.ConfigFor(device.TierMedium))

	_, err := client.GetCart(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestRequestTimeout(t *testing.T) {
	cfg := device.ConfigFor(device.TierHigh)
	cfg.RequestTimeout = 50 * time.Millisecond

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-done:
		}
	}, cfg)

	start := time.Now()
	_, err := client.GetProduct(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Zero(t, StatusCode(err))
}

func TestConcurrencyBoundedByTier(t *testing.T) {
	cfg := device.ConfigFor(device.TierLow) // 2 concurrent

	var inFlight, peak atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		w.Write([]byte(`{"items":[],"total":0}`))
	}, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListOrders(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(cfg.MaxConcurrentRequests))
	assert.Equal(t, 2, client.Queue().Limit())
	assert.Equal(t, uint64(10), client.Queue().Stats().Completed)
}

func TestPatchProduct_SendsJSONPatch(t *testing.T) {
	id := uuid.New()
	var contentType, method, body string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		method = r.Method
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		json.NewEncoder(w).Encode(models.Product{ID: id, Stock: 3})
	}, device.ConfigFor(device.TierMedium))

	patch := json.RawMessage(`[{"op":"replace","path":"/stock","value":3}]`)
	p, err := client.PatchProduct(context.Background(), id, patch)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "application/json-patch+json", contentType)
	assert.JSONEq(t, string(patch), body)
	assert.Equal(t, 3, p.Stock)
}

func TestAddToCart_SendsTypedBody(t *testing.T) {
	productID := uuid.New()
	var got models.AddCartItemRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/cart/items", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(models.Cart{UserID: "u", TotalCents: 500})
	}, device.ConfigFor(device.TierMedium))

	cart, err := client.AddToCart(context.Background(), productID, 2)
	require.NoError(t, err)
	assert.Equal(t, productID, got.ProductID)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, int64(500), cart.TotalCents)
}

func TestGenerate_QuotaError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"AI token quota exceeded, try again later"}`))
	}, device.ConfigFor(device.TierMedium))

	_, err := client.Generate(context.Background(), models.GenerateRequest{Kind: models.KindFreeform, Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Equal(t, "AI token quota exceeded, try again later", err.Error())
}
