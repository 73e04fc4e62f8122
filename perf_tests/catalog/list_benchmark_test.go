package catalog_test

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/lyzr/storefront/common/clients"
	"github.com/lyzr/storefront/common/device"
	"github.com/lyzr/storefront/common/models"
)

// Configuration from environment
var (
	shopURL     = getEnv("SHOP_API_URL", "http://localhost:8080")
	concurrency = getEnvInt("PERF_CONCURRENCY", 10)
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func newClient(b *testing.B, tier device.Tier) *clients.ShopClient {
	b.Helper()
	resp, err := http.Get(shopURL + "/health")
	if err != nil {
		b.Skip("shop-api not running")
	}
	resp.Body.Close()
	return clients.NewShopClient(shopURL, device.ConfigFor(tier), nopLogger{})
}

// BenchmarkListProducts measures catalog listing through the adaptive client.
// Repeated pages are served from the response cache after the first call.
//
// Usage:
//
//	SHOP_API_URL=http://localhost:8080 go test ./perf_tests/catalog -bench=ListProducts -benchtime=10000x
func BenchmarkListProducts(b *testing.B) {
	for _, tier := range []device.Tier{device.TierLow, device.TierHigh} {
		b.Run(string(tier), func(b *testing.B) {
			client := newClient(b, tier)
			ctx := context.Background()

			b.SetParallelism(concurrency)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if _, err := client.ListProducts(ctx, models.ProductQuery{Limit: 20}); err != nil {
						b.Error(err)
						return
					}
				}
			})

			stats := client.Queue().Stats()
			b.Logf("tier=%s limit=%d completed=%d", tier, client.Queue().Limit(), stats.Completed)
		})
	}
}

// BenchmarkListProductsFiltered measures CEL-filtered listing, which scans
// the whole active catalog on a cache miss
func BenchmarkListProductsFiltered(b *testing.B) {
	client := newClient(b, device.TierHigh)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Vary the threshold so most calls miss the cache
		q := models.ProductQuery{
			Filter: "product.price_cents < " + strconv.Itoa(1000+i%500) + " && product.stock > 0",
			Limit:  20,
		}
		if _, err := client.ListProducts(ctx, q); err != nil {
			b.Fatal(err)
		}
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
