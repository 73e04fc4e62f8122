package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/storefront/common/config"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func TestClassifyRoute(t *testing.T) {
	tests := []struct {
		method, path string
		want         Class
	}{
		{http.MethodPost, "/api/v1/ai/generate", ClassAI},
		{http.MethodGet, "/api/v1/ai/generations", ClassStandard},
		{http.MethodPost, "/api/v1/orders", ClassCheckout},
		{http.MethodPost, "/api/v1/orders/", ClassCheckout},
		{http.MethodPost, "/api/v1/orders/123/cancel", ClassStandard},
		{http.MethodGet, "/api/v1/products", ClassStandard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyRoute(tt.method, tt.path), tt.method+" "+tt.path)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RateLimitConfig{GlobalLimit: 50, AILimit: 3})

	assert.Equal(t, int64(50), p.Global.Limit)
	assert.Equal(t, int64(3), p.For(ClassAI).Limit)
	// Zero keeps the default
	assert.Equal(t, DefaultPolicy.Classes[ClassStandard].Limit, p.For(ClassStandard).Limit)
	// Unknown class falls back to the most restrictive
	assert.Equal(t, p.For(ClassAI), p.For(Class("bogus")))

	// DefaultPolicy is not mutated
	assert.Equal(t, int64(10), DefaultPolicy.Classes[ClassAI].Limit)

	p = PolicyFromConfig(config.RateLimitConfig{})
	assert.Equal(t, DefaultPolicy.Global, p.Global)
}

func TestRateLimiter_Redis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	policy := PolicyFromConfig(config.RateLimitConfig{GlobalLimit: 1000, AILimit: 2})
	rl := NewRateLimiter(client, policy, nopLogger{})
	user := "user-" + uuid.NewString()
	defer rl.ResetUserLimit(context.Background(), user, ClassAI)

	for i := 1; i <= 2; i++ {
		res, err := rl.CheckUserLimit(ctx, user, ClassAI)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(i), res.CurrentCount)
	}

	res, err := rl.CheckUserLimit(ctx, user, ClassAI)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(2), res.Limit)
	assert.Greater(t, res.RetryAfterSeconds, int64(0))

	// Other classes have their own counter
	res, err = rl.CheckUserLimit(ctx, user, ClassStandard)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	_ = rl.ResetUserLimit(context.Background(), user, ClassStandard)
}
