package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/storefront/common/config"
	"github.com/lyzr/storefront/common/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "test", Port: 8080, LogLevel: "error"},
		Queue:   config.QueueConfig{Type: "memory", BufferSize: 10},
		Cache:   config.CacheConfig{Enabled: true, SizeMB: 1},
	}
}

func TestSetup_WithoutExternalDeps(t *testing.T) {
	ctx := context.Background()
	c, err := Setup(ctx, "test",
		WithCustomConfig(testConfig()),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
		WithoutRedis(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)

	assert.Nil(t, c.DB)
	assert.Nil(t, c.Redis)
	assert.NotNil(t, c.Queue)
	assert.NotNil(t, c.Cache)
	assert.NoError(t, c.Health(ctx))

	require.NoError(t, c.Shutdown(ctx))
	// Second shutdown has nothing left to clean up
	require.NoError(t, c.Shutdown(ctx))
}

func TestSetup_UnknownQueue(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.Type = "kafka"

	_, err := Setup(context.Background(), "test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
		WithoutRedis(),
		WithoutTelemetry(),
	)
	assert.Error(t, err)
}

func TestShutdown_LIFOAndErrors(t *testing.T) {
	c := &Components{Logger: logger.Discard()}
	var order []int
	c.addCleanup(func() error { order = append(order, 1); return nil })
	c.addCleanup(func() error { order = append(order, 2); return errors.New("boom") })
	c.addCleanup(func() error { order = append(order, 3); return nil })

	err := c.Shutdown(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []int{3, 2, 1}, order)
}
