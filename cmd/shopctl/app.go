package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/storefront/common/clients"
	"github.com/lyzr/storefront/common/config"
	"github.com/lyzr/storefront/common/device"
	"github.com/lyzr/storefront/common/imagecache"
	"github.com/lyzr/storefront/common/kvstore"
	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/metrics"
	rediscommon "github.com/lyzr/storefront/common/redis"
	"github.com/lyzr/storefront/common/requestqueue"
)

// app holds what one shopctl invocation needs. The tier is resolved once in
// newApp and its config is handed to the API client and the image cache.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	out      io.Writer
	resolver *device.Resolver
	client   *clients.ShopClient

	store  kvstore.Store
	images *imagecache.Cache
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, out io.Writer) (*app, error) {
	opts := []device.ResolverOption{device.WithLogger(log)}
	if cfg.Client.DeviceTier != "" {
		tier, err := device.ParseTier(cfg.Client.DeviceTier)
		if err != nil {
			return nil, err
		}
		opts = append(opts, device.WithForcedTier(tier))
	}
	resolver := device.NewResolver(device.NewSystemProbe(), opts...)
	adaptive := resolver.Config(ctx)

	queue := requestqueue.New(adaptive.MaxConcurrentRequests,
		requestqueue.WithName("api"),
		requestqueue.WithObserver(metrics.QueueObserver{}),
	)
	client := clients.NewShopClient(cfg.Client.APIBaseURL, adaptive, log, clients.WithQueue(queue))

	return &app{
		cfg:      cfg,
		log:      log,
		out:      out,
		resolver: resolver,
		client:   client,
	}, nil
}

// userContext attaches the configured shopper ID, failing when none is set
func (a *app) userContext(ctx context.Context) (context.Context, error) {
	if a.cfg.Client.UserID == "" {
		return nil, fmt.Errorf("SHOP_USER_ID is required for this command")
	}
	return clients.WithUserID(ctx, a.cfg.Client.UserID), nil
}

// imageCache opens the index store and image cache on first use
func (a *app) imageCache(ctx context.Context) (*imagecache.Cache, error) {
	if a.images != nil {
		return a.images, nil
	}

	store, err := openStore(ctx, a.cfg, a.log)
	if err != nil {
		return nil, err
	}

	images, err := imagecache.New(a.cfg.Client.CacheDir, store, a.resolver.Config(ctx),
		imagecache.WithLogger(a.log),
		imagecache.WithObserver(metrics.ImageCacheObserver{}),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open image cache: %w", err)
	}

	a.store = store
	a.images = images
	return images, nil
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// openStore selects the image index backend from CLIENT_INDEX_STORE
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (kvstore.Store, error) {
	switch cfg.Client.IndexStore {
	case "memory":
		return kvstore.NewMemoryStore(), nil

	case "sqlite":
		path := cfg.Client.IndexStorePath
		// Kept beside the cache dir; Clear removes every file inside it
		if path == "" {
			path = filepath.Join(filepath.Dir(cfg.Client.CacheDir), "image-index.db")
		}
		return kvstore.OpenSQLite(ctx, path)

	case "redis":
		raw := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		client := rediscommon.NewClient(raw, log)
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("index store: %w", err)
		}
		return kvstore.NewRedisStore(client, "shopctl:"), nil

	default:
		return nil, fmt.Errorf("unknown index store: %s", cfg.Client.IndexStore)
	}
}
