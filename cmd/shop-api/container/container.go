package container

import (
	"context"
	"fmt"

	"github.com/lyzr/storefront/cmd/shop-api/repository"
	"github.com/lyzr/storefront/cmd/shop-api/service"
	"github.com/lyzr/storefront/common/bootstrap"
	"github.com/lyzr/storefront/common/genai"
	"github.com/lyzr/storefront/common/queue"
	"github.com/lyzr/storefront/common/ratelimit"
)

// geminiKeySetting is the settings row consulted when GEMINI_API_KEY is unset
const geminiKeySetting = "gemini_api_key"

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components

	// Repositories
	ProductRepo *repository.ProductRepository
	CartRepo    *repository.CartRepository
	OrderRepo   *repository.OrderRepository
	ReturnRepo  *repository.ReturnRepository
	TicketRepo  *repository.TicketRepository
	AIRepo      *repository.AIRepository

	// Services
	ProductService *service.ProductService
	CartService    *service.CartService
	OrderService   *service.OrderService
	ReturnService  *service.ReturnService
	TicketService  *service.TicketService
	AIService      *service.AIService

	// RateLimiter is nil when Redis or rate limiting is disabled
	RateLimiter *ratelimit.RateLimiter
}

// NewContainer initializes all services and repositories once. ctx bounds
// the lifetime of event subscriptions.
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	if components.DB == nil {
		return nil, fmt.Errorf("shop-api requires a database")
	}
	cfg := components.Config
	log := components.Logger

	// Initialize repositories
	productRepo := repository.NewProductRepository(components.DB)
	cartRepo := repository.NewCartRepository(components.DB)
	orderRepo := repository.NewOrderRepository(components.DB)
	returnRepo := repository.NewReturnRepository(components.DB)
	ticketRepo := repository.NewTicketRepository(components.DB)
	aiRepo := repository.NewAIRepository(components.DB)

	filters, err := service.NewFilterEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create filter evaluator: %w", err)
	}

	// Environment key wins; the settings table lets operators rotate it at runtime
	keys := genai.FirstKey(
		genai.StaticKey(cfg.AI.APIKey),
		genai.KeyFunc(func(ctx context.Context) (string, error) {
			return aiRepo.Setting(ctx, geminiKeySetting)
		}),
	)
	gemini := genai.NewClient(genai.Config{
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, keys, log)

	// Initialize services (bottom-up: dependencies first)
	productService := service.NewProductService(productRepo, components.Cache, cfg.Cache.DefaultTTL, filters, log)
	cartService := service.NewCartService(cartRepo, productRepo, log)
	orderService := service.NewOrderService(orderRepo, components.Queue, log)
	returnService := service.NewReturnService(returnRepo, orderRepo, log)
	ticketService := service.NewTicketService(ticketRepo, orderRepo, log)
	aiService := service.NewAIService(aiRepo, gemini, productRepo, log)

	// Stock changes on checkout and cancel make cached listings stale
	if components.Queue != nil {
		if err := components.Queue.Subscribe(ctx, queue.TopicOrderEvents, productService.HandleOrderEvent); err != nil {
			return nil, fmt.Errorf("failed to subscribe to %s: %w", queue.TopicOrderEvents, err)
		}
	}

	if ttl := cfg.Orders.PendingTTL; ttl > 0 {
		expirer := service.NewOrderExpirer(orderService, orderRepo, ttl, cfg.Orders.ExpiryInterval, log)
		go expirer.Start(ctx)
	}

	var limiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && components.Redis != nil {
		limiter = ratelimit.NewRateLimiter(
			components.Redis.GetUnderlying(),
			ratelimit.PolicyFromConfig(cfg.RateLimit),
			log,
		)
	} else {
		log.Warn("rate limiting disabled", "enabled", cfg.RateLimit.Enabled, "redis", components.Redis != nil)
	}

	return &Container{
		Components:     components,
		ProductRepo:    productRepo,
		CartRepo:       cartRepo,
		OrderRepo:      orderRepo,
		ReturnRepo:     returnRepo,
		TicketRepo:     ticketRepo,
		AIRepo:         aiRepo,
		ProductService: productService,
		CartService:    cartService,
		OrderService:   orderService,
		ReturnService:  returnService,
		TicketService:  ticketService,
		AIService:      aiService,
		RateLimiter:    limiter,
	}, nil
}
