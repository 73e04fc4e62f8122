package ratelimit

import (
	"net/http"
	"strings"

	"github.com/lyzr/storefront/common/config"
)

// Class groups routes that share a per-user counter
type Class string

const (
	ClassStandard Class = "standard" // browsing, cart, support
	ClassCheckout Class = "checkout" // order placement
	ClassAI       Class = "ai"       // AI generation, billed per call
)

// ClassConfig defines the limit for a route class
type ClassConfig struct {
	Class         Class
	Limit         int64  // Requests allowed per window
	WindowSeconds int    // Time window in seconds
	Description   string // Human-readable description
}

// GlobalConfig contains service-wide limits
type GlobalConfig struct {
	Limit         int64 // Total requests per window (all users)
	WindowSeconds int   // Time window
}

// Policy is the full set of limits the middleware enforces
type Policy struct {
	Global  GlobalConfig
	Classes map[Class]ClassConfig
}

// DefaultPolicy mirrors the config defaults
var DefaultPolicy = Policy{
	Global: GlobalConfig{Limit: 600, WindowSeconds: 60},
	Classes: map[Class]ClassConfig{
		ClassStandard: {Class: ClassStandard, Limit: 120, WindowSeconds: 60, Description: "Browsing and cart - 120 requests/minute"},
		ClassCheckout: {Class: ClassCheckout, Limit: 10, WindowSeconds: 60, Description: "Checkout - 10 orders/minute"},
		ClassAI:       {Class: ClassAI, Limit: 10, WindowSeconds: 60, Description: "AI generation - 10 calls/minute"},
	},
}

// PolicyFromConfig builds a policy from rate limit settings
func PolicyFromConfig(cfg config.RateLimitConfig) Policy {
	p := Policy{
		Global:  GlobalConfig{Limit: cfg.GlobalLimit, WindowSeconds: 60},
		Classes: make(map[Class]ClassConfig, len(DefaultPolicy.Classes)),
	}
	for class, cc := range DefaultPolicy.Classes {
		p.Classes[class] = cc
	}

	set := func(class Class, limit int64) {
		if limit <= 0 {
			return
		}
		cc := p.Classes[class]
		cc.Limit = limit
		p.Classes[class] = cc
	}
	set(ClassStandard, cfg.UserLimit)
	set(ClassCheckout, cfg.CheckoutLimit)
	set(ClassAI, cfg.AILimit)

	if p.Global.Limit <= 0 {
		p.Global = DefaultPolicy.Global
	}
	return p
}

// For returns the config of a class, falling back to the most restrictive
func (p Policy) For(class Class) ClassConfig {
	if cc, ok := p.Classes[class]; ok {
		return cc
	}
	return p.Classes[ClassAI]
}

// ClassifyRoute maps a request onto its rate limit class
func ClassifyRoute(method, path string) Class {
	path = strings.TrimSuffix(path, "/")
	switch {
	case strings.HasPrefix(path, "/api/v1/ai/") && method == http.MethodPost:
		return ClassAI
	case path == "/api/v1/orders" && method == http.MethodPost:
		return ClassCheckout
	default:
		return ClassStandard
	}
}
