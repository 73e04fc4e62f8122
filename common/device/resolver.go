package device

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Logger interface for resolver logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// State of a Resolver
type State int

const (
	StateUninitialized State = iota
	StateResolving
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of tier detection
type Resolution struct {
	Platform Platform       `json:"platform"`
	Tier     Tier           `json:"tier"`
	Forced   bool           `json:"forced"`
	Config   AdaptiveConfig `json:"config"`
}

// Resolver detects the device tier once, lazily, and caches the result for
// its own lifetime. Concurrent first callers share one detection.
type Resolver struct {
	probe  Probe
	forced Tier
	log    Logger

	group    singleflight.Group
	mu       sync.RWMutex
	state    State
	resolved Resolution
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithForcedTier skips detection and uses tier
func WithForcedTier(tier Tier) ResolverOption {
	return func(r *Resolver) {
		r.forced = tier
	}
}

// WithLogger sets the resolver logger
func WithLogger(log Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a resolver using probe
func NewResolver(probe Probe, opts ...ResolverOption) *Resolver {
	r := &Resolver{probe: probe}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current resolver state
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Config returns the adaptive config, resolving it on first call
func (r *Resolver) Config(ctx context.Context) AdaptiveConfig {
	return r.Resolve(ctx).Config
}

// Resolve returns the cached resolution, detecting it on first call.
// Detection failures fall back to the medium tier; Resolve never fails.
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	r.mu.RLock()
	if r.state == StateResolved {
		res := r.resolved
		r.mu.RUnlock()
		return res
	}
	r.mu.RUnlock()

	v, _, _ := r.group.Do("resolve", func() (interface{}, error) {
		r.mu.Lock()
		if r.state == StateResolved {
			res := r.resolved
			r.mu.Unlock()
			return res, nil
		}
		r.state = StateResolving
		r.mu.Unlock()

		res := r.detect(ctx)

		r.mu.Lock()
		r.resolved = res
		r.state = StateResolved
		r.mu.Unlock()

		if r.log != nil {
			r.log.Info("device tier resolved",
				"tier", res.Tier,
				"os", res.Platform.OS,
				"os_version", res.Platform.Version,
				"forced", res.Forced,
				"max_concurrent_requests", res.Config.MaxConcurrentRequests)
		}
		return res, nil
	})

	return v.(Resolution)
}

func (r *Resolver) detect(ctx context.Context) Resolution {
	if r.forced != "" {
		return Resolution{Tier: r.forced, Forced: true, Config: ConfigFor(r.forced)}
	}

	platform, err := r.probe.Detect(ctx)
	if err != nil {
		if r.log != nil {
			r.log.Warn("device detection failed, using default tier", "error", err)
		}
		return Resolution{Tier: TierMedium, Config: ConfigFor(TierMedium)}
	}

	tier := Classify(platform)
	return Resolution{Platform: platform, Tier: tier, Config: ConfigFor(tier)}
}
