// Package device classifies the host device into a capability tier and
// maps each tier to a fixed AdaptiveConfig used by the request queue,
// image cache and API client.
package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tier is a coarse device-capability classification
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// AdaptiveConfig is the immutable per-tier tuning bundle
type AdaptiveConfig struct {
	Tier                  Tier          `json:"tier"`
	ImageQuality          int           `json:"image_quality"` // 0-100
	ThumbQuality          int           `json:"thumb_quality"` // 0-100
	MaxConcurrentRequests int           `json:"max_concurrent_requests"`
	RequestTimeout        time.Duration `json:"request_timeout"`
	CacheSizeMB           int           `json:"cache_size_mb"`
	BatchSize             int           `json:"batch_size"`
}

// CacheSizeBytes returns the soft cap of the image cache in bytes
func (c AdaptiveConfig) CacheSizeBytes() int64 {
	return int64(c.CacheSizeMB) * 1024 * 1024
}

var tierConfigs = map[Tier]AdaptiveConfig{
	TierLow: {
		Tier:                  TierLow,
		ImageQuality:          60,
		ThumbQuality:          40,
		MaxConcurrentRequests: 2,
		RequestTimeout:        20 * time.Second,
		CacheSizeMB:           50,
		BatchSize:             2,
	},
	TierMedium: {
		Tier:                  TierMedium,
		ImageQuality:          75,
		ThumbQuality:          50,
		MaxConcurrentRequests: 4,
		RequestTimeout:        15 * time.Second,
		CacheSizeMB:           100,
		BatchSize:             4,
	},
	TierHigh: {
		Tier:                  TierHigh,
		ImageQuality:          85,
		ThumbQuality:          60,
		MaxConcurrentRequests: 6,
		RequestTimeout:        10 * time.Second,
		CacheSizeMB:           200,
		BatchSize:             6,
	},
}

// ConfigFor returns the constant config for a tier. Unknown tiers get medium.
func ConfigFor(tier Tier) AdaptiveConfig {
	if cfg, ok := tierConfigs[tier]; ok {
		return cfg
	}
	return tierConfigs[TierMedium]
}

// AllConfigs returns the table in low→high order
func AllConfigs() []AdaptiveConfig {
	return []AdaptiveConfig{
		tierConfigs[TierLow],
		tierConfigs[TierMedium],
		tierConfigs[TierHigh],
	}
}

// ParseTier parses a tier name
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierLow:
		return TierLow, nil
	case TierMedium:
		return TierMedium, nil
	case TierHigh:
		return TierHigh, nil
	default:
		return "", fmt.Errorf("unknown tier: %q", s)
	}
}

// Classify maps a platform to a tier.
// Mobile OS major < 14 → low, 14-15 → medium, >= 16 → high.
// Non-mobile platforms and unparseable versions are medium.
func Classify(p Platform) Tier {
	if !p.IsMobile() {
		return TierMedium
	}

	major, ok := majorVersion(p.Version)
	if !ok {
		return TierMedium
	}

	switch {
	case major < 14:
		return TierLow
	case major < 16:
		return TierMedium
	default:
		return TierHigh
	}
}

func majorVersion(version string) (int, bool) {
	version = strings.TrimSpace(version)
	if version == "" {
		return 0, false
	}
	head, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(head)
	if err != nil || major < 0 {
		return 0, false
	}
	return major, true
}
