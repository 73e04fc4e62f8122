package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		want     Tier
	}{
		{"old iOS", Platform{OS: "ios", Version: "13.7"}, TierLow},
		{"iOS 14", Platform{OS: "ios", Version: "14.0"}, TierMedium},
		{"iOS 15", Platform{OS: "ios", Version: "15.8.1"}, TierMedium},
		{"iOS 16", Platform{OS: "ios", Version: "16"}, TierHigh},
		{"iOS 17", Platform{OS: "iOS", Version: "17.2"}, TierHigh},
		{"android 12", Platform{OS: "android", Version: "12"}, TierLow},
		{"desktop", Platform{OS: "linux", Version: "22.04"}, TierMedium},
		{"missing version", Platform{OS: "ios"}, TierMedium},
		{"garbage version", Platform{OS: "ios", Version: "beta"}, TierMedium},
		{"unknown", Platform{}, TierMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.platform))
		})
	}
}

func TestConfigFor(t *testing.T) {
	low := ConfigFor(TierLow)
	high := ConfigFor(TierHigh)

	assert.Less(t, low.MaxConcurrentRequests, high.MaxConcurrentRequests)
	assert.Less(t, low.CacheSizeMB, high.CacheSizeMB)
	assert.Equal(t, int64(50*1024*1024), low.CacheSizeBytes())
	assert.Equal(t, TierMedium, ConfigFor("bogus").Tier)
	assert.Len(t, AllConfigs(), 3)
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" High ")
	require.NoError(t, err)
	assert.Equal(t, TierHigh, tier)

	_, err = ParseTier("ultra")
	assert.Error(t, err)
}

type countingProbe struct {
	calls   atomic.Int32
	release chan struct{}
	result  Platform
}

func (p *countingProbe) Detect(ctx context.Context) (Platform, error) {
	p.calls.Add(1)
	<-p.release
	return p.result, nil
}

func TestResolver_ConcurrentCallersShareDetection(t *testing.T) {
	probe := &countingProbe{
		release: make(chan struct{}),
		result:  Platform{OS: "ios", Version: "16.1"},
	}
	r := NewResolver(probe)
	assert.Equal(t, StateUninitialized, r.State())

	var wg sync.WaitGroup
	results := make([]AdaptiveConfig, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Config(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return r.State() == StateResolving }, time.Second, time.Millisecond)
	close(probe.release)
	wg.Wait()

	assert.Equal(t, StateResolved, r.State())
	assert.Equal(t, int32(1), probe.calls.Load())
	for _, cfg := range results {
		assert.Equal(t, TierHigh, cfg.Tier)
	}

	// Cached for the lifetime of the resolver
	r.Config(context.Background())
	assert.Equal(t, int32(1), probe.calls.Load())
}

func TestResolver_ProbeErrorFallsBackToMedium(t *testing.T) {
	r := NewResolver(StaticProbe{Err: errors.New("no device info")})

	res := r.Resolve(context.Background())
	assert.Equal(t, TierMedium, res.Tier)
	assert.Equal(t, ConfigFor(TierMedium), res.Config)
}

func TestResolver_ForcedTier(t *testing.T) {
	r := NewResolver(StaticProbe{Platform: Platform{OS: "ios", Version: "17"}}, WithForcedTier(TierLow))

	res := r.Resolve(context.Background())
	assert.True(t, res.Forced)
	assert.Equal(t, TierLow, res.Tier)
	assert.Equal(t, 2, res.Config.MaxConcurrentRequests)
}

func TestSystemProbe_EnvOverrides(t *testing.T) {
	env := map[string]string{"DEVICE_OS": "iOS", "DEVICE_OS_VERSION": "13.2"}
	p := &SystemProbe{lookupEnv: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	platform, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Platform{OS: "ios", Version: "13.2"}, platform)
	assert.Equal(t, TierLow, Classify(platform))
}
