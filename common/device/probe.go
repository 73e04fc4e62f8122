package device

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Platform describes the OS the client runs on
type Platform struct {
	OS      string `json:"os"`
	Version string `json:"version"`
}

// IsMobile reports whether the platform is a phone/tablet OS
func (p Platform) IsMobile() bool {
	switch strings.ToLower(p.OS) {
	case "ios", "ipados", "android":
		return true
	default:
		return false
	}
}

// Probe detects the current platform
type Probe interface {
	Detect(ctx context.Context) (Platform, error)
}

// StaticProbe always reports the same platform
type StaticProbe struct {
	Platform Platform
	Err      error
}

// Detect implements Probe
func (p StaticProbe) Detect(ctx context.Context) (Platform, error) {
	return p.Platform, p.Err
}

// SystemProbe detects the platform from the Go runtime.
// DEVICE_OS / DEVICE_OS_VERSION take precedence so an embedding app can
// bridge the real device values in.
type SystemProbe struct {
	lookupEnv func(string) (string, bool)
}

// NewSystemProbe creates a probe backed by the process environment
func NewSystemProbe() *SystemProbe {
	return &SystemProbe{lookupEnv: os.LookupEnv}
}

// Detect implements Probe
func (p *SystemProbe) Detect(ctx context.Context) (Platform, error) {
	platform := Platform{OS: runtime.GOOS}

	if v, ok := p.lookupEnv("DEVICE_OS"); ok && v != "" {
		platform.OS = strings.ToLower(v)
	}
	if v, ok := p.lookupEnv("DEVICE_OS_VERSION"); ok && v != "" {
		platform.Version = v
		return platform, nil
	}

	platform.Version = hostVersion(ctx, platform.OS)
	return platform, nil
}

// hostVersion returns the version of a desktop/server OS, best effort.
// Mobile hosts have no local way to ask, so they rely on DEVICE_OS_VERSION.
func hostVersion(ctx context.Context, goos string) string {
	switch goos {
	case "linux":
		return linuxVersion()
	case "darwin":
		if out, err := exec.CommandContext(ctx, "sw_vers", "-productVersion").Output(); err == nil {
			return strings.TrimSpace(string(out))
		}
	}
	return ""
}

func linuxVersion() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "VERSION_ID=") {
			return strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), "\"")
		}
	}
	return ""
}
