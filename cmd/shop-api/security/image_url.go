package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ImageURLValidator checks catalog image URLs. Every shopper device
// downloads them, so they must point at a public http(s) host.
// Hostnames are not resolved; only literal addresses are checked.
type ImageURLValidator struct {
	allowedSchemes   map[string]bool
	blockedHostnames map[string]bool
}

// NewImageURLValidator creates a validator with the default rules
func NewImageURLValidator() *ImageURLValidator {
	return &ImageURLValidator{
		allowedSchemes: map[string]bool{
			"http":  true,
			"https": true,
		},
		blockedHostnames: map[string]bool{
			"localhost":             true,
			"localhost.localdomain": true,
			"ip6-localhost":         true,
		},
	}
}

// Validate returns an error describing why raw is not an acceptable image URL
func (v *ImageURLValidator) Validate(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if !v.allowedSchemes[scheme] {
		return fmt.Errorf("scheme %q is not allowed (only http/https permitted)", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("host is required")
	}
	if v.blockedHostnames[host] || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("host %q is not public", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		return validateIP(ip)
	}
	return nil
}

// validateIP blocks loopback, private, link-local, multicast and unspecified addresses
func validateIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("IP %s is a loopback address", ip)
	case ip.IsPrivate():
		return fmt.Errorf("IP %s is a private network address", ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("IP %s is a link-local address", ip)
	case ip.IsMulticast():
		return fmt.Errorf("IP %s is a multicast address", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("IP %s is unspecified", ip)
	}
	return nil
}
