// Package hostutil normalizes API base URLs given on the command line or in config.
package hostutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize converts a host string to a base URL without a trailing slash.
// Bare localhost-style hosts default to http://, other bare hosts to https://,
// and full URLs are kept as-is.
func Normalize(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	host = strings.TrimSuffix(host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if IsLocalhost(host) {
		return "http://" + host
	}
	return "https://" + host
}

// RequireSecureURL rejects plain-http URLs that do not point at a loopback
// host. Client credentials are sent on every token request.
func RequireSecureURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme == "http" && !IsLocalhost(u.Host) {
		return fmt.Errorf("refusing insecure http:// base URL %q (use https or a localhost address)", raw)
	}
	return nil
}

// IsLocalhost returns true if host is localhost, a .localhost subdomain,
// 127.0.0.1, or [::1] (with optional port).
func IsLocalhost(host string) bool {
	hostWithoutPort := host
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		// Bracketed IPv6 without a port keeps its colons
		if !strings.HasPrefix(host, "[") || strings.HasPrefix(host, "[::1]:") {
			hostWithoutPort = host[:idx]
		}
	}

	if hostWithoutPort == "localhost" || strings.HasSuffix(hostWithoutPort, ".localhost") {
		return true
	}
	if hostWithoutPort == "127.0.0.1" {
		return true
	}
	return hostWithoutPort == "[::1]"
}
