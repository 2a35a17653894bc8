package middleware

import (
	"fmt"
	"net/url"
	"strings"
)

// Input validation for proxied requests

// ValidateProxyPath checks a backend path supplied by the client. Only
// relative /api/ paths are forwarded; anything carrying a scheme or
// host would turn the proxy into an open relay.
func ValidateProxyPath(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}

	u, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if u.Scheme != "" || u.Host != "" {
		return fmt.Errorf("absolute URLs are not allowed")
	}
	if !strings.HasPrefix(u.Path, "/api/") {
		return fmt.Errorf("path must start with /api/")
	}
	if strings.Contains(u.Path, "..") {
		return fmt.Errorf("path traversal detected")
	}

	// Block control characters that could split headers downstream
	for _, c := range []string{"\n", "\r"} {
		if strings.Contains(path, c) {
			return fmt.Errorf("invalid characters in path")
		}
	}

	return nil
}

// ValidateLevel checks an auditor level (four ordered review tiers).
func ValidateLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid auditor level: %d (allowed: 0-3)", level)
	}
	return nil
}
