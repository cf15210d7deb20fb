// Package env reads the platform variables that sit outside the RENTALCRM_
// namespace, such as the PORT injected by the hosting platform.
package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Instance names the running process for logs: the platform dyno or host
// name, or "local".
func Instance() string {
	if dyno := Get("DYNO", ""); dyno != "" {
		return dyno
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
