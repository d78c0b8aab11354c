// Package utils reads typed settings from the process environment.
package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	if v := GetEnvTrimmed(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns fallback when key is unset or not a valid bool.
func GetEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(GetEnvTrimmed(key)); err == nil {
		return b
	}
	return fallback
}

// GetEnvPositiveInt returns fallback unless key holds an integer > 0.
func GetEnvPositiveInt(key string, fallback int) int {
	if parsed, err := strconv.Atoi(GetEnvTrimmed(key)); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

// GetEnvPositiveDuration returns fallback unless key holds a Go duration > 0.
func GetEnvPositiveDuration(key string, fallback time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(GetEnvTrimmed(key)); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}
