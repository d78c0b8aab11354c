package router

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/akeren/waitlist-signup/pkg/utils"
)

const (
	defaultMaxBodyBytes = int64(1 << 20)
	defaultHSTSMaxAge   = int64(31536000)
)

// HTTPPolicy is the transport hardening applied to every request. It is read
// from the environment once, when the router is created.
type HTTPPolicy struct {
	// TrustedProxies nil means ClientIP() is always RemoteAddr.
	TrustedProxies []string
	// CORSOrigins lists origins allowed to call the API from a browser; "*" allows any.
	CORSOrigins  []string
	MaxBodyBytes int64
	// HSTS is the Strict-Transport-Security value; empty disables the header.
	HSTS string
}

// LoadHTTPPolicy reads TRUSTED_PROXIES, CORS_ALLOWED_ORIGIN,
// MAX_REQUEST_BODY_BYTES and the HSTS_* variables.
func LoadHTTPPolicy() HTTPPolicy {
	return HTTPPolicy{
		TrustedProxies: parseTrustedProxiesEnv(os.Getenv("TRUSTED_PROXIES")),
		CORSOrigins:    splitList(os.Getenv("CORS_ALLOWED_ORIGIN")),
		MaxBodyBytes:   positiveInt64(os.Getenv("MAX_REQUEST_BODY_BYTES"), defaultMaxBodyBytes),
		HSTS:           hstsFromEnv(),
	}
}

func (p HTTPPolicy) allowsOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range p.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func parseTrustedProxiesEnv(v string) []string {
	s := strings.TrimSpace(v)
	if s == "*" {
		// Local/dev escape hatch.
		return []string{"0.0.0.0/0", "::/0"}
	}
	return splitList(s)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveInt64(raw string, fallback int64) int64 {
	if parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

// hstsFromEnv is on by default only when APP_ENV is production.
func hstsFromEnv() string {
	appEnv := strings.ToLower(utils.GetEnvTrimmed("APP_ENV"))
	if !utils.GetEnvBool("HSTS_ENABLED", appEnv == "production" || appEnv == "prod") {
		return ""
	}

	value := fmt.Sprintf("max-age=%d", positiveInt64(os.Getenv("HSTS_MAX_AGE"), defaultHSTSMaxAge))
	if utils.GetEnvBool("HSTS_INCLUDE_SUBDOMAINS", true) {
		value += "; includeSubDomains"
	}
	return value
}
