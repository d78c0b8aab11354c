package constants

import "time"

// RFC 3339 date-time format string.
// Use this format for all date-time serialization and communication with external systems.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// ISO8601MillisFormat is the timestamp layout written to the signup store.
// Values are always formatted in UTC, so the zone renders as "Z".
const ISO8601MillisFormat = "2006-01-02T15:04:05.000Z07:00"

// Default rate limiting configuration
const (
	// DefaultRateLimitRequests is the default number of requests allowed per time window
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindow is the default time window for rate limiting
	DefaultRateLimitWindowMinutes = 1
)

// Signup submission limits: 10 requests per 15 minutes per client.
const (
	DefaultSignupRateLimitRequests      = 10
	DefaultSignupRateLimitWindowMinutes = 15
)

// Export downloads: 20 requests per minute per client.
const (
	DefaultExportRateLimitRequests = 20
	DefaultExportRateLimitWindow   = time.Minute
)

const (
	DefaultAppPort        = "3001"
	DefaultSignupsFile    = "signups.csv"
	DefaultBuntDBPath     = "signups.db"
	DefaultSQLitePath     = "signups.sqlite"
	DefaultExportFilename = "signups.csv"
	DefaultCountCacheTTL  = 30 * time.Second
)

// DefaultRateLimitWindow returns the default rate limit window duration
func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

// DefaultSignupRateLimitWindow returns the default window for signup submissions.
func DefaultSignupRateLimitWindow() time.Duration {
	return time.Duration(DefaultSignupRateLimitWindowMinutes) * time.Minute
}
