package router

import (
	"context"
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/ratelimit"
)

const correlationHeader = "X-Correlation-ID"

// Incoming correlation ids end up in every log line, so only plain tokens are kept.
var correlationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// requestContextMiddleware binds a correlation id and a correlated logger to
// the request context, echoing the id back to the client.
func (routerService *RouterService) requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		incoming := strings.TrimSpace(c.GetHeader(correlationHeader))
		if !correlationIDPattern.MatchString(incoming) {
			incoming = ""
		}

		ctx, id := log.ContextWithCorrelationID(c.Request.Context(), incoming)
		ctx = log.ContextWithLogger(ctx, routerService.logger)
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlationHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		routerService.GetLogger(c).Info("HTTP request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	hsts := routerService.policy.HSTS

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if hsts != "" && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// isHTTPS also accepts TLS terminated at a reverse proxy.
func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.policy.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResult(
				http.StatusRequestEntityTooLarge,
				"Request payload too large",
				nil,
			).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware answers preflights for allowed origins. Requests from other
// origins proceed without CORS headers, so browsers refuse the response.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	policy := routerService.policy
	if len(policy.CORSOrigins) == 0 {
		routerService.logger.Info("CORS_ALLOWED_ORIGIN not set; cross-origin browser requests are refused")
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !policy.allowsOrigin(origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Requested-With, "+correlationHeader)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, Retry-After, "+correlationHeader)
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	timeout := routerService.requestTimeout

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		// Never c.Next() in a goroutine; gin.Context is not safe for concurrent use.
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			routerService.GetLogger(c).Warn("Request timeout detected")
			c.AbortWithStatusJSON(http.StatusRequestTimeout, ErrorResult(
				http.StatusRequestTimeout,
				"Request timeout",
				nil,
			).ToJSON())
		}
	}
}

// limiterFor picks the handler override for the matched route, falling back
// to the global limiter.
func (routerService *RouterService) limiterFor(c *gin.Context) ratelimit.RateLimiter {
	key := routerService.keyForPathAndMethod(c.FullPath(), c.Request.Method)
	if limiter, ok := routerService.rateLimitOverrides[key]; ok {
		return limiter
	}
	return routerService.rateLimiter
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Unmatched routes are answered by NoRoute/NoMethod.
		if c.FullPath() == "" {
			c.Next()
			return
		}

		limiter := routerService.limiterFor(c)
		if limiter == nil || ratelimit.IsUnlimited(limiter) {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		limited, err := limiter.IsLimited(c.Request.Context(), clientIP)
		if err != nil {
			// Fail open: a broken limiter backend must not take the API down.
			routerService.GetLogger(c).Error("Rate limiter error", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}
		if !limited {
			c.Next()
			return
		}

		retryAfter := strconv.Itoa(max(1, int(math.Ceil(window.Seconds()))))
		routerService.GetLogger(c).Warn("Rate limit exceeded", "client_ip", clientIP, "route", c.FullPath())
		c.Header("Retry-After", retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
			Limit:      limit,
			Window:     window.String(),
			RetryAfter: retryAfter,
		}).ToJSON())
	}
}
