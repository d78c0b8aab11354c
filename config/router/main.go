package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/factory"
	"github.com/akeren/waitlist-signup/pkg/ratelimit"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

const DefaultTimeoutDuration = 30 * time.Second

// Cache is the subset of the application cache the router needs. A cache
// that also exposes a Redis client gets distributed rate limiting.
type Cache interface {
	Ping(ctx context.Context) error
}

type RouterService struct {
	engine          *gin.Engine
	server          *http.Server
	logger          *log.Logger
	policy          HTTPPolicy
	requestTimeout  time.Duration
	limiters        *factory.DefaultRateLimiterFactory
	rateLimiter     ratelimit.RateLimiter
	metricsRegistry *prometheus.Registry

	// Keyed by "METHOD-/full/path".
	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	// Port defaults to $PORT, then $APP_PORT, then 3001.
	Port string
	// Policy defaults to LoadHTTPPolicy().
	Policy *HTTPPolicy
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	if mode, ok := os.LookupEnv("GIN_MODE"); ok && mode != "" {
		logger.Info("Setting Gin mode", "mode", mode)
		gin.SetMode(mode)
	}

	policy := LoadHTTPPolicy()
	if routerConfig.Policy != nil {
		policy = *routerConfig.Policy
	}

	timeout := routerConfig.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeoutDuration
	}

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())

	if utils.IsTracingEnabled() {
		ginRouter.Use(otelgin.Middleware(utils.OTelServiceName()))
		logger.Info("Tracing middleware enabled")
	}

	// Gin trusts every proxy unless told otherwise, which lets clients spoof ClientIP().
	if err := ginRouter.SetTrustedProxies(policy.TrustedProxies); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES; disabling trusted proxies", "error", err)
		_ = ginRouter.SetTrustedProxies(nil)
	} else if policy.TrustedProxies == nil {
		logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}

	// A nil Cache must reach the factory as a nil interface.
	var limiterCache factory.Cache
	if cache != nil {
		limiterCache = cache
	}

	rs := &RouterService{
		engine:                 ginRouter,
		logger:                 logger,
		policy:                 policy,
		requestTimeout:         timeout,
		limiters:               factory.NewDefaultRateLimiterFactory(limiterCache, logger),
		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
		handlerToControllerMap: make(map[string]*RESTController),
	}

	rs.rateLimiter = rs.limiters.CreateRateLimiter(factory.RateLimitConfig{
		Scope:    "global",
		Requests: routerConfig.RateLimitRequests,
		Window:   routerConfig.RateLimitWindow,
	})
	logger.Info("Rate limiting initialized",
		"distributed", rs.limiters.Distributed(),
		"requests", routerConfig.RateLimitRequests,
		"window", routerConfig.RateLimitWindow)

	// Opt-out: /metrics
	rs.mountMetrics()

	ginRouter.Use(rs.securityHeadersMiddleware())
	ginRouter.Use(rs.maxBodySizeMiddleware())
	ginRouter.Use(rs.corsMiddleware())
	ginRouter.Use(rs.requestContextMiddleware())
	ginRouter.Use(rs.rateLimitMiddleware())
	ginRouter.Use(rs.timeoutMiddleware())
	ginRouter.Use(rs.requestLoggingMiddleware())

	ginRouter.HandleMethodNotAllowed = true
	ginRouter.RedirectTrailingSlash = true

	ginRouter.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, NotFoundResult("Route not found").ToJSON())
	})
	ginRouter.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResult(http.StatusMethodNotAllowed, "Method not allowed", nil).ToJSON())
	})

	rs.server = &http.Server{
		Addr:    ":" + resolvePort(routerConfig.Port),
		Handler: ginRouter,

		// Gin's Context is not goroutine-safe, so handler time limits are
		// enforced by the server rather than by running handlers concurrently.
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized", "addr", rs.server.Addr)
	return rs
}

func resolvePort(configured string) string {
	if p := strings.TrimSpace(configured); p != "" {
		return p
	}
	if p := utils.GetEnvTrimmed("PORT"); p != "" {
		return p
	}
	return utils.GetEnvTrimmedOrDefault("APP_PORT", "3001")
}

// RateLimiterFactory hands out limiters sharing the router's backend, so
// per-route overrides and the global limiter agree on Redis vs memory.
func (routerService *RouterService) RateLimiterFactory() factory.RateLimiterFactory {
	return routerService.limiters
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(c.Request.Context(), routerService.logger)
}

// Cleanup closes the global limiter and every per-route override.
func (routerService *RouterService) Cleanup() {
	closed := map[ratelimit.RateLimiter]bool{}
	closeLimiter := func(limiter ratelimit.RateLimiter) {
		if limiter == nil || closed[limiter] {
			return
		}
		closed[limiter] = true
		if err := limiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}

	closeLimiter(routerService.rateLimiter)
	for _, limiter := range routerService.rateLimitOverrides {
		closeLimiter(limiter)
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"handlers", controller.handlerCount,
	)
}

// Addr is the listen address, e.g. ":3001".
func (routerService *RouterService) Addr() string {
	return routerService.server.Addr
}

func (routerService *RouterService) RunHTTPServer() error {
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	if err := routerService.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		routerService.logger.Error("Failed to start HTTP server", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully...")
	return routerService.server.Shutdown(ctx)
}
