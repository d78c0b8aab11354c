package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/akeren/waitlist-signup/config/router"
	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/factory"
	"github.com/akeren/waitlist-signup/pkg/ratelimit"
	"gorm.io/gorm"
)

const checkTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports whether the signup store is present.
type StoreChecker interface {
	StoreExists(ctx context.Context) (bool, error)
}

// HealthResponse is the public liveness body.
type HealthResponse struct {
	Status      string `json:"status"`
	SignupsFile bool   `json:"signups_file"`
}

// HealthStatus is the detailed health body. Components that are not
// configured are left nil and omitted.
type HealthStatus struct {
	Store        int  `json:"store"`                   // 1 = present, 0 = absent or unreadable
	Database     *int `json:"database,omitempty"`      // 1 = healthy, 0 = unhealthy
	Cache        *int `json:"cache,omitempty"`         // 1 = healthy, 0 = unhealthy
	MessageQueue *int `json:"message_queue,omitempty"` // 1 = healthy, 0 = unhealthy
	Uptime       int  `json:"uptime"`                  // uptime in seconds
}

// Dependencies lists what the health checks cover. Nil members read as not configured.
type Dependencies struct {
	Logger   *log.Logger
	Store    StoreChecker
	Database Pinger
	Cache    Pinger
	Queue    Pinger
}

type MonitoringController struct {
	deps      Dependencies
	startTime time.Time
}

func NewMonitoringController(deps Dependencies) *router.RESTController {
	if deps.Logger == nil {
		deps.Logger = log.NewNopLogger()
	}
	ctrl := &MonitoringController{
		deps:      deps,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/api",
		func(routerService *router.RouterService, controller *router.RESTController) {
			routerService.AddGetHandler(controller, ratelimit.Unlimited{}, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(c)
			})

			routerService.AddGetHandler(controller, createMonitoringRateLimiter(routerService), "health/details", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthDetails(routerService, c)
			})
		},
	)
}

func createMonitoringRateLimiter(routerService *router.RouterService) ratelimit.RateLimiter {
	const monitoringRequestsPerMinute = 10

	return routerService.RateLimiterFactory().CreateRateLimiter(factory.RateLimitConfig{
		Scope:    "monitoring",
		Requests: monitoringRequestsPerMinute,
		Window:   time.Minute,
	})
}

// healthCheck always answers 200; signups_file is false only when the store is absent.
func (ctrl *MonitoringController) healthCheck(c *router.RequestContext) *router.ServiceResult {
	exists := false
	if ctrl.deps.Store != nil {
		var err error
		exists, err = ctrl.deps.Store.StoreExists(c.Request.Context())
		if err != nil {
			router.GetLogger(c).Error("Store existence check failed", "error", err)
		}
	}

	return router.RawResult(http.StatusOK, HealthResponse{Status: "OK", SignupsFile: exists})
}

func (ctrl *MonitoringController) healthDetails(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Info("Health details endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	return &router.ServiceResult{
		StatusCode: http.StatusOK,
		Data:       ctrl.performHealthChecks(ctx, logger),
		Message:    "waitlist-signup health check completed",
	}
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
	}

	if ctrl.deps.Store != nil {
		if exists, err := ctrl.deps.Store.StoreExists(ctx); err == nil && exists {
			status.Store = 1
		} else {
			logger.Error("Store health check failed", "error", err)
		}
	}

	status.Database = checkComponent(ctx, "Database", ctrl.deps.Database, logger)
	status.Cache = checkComponent(ctx, "Cache", ctrl.deps.Cache, logger)
	status.MessageQueue = checkComponent(ctx, "Message queue", ctrl.deps.Queue, logger)

	return status
}

// checkComponent returns nil when p is not configured.
func checkComponent(ctx context.Context, name string, p Pinger, logger *log.Logger) *int {
	if p == nil {
		logger.Info(name + " not configured, health check skipped")
		return nil
	}
	healthy := 0
	if err := p.Ping(ctx); err != nil {
		logger.Error(name+" health check failed", "error", err)
		return &healthy
	}
	logger.Info(name + " health check passed")
	healthy = 1
	return &healthy
}

type gormPinger struct {
	db *gorm.DB
}

// GormPinger adapts a gorm handle to Pinger. A nil db yields nil.
func GormPinger(db *gorm.DB) Pinger {
	if db == nil {
		return nil
	}
	return gormPinger{db: db}
}

func (p gormPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
