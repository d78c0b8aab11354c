package config

import (
	"context"
	"os"
	"time"

	"github.com/akeren/waitlist-signup/config/router"
	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/internal/models"
	"github.com/akeren/waitlist-signup/pkg/auth"
	"github.com/akeren/waitlist-signup/pkg/constants"
	"github.com/akeren/waitlist-signup/pkg/events"
	"github.com/akeren/waitlist-signup/pkg/keylock"
	"github.com/akeren/waitlist-signup/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	Store           *Store
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Authenticator   auth.Chain
	Publisher       events.Publisher
	Locker          keylock.Locker
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests       int
	RateLimitWindow         time.Duration
	RequestTimeout          time.Duration
	SignupRateLimitRequests int
	SignupRateLimitWindow   time.Duration
	ExportRateLimitRequests int
	ExportRateLimitWindow   time.Duration
	CountCacheTTL           time.Duration
	LockTTL                 time.Duration
	Port                    string
}

func NewAppConfig() *AppConfig {
	config := &AppConfig{
		RateLimitRequests:       constants.DefaultRateLimitRequests,
		RateLimitWindow:         constants.DefaultRateLimitWindow(),
		RequestTimeout:          30 * time.Second, // Default request timeout
		SignupRateLimitRequests: constants.DefaultSignupRateLimitRequests,
		SignupRateLimitWindow:   constants.DefaultSignupRateLimitWindow(),
		ExportRateLimitRequests: constants.DefaultExportRateLimitRequests,
		ExportRateLimitWindow:   constants.DefaultExportRateLimitWindow,
		CountCacheTTL:           constants.DefaultCountCacheTTL,
		LockTTL:                 10 * time.Second,
	}

	// Override from environment variables
	config.RateLimitRequests = utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", config.RateLimitRequests)
	config.RateLimitWindow = utils.GetEnvPositiveDuration("RATE_LIMIT_WINDOW", config.RateLimitWindow)
	config.RequestTimeout = utils.GetEnvPositiveDuration("REQUEST_TIMEOUT", config.RequestTimeout)
	config.SignupRateLimitRequests = utils.GetEnvPositiveInt("SIGNUP_RATE_LIMIT_REQUESTS", config.SignupRateLimitRequests)
	config.SignupRateLimitWindow = utils.GetEnvPositiveDuration("SIGNUP_RATE_LIMIT_WINDOW", config.SignupRateLimitWindow)
	config.ExportRateLimitRequests = utils.GetEnvPositiveInt("EXPORT_RATE_LIMIT_REQUESTS", config.ExportRateLimitRequests)
	config.ExportRateLimitWindow = utils.GetEnvPositiveDuration("EXPORT_RATE_LIMIT_WINDOW", config.ExportRateLimitWindow)
	config.CountCacheTTL = utils.GetEnvPositiveDuration("COUNT_CACHE_TTL", config.CountCacheTTL)
	config.LockTTL = utils.GetEnvPositiveDuration("SIGNUP_LOCK_TTL", config.LockTTL)
	config.Port = sanitizeEnv(os.Getenv("PORT"))

	return config
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.Publisher != nil {
		ClosePublisher(ac.Publisher, ac.Logger)
	}

	if ac.Store != nil {
		CloseStore(ac.Store, ac.Logger)
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	storeConfig := NewStoreConfig()
	authenticator, err := NewAuthConfig().NewAuthenticator(logger)
	if err != nil {
		return nil, err
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(logger, storeConfig)
	if err != nil {
		return nil, err
	}

	db, err := OpenStoreDatabase(logger, storeConfig)
	if err != nil {
		CloseStore(store, logger)
		return nil, err
	}

	// SQLite is a local file owned by this process, so its schema is always
	// kept current. Postgres schema changes stay behind --auto-migrate or cli migrate.
	if db != nil && (autoMigrate || storeConfig.Driver == StoreDriverSQLite) {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			CloseDatabase(db, logger)
			CloseStore(store, logger)
			return nil, err
		}
	}

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrNil(logger)

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
		Port:              appConfig.Port,
	})

	locker := keylock.NewLocker(GetRedisClient(cache), appConfig.LockTTL)
	publisher := NewNotifierConfig().NewPublisher(logger, cache)

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		Store:           store,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Authenticator:   authenticator,
		Publisher:       publisher,
		Locker:          locker,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,
	}, nil
}
