package domain

import (
	"context"
	"fmt"

	"github.com/akeren/waitlist-signup/config"
	"github.com/akeren/waitlist-signup/domain/monitoring"
	"github.com/akeren/waitlist-signup/domain/signup"
	"github.com/akeren/waitlist-signup/pkg/events"
	"github.com/akeren/waitlist-signup/pkg/factory"
	"github.com/akeren/waitlist-signup/pkg/retry"
)

// NewSignupRepository builds the repository for the configured store driver.
func NewSignupRepository(appConfig *config.ApplicationConfig) (signup.SignupRepository, error) {
	repoConfig := signup.RepositoryConfig{DB: appConfig.DB}
	if appConfig.Store != nil {
		repoConfig.Driver = appConfig.Store.Driver
		repoConfig.Table = appConfig.Store.Table
		repoConfig.Bunt = appConfig.Store.Bunt
	}
	return signup.NewSignupRepository(repoConfig)
}

func SetupCoreDomain(ctx context.Context, appConfig *config.ApplicationConfig) error {
	repository, err := NewSignupRepository(appConfig)
	if err != nil {
		return err
	}

	err = retry.NewExponentialBackoff(retry.StartupConfig()).ExecuteContext(ctx, func() error {
		return repository.Init(ctx)
	})
	if err != nil {
		appConfig.Logger.Error("Failed to initialize signup store", "error", err)
		return fmt.Errorf("initialize signup store: %w", err)
	}

	// A nil interface must stay nil when no cache is configured.
	var cache signup.Cache
	if appConfig.Cache != nil {
		cache = appConfig.Cache
	}

	signupFactory := signup.NewSignupServiceFactory(
		signup.Dependencies{
			Logger:        appConfig.Logger,
			Repository:    repository,
			Locker:        appConfig.Locker,
			Authorizer:    appConfig.Authenticator,
			Publisher:     appConfig.Publisher,
			Cache:         cache,
			CountCacheTTL: appConfig.Config.CountCacheTTL,
			Metrics:       appConfig.RouterService.MetricsRegisterer(),
		},
		signup.ControllerConfig{
			Limiters: appConfig.RouterService.RateLimiterFactory(),
			Signup: factory.RateLimitConfig{
				Requests: appConfig.Config.SignupRateLimitRequests,
				Window:   appConfig.Config.SignupRateLimitWindow,
			},
			Export: factory.RateLimitConfig{
				Requests: appConfig.Config.ExportRateLimitRequests,
				Window:   appConfig.Config.ExportRateLimitWindow,
			},
		},
	)

	monitoringDeps := monitoring.Dependencies{
		Logger:   appConfig.Logger,
		Store:    signupFactory.CreateService(),
		Database: monitoring.GormPinger(appConfig.DB),
	}
	if appConfig.Cache != nil {
		monitoringDeps.Cache = appConfig.Cache
	}
	if !events.IsNop(appConfig.Publisher) {
		monitoringDeps.Queue = appConfig.Publisher
	}

	appConfig.RouterService.MountController(monitoring.NewMonitoringControllerFactory(monitoringDeps).CreateController())
	appConfig.RouterService.MountController(signupFactory.CreateController())
	return nil
}
