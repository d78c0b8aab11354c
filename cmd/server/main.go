package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akeren/waitlist-signup/config"
	"github.com/akeren/waitlist-signup/domain"
	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

const (
	defaultSetupTimeout    = 30 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	var autoMigrate bool
	flags := flag.NewFlagSet("server", flag.ExitOnError)
	flags.BoolVar(&autoMigrate, "auto-migrate", false, "apply database migrations before serving")
	flags.BoolVar(&autoMigrate, "m", false, "shorthand for -auto-migrate")
	_ = flags.Parse(os.Args[1:])

	if err := run(logger, autoMigrate); err != nil {
		logger.Error("Waitlist signup server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, autoMigrate bool) error {
	appConfig, err := config.LoadApplicationConfiguration(logger, autoMigrate)
	if err != nil {
		return err
	}
	defer appConfig.Cleanup()

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), defaultSetupTimeout)
	err = domain.SetupCoreDomain(setupCtx, appConfig)
	cancelSetup()
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-signalCtx.Done():
	}

	logger.Info("Shutdown signal received, draining requests")
	timeout := utils.GetEnvPositiveDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("Graceful shutdown completed")
	return nil
}
