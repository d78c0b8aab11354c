// Package migrations applies versioned SQL files to the relational signup store.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

var ErrUnsupportedDialect = errors.New("migrations: unsupported dialect")

type migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	switch cfg.Dialect {
	case DialectPostgres:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
	case DialectSQLite:
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: cfg.MigrationsTable})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, cfg.Dialect)
	}
}

var migratorFactory = func(sourceURL, dialect string, driver database.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, dialect, driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	// Dialect is "postgres" or "sqlite".
	Dialect string
	// Dir defaults to migrations/<dialect>.
	Dir             string
	MigrationsTable string
	Logger          Logger
}

func (cfg *Config) applyDefaults() {
	cfg.Dialect = strings.ToLower(strings.TrimSpace(cfg.Dialect))
	if cfg.Dialect == "" {
		cfg.Dialect = DialectPostgres
	}
	if cfg.Dialect == "sqlite3" {
		cfg.Dialect = DialectSQLite
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = filepath.Join("migrations", cfg.Dialect)
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = "schema_migrations"
	}
}

func sourceURLFor(dir string) (string, string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("migrations: resolve dir: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(absDir)}).String(), absDir, nil
}

// Up applies every pending migration and reports the resulting version.
func Up(ctx context.Context, db *sql.DB, cfg Config) (uint, error) {
	if db == nil {
		return 0, fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cfg.applyDefaults()

	sourceURL, absDir, err := sourceURLFor(cfg.Dir)
	if err != nil {
		return 0, err
	}

	driver, err := driverFactory(db, cfg)
	if err != nil {
		return 0, fmt.Errorf("migrations: %s driver: %w", cfg.Dialect, err)
	}

	m, err := migratorFactory(sourceURL, cfg.Dialect, driver)
	if err != nil {
		return 0, fmt.Errorf("migrations: init: %w", err)
	}
	closeOnce := sync.Once{}
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if cfg.Logger != nil {
				if srcErr != nil {
					cfg.Logger.Warn("Migrations source close error", "error", srcErr)
				}
				if dbErr != nil {
					cfg.Logger.Warn("Migrations db close error", "error", dbErr)
				}
			}
		})
	}
	defer closeMigrator()

	if cfg.Logger != nil {
		cfg.Logger.Info("Running SQL migrations", "dialect", cfg.Dialect, "dir", absDir, "table", cfg.MigrationsTable)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Up()
	}()

	select {
	case <-ctx.Done():
		// migrate has no context support; closing is the only interrupt.
		closeMigrator()
		return 0, ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return 0, fmt.Errorf("migrations: up: %w", err)
		}
		if errors.Is(err, migrate.ErrNoChange) && cfg.Logger != nil {
			cfg.Logger.Info("No migrations to apply")
		}
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("migrations: version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migrations: database is dirty at version %d", version)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("Migrations applied successfully", "version", version)
	}
	return version, nil
}
