package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/retry"
	"github.com/akeren/waitlist-signup/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresConfig is read from APP_DATABASE_URL, or from the POSTGRES_* parts
// when no URL is set.
type PostgresConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func LoadPostgresConfig() (*PostgresConfig, error) {
	pc := &PostgresConfig{
		URL:             sanitizeEnv(os.Getenv("APP_DATABASE_URL")),
		Host:            sanitizeEnv(os.Getenv("POSTGRES_HOST")),
		User:            sanitizeEnv(os.Getenv("POSTGRES_USER")),
		Password:        sanitizeEnv(os.Getenv("POSTGRES_PASSWORD")),
		DBName:          sanitizeEnv(os.Getenv("POSTGRES_DB_NAME")),
		SSLMode:         sanitizeEnv(utils.GetEnvTrimmedOrDefault("POSTGRES_SSLMODE", "require")),
		MaxIdleConns:    utils.GetEnvPositiveInt("DB_MAX_IDLE_CONNS", 5),
		MaxOpenConns:    utils.GetEnvPositiveInt("DB_MAX_OPEN_CONNS", 20),
		ConnMaxLifetime: utils.GetEnvPositiveDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if pc.URL != "" {
		return pc, nil
	}

	var missing []string
	for name, value := range map[string]string{
		"POSTGRES_HOST":    pc.Host,
		"POSTGRES_PORT":    sanitizeEnv(os.Getenv("POSTGRES_PORT")),
		"POSTGRES_USER":    pc.User,
		"POSTGRES_DB_NAME": pc.DBName,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	portStr := sanitizeEnv(os.Getenv("POSTGRES_PORT"))
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid POSTGRES_PORT %q", portStr)
	}
	pc.Port = port
	return pc, nil
}

func (pc *PostgresConfig) DSN() string {
	if pc.URL != "" {
		return pc.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// NewPostgresDatabase connects with startup backoff and verifies the pool
// with a ping.
func NewPostgresDatabase(logger *log.Logger, pc *PostgresConfig) (*gorm.DB, error) {
	if pc.URL != "" {
		logger.Info("Connecting to postgres via APP_DATABASE_URL")
	} else {
		logger.Info("Connecting to postgres", "host", pc.Host, "port", pc.Port, "dbname", pc.DBName, "sslmode", pc.SSLMode)
	}

	var gdb *gorm.DB
	err := retry.NewExponentialBackoff(retry.StartupConfig()).Execute(func() error {
		var openErr error
		gdb, openErr = gorm.Open(postgres.Open(pc.DSN()), gormConfig())
		return openErr
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(pc.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pc.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pc.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Postgres connection established")
	return gdb, nil
}

// NewSQLiteDatabase opens a single-file database. One open connection keeps
// writers from tripping over SQLite's database-level lock.
func NewSQLiteDatabase(logger *log.Logger, path string) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	gdb, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), gormConfig())
	if err != nil {
		logger.Error("Failed to open sqlite database", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	logger.Info("SQLite database opened", "path", path)
	return gdb, nil
}

// OpenStoreDatabase opens the database behind a sqlite or postgres store and
// returns nil for file-based drivers.
func OpenStoreDatabase(logger *log.Logger, sc *StoreConfig) (*gorm.DB, error) {
	switch sc.Driver {
	case StoreDriverPostgres:
		pc, err := LoadPostgresConfig()
		if err != nil {
			return nil, err
		}
		return NewPostgresDatabase(logger, pc)
	case StoreDriverSQLite:
		return NewSQLiteDatabase(logger, sc.SQLitePath)
	default:
		return nil, nil
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...any) error {
	if db == nil {
		logger.Error("Cannot migrate: db is empty")
		return fmt.Errorf("cannot migrate: db is empty")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed successfully")

	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	} else {
		logger.Info("Database closed successfully")
	}
}
