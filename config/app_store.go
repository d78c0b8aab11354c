package config

import (
	"fmt"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/internal/models"
	"github.com/akeren/waitlist-signup/pkg/constants"
	"github.com/akeren/waitlist-signup/pkg/csvstore"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

const (
	StoreDriverCSV      = "csv"
	StoreDriverBuntDB   = "buntdb"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

type StoreConfig struct {
	Driver      string
	SignupsFile string
	BuntDBPath  string
	SQLitePath  string
}

func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Driver:      strings.ToLower(utils.GetEnvTrimmedOrDefault("STORE_DRIVER", StoreDriverCSV)),
		SignupsFile: sanitizeEnv(utils.GetEnvTrimmedOrDefault("SIGNUPS_FILE", constants.DefaultSignupsFile)),
		BuntDBPath:  sanitizeEnv(utils.GetEnvTrimmedOrDefault("BUNTDB_PATH", constants.DefaultBuntDBPath)),
		SQLitePath:  sanitizeEnv(utils.GetEnvTrimmedOrDefault("SQLITE_PATH", constants.DefaultSQLitePath)),
	}
}

// UsesDatabase reports whether the signup store lives in a gorm database.
func (sc *StoreConfig) UsesDatabase() bool {
	return sc.Driver == StoreDriverSQLite || sc.Driver == StoreDriverPostgres
}

func (sc *StoreConfig) Validate() error {
	switch sc.Driver {
	case StoreDriverCSV, StoreDriverBuntDB, StoreDriverSQLite, StoreDriverPostgres:
		return nil
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (allowed: csv, buntdb, sqlite, postgres)", sc.Driver)
	}
}

// Store holds the open handle for the file-based drivers. Database-backed
// drivers use ApplicationConfig.DB instead.
type Store struct {
	Driver string
	Table  *csvstore.Table
	Bunt   *buntdb.DB
}

func OpenStore(logger *log.Logger, sc *StoreConfig) (*Store, error) {
	if err := sc.Validate(); err != nil {
		logger.Error("Invalid store configuration", "error", err)
		return nil, err
	}

	store := &Store{Driver: sc.Driver}

	switch sc.Driver {
	case StoreDriverCSV:
		table, err := csvstore.New(sc.SignupsFile, models.SignupHeader)
		if err != nil {
			return nil, err
		}
		store.Table = table
		logger.Info("Using CSV signup store", "path", sc.SignupsFile)

	case StoreDriverBuntDB:
		db, err := buntdb.Open(sc.BuntDBPath)
		if err != nil {
			logger.Error("Failed to open buntdb", "path", sc.BuntDBPath, "error", err)
			return nil, fmt.Errorf("open buntdb %s: %w", sc.BuntDBPath, err)
		}

		var cfg buntdb.Config
		if err := db.ReadConfig(&cfg); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("read buntdb config: %w", err)
		}
		cfg.SyncPolicy = buntdb.Always
		if err := db.SetConfig(cfg); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set buntdb config: %w", err)
		}

		store.Bunt = db
		logger.Info("Using buntdb signup store", "path", sc.BuntDBPath)

	default:
		logger.Info("Using database signup store", "driver", sc.Driver)
	}

	return store, nil
}

func CloseStore(store *Store, logger *log.Logger) {
	if store == nil || store.Bunt == nil {
		return
	}
	if err := store.Bunt.Close(); err != nil {
		logger.Error("Failed to close buntdb", "error", err)
		return
	}
	logger.Info("Signup store closed")
}
