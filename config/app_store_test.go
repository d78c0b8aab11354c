package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/constants"
)

func TestNewStoreConfig_Defaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "SIGNUPS_FILE", "BUNTDB_PATH", "SQLITE_PATH"} {
		t.Setenv(key, "")
	}

	sc := NewStoreConfig()
	assert.Equal(t, StoreDriverCSV, sc.Driver)
	assert.Equal(t, constants.DefaultSignupsFile, sc.SignupsFile)
	assert.Equal(t, constants.DefaultBuntDBPath, sc.BuntDBPath)
	assert.Equal(t, constants.DefaultSQLitePath, sc.SQLitePath)
	assert.False(t, sc.UsesDatabase())
	assert.NoError(t, sc.Validate())
}

func TestNewStoreConfig_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", " SQLite ")
	t.Setenv("SIGNUPS_FILE", `"/data/signups.csv"`)
	t.Setenv("SQLITE_PATH", "/data/signups.sqlite")

	sc := NewStoreConfig()
	assert.Equal(t, StoreDriverSQLite, sc.Driver)
	assert.Equal(t, "/data/signups.csv", sc.SignupsFile)
	assert.Equal(t, "/data/signups.sqlite", sc.SQLitePath)
	assert.True(t, sc.UsesDatabase())
}

func TestStoreConfig_ValidateRejectsUnknownDriver(t *testing.T) {
	sc := &StoreConfig{Driver: "mongo"}
	assert.Error(t, sc.Validate())

	_, err := OpenStore(log.NewNopLogger(), sc)
	assert.Error(t, err)
}

func TestOpenStore_CSVDoesNotTouchDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signups.csv")

	store, err := OpenStore(log.NewNopLogger(), &StoreConfig{Driver: StoreDriverCSV, SignupsFile: path})
	require.NoError(t, err)
	require.NotNil(t, store.Table)
	assert.Nil(t, store.Bunt)
	assert.Equal(t, path, store.Table.Path())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	CloseStore(store, log.NewNopLogger())
}

func TestOpenStore_BuntDB(t *testing.T) {
	store, err := OpenStore(log.NewNopLogger(), &StoreConfig{Driver: StoreDriverBuntDB, BuntDBPath: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, store.Bunt)
	defer CloseStore(store, log.NewNopLogger())

	assert.Nil(t, store.Table)
}

func TestOpenStoreDatabase_SQLite(t *testing.T) {
	logger := log.NewNopLogger()
	sc := &StoreConfig{Driver: StoreDriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "signups.sqlite")}

	db, err := OpenStoreDatabase(logger, sc)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer CloseDatabase(db, logger)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.PingContext(context.Background()))
}

func TestOpenStoreDatabase_FileDriversHaveNoDatabase(t *testing.T) {
	for _, driver := range []string{StoreDriverCSV, StoreDriverBuntDB} {
		db, err := OpenStoreDatabase(log.NewNopLogger(), &StoreConfig{Driver: driver})
		assert.NoError(t, err)
		assert.Nil(t, db)
	}
}
