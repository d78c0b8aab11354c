package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/akeren/waitlist-signup/config"
	"github.com/akeren/waitlist-signup/domain/signup"
	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/auth"
	"github.com/akeren/waitlist-signup/pkg/migrations"
	"github.com/akeren/waitlist-signup/pkg/objectstore"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

const (
	commandTimeout     = 5 * time.Minute
	defaultTokenTTL    = 24 * time.Hour
	backupLinkValidity = 24 * time.Hour
)

func runMigrate(logger *log.Logger) error {
	storeConfig := config.NewStoreConfig()
	if !storeConfig.UsesDatabase() {
		return fmt.Errorf("migrate needs STORE_DRIVER=sqlite or postgres, got %q", storeConfig.Driver)
	}

	db, err := config.OpenStoreDatabase(logger, storeConfig)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}
	// The migrate driver closes the connection itself; a second close is harmless.
	defer func() { _ = sqlDB.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	version, err := migrations.Up(ctx, sqlDB, migrations.Config{
		Dialect: storeConfig.Driver,
		Dir:     utils.GetEnvTrimmed("MIGRATIONS_DIR"),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	logger.Info("Database migrations completed", "version", version)
	return nil
}

// openRepository opens the configured store the same way the server does.
func openRepository(logger *log.Logger) (signup.SignupRepository, func(), error) {
	storeConfig := config.NewStoreConfig()

	store, err := config.OpenStore(logger, storeConfig)
	if err != nil {
		return nil, nil, err
	}

	db, err := config.OpenStoreDatabase(logger, storeConfig)
	if err != nil {
		config.CloseStore(store, logger)
		return nil, nil, err
	}

	cleanup := func() {
		config.CloseStore(store, logger)
		config.CloseDatabase(db, logger)
	}

	repository, err := signup.NewSignupRepository(signup.RepositoryConfig{
		Driver: store.Driver,
		Table:  store.Table,
		Bunt:   store.Bunt,
		DB:     db,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// A fresh SQLite file has no table yet; CSV and BuntDB report absence instead.
	if storeConfig.Driver == config.StoreDriverSQLite {
		if err := repository.Init(context.Background()); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	return repository, cleanup, nil
}

func runCount(logger *log.Logger, out io.Writer) error {
	repository, cleanup, err := openRepository(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	count, err := repository.Count(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, count)
	return err
}

func runExport(logger *log.Logger, args []string) error {
	repository, cleanup, err := openRepository(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	content, err := exportSnapshot(ctx, repository)
	if err != nil {
		return err
	}

	if len(args) == 0 || args[0] == "-" {
		_, err = os.Stdout.Write(content)
		return err
	}

	if err := os.WriteFile(args[0], content, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}
	logger.Info("Signups exported", "path", args[0], "bytes", len(content))
	return nil
}

func exportSnapshot(ctx context.Context, repository signup.SignupRepository) ([]byte, error) {
	exists, err := repository.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, signup.ErrStoreEmpty
	}

	var buf bytes.Buffer
	if err := repository.Export(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minioConfigFromEnv() objectstore.Config {
	return objectstore.Config{
		Endpoint:  utils.GetEnvTrimmed("MINIO_ENDPOINT"),
		AccessKey: utils.GetEnvTrimmed("MINIO_ACCESS_KEY"),
		SecretKey: utils.GetEnvTrimmed("MINIO_SECRET_KEY"),
		Bucket:    utils.GetEnvTrimmedOrDefault("MINIO_BUCKET", "waitlist"),
		UseSSL:    strings.EqualFold(utils.GetEnvTrimmed("MINIO_USE_SSL"), "true"),
	}
}

func runBackup(logger *log.Logger, out io.Writer) error {
	minioConfig := minioConfigFromEnv()
	if !minioConfig.Enabled() {
		return errors.New("backup needs MINIO_ENDPOINT")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	store, err := objectstore.NewMinioStore(ctx, minioConfig)
	if err != nil {
		return err
	}

	repository, cleanup, err := openRepository(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	content, err := exportSnapshot(ctx, repository)
	if err != nil {
		return err
	}

	key := objectstore.SnapshotKey(utils.GetEnvTrimmed("MINIO_PREFIX"), time.Now())
	if err := store.Put(ctx, key, bytes.NewReader(content), int64(len(content)), "text/csv"); err != nil {
		return err
	}
	logger.Info("Signup snapshot uploaded", "bucket", minioConfig.Bucket, "key", key, "bytes", len(content))

	link, err := store.PresignGet(ctx, key, backupLinkValidity)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, link)
	return err
}

func runHashExportKey(args []string, out io.Writer) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: hash-export-key <key>")
	}

	hash, err := auth.HashSecret(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

func runIssueExportToken(args []string, out io.Writer) error {
	subject := "operator"
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		subject = strings.TrimSpace(args[0])
	}

	ttl := defaultTokenTTL
	if len(args) > 1 {
		parsed, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid ttl %q: %w", args[1], err)
		}
		ttl = parsed
	}

	token, err := auth.IssueExportToken(config.NewAuthConfig().JWT(), subject, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
