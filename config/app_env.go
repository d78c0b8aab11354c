package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

const AppEnvKey = "APP_ENV"

// InitializeEnvFile loads DOTENV_FILES (comma separated, default ".env").
// Variables already set in the process environment win. A missing file is
// normal outside development and only logged.
func InitializeEnvFile(logger *log.Logger) {
	if utils.GetEnvBool("SKIP_DOTENV", false) {
		logger.Info("Skipping .env load (SKIP_DOTENV=true)")
		return
	}

	files := strings.Split(utils.GetEnvTrimmedOrDefault("DOTENV_FILES", ".env"), ",")
	for _, file := range files {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("Env file not found", "file", file)
				continue
			}
			logger.Warn("Failed to load env file", "file", file, "error", err.Error())
			continue
		}
		logger.Info("Environment loaded", "file", file)
	}
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(utils.GetEnvTrimmed(AppEnvKey))
}

// ValidateAutoMigrateAllowed keeps --auto-migrate away from shared environments.
func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))

	switch env {
	case "", "dev", "development", "local", "test", "testing":
		return nil
	default:
		return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: \"\", dev, development, local, test, testing)", AppEnvKey, env)
	}
}

// sanitizeEnv trims a value and strips one pair of matching surrounding quotes.
func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
