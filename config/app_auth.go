package config

import (
	"os"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/auth"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

// AuthConfig holds the export credentials. Any combination may be set.
type AuthConfig struct {
	ExportKey       string
	ExportKeyBcrypt string
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
}

func NewAuthConfig() *AuthConfig {
	return &AuthConfig{
		ExportKey:       sanitizeEnv(os.Getenv("EXPORT_KEY")),
		ExportKeyBcrypt: sanitizeEnv(os.Getenv("EXPORT_KEY_BCRYPT")),
		JWTSecret:       sanitizeEnv(os.Getenv("EXPORT_JWT_SECRET")),
		JWTIssuer:       utils.GetEnvTrimmedOrDefault("EXPORT_JWT_ISSUER", auth.DefaultIssuer),
		JWTAudience:     utils.GetEnvTrimmedOrDefault("EXPORT_JWT_AUDIENCE", auth.DefaultAudience),
	}
}

func (ac *AuthConfig) JWT() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:   ac.JWTSecret,
		Issuer:   ac.JWTIssuer,
		Audience: ac.JWTAudience,
	}
}

// NewAuthenticator builds the export authenticator chain. A malformed
// credential setting is an error; no setting at all yields an empty chain
// that denies every export.
func (ac *AuthConfig) NewAuthenticator(logger *log.Logger) (auth.Chain, error) {
	var chain auth.Chain

	if ac.ExportKey != "" {
		shared, err := auth.NewSharedSecret(ac.ExportKey)
		if err != nil {
			return nil, err
		}
		chain = append(chain, shared)
	}

	if ac.ExportKeyBcrypt != "" {
		hashed, err := auth.NewHashedSecret(ac.ExportKeyBcrypt)
		if err != nil {
			logger.Error("Invalid EXPORT_KEY_BCRYPT", "error", err)
			return nil, err
		}
		chain = append(chain, hashed)
	}

	if ac.JWTSecret != "" {
		jwtAuth, err := auth.NewJWTAuthenticator(ac.JWT())
		if err != nil {
			logger.Error("Invalid EXPORT_JWT_SECRET", "error", err)
			return nil, err
		}
		chain = append(chain, jwtAuth)
	}

	if len(chain) == 0 {
		logger.Warn("No export credentials configured (EXPORT_KEY, EXPORT_KEY_BCRYPT, EXPORT_JWT_SECRET); downloads are disabled")
	} else {
		logger.Info("Export authentication configured", "methods", len(chain))
	}

	return chain, nil
}
