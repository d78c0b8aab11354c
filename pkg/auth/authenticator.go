// Package auth decides whether a presented credential may read privileged data.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultIssuer   = "waitlist-signup"
	DefaultAudience = "waitlist-export"
	ExportScope     = "signups:export"
	defaultLeeway   = 30 * time.Second
)

// Authenticator authorizes a presented credential (shared key or bearer token).
type Authenticator interface {
	Authorize(ctx context.Context, credential string) bool
}

// SharedSecret compares the credential against a static key in constant time.
type SharedSecret struct {
	secret []byte
}

func NewSharedSecret(secret string) (*SharedSecret, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: shared secret is empty")
	}
	return &SharedSecret{secret: []byte(secret)}, nil
}

func (s *SharedSecret) Authorize(_ context.Context, credential string) bool {
	if credential == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), s.secret) == 1
}

// HashedSecret checks the credential against a bcrypt hash so the plaintext
// key never has to live in configuration.
type HashedSecret struct {
	hash []byte
}

func NewHashedSecret(hash string) (*HashedSecret, error) {
	hash = strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: invalid bcrypt hash: %w", err)
	}
	return &HashedSecret{hash: []byte(hash)}, nil
}

func (h *HashedSecret) Authorize(_ context.Context, credential string) bool {
	if credential == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.hash, []byte(credential)) == nil
}

// HashSecret returns a bcrypt hash suitable for NewHashedSecret.
func HashSecret(secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("auth: secret is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// JWTConfig configures HS256 export tokens.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

func (c JWTConfig) withDefaults() JWTConfig {
	if strings.TrimSpace(c.Issuer) == "" {
		c.Issuer = DefaultIssuer
	}
	if strings.TrimSpace(c.Audience) == "" {
		c.Audience = DefaultAudience
	}
	if c.Leeway <= 0 {
		c.Leeway = defaultLeeway
	}
	return c
}

// ExportClaims are the claims carried by an export token.
type ExportClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

func (c *ExportClaims) hasScope(scope string) bool {
	return slices.Contains(strings.Fields(c.Scope), scope)
}

// JWTAuthenticator accepts HS256 tokens issued for the export scope.
type JWTAuthenticator struct {
	cfg JWTConfig
}

func NewJWTAuthenticator(cfg JWTConfig) (*JWTAuthenticator, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("auth: jwt secret must be at least 32 bytes")
	}
	return &JWTAuthenticator{cfg: cfg.withDefaults()}, nil
}

func (a *JWTAuthenticator) Authorize(_ context.Context, credential string) bool {
	if credential == "" {
		return false
	}

	claims := &ExportClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithAudience(a.cfg.Audience),
		jwt.WithLeeway(a.cfg.Leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return false
	}

	return claims.hasScope(ExportScope)
}

// IssueExportToken signs a token that NewJWTAuthenticator(cfg) will accept.
func IssueExportToken(cfg JWTConfig, subject string, ttl time.Duration) (string, error) {
	if len(cfg.Secret) < 32 {
		return "", errors.New("auth: jwt secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return "", errors.New("auth: token ttl must be positive")
	}
	cfg = cfg.withDefaults()

	now := time.Now().UTC()
	claims := ExportClaims{
		Scope: ExportScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// Chain authorizes when any member does. An empty chain denies everything.
type Chain []Authenticator

func (c Chain) Authorize(ctx context.Context, credential string) bool {
	for _, a := range c {
		if a != nil && a.Authorize(ctx, credential) {
			return true
		}
	}
	return false
}
