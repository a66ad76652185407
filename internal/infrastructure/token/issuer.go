// Package token issues and verifies the two JWT kinds used by the auth
// flows: short-lived access tokens and long-lived refresh tokens, signed
// HS256 with independent secrets so that compromise of one secret never
// compromises the other kind.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pocketchange/pocketchange-api/internal/core/domain"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Config captures the signing secrets and lifetimes for both token kinds.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer is a stateless signer/verifier. Safe for concurrent use.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewIssuer builds an Issuer from cfg, applying default lifetimes where
// none are configured. Secret strength is enforced by the config layer.
func NewIssuer(cfg Config) *Issuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignAccess mints a short-lived access token for payload.
func (i *Issuer) SignAccess(payload domain.TokenPayload) (string, error) {
	return i.sign(payload, i.accessSecret, i.accessTTL)
}

// VerifyAccess checks an access token's signature and expiry and returns
// its payload. Any failure maps to domain.ErrInvalidToken.
func (i *Issuer) VerifyAccess(token string) (domain.TokenPayload, error) {
	return i.verify(token, i.accessSecret)
}

// SignRefresh mints a long-lived refresh token for payload.
func (i *Issuer) SignRefresh(payload domain.TokenPayload) (string, error) {
	return i.sign(payload, i.refreshSecret, i.refreshTTL)
}

// VerifyRefresh checks a refresh token's signature and expiry and returns
// its payload. Any failure maps to domain.ErrInvalidToken.
func (i *Issuer) VerifyRefresh(token string) (domain.TokenPayload, error) {
	return i.verify(token, i.refreshSecret)
}

func (i *Issuer) sign(payload domain.TokenPayload, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	claims := tokenClaims{
		Role: payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func (i *Issuer) verify(token string, secret []byte) (domain.TokenPayload, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	},
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return domain.TokenPayload{}, domain.ErrInvalidToken
	}

	return domain.TokenPayload{Subject: claims.Subject, Role: claims.Role}, nil
}
