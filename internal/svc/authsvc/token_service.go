package authsvc

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/postboard/internal/domain"
)

const (
	// DefaultSecret is the signing secret used when none is configured.
	DefaultSecret = "supersecret"

	// DefaultTokenMinutes is the token lifetime used when none or an invalid one is configured.
	DefaultTokenMinutes = 30
)

// TokenConfig contains the token signing parameters.
type TokenConfig struct {
	// Secret is the HMAC key tokens are signed with.
	Secret string `env:"SECRET" default:"supersecret"`

	// Expires is the token lifetime in minutes.
	Expires int64 `env:"EXPIRES" default:"30" fallback:"true"`
}

// TTL returns the configured lifetime; non-positive values fall back to the default.
func (c TokenConfig) TTL() time.Duration {
	if c.Expires <= 0 {
		return DefaultTokenMinutes * time.Minute
	}

	return time.Duration(c.Expires) * time.Minute
}

// UsesDefaultSecret reports whether tokens are signed with the built-in secret.
func (c TokenConfig) UsesDefaultSecret() bool {
	return c.Secret == DefaultSecret
}

type tokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	Config TokenConfig

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// NewTokenService creates a TokenService on the wall clock.
func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{Config: cfg, Now: time.Now}
}

func (s *TokenService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}

// Issue signs a token for claims.UserID and claims.Email, valid from now for the TTL.
func (s *TokenService) Issue(claims domain.Claims) (string, error) {
	now := s.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID: claims.UserID.String(),
		Email:  claims.Email,
		//nolint:exhaustruct
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Config.TTL())),
		},
	})

	signed, err := token.SignedString([]byte(s.Config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// Only HS256 is accepted. Expired tokens yield ErrTokenExpired, anything else ErrTokenInvalid.
func (s *TokenService) Verify(token string) (domain.Claims, error) {
	var claims tokenClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.Config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Claims{}, errors.Join(domain.ErrTokenExpired, err)
		}

		return domain.Claims{}, errors.Join(domain.ErrTokenInvalid, err)
	}

	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return domain.Claims{}, errors.Join(domain.ErrTokenInvalid, err)
	}

	result := domain.Claims{
		UserID:    userID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}

	return result, nil
}
